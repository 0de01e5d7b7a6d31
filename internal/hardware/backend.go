// Package hardware drives digital output lines (pump and valves) through one
// of several access paths chosen once at startup.
package hardware

import (
	"context"
	"fmt"
	"time"

	"controlling_irrigation/internal/models"
)

// Level is the electrical level of a line. Polarity is applied by callers.
type Level int

const (
	Low Level = iota
	High
)

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// Backend names, also accepted by hardware.backend in config.
const (
	KindRegister   = "register"
	KindChardev    = "chardev"
	KindSysfs      = "sysfs"
	KindCommand    = "command"
	KindSimulation = "simulation"
)

// Backend is the low-level line control capability set.
//
// PrepareLine claims a line and is idempotent. The first SetLine after
// PrepareLine switches the line to output at the requested level, so no
// intermediate level is ever driven. ReleaseLine is best-effort and never fails.
type Backend interface {
	Name() string
	PrepareLine(ctx context.Context, line int) error
	SetLine(ctx context.Context, line int, level Level) error
	ReleaseLine(ctx context.Context, line int)
	Close() error
}

// WaitCapper is implemented by backends that shorten actuation waits.
type WaitCapper interface {
	CapWait(d time.Duration) time.Duration
}

// HardwareError reports a failed line operation.
type HardwareError struct {
	Backend string
	Op      string
	Line    int
	Err     error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("%s: %s line %d: %v", e.Backend, e.Op, e.Line, e.Err)
}

func (e *HardwareError) Unwrap() error { return e.Err }

// Is makes every HardwareError match models.ErrHardware.
func (e *HardwareError) Is(target error) bool { return target == models.ErrHardware }

func hwErr(backend, op string, line int, err error) error {
	return &HardwareError{Backend: backend, Op: op, Line: line, Err: err}
}
