package hardware

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/bcm283x"
)

var errNoBCM283x = errors.New("bcm283x gpio registers not available")

// Register drives lines by writing the SoC's GPIO registers through
// /dev/gpiomem, using periph's bcm283x driver.
type Register struct {
	lookup func(name string) gpio.PinIO

	mu   sync.Mutex
	pins map[int]gpio.PinIO
}

// NewRegister initialises the periph host drivers and checks for a BCM283x SoC.
func NewRegister() (*Register, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	if !bcm283x.Present() {
		return nil, errNoBCM283x
	}
	return newRegister(gpioreg.ByName), nil
}

func newRegister(lookup func(string) gpio.PinIO) *Register {
	return &Register{lookup: lookup, pins: make(map[int]gpio.PinIO)}
}

func (r *Register) Name() string { return KindRegister }

func (r *Register) PrepareLine(_ context.Context, line int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pins[line]; ok {
		return nil
	}
	p := r.lookup(fmt.Sprintf("GPIO%d", line))
	if p == nil {
		return hwErr(KindRegister, "prepare", line, errors.New("no such pin"))
	}
	r.pins[line] = p
	return nil
}

func (r *Register) SetLine(_ context.Context, line int, level Level) error {
	r.mu.Lock()
	p, ok := r.pins[line]
	r.mu.Unlock()
	if !ok {
		return hwErr(KindRegister, "set", line, errors.New("line not prepared"))
	}
	if err := p.Out(gpio.Level(level == High)); err != nil {
		return hwErr(KindRegister, "set", line, err)
	}
	return nil
}

func (r *Register) ReleaseLine(_ context.Context, line int) {
	r.mu.Lock()
	delete(r.pins, line)
	r.mu.Unlock()
}

func (r *Register) Close() error {
	r.mu.Lock()
	r.pins = make(map[int]gpio.PinIO)
	r.mu.Unlock()
	return nil
}
