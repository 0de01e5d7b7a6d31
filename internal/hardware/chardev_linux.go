//go:build linux

package hardware

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

type chardevLine struct {
	line   *gpiocdev.Line
	output bool
}

// Chardev drives lines through the GPIO character device (/dev/gpiochipN).
type Chardev struct {
	chip *gpiocdev.Chip

	mu    sync.Mutex
	lines map[int]*chardevLine
}

// NewChardev opens the named chip, e.g. "gpiochip0".
func NewChardev(chip string) (*Chardev, error) {
	c, err := gpiocdev.NewChip(chip, gpiocdev.WithConsumer("e-garden"))
	if err != nil {
		return nil, fmt.Errorf("open chip %s: %w", chip, err)
	}
	return &Chardev{chip: c, lines: make(map[int]*chardevLine)}, nil
}

func (c *Chardev) Name() string { return KindChardev }

// PrepareLine requests the line without changing its direction.
func (c *Chardev) PrepareLine(_ context.Context, line int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lines[line]; ok {
		return nil
	}
	l, err := c.chip.RequestLine(line, gpiocdev.AsIs)
	if err != nil {
		return hwErr(KindChardev, "prepare", line, err)
	}
	c.lines[line] = &chardevLine{line: l}
	return nil
}

func (c *Chardev) SetLine(_ context.Context, line int, level Level) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, ok := c.lines[line]
	if !ok {
		return hwErr(KindChardev, "set", line, errors.New("line not prepared"))
	}
	v := 0
	if level == High {
		v = 1
	}
	if !cl.output {
		if err := cl.line.Reconfigure(gpiocdev.AsOutput(v)); err != nil {
			return hwErr(KindChardev, "set", line, err)
		}
		cl.output = true
		return nil
	}
	if err := cl.line.SetValue(v); err != nil {
		return hwErr(KindChardev, "set", line, err)
	}
	return nil
}

func (c *Chardev) ReleaseLine(_ context.Context, line int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.lines[line]; ok {
		_ = cl.line.Close()
		delete(c.lines, line)
	}
}

// Close releases every requested line and the chip.
func (c *Chardev) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for n, cl := range c.lines {
		if err := cl.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", n, err))
		}
		delete(c.lines, n)
	}
	if err := c.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}
	return errors.Join(errs...)
}
