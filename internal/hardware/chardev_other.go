//go:build !linux

package hardware

import (
	"context"
	"errors"
)

var errChardevUnsupported = errors.New("gpio character device requires linux")

// Chardev is unavailable off linux.
type Chardev struct{}

func NewChardev(string) (*Chardev, error) { return nil, errChardevUnsupported }

func (c *Chardev) Name() string { return KindChardev }

func (c *Chardev) PrepareLine(context.Context, int) error { return errChardevUnsupported }

func (c *Chardev) SetLine(context.Context, int, Level) error { return errChardevUnsupported }

func (c *Chardev) ReleaseLine(context.Context, int) {}

func (c *Chardev) Close() error { return nil }
