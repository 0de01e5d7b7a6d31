package hardware

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Runner executes a utility and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Utilities understood by the command backend, in probe order.
var commandTools = []string{"raspi-gpio", "gpio"}

// Command drives lines by invoking raspi-gpio, or wiringPi's gpio utility.
type Command struct {
	tool string
	run  Runner
}

// NewCommand returns a command backend for tool (a path or a name on PATH).
// A nil runner executes the real utility.
func NewCommand(tool string, run Runner) (*Command, error) {
	switch filepath.Base(tool) {
	case "raspi-gpio", "gpio":
	default:
		return nil, fmt.Errorf("unsupported gpio utility %q", tool)
	}
	if run == nil {
		run = execRunner
	}
	return &Command{tool: tool, run: run}, nil
}

func (c *Command) Name() string { return KindCommand }

func (c *Command) wiringPi() bool { return filepath.Base(c.tool) == "gpio" }

func (c *Command) exec(ctx context.Context, op string, line int, args ...string) error {
	out, err := c.run(ctx, c.tool, args...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return hwErr(KindCommand, op, line, err)
	}
	return nil
}

// PrepareLine checks that the utility can address the line.
func (c *Command) PrepareLine(ctx context.Context, line int) error {
	n := strconv.Itoa(line)
	if c.wiringPi() {
		return c.exec(ctx, "prepare", line, "-g", "read", n)
	}
	return c.exec(ctx, "prepare", line, "get", n)
}

func (c *Command) SetLine(ctx context.Context, line int, level Level) error {
	n := strconv.Itoa(line)
	if c.wiringPi() {
		v := "0"
		if level == High {
			v = "1"
		}
		// Latch the value before switching direction.
		if err := c.exec(ctx, "set", line, "-g", "write", n, v); err != nil {
			return err
		}
		return c.exec(ctx, "set", line, "-g", "mode", n, "out")
	}
	drive := "dl"
	if level == High {
		drive = "dh"
	}
	return c.exec(ctx, "set", line, "set", n, "op", drive)
}

// ReleaseLine is a no-op: the utilities keep no per-line state.
func (c *Command) ReleaseLine(context.Context, int) {}

func (c *Command) Close() error { return nil }
