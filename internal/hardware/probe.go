package hardware

import (
	"fmt"
	"os"
	"os/exec"
	"path"
	"time"

	"controlling_irrigation/internal/logger"

	"github.com/spf13/afero"
)

// Options select and configure the backend.
type Options struct {
	Backend           string // "" or "auto" probes
	GPIOMem           string
	Chip              string
	SysfsRoot         string
	Command           string
	SimulationWaitCap time.Duration
}

// prober holds the environment checks and constructors used by Probe.
type prober struct {
	writable func(path string) bool
	exists   func(path string) bool
	lookPath func(file string) (string, error)

	openRegister func() (Backend, error)
	openChardev  func(chip string) (Backend, error)
	openSysfs    func(root string) Backend
	openCommand  func(tool string) (Backend, error)
}

func defaultProber() prober {
	return prober{
		writable: writable,
		exists: func(p string) bool {
			_, err := os.Stat(p)
			return err == nil
		},
		lookPath:     exec.LookPath,
		openRegister: func() (Backend, error) { return NewRegister() },
		openChardev:  func(chip string) (Backend, error) { return NewChardev(chip) },
		openSysfs:    func(root string) Backend { return NewSysfs(afero.NewOsFs(), root) },
		openCommand:  func(tool string) (Backend, error) { return NewCommand(tool, nil) },
	}
}

// Probe selects the backend once, at startup. Without a pinned backend it
// tries register, chardev, sysfs and command access in that order and falls
// back to simulation.
func Probe(opts Options, log *logger.Logger) (Backend, error) {
	return defaultProber().probe(opts, logger.OrNop(log))
}

func (p prober) probe(opts Options, log *logger.Logger) (Backend, error) {
	if opts.Backend != "" && opts.Backend != "auto" {
		b, err := p.open(opts.Backend, opts, log)
		if err != nil {
			return nil, fmt.Errorf("open %s backend: %w", opts.Backend, err)
		}
		log.Infow("hardware_backend_selected", "backend", b.Name(), "pinned", true)
		return b, nil
	}

	for _, kind := range []string{KindRegister, KindChardev, KindSysfs, KindCommand} {
		if !p.available(kind, opts) {
			log.Debugw("hardware_backend_unavailable", "backend", kind)
			continue
		}
		b, err := p.open(kind, opts, log)
		if err != nil {
			log.Warnw("hardware_backend_open_failed", "backend", kind, "err", err)
			continue
		}
		log.Infow("hardware_backend_selected", "backend", b.Name())
		return b, nil
	}

	log.Warnw("hardware_backend_selected", "backend", KindSimulation, "reason", "no hardware access path found")
	return NewSimulation(opts.SimulationWaitCap, log), nil
}

func (p prober) available(kind string, opts Options) bool {
	switch kind {
	case KindRegister:
		return opts.GPIOMem != "" && p.writable(opts.GPIOMem)
	case KindChardev:
		return opts.Chip != "" && p.exists(path.Join("/dev", opts.Chip))
	case KindSysfs:
		return opts.SysfsRoot != "" && p.writable(path.Join(opts.SysfsRoot, "export"))
	case KindCommand:
		_, err := p.commandTool(opts)
		return err == nil
	}
	return false
}

func (p prober) commandTool(opts Options) (string, error) {
	if opts.Command != "" {
		return p.lookPath(opts.Command)
	}
	for _, tool := range commandTools {
		if found, err := p.lookPath(tool); err == nil {
			return found, nil
		}
	}
	return "", fmt.Errorf("none of %v found", commandTools)
}

func (p prober) open(kind string, opts Options, log *logger.Logger) (Backend, error) {
	switch kind {
	case KindRegister:
		return p.openRegister()
	case KindChardev:
		return p.openChardev(opts.Chip)
	case KindSysfs:
		return p.openSysfs(opts.SysfsRoot), nil
	case KindCommand:
		tool, err := p.commandTool(opts)
		if err != nil {
			return nil, err
		}
		return p.openCommand(tool)
	case KindSimulation:
		return NewSimulation(opts.SimulationWaitCap, log), nil
	}
	return nil, fmt.Errorf("unknown backend %q", kind)
}
