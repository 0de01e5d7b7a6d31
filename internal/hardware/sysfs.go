package hardware

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/afero"
)

const (
	defaultSysfsRoot    = "/sys/class/gpio"
	defaultExportSettle = 500 * time.Millisecond
	exportPollStep      = 10 * time.Millisecond
)

// Sysfs drives lines through the kernel's /sys/class/gpio file interface.
type Sysfs struct {
	fs     afero.Fs
	root   string
	settle time.Duration // how long to wait for gpioN to appear after export

	mu     sync.Mutex
	output map[int]bool
}

// NewSysfs returns a sysfs backend rooted at root on fs.
func NewSysfs(fs afero.Fs, root string) *Sysfs {
	if root == "" {
		root = defaultSysfsRoot
	}
	return &Sysfs{
		fs:     fs,
		root:   root,
		settle: defaultExportSettle,
		output: make(map[int]bool),
	}
}

func (s *Sysfs) Name() string { return KindSysfs }

func (s *Sysfs) lineDir(line int) string {
	return path.Join(s.root, fmt.Sprintf("gpio%d", line))
}

func (s *Sysfs) write(name, value string) error {
	return afero.WriteFile(s.fs, name, []byte(value), 0o644)
}

// PrepareLine exports the line unless it is already exported.
func (s *Sysfs) PrepareLine(_ context.Context, line int) error {
	dir := s.lineDir(line)
	exists, err := afero.DirExists(s.fs, dir)
	if err != nil {
		return hwErr(KindSysfs, "prepare", line, err)
	}
	if exists {
		return nil
	}
	if err := s.write(path.Join(s.root, "export"), strconv.Itoa(line)); err != nil {
		return hwErr(KindSysfs, "export", line, err)
	}
	// udev needs a moment to create gpioN and fix its permissions.
	deadline := time.Now().Add(s.settle)
	for time.Now().Before(deadline) {
		if ok, _ := afero.DirExists(s.fs, dir); ok {
			break
		}
		time.Sleep(exportPollStep)
	}
	s.mu.Lock()
	delete(s.output, line)
	s.mu.Unlock()
	return nil
}

// SetLine writes "high"/"low" to direction on first use, which switches the
// line to output and sets its value atomically, then writes value afterwards.
func (s *Sysfs) SetLine(_ context.Context, line int, level Level) error {
	s.mu.Lock()
	isOutput := s.output[line]
	s.mu.Unlock()

	dir := s.lineDir(line)
	if !isOutput {
		if err := s.write(path.Join(dir, "direction"), level.String()); err != nil {
			return hwErr(KindSysfs, "direction", line, err)
		}
		s.mu.Lock()
		s.output[line] = true
		s.mu.Unlock()
		return nil
	}

	v := "0"
	if level == High {
		v = "1"
	}
	if err := s.write(path.Join(dir, "value"), v); err != nil {
		return hwErr(KindSysfs, "set", line, err)
	}
	return nil
}

// ReleaseLine unexports the line.
func (s *Sysfs) ReleaseLine(_ context.Context, line int) {
	s.mu.Lock()
	delete(s.output, line)
	s.mu.Unlock()
	_ = s.write(path.Join(s.root, "unexport"), strconv.Itoa(line))
}

func (s *Sysfs) Close() error { return nil }
