package hardware

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Transition is one operation observed by Fake.
type Transition struct {
	Op    string // prepare | set | release
	Line  int
	Level Level
	At    time.Time
}

// Fake is an in-memory Backend that records every operation in order.
// It is used by tests across packages.
type Fake struct {
	mu          sync.Mutex
	transitions []Transition
	levels      map[int]Level
	failSet     map[failKey]error
	failPrepare map[int]error
	closed      bool
}

type failKey struct {
	line  int
	level Level
}

// ErrInjected is the default failure returned by FailSet and FailPrepare.
var ErrInjected = errors.New("injected failure")

func NewFake() *Fake {
	return &Fake{
		levels:      make(map[int]Level),
		failSet:     make(map[failKey]error),
		failPrepare: make(map[int]error),
	}
}

// FailSet makes SetLine(line, level) fail with err (ErrInjected when nil).
func (f *Fake) FailSet(line int, level Level, err error) {
	if err == nil {
		err = ErrInjected
	}
	f.mu.Lock()
	f.failSet[failKey{line, level}] = err
	f.mu.Unlock()
}

// FailPrepare makes PrepareLine(line) fail with err (ErrInjected when nil).
func (f *Fake) FailPrepare(line int, err error) {
	if err == nil {
		err = ErrInjected
	}
	f.mu.Lock()
	f.failPrepare[line] = err
	f.mu.Unlock()
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) PrepareLine(_ context.Context, line int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions = append(f.transitions, Transition{Op: "prepare", Line: line, At: time.Now()})
	if err := f.failPrepare[line]; err != nil {
		return hwErr("fake", "prepare", line, err)
	}
	return nil
}

func (f *Fake) SetLine(_ context.Context, line int, level Level) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failSet[failKey{line, level}]; err != nil {
		return hwErr("fake", "set", line, err)
	}
	f.levels[line] = level
	f.transitions = append(f.transitions, Transition{Op: "set", Line: line, Level: level, At: time.Now()})
	return nil
}

func (f *Fake) ReleaseLine(_ context.Context, line int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions = append(f.transitions, Transition{Op: "release", Line: line, At: time.Now()})
}

func (f *Fake) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Transitions returns a copy of the recorded operations.
func (f *Fake) Transitions() []Transition {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Transition, len(f.transitions))
	copy(out, f.transitions)
	return out
}

// Sets returns only the successful SetLine operations.
func (f *Fake) Sets() []Transition {
	var out []Transition
	for _, t := range f.Transitions() {
		if t.Op == "set" {
			out = append(out, t)
		}
	}
	return out
}

// Level returns the current level of line.
func (f *Fake) Level(line int) (Level, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.levels[line]
	return l, ok
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
