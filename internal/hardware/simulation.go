package hardware

import (
	"context"
	"sync"
	"time"

	"controlling_irrigation/internal/logger"
)

// Simulation logs intended transitions instead of driving hardware.
type Simulation struct {
	log     *logger.Logger
	waitCap time.Duration

	mu       sync.Mutex
	levels   map[int]Level
	prepared map[int]bool
}

// NewSimulation returns a simulation backend that caps waits at waitCap
// (0 disables the cap).
func NewSimulation(waitCap time.Duration, log *logger.Logger) *Simulation {
	return &Simulation{
		log:      logger.OrNop(log),
		waitCap:  waitCap,
		levels:   make(map[int]Level),
		prepared: make(map[int]bool),
	}
}

func (s *Simulation) Name() string { return KindSimulation }

func (s *Simulation) PrepareLine(_ context.Context, line int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.prepared[line] {
		s.prepared[line] = true
		s.log.Infow("sim_prepare_line", "line", line)
	}
	return nil
}

func (s *Simulation) SetLine(_ context.Context, line int, level Level) error {
	s.mu.Lock()
	s.levels[line] = level
	s.mu.Unlock()
	s.log.Infow("sim_set_line", "line", line, "level", level.String())
	return nil
}

func (s *Simulation) ReleaseLine(_ context.Context, line int) {
	s.mu.Lock()
	delete(s.prepared, line)
	s.mu.Unlock()
	s.log.Infow("sim_release_line", "line", line)
}

func (s *Simulation) Close() error { return nil }

// CapWait truncates waits longer than the configured ceiling.
func (s *Simulation) CapWait(d time.Duration) time.Duration {
	if s.waitCap > 0 && d > s.waitCap {
		s.log.Infow("sim_wait_capped", "requested", d, "capped", s.waitCap)
		return s.waitCap
	}
	return d
}

// Level returns the last level set on line.
func (s *Simulation) Level(line int) (Level, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.levels[line]
	return l, ok
}
