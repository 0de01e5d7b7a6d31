package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"controlling_irrigation/internal/arbiter"
	"controlling_irrigation/internal/hardware"
	"controlling_irrigation/internal/logger"
	"controlling_irrigation/internal/models"
	"controlling_irrigation/internal/valve"
)

const (
	recoverAcquireTimeout = 10 * time.Second

	reasonRestart = "interrupted by restart"
	reasonTimeout = "supervisor timeout: no outcome reported before deadline"
)

// SupervisorService closes the gaps an unreporting actuation leaves behind.
type SupervisorService struct {
	backend hardware.Backend
	valves  *valve.Map
	arbiter arbiter.Arbiter
	history *HistoryService
	log     *logger.Logger
	now     func() time.Time
}

var _ Supervisor = (*SupervisorService)(nil)

func NewSupervisorService(backend hardware.Backend, valves *valve.Map, arb arbiter.Arbiter, history *HistoryService, log *logger.Logger) *SupervisorService {
	return &SupervisorService{
		backend: backend,
		valves:  valves,
		arbiter: arb,
		history: history,
		log:     logger.OrNop(log),
		now:     time.Now,
	}
}

// Recover runs once at startup. Holding the pump lease, it drives every
// valve and then the pump OFF, and fails every request still open in the
// log. If another process holds the lease, its requests are live and are
// left to the deadline sweep.
func (s *SupervisorService) Recover(ctx context.Context) error {
	lease, err := s.arbiter.Acquire(ctx, recoverAcquireTimeout)
	if err != nil {
		if errors.Is(err, models.ErrBusy) {
			s.log.Warnw("recover_skipped_lease_held", "err", err)
			return nil
		}
		return fmt.Errorf("acquire pump lease: %w", err)
	}
	defer lease.Release()

	lineErr := s.forceSafeState(ctx)

	open, err := s.history.open(ctx)
	if err != nil {
		return errors.Join(lineErr, fmt.Errorf("list open requests: %w", err))
	}
	for _, rec := range open {
		if _, err := s.history.fail(ctx, rec.ID, reasonRestart, models.EventRecovered); err != nil {
			s.log.Errorw("recover_request_failed", "request_id", rec.ID, "err", err)
			continue
		}
		s.log.Warnw("request_recovered", "request_id", rec.ID, "position", rec.Position, "status", rec.Status)
	}
	return lineErr
}

func (s *SupervisorService) forceSafeState(ctx context.Context) error {
	lines := append(s.valves.Lines(), s.valves.Pump())
	err := linesOff(ctx, s.backend, lines...)
	if err != nil {
		s.log.Errorw("safe_state_incomplete", "err", err)
	} else {
		s.log.Infow("safe_state_applied", "backend", s.backend.Name(), "lines", len(lines))
	}
	return err
}

// linesOff drives each line to its OFF level, in order, from a process that
// does not already hold them prepared. Every line is attempted.
func linesOff(ctx context.Context, backend hardware.Backend, lines ...valve.Line) error {
	var errs []error
	for _, l := range lines {
		if err := backend.PrepareLine(ctx, l.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := backend.SetLine(ctx, l.ID, l.Level(false)); err != nil {
			errs = append(errs, err)
		}
		backend.ReleaseLine(ctx, l.ID)
	}
	return errors.Join(errs...)
}

// Run sweeps overdue requests every tick until ctx is canceled.
func (s *SupervisorService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.sweep(ctx, s.now())
		}
	}
}

// sweep fails requests whose deadline has passed and returns how many.
func (s *SupervisorService) sweep(ctx context.Context, now time.Time) int {
	overdue, err := s.history.overdue(ctx, now)
	if err != nil {
		s.log.Errorw("supervisor_list_failed", "err", err)
		return 0
	}
	n := 0
	for _, rec := range overdue {
		changed, err := s.history.fail(ctx, rec.ID, reasonTimeout, models.EventTimeout)
		if err != nil {
			s.log.Errorw("supervisor_fail_request", "request_id", rec.ID, "err", err)
			continue
		}
		if changed {
			n++
			s.log.Warnw("request_timed_out", "request_id", rec.ID, "position", rec.Position, "deadline", rec.DeadlineAt)
		}
	}
	return n
}
