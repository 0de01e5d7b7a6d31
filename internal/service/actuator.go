package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"controlling_irrigation/internal/arbiter"
	"controlling_irrigation/internal/hardware"
	"controlling_irrigation/internal/logger"
	"controlling_irrigation/internal/metrics"
	"controlling_irrigation/internal/models"
	"controlling_irrigation/internal/valve"
)

const cleanupTimeout = 10 * time.Second

// Actuator drives the pump and one valve through the on/wait/off sequence.
// It is the in-process Executor and the body of the water-worker binary.
type Actuator struct {
	backend  hardware.Backend
	valves   *valve.Map
	arbiter  arbiter.Arbiter
	requests RequestLog
	opts     WateringOptions
	metrics  *metrics.Metrics
	log      *logger.Logger
	now      func() time.Time
}

var _ Executor = (*Actuator)(nil)

func NewActuator(
	backend hardware.Backend,
	valves *valve.Map,
	arb arbiter.Arbiter,
	requests RequestLog,
	opts WateringOptions,
	m *metrics.Metrics,
	log *logger.Logger,
) *Actuator {
	return &Actuator{
		backend:  backend,
		valves:   valves,
		arbiter:  arb,
		requests: requests,
		opts:     opts.withDefaults(),
		metrics:  m,
		log:      logger.OrNop(log),
		now:      time.Now,
	}
}

// Execute runs req to completion. Every path that acquired the lease forces
// the valve and then the pump OFF before releasing it.
func (a *Actuator) Execute(ctx context.Context, req models.ActuationRequest) (out models.ActuationOutcome) {
	log := a.log.With("request_id", req.ID, "position", req.Position)

	valveLine, err := a.valves.Resolve(req.Position)
	if err != nil {
		return a.outcome(req, err)
	}
	pump := a.valves.Pump()
	log = log.With("line", valveLine.ID, "pump_line", pump.ID)

	lease, err := a.arbiter.Acquire(ctx, a.opts.AcquireTimeout)
	if err != nil {
		log.Warnw("pump_busy", "err", err)
		return a.outcome(req, err)
	}
	a.metrics.LeaseHeld(true)
	log.Infow("pump_lease_acquired", "lease", lease.ID)

	stopped := false
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("actuation_panic", "panic", r)
			out = a.outcome(req, fmt.Errorf("%w: panic: %v", models.ErrHardware, r))
		}
		if !stopped {
			a.forceOff(ctx, log, valveLine, pump)
		}
		rctx := context.WithoutCancel(ctx)
		a.backend.ReleaseLine(rctx, valveLine.ID)
		a.backend.ReleaseLine(rctx, pump.ID)
		lease.Release()
		a.metrics.LeaseHeld(false)
		log.Infow("pump_lease_released", "lease", lease.ID, "succeeded", out.Succeeded)
	}()

	if err := a.requests.RecordRunning(ctx, req.ID); err != nil {
		log.Warnw("record_running_failed", "err", err)
	}

	if err := a.sequence(ctx, log, req, valveLine, pump); err != nil {
		log.Errorw("actuation_failed", "err", err)
		return a.outcome(req, err)
	}
	stopped = true
	return a.outcome(req, nil)
}

func (a *Actuator) sequence(ctx context.Context, log *logger.Logger, req models.ActuationRequest, valveLine, pump valve.Line) error {
	if err := a.backend.PrepareLine(ctx, pump.ID); err != nil {
		return err
	}
	if err := a.backend.PrepareLine(ctx, valveLine.ID); err != nil {
		return err
	}
	if err := a.set(ctx, log, pump, true); err != nil {
		return err
	}
	if err := a.set(ctx, log, valveLine, true); err != nil {
		return err
	}

	wait := a.opts.RunTime(req.Duration)
	if c, ok := a.backend.(hardware.WaitCapper); ok {
		wait = c.CapWait(wait)
	}
	log.Infow("watering_running", "wait", wait.String())

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		return fmt.Errorf("interrupted after start: %w", ctx.Err())
	}

	// Valve closes before the pump stops.
	if err := a.set(ctx, log, valveLine, false); err != nil {
		return err
	}
	return a.set(ctx, log, pump, false)
}

func (a *Actuator) set(ctx context.Context, log *logger.Logger, l valve.Line, on bool) error {
	level := l.Level(on)
	if err := a.backend.SetLine(ctx, l.ID, level); err != nil {
		return err
	}
	log.Debugw("line_set", "line", l.ID, "on", on, "level", level.String())
	return nil
}

// forceOff is best-effort: both lines are attempted even if the first fails.
func (a *Actuator) forceOff(ctx context.Context, log *logger.Logger, valveLine, pump valve.Line) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	var errs []error
	for _, l := range []valve.Line{valveLine, pump} {
		if err := a.backend.SetLine(cctx, l.ID, l.Level(false)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Errorw("cleanup_failed", "err", err)
		return
	}
	log.Infow("cleanup_lines_off")
}

func (a *Actuator) outcome(req models.ActuationRequest, err error) models.ActuationOutcome {
	o := models.ActuationOutcome{
		RequestID:  req.ID,
		Succeeded:  err == nil,
		FinishedAt: a.now().UTC(),
		Err:        err,
	}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}
