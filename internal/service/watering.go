package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"controlling_irrigation/internal/logger"
	"controlling_irrigation/internal/metrics"
	"controlling_irrigation/internal/models"
	"controlling_irrigation/internal/valve"

	"github.com/google/uuid"
)

const (
	defaultMaxDuration = 60
	defaultUnit        = time.Minute
	defaultGrace       = 2 * time.Minute
)

// WateringOptions bound and time the actuation sequence.
type WateringOptions struct {
	MaxDuration    int           // upper bound for TriggerParams.Duration
	Unit           time.Duration // one duration unit
	AcquireTimeout time.Duration // 0 means fail with Busy at once
	Grace          time.Duration // slack added to the supervisor deadline
}

func (o WateringOptions) withDefaults() WateringOptions {
	if o.MaxDuration <= 0 {
		o.MaxDuration = defaultMaxDuration
	}
	if o.Unit <= 0 {
		o.Unit = defaultUnit
	}
	if o.Grace <= 0 {
		o.Grace = defaultGrace
	}
	return o
}

// RunTime converts duration units to wall time.
func (o WateringOptions) RunTime(units int) time.Duration {
	return time.Duration(units) * o.Unit
}

// Deadline is the latest time by which a request created at created must
// have reported an outcome.
func (o WateringOptions) Deadline(created time.Time, units int) time.Time {
	return created.Add(o.AcquireTimeout + o.RunTime(units) + o.Grace)
}

// RequestLog is the durable side of the request lifecycle.
type RequestLog interface {
	RecordPending(ctx context.Context, req models.ActuationRequest, deadline time.Time) error
	RecordRunning(ctx context.Context, id string) error
}

// WateringService validates triggers, records them as pending and runs
// each one on its own goroutine through an Executor.
type WateringService struct {
	valves    *valve.Map
	requests  RequestLog
	exec      Executor
	reporters []OutcomeReporter
	opts      WateringOptions
	metrics   *metrics.Metrics
	log       *logger.Logger

	wg    sync.WaitGroup
	now   func() time.Time
	newID func() string
}

var _ Watering = (*WateringService)(nil)

func NewWateringService(
	valves *valve.Map,
	requests RequestLog,
	exec Executor,
	reporters []OutcomeReporter,
	opts WateringOptions,
	m *metrics.Metrics,
	log *logger.Logger,
) *WateringService {
	return &WateringService{
		valves:    valves,
		requests:  requests,
		exec:      exec,
		reporters: reporters,
		opts:      opts.withDefaults(),
		metrics:   m,
		log:       logger.OrNop(log),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Validate checks p without side effects and returns the resolved valve line.
func (s *WateringService) Validate(p TriggerParams) (valve.Line, error) {
	line, err := s.valves.Resolve(p.Position)
	if err != nil {
		return valve.Line{}, err
	}
	if p.Duration <= 0 || p.Duration > s.opts.MaxDuration {
		return valve.Line{}, fmt.Errorf("%w: %d not in 1..%d", models.ErrInvalidDuration, p.Duration, s.opts.MaxDuration)
	}
	return line, nil
}

// Trigger returns once the request is durably PENDING. The actuation runs
// asynchronously and reports exactly one outcome. Validation and launch
// failures are returned synchronously and nothing runs.
func (s *WateringService) Trigger(ctx context.Context, p TriggerParams) (TriggerResult, error) {
	line, err := s.Validate(p)
	if err != nil {
		return TriggerResult{}, err
	}

	req := models.ActuationRequest{
		ID:        s.newID(),
		Position:  p.Position,
		Line:      line.ID,
		Duration:  p.Duration,
		CreatedAt: s.now().UTC(),
	}
	if err := s.requests.RecordPending(ctx, req, s.opts.Deadline(req.CreatedAt, req.Duration)); err != nil {
		return TriggerResult{}, fmt.Errorf("record pending request: %w", err)
	}

	s.log.Infow("watering_accepted",
		"request_id", req.ID,
		"position", req.Position,
		"line", req.Line,
		"duration", req.Duration,
		"shares_line_with", s.valves.Sharing(req.Position),
	)

	// Accepted requests outlive the inbound call.
	runCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(runCtx, req)
	}()

	return TriggerResult{Accepted: true, RequestID: req.ID}, nil
}

func (s *WateringService) run(ctx context.Context, req models.ActuationRequest) {
	start := time.Now()
	out := s.exec.Execute(ctx, req)

	result := metrics.ResultSucceeded
	switch {
	case errors.Is(out.Err, models.ErrBusy):
		result = metrics.ResultBusy
	case !out.Succeeded:
		result = metrics.ResultFailed
	}
	s.metrics.Actuation(result, time.Since(start))

	s.report(ctx, out)
}

// report delivers o to every reporter in order. Delivery failures are logged only.
func (s *WateringService) report(ctx context.Context, o models.ActuationOutcome) {
	for _, r := range s.reporters {
		err := r.ReportOutcome(ctx, o)
		s.metrics.OutcomeReport(r.Name(), err)
		if err != nil {
			s.log.Errorw("outcome_report_failed", "sink", r.Name(), "request_id", o.RequestID, "err", err)
		}
	}
}

// Wait blocks until all accepted requests have finished.
func (s *WateringService) Wait() {
	s.wg.Wait()
}
