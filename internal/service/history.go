package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"controlling_irrigation/internal/logger"
	"controlling_irrigation/internal/models"
	"controlling_irrigation/internal/repository"
)

// HistoryService is the durable log facade. It records request state
// changes and appends a matching event for each.
type HistoryService struct {
	watering repository.WateringRepo
	events   repository.EventRepo
	log      *logger.Logger
	now      func() time.Time
}

var _ History = (*HistoryService)(nil)

func NewHistoryService(watering repository.WateringRepo, events repository.EventRepo, log *logger.Logger) *HistoryService {
	return &HistoryService{
		watering: watering,
		events:   events,
		log:      logger.OrNop(log),
		now:      time.Now,
	}
}

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
	errInvalidStatus    = errors.New("invalid status: must be PENDING, RUNNING, SUCCEEDED or FAILED")
	errInvalidFilterPos = errors.New("invalid position filter: must be >= 0")
)

// Name identifies the durable log among outcome reporters.
func (s *HistoryService) Name() string { return "log" }

// RecordPending stores req as PENDING with the deadline the supervisor enforces.
func (s *HistoryService) RecordPending(ctx context.Context, req models.ActuationRequest, deadline time.Time) error {
	rec := models.WateringRecord{
		ID:         req.ID,
		Position:   req.Position,
		Line:       req.Line,
		Duration:   req.Duration,
		Status:     models.StatusPending,
		CreatedAt:  req.CreatedAt,
		DeadlineAt: deadline,
	}
	if err := s.watering.Create(ctx, rec); err != nil {
		return err
	}
	s.appendEvent(ctx, models.EventPending, "Watering requested", map[string]any{
		"request_id": req.ID,
		"position":   req.Position,
		"line":       req.Line,
		"duration":   req.Duration,
	})
	return nil
}

// RecordRunning moves a PENDING request to RUNNING.
func (s *HistoryService) RecordRunning(ctx context.Context, id string) error {
	changed, err := s.watering.MarkRunning(ctx, id, s.now())
	if err != nil {
		return err
	}
	if changed {
		s.appendEvent(ctx, models.EventRunning, "Pump and valve on", map[string]any{"request_id": id})
	}
	return nil
}

// ReportOutcome records the terminal state. Repeated deliveries for the same
// request are accepted and ignored.
func (s *HistoryService) ReportOutcome(ctx context.Context, o models.ActuationOutcome) error {
	status, typ, desc := models.StatusSucceeded, models.EventSucceeded, "Watering finished"
	if !o.Succeeded {
		status, typ, desc = models.StatusFailed, models.EventFailed, "Watering failed"
	}
	at := o.FinishedAt
	if at.IsZero() {
		at = s.now()
	}

	changed, err := s.watering.Complete(ctx, o.RequestID, status, o.Error, at)
	if err != nil {
		return err
	}
	if !changed {
		s.log.Debugw("outcome_already_recorded", "request_id", o.RequestID, "succeeded", o.Succeeded)
		return nil
	}
	meta := map[string]any{"request_id": o.RequestID}
	if o.Error != "" {
		meta["error"] = o.Error
	}
	s.appendEvent(ctx, typ, desc, meta)
	return nil
}

// fail closes an open request on behalf of the supervisor.
func (s *HistoryService) fail(ctx context.Context, id, reason, eventType string) (bool, error) {
	changed, err := s.watering.Complete(ctx, id, models.StatusFailed, reason, s.now())
	if err != nil || !changed {
		return changed, err
	}
	s.appendEvent(ctx, eventType, reason, map[string]any{"request_id": id})
	return true, nil
}

func (s *HistoryService) open(ctx context.Context) ([]models.WateringRecord, error) {
	return s.watering.ListOpen(ctx)
}

func (s *HistoryService) overdue(ctx context.Context, now time.Time) ([]models.WateringRecord, error) {
	return s.watering.ListOverdue(ctx, now)
}

// appendEvent never fails the caller; the request row is the source of truth.
func (s *HistoryService) appendEvent(ctx context.Context, typ, desc string, meta map[string]any) {
	err := s.events.Append(ctx, models.WateringEvent{
		OccurredAt:  s.now(),
		Type:        typ,
		Description: desc,
		Metadata:    meta,
	})
	if err != nil {
		s.log.Warnw("event_append_failed", "type", typ, "err", err)
	}
}

func (s *HistoryService) Get(ctx context.Context, id string) (models.WateringRecord, error) {
	return s.watering.Get(ctx, strings.TrimSpace(id))
}

func (s *HistoryService) List(ctx context.Context, f HistoryFilter) ([]models.WateringRecord, error) {
	if f.Position < 0 {
		return nil, errInvalidFilterPos
	}
	status := strings.ToUpper(strings.TrimSpace(f.Status))
	switch status {
	case "", models.StatusPending, models.StatusRunning, models.StatusSucceeded, models.StatusFailed:
	default:
		return nil, errInvalidStatus
	}
	from, to := normalizeToUTC(f.From), normalizeToUTC(f.To)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, errInvalidTimeRange
	}
	return s.watering.List(ctx, repository.WateringFilter{
		Position: f.Position,
		Status:   status,
		From:     from,
		To:       to,
		Limit:    f.Limit,
	})
}

func (s *HistoryService) Events(ctx context.Context, f LogFilter) ([]models.WateringEvent, error) {
	from, to, typ, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.events.List(ctx, from, to, typ)
}

// IsFilterError reports whether err came from an invalid history or log filter.
func IsFilterError(err error) bool {
	return errors.Is(err, errInvalidTimeRange) || errors.Is(err, errInvalidStatus) || errors.Is(err, errInvalidFilterPos)
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}

	return from, to, strings.TrimSpace(strings.ToUpper(f.Type)), nil
}
