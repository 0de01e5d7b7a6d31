package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"controlling_irrigation/internal/logger"
	"controlling_irrigation/internal/metrics"
	"controlling_irrigation/internal/models"
	"controlling_irrigation/internal/sensor"
)

// TelemetryService answers sensor queries. A failed live read falls back to
// that channel's own cache slot.
type TelemetryService struct {
	reader    SensorReader
	cache     *sensor.Cache
	exporters []TelemetryExporter
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time
}

var _ Telemetry = (*TelemetryService)(nil)

func NewTelemetryService(reader SensorReader, cache *sensor.Cache, exporters []TelemetryExporter, m *metrics.Metrics, log *logger.Logger) *TelemetryService {
	if cache == nil {
		cache = sensor.NewCache()
	}
	return &TelemetryService{
		reader:    reader,
		cache:     cache,
		exporters: exporters,
		metrics:   m,
		log:       logger.OrNop(log),
		now:       time.Now,
	}
}

func (s *TelemetryService) Channels() []models.Channel {
	return s.reader.Channels()
}

// Read returns one reading per selected channel. An empty selector reads
// every channel. The only error is an unknown channel.
func (s *TelemetryService) Read(ctx context.Context, selector string) ([]models.Reading, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		chans := s.reader.Channels()
		out := make([]models.Reading, 0, len(chans))
		for _, ch := range chans {
			out = append(out, s.ReadChannel(ctx, ch))
		}
		return out, nil
	}

	ch := models.Channel(strings.ToLower(selector))
	if place, ok := ch.Place(); ok {
		// moisture:05 and moisture:+5 share the cache slot of moisture:5.
		ch = models.MoistureChannel(place)
	}
	if !s.reader.Has(ch) {
		return nil, fmt.Errorf("%w: %q", sensor.ErrUnknownChannel, selector)
	}
	return []models.Reading{s.ReadChannel(ctx, ch)}, nil
}

// ReadChannel always returns a reading: live, cached or error.
func (s *TelemetryService) ReadChannel(ctx context.Context, ch models.Channel) models.Reading {
	now := s.now()
	r := models.Reading{Channel: ch, Unit: ch.Unit()}

	sample, err := s.reader.Read(ctx, ch)
	if err == nil {
		s.cache.Observe(ch, sample.Value, now)
		v, raw := sample.Value, sample.Raw
		r.Value, r.Raw = &v, &raw
		r.Status = models.ReadingSuccess
		r.Timestamp = now.Format(models.TimestampLayout)
		s.metrics.SensorRead(string(ch), r.Status)
		s.export(ctx, r)
		return r
	}

	s.cache.MarkStale(ch)
	r.Error = err.Error()
	if cached, ok := s.cache.Lookup(ch); ok {
		v := cached.Value
		r.Value = &v
		r.Status = models.ReadingCached
		r.Timestamp = cached.Timestamp.Format(models.TimestampLayout)
	} else {
		r.Status = models.ReadingError
		r.Timestamp = now.Format(models.TimestampLayout)
	}
	s.metrics.SensorRead(string(ch), r.Status)
	s.log.Warnw("telemetry_degraded", "channel", ch, "status", r.Status, "err", err)
	return r
}

func (s *TelemetryService) export(ctx context.Context, r models.Reading) {
	for _, e := range s.exporters {
		if err := e.Export(ctx, r); err != nil {
			s.log.Warnw("telemetry_export_failed", "sink", e.Name(), "channel", r.Channel, "err", err)
		}
	}
}
