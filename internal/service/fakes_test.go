package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"controlling_irrigation/internal/models"
	"controlling_irrigation/internal/repository"
	"controlling_irrigation/internal/sensor"
)

// memWateringRepo is an in-memory repository.WateringRepo.
type memWateringRepo struct {
	mu        sync.Mutex
	rows      map[string]models.WateringRecord
	createErr error
	listErr   error
}

var _ repository.WateringRepo = (*memWateringRepo)(nil)

func newMemWateringRepo() *memWateringRepo {
	return &memWateringRepo{rows: make(map[string]models.WateringRecord)}
}

func (m *memWateringRepo) Create(_ context.Context, rec models.WateringRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.rows[rec.ID] = rec
	return nil
}

func (m *memWateringRepo) MarkRunning(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[id]
	if !ok || rec.Status != models.StatusPending {
		return false, nil
	}
	rec.Status = models.StatusRunning
	rec.StartedAt = &at
	m.rows[id] = rec
	return true, nil
}

func (m *memWateringRepo) Complete(_ context.Context, id, status, errText string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[id]
	if !ok || models.IsTerminal(rec.Status) {
		return false, nil
	}
	rec.Status = status
	rec.Error = errText
	rec.FinishedAt = &at
	m.rows[id] = rec
	return true, nil
}

func (m *memWateringRepo) Get(_ context.Context, id string) (models.WateringRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[id]
	if !ok {
		return models.WateringRecord{}, models.ErrNotFound
	}
	return rec, nil
}

func (m *memWateringRepo) filter(keep func(models.WateringRecord) bool) ([]models.WateringRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.WateringRecord
	for _, r := range m.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memWateringRepo) List(_ context.Context, f repository.WateringFilter) ([]models.WateringRecord, error) {
	return m.filter(func(r models.WateringRecord) bool {
		return (f.Position == 0 || r.Position == f.Position) && (f.Status == "" || r.Status == f.Status)
	})
}

func (m *memWateringRepo) ListOpen(context.Context) ([]models.WateringRecord, error) {
	return m.filter(func(r models.WateringRecord) bool { return !models.IsTerminal(r.Status) })
}

func (m *memWateringRepo) ListOverdue(_ context.Context, now time.Time) ([]models.WateringRecord, error) {
	return m.filter(func(r models.WateringRecord) bool {
		return !models.IsTerminal(r.Status) && r.DeadlineAt.Before(now)
	})
}

func (m *memWateringRepo) status(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id].Status
}

// memEventRepo records appended events and captures List arguments.
type memEventRepo struct {
	mu        sync.Mutex
	events    []models.WateringEvent
	appendErr error

	gotFrom, gotTo time.Time
	gotType        string
	listCalls      int
	listErr        error
}

func (m *memEventRepo) Append(_ context.Context, e models.WateringEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.appendErr
}

func (m *memEventRepo) List(_ context.Context, from, to time.Time, typ string) ([]models.WateringEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	m.gotFrom, m.gotTo, m.gotType = from, to, typ
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]models.WateringEvent(nil), m.events...), nil
}

func (m *memEventRepo) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

// recordingReporter collects outcomes.
type recordingReporter struct {
	name string
	err  error

	mu       sync.Mutex
	outcomes []models.ActuationOutcome
}

func (r *recordingReporter) Name() string { return r.name }

func (r *recordingReporter) ReportOutcome(_ context.Context, o models.ActuationOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	return r.err
}

func (r *recordingReporter) got() []models.ActuationOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ActuationOutcome(nil), r.outcomes...)
}

// fakeReader serves scripted samples per channel.
type fakeReader struct {
	mu      sync.Mutex
	samples map[models.Channel]sensor.Sample
	fail    map[models.Channel]error
	reads   int
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		samples: make(map[models.Channel]sensor.Sample),
		fail:    make(map[models.Channel]error),
	}
}

func (f *fakeReader) Channels() []models.Channel {
	return []models.Channel{models.MoistureChannel(5), models.MoistureChannel(8), models.TemperatureChannel}
}

func (f *fakeReader) Has(ch models.Channel) bool {
	for _, c := range f.Channels() {
		if c == ch {
			return true
		}
	}
	return false
}

func (f *fakeReader) Read(_ context.Context, ch models.Channel) (sensor.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if err := f.fail[ch]; err != nil {
		return sensor.Sample{}, err
	}
	s, ok := f.samples[ch]
	if !ok {
		return sensor.Sample{}, errors.New("no sample scripted")
	}
	return s, nil
}

func (f *fakeReader) set(ch models.Channel, s sensor.Sample, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples[ch] = s
	if err != nil {
		f.fail[ch] = err
	} else {
		delete(f.fail, ch)
	}
}
