package service

import (
	"context"
	"time"

	"controlling_irrigation/internal/arbiter"
	"controlling_irrigation/internal/hardware"
	"controlling_irrigation/internal/logger"
	"controlling_irrigation/internal/metrics"
	"controlling_irrigation/internal/models"
	"controlling_irrigation/internal/repository"
	"controlling_irrigation/internal/sensor"
	"controlling_irrigation/internal/valve"
)

// Watering accepts actuation requests and runs them asynchronously.
type Watering interface {
	Trigger(ctx context.Context, p TriggerParams) (TriggerResult, error)
	// Wait blocks until every accepted request has reported its outcome.
	Wait()
}

// History is the durable watering log.
type History interface {
	Get(ctx context.Context, id string) (models.WateringRecord, error)
	List(ctx context.Context, f HistoryFilter) ([]models.WateringRecord, error)
	Events(ctx context.Context, f LogFilter) ([]models.WateringEvent, error)
	ReportOutcome(ctx context.Context, o models.ActuationOutcome) error
}

// Telemetry answers sensor queries, falling back to cached values.
type Telemetry interface {
	Channels() []models.Channel
	Read(ctx context.Context, selector string) ([]models.Reading, error)
}

// Supervisor restores a safe state at startup and fails requests that
// never reported.
type Supervisor interface {
	Recover(ctx context.Context) error
	Run(ctx context.Context, tick time.Duration)
}

// OutcomeReporter receives exactly one outcome per accepted request.
type OutcomeReporter interface {
	Name() string
	ReportOutcome(ctx context.Context, o models.ActuationOutcome) error
}

// TelemetryExporter receives every successful live reading.
type TelemetryExporter interface {
	Name() string
	Export(ctx context.Context, r models.Reading) error
}

// SensorReader is the live read side of the sensor package.
type SensorReader interface {
	Channels() []models.Channel
	Has(ch models.Channel) bool
	Read(ctx context.Context, ch models.Channel) (sensor.Sample, error)
}

// Executor runs one actuation to completion and returns its outcome.
type Executor interface {
	Execute(ctx context.Context, req models.ActuationRequest) models.ActuationOutcome
}

type Service struct {
	Watering
	History
	Telemetry
	Supervisor
}

// Deps are the collaborators NewService wires together.
type Deps struct {
	Backend  hardware.Backend
	Valves   *valve.Map
	Arbiter  arbiter.Arbiter
	Reader   SensorReader
	Cache    *sensor.Cache
	Options  WateringOptions
	Executor Executor // nil runs actuations in-process

	// Reporters run after the durable log, in order.
	Reporters []OutcomeReporter
	Exporters []TelemetryExporter

	Metrics *metrics.Metrics
	Log     *logger.Logger
}

// NewService wires the repository layer and hardware into concrete services.
func NewService(repos *repository.Repository, d Deps) *Service {
	history := NewHistoryService(repos.Watering, repos.Events, d.Log)

	exec := d.Executor
	if exec == nil {
		exec = NewActuator(d.Backend, d.Valves, d.Arbiter, history, d.Options, d.Metrics, d.Log)
	}
	reporters := append([]OutcomeReporter{history}, d.Reporters...)

	return &Service{
		Watering:   NewWateringService(d.Valves, history, exec, reporters, d.Options, d.Metrics, d.Log),
		History:    history,
		Telemetry:  NewTelemetryService(d.Reader, d.Cache, d.Exporters, d.Metrics, d.Log),
		Supervisor: NewSupervisorService(d.Backend, d.Valves, d.Arbiter, history, d.Log),
	}
}
