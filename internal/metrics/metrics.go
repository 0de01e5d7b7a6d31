// Package metrics holds the Prometheus collectors for actuation and telemetry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "egarden"

// Actuation results.
const (
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"
	ResultBusy      = "busy"
)

type Metrics struct {
	registry *prometheus.Registry

	actuations  *prometheus.CounterVec
	busy        prometheus.Counter
	leaseHeld   prometheus.Gauge
	duration    prometheus.Histogram
	sensorReads *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
}

// New registers every collector on a fresh registry, so tests can build as
// many as they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		actuations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actuations_total",
			Help:      "Watering actuations by result.",
		}, []string{"result"}),
		busy: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pump_busy_total",
			Help:      "Requests that could not acquire the pump in time.",
		}),
		leaseHeld: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pump_lease_held",
			Help:      "1 while an actuation holds the pump.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "actuation_duration_seconds",
			Help:      "Wall time from pump acquire to release.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		sensorReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_reads_total",
			Help:      "Sensor reads by channel and reading status.",
		}, []string{"channel", "status"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcome_reports_total",
			Help:      "Outcome deliveries by sink and result.",
		}, []string{"sink", "result"}),
	}
	m.registry.MustRegister(
		m.actuations,
		m.busy,
		m.leaseHeld,
		m.duration,
		m.sensorReads,
		m.outcomes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Actuation(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.actuations.WithLabelValues(result).Inc()
	if result == ResultBusy {
		m.busy.Inc()
		return
	}
	m.duration.Observe(took.Seconds())
}

func (m *Metrics) LeaseHeld(held bool) {
	if m == nil {
		return
	}
	if held {
		m.leaseHeld.Set(1)
		return
	}
	m.leaseHeld.Set(0)
}

func (m *Metrics) SensorRead(channel, status string) {
	if m == nil {
		return
	}
	m.sensorReads.WithLabelValues(channel, status).Inc()
}

func (m *Metrics) OutcomeReport(sink string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.outcomes.WithLabelValues(sink, result).Inc()
}
