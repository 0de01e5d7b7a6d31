package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestActuationCounters(t *testing.T) {
	m := New()

	m.Actuation(ResultSucceeded, 3*time.Second)
	m.Actuation(ResultFailed, time.Second)
	m.Actuation(ResultBusy, 0)
	m.Actuation(ResultBusy, 0)

	if got := testutil.ToFloat64(m.actuations.WithLabelValues(ResultSucceeded)); got != 1 {
		t.Fatalf("succeeded = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.actuations.WithLabelValues(ResultBusy)); got != 2 {
		t.Fatalf("busy actuations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.busy); got != 2 {
		t.Fatalf("busy_total = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.duration); got != 1 {
		t.Fatalf("duration series = %d, want 1", got)
	}
}

func TestLeaseGauge(t *testing.T) {
	m := New()
	m.LeaseHeld(true)
	if got := testutil.ToFloat64(m.leaseHeld); got != 1 {
		t.Fatalf("gauge = %v, want 1", got)
	}
	m.LeaseHeld(false)
	if got := testutil.ToFloat64(m.leaseHeld); got != 0 {
		t.Fatalf("gauge = %v, want 0", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Actuation(ResultSucceeded, time.Second)
	m.LeaseHeld(true)
	m.SensorRead("temperature", "success")
	m.OutcomeReport("http", errors.New("x"))
}

func TestHandlerExposesSeries(t *testing.T) {
	m := New()
	m.SensorRead("moisture_5", "cached")
	m.OutcomeReport("mqtt", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`egarden_sensor_reads_total{channel="moisture_5",status="cached"} 1`,
		`egarden_outcome_reports_total{result="ok",sink="mqtt"} 1`,
		`egarden_pump_lease_held 0`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
