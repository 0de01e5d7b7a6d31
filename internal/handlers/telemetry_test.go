package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"controlling_irrigation/internal/models"
	"controlling_irrigation/internal/sensor"
	"controlling_irrigation/internal/service"
)

func ptr[T any](v T) *T { return &v }

func TestGetTelemetry(t *testing.T) {
	tel := &mockTelemetry{readings: []models.Reading{
		{Channel: "moisture:5", Value: ptr(41.5), Raw: ptr(612), Unit: "percent", Status: models.ReadingSuccess, Timestamp: "2025-08-27 15:04:05"},
		{Channel: models.TemperatureChannel, Value: ptr(21.25), Unit: "celsius", Status: models.ReadingCached, Timestamp: "2025-08-27 15:03:00", Error: "i2c timeout"},
	}}
	r := newTestRouter(&service.Service{Telemetry: tel})

	w := doRequest(t, r, http.MethodGet, "/api/v1/telemetry?channel=Moisture:5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if tel.lastSelector != "Moisture:5" {
		t.Fatalf("selector not forwarded: %q", tel.lastSelector)
	}
	var out struct {
		Count    int              `json:"count"`
		Readings []models.Reading `json:"readings"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Count != 2 || out.Readings[1].Status != models.ReadingCached || *out.Readings[0].Value != 41.5 {
		t.Fatalf("unexpected readings: %+v", out)
	}
}

func TestGetTelemetry_UnknownChannel(t *testing.T) {
	tel := &mockTelemetry{err: fmt.Errorf("%w: %q", sensor.ErrUnknownChannel, "moisture:3")}
	r := newTestRouter(&service.Service{Telemetry: tel})

	w := doRequest(t, r, http.MethodGet, "/api/v1/telemetry?channel=moisture:3", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", w.Code)
	}
}
