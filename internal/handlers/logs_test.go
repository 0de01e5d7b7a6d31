package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"controlling_irrigation/internal/models"
	"controlling_irrigation/internal/service"
)

func TestLogsHandler_ListAndValidation(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	events := []models.WateringEvent{
		{EventID: "e1", OccurredAt: now, Type: models.EventPending, Description: "Watering requested"},
		{EventID: "e2", OccurredAt: now.Add(time.Second), Type: models.EventRunning, Description: "Watering started"},
	}
	hist := &mockHistory{events: events}
	r := newTestRouter(&service.Service{History: hist})

	if w := doRequest(t, r, http.MethodGet, "/api/v1/logs?from=notatime", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid 'from', got %d", w.Code)
	}

	q := "/api/v1/logs?from=" + now.Format(time.RFC3339) + "&to=" + now.Add(2*time.Second).Format(time.RFC3339) + "&type=running"
	w := doRequest(t, r, http.MethodGet, q, "")
	if w.Code != http.StatusOK {
		t.Fatalf("logs status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count  int                    `json:"count"`
		Events []models.WateringEvent `json:"events"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Events) != 2 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if hist.lastLog.Type != models.EventRunning {
		t.Fatalf("expected type RUNNING, got %q", hist.lastLog.Type)
	}
	if !hist.lastLog.From.Equal(now) || !hist.lastLog.To.Equal(now.Add(2*time.Second)) {
		t.Fatalf("range not forwarded: %+v", hist.lastLog)
	}
}

func TestLogsHandler_ServiceError(t *testing.T) {
	hist := &mockHistory{eventsErr: errors.New("db locked")}
	r := newTestRouter(&service.Service{History: hist})
	if w := doRequest(t, r, http.MethodGet, "/api/v1/logs", ""); w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want 500", w.Code)
	}
}

func TestParseQueryTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2025-08-27T15:04:05Z", time.Date(2025, 8, 27, 15, 4, 5, 0, time.UTC), true},
		{"2025-08-27T17:04:05+02:00", time.Date(2025, 8, 27, 15, 4, 5, 0, time.UTC), true},
		{"2025-08-27 15:04:05", time.Date(2025, 8, 27, 15, 4, 5, 0, time.UTC), true},
		{"2025-08-27", time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC), true},
		{"27/08/2025", time.Time{}, false},
	}
	for _, tc := range cases {
		got, err := parseQueryTime(tc.in)
		if (err == nil) != tc.ok {
			t.Fatalf("%q: err=%v, want ok=%v", tc.in, err, tc.ok)
		}
		if tc.ok && !got.Equal(tc.want) {
			t.Fatalf("%q: got %v, want %v", tc.in, got, tc.want)
		}
	}
}
