package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"controlling_irrigation/internal/models"
	"controlling_irrigation/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ---- Service Mocks ----

type mockWatering struct {
	res       service.TriggerResult
	err       error
	lastParam service.TriggerParams
	calls     int
}

func (m *mockWatering) Trigger(ctx context.Context, p service.TriggerParams) (service.TriggerResult, error) {
	m.calls++
	m.lastParam = p
	return m.res, m.err
}
func (m *mockWatering) Wait() {}

type mockHistory struct {
	record    models.WateringRecord
	getErr    error
	records   []models.WateringRecord
	listErr   error
	events    []models.WateringEvent
	eventsErr error
	reportErr error

	lastID      string
	lastFilter  service.HistoryFilter
	lastLog     service.LogFilter
	lastOutcome *models.ActuationOutcome
}

func (m *mockHistory) Get(ctx context.Context, id string) (models.WateringRecord, error) {
	m.lastID = id
	return m.record, m.getErr
}
func (m *mockHistory) List(ctx context.Context, f service.HistoryFilter) ([]models.WateringRecord, error) {
	m.lastFilter = f
	return m.records, m.listErr
}
func (m *mockHistory) Events(ctx context.Context, f service.LogFilter) ([]models.WateringEvent, error) {
	m.lastLog = f
	return m.events, m.eventsErr
}
func (m *mockHistory) ReportOutcome(ctx context.Context, o models.ActuationOutcome) error {
	m.lastOutcome = &o
	return m.reportErr
}

type mockTelemetry struct {
	mu           sync.Mutex
	readings     []models.Reading
	err          error
	lastSelector string
	reads        int
}

func (m *mockTelemetry) Channels() []models.Channel {
	out := make([]models.Channel, 0, len(m.readings))
	for _, r := range m.readings {
		out = append(out, r.Channel)
	}
	return out
}
func (m *mockTelemetry) Read(ctx context.Context, selector string) ([]models.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	m.lastSelector = selector
	return m.readings, m.err
}

// ---- Shared Test Helpers ----

const testSecret = "test-secret"

func newTestRouter(s *service.Service, opts ...Option) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil, append([]Option{WithJWTSecret(testSecret)}, opts...)...)
	return h.InitRoutes()
}

func signToken(secret, subject string, ttl time.Duration) string {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	return signed
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
