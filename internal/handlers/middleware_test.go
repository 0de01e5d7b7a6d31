package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"controlling_irrigation/internal/service"

	"github.com/gin-gonic/gin"
)

// minimal router wiring only the middleware + a protected endpoint
func newMiddlewareOnlyRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(&service.Service{}, nil, WithJWTSecret(secret))
	r.GET("/secure", h.authMiddleware, func(c *gin.Context) {
		sub, _ := c.Get(subjectKey)
		c.JSON(http.StatusOK, gin.H{"ok": true, "subject": sub})
	})
	return r
}

func TestAuthMiddleware_Errors(t *testing.T) {
	cases := []struct {
		name   string
		header string
		errMsg string
	}{
		{"missing header", "", "missing Authorization header"},
		{"invalid scheme", "Token abc", "invalid Authorization header format"},
		{"bearer without token", "Bearer", "invalid Authorization header format"},
		{"bearer blank token", "Bearer   ", "invalid Authorization header format"},
		{"garbage token", "Bearer not.a.jwt", "invalid or expired token"},
		{"wrong secret", "Bearer " + signToken("other", "u1", time.Hour), "invalid or expired token"},
		{"expired", "Bearer " + signToken(testSecret, "u1", -time.Minute), "invalid or expired token"},
		{"no subject", "Bearer " + signToken(testSecret, "", time.Hour), "invalid or expired token"},
	}

	r := newMiddlewareOnlyRouter(testSecret)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status: got %d, want 401 (body=%s)", w.Code, w.Body.String())
			}
			var out struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if out.Error != tc.errMsg {
				t.Fatalf("error message: got %q, want %q", out.Error, tc.errMsg)
			}
		})
	}
}

func TestAuthMiddleware_ValidTokenSetsSubject(t *testing.T) {
	r := newMiddlewareOnlyRouter(testSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(testSecret, "gardener", time.Hour))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d; body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		OK      bool   `json:"ok"`
		Subject string `json:"subject"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.OK || resp.Subject != "gardener" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAuthMiddleware_DisabledWithoutSecret(t *testing.T) {
	r := newMiddlewareOnlyRouter("")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secure", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
}

func TestLoopbackOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(&service.Service{}, nil)
	r := gin.New()
	_ = r.SetTrustedProxies(nil)
	r.GET("/internal/ping", h.loopbackOnly, func(c *gin.Context) { c.Status(http.StatusNoContent) })

	cases := []struct {
		name   string
		remote string
		xff    string
		want   int
	}{
		{"ipv4 loopback", "127.0.0.1:5555", "", http.StatusNoContent},
		{"ipv6 loopback", "[::1]:5555", "", http.StatusNoContent},
		{"lan client", "192.168.1.20:5555", "", http.StatusForbidden},
		{"forged forwarded header", "192.168.1.20:5555", "127.0.0.1", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/internal/ping", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status: got %d, want %d", w.Code, tc.want)
			}
		})
	}
}
