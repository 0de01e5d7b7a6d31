// Package sink delivers actuation outcomes and telemetry to collaborators
// outside the process.
package sink

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"controlling_irrigation/internal/logger"
	"controlling_irrigation/internal/models"

	"github.com/sony/gobreaker"
)

// HTTPOptions configure the status callback.
type HTTPOptions struct {
	CallbackURL string
	Timeout     time.Duration
	Failures    uint32        // consecutive failures that open the breaker
	OpenFor     time.Duration // how long the breaker stays open
}

// HTTPReporter posts outcomes to the status callback endpoint:
// POST {callback}?request_id=..&success=true|false[&error=..]
type HTTPReporter struct {
	target *url.URL
	client *http.Client
	cb     *gobreaker.CircuitBreaker
	log    *logger.Logger
}

func NewHTTPReporter(opts HTTPOptions, log *logger.Logger) (*HTTPReporter, error) {
	u, err := url.Parse(opts.CallbackURL)
	if err != nil {
		return nil, fmt.Errorf("parse callback url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("callback url %q: scheme must be http or https", opts.CallbackURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Failures == 0 {
		opts.Failures = 3
	}
	if opts.OpenFor <= 0 {
		opts.OpenFor = 30 * time.Second
	}
	log = logger.OrNop(log)

	return &HTTPReporter{
		target: u,
		client: &http.Client{Timeout: opts.Timeout},
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "status-callback",
			Timeout: opts.OpenFor,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= opts.Failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warnw("breaker_state_change", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
		log: log,
	}, nil
}

func (r *HTTPReporter) Name() string { return "http" }

func (r *HTTPReporter) ReportOutcome(ctx context.Context, o models.ActuationOutcome) error {
	_, err := r.cb.Execute(func() (any, error) {
		return nil, r.post(ctx, o)
	})
	return err
}

func (r *HTTPReporter) post(ctx context.Context, o models.ActuationOutcome) error {
	u := *r.target
	q := u.Query()
	q.Set("request_id", o.RequestID)
	q.Set("success", strconv.FormatBool(o.Succeeded))
	if o.Error != "" {
		q.Set("error", o.Error)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("status callback: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("status callback: unexpected status %d", resp.StatusCode)
	}
	return nil
}
