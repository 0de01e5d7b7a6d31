package models

import "time"

// Request lifecycle states as stored in the watering log.
const (
	StatusPending   = "PENDING"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
)

// IsTerminal reports whether no further transition is allowed from status.
func IsTerminal(status string) bool {
	return status == StatusSucceeded || status == StatusFailed
}

// ActuationRequest is one accepted watering order. Immutable once created.
type ActuationRequest struct {
	ID        string    `json:"request_id"`
	Position  int       `json:"position"`
	Line      int       `json:"line"`
	Duration  int       `json:"duration"` // in configured duration units
	CreatedAt time.Time `json:"created_at"`
}

// ActuationOutcome is produced exactly once per ActuationRequest.
type ActuationOutcome struct {
	RequestID  string    `json:"request_id"`
	Succeeded  bool      `json:"succeeded"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`

	// Err keeps the typed cause for in-process callers (exit codes, metrics).
	Err error `json:"-"`
}

// WateringRecord is the durable view of a request.
type WateringRecord struct {
	ID         string     `json:"request_id"`
	Position   int        `json:"position"`
	Line       int        `json:"line"`
	Duration   int        `json:"duration"`
	Status     string     `json:"status"` // PENDING | RUNNING | SUCCEEDED | FAILED
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	DeadlineAt time.Time  `json:"deadline_at"`
}
