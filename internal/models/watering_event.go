package models

import "time"

// Event types appended to the watering event log.
const (
	EventPending   = "PENDING"
	EventRunning   = "RUNNING"
	EventSucceeded = "SUCCEEDED"
	EventFailed    = "FAILED"
	EventTimeout   = "TIMEOUT"
	EventRecovered = "RECOVERED"
)

// WateringEvent is a single log entry.
type WateringEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
