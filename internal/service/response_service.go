package service

import "time"

// TriggerParams is an inbound watering order.
type TriggerParams struct {
	Position int // 1..12 with the default wiring
	Duration int // in watering.duration_unit, 1..watering.max_duration
}

// TriggerResult is returned synchronously once the request is durably pending.
type TriggerResult struct {
	Accepted  bool   `json:"accepted"`
	RequestID string `json:"request_id"`
}

// HistoryFilter narrows the watering request log.
type HistoryFilter struct {
	Position int       // 0 means any
	Status   string    // "", "PENDING", "RUNNING", "SUCCEEDED", "FAILED"
	From     time.Time // inclusive; zero means no lower bound
	To       time.Time // inclusive; zero means no upper bound
	Limit    int
}

// LogFilter supports event log filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "PENDING", "RUNNING", "SUCCEEDED", "FAILED", "TIMEOUT", "RECOVERED"
}
