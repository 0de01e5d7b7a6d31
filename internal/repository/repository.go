package repository

import (
	"context"
	"database/sql"
	"time"

	"controlling_irrigation/internal/models"
)

// WateringFilter narrows List results. Zero values mean "any".
type WateringFilter struct {
	Position int
	Status   string
	From     time.Time // inclusive, on created_at
	To       time.Time // inclusive, on created_at
	Limit    int
}

// WateringRepo is the durable request log.
type WateringRepo interface {
	Create(ctx context.Context, rec models.WateringRecord) error
	// MarkRunning moves a PENDING row to RUNNING. It reports whether a row changed.
	MarkRunning(ctx context.Context, id string, at time.Time) (bool, error)
	// Complete moves a non-terminal row to a terminal status. It reports whether
	// a row changed, so repeated deliveries are harmless.
	Complete(ctx context.Context, id, status, errText string, at time.Time) (bool, error)
	Get(ctx context.Context, id string) (models.WateringRecord, error)
	List(ctx context.Context, f WateringFilter) ([]models.WateringRecord, error)
	ListOpen(ctx context.Context) ([]models.WateringRecord, error)
	ListOverdue(ctx context.Context, now time.Time) ([]models.WateringRecord, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.WateringEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.WateringEvent, error)
}

type Repository struct {
	Watering WateringRepo
	Events   EventRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Watering: NewWateringSQLite(db),
		Events:   NewEventSQLite(db),
	}
}

// dbTimeLayout is how timestamps are stored; it sorts lexicographically.
const dbTimeLayout = "2006-01-02 15:04:05"

func formatTime(t time.Time) string {
	return t.UTC().Format(dbTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(dbTimeLayout, s, time.UTC)
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
