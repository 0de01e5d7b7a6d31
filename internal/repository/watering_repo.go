package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"controlling_irrigation/internal/models"
)

type WateringSQLite struct {
	db *sql.DB
}

var _ WateringRepo = (*WateringSQLite)(nil)

func NewWateringSQLite(db *sql.DB) *WateringSQLite {
	return &WateringSQLite{db: db}
}

const (
	insertWateringSQL = `
		INSERT INTO watering_requests (id, position, line, duration, status, error, created_at, deadline_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	markRunningSQL = `
		UPDATE watering_requests SET status = ?, started_at = ?
		WHERE id = ? AND status = ?
	`

	completeWateringSQL = `
		UPDATE watering_requests SET status = ?, error = ?, finished_at = ?
		WHERE id = ? AND status IN (?, ?)
	`

	selectWateringSQL = `SELECT id, position, line, duration, status, error, created_at, started_at, finished_at, deadline_at FROM watering_requests`

	defaultListLimit = 100
)

func (r *WateringSQLite) Create(ctx context.Context, rec models.WateringRecord) error {
	_, err := r.db.ExecContext(ctx, insertWateringSQL,
		rec.ID,
		rec.Position,
		rec.Line,
		rec.Duration,
		rec.Status,
		rec.Error,
		formatTime(rec.CreatedAt),
		formatTime(rec.DeadlineAt),
	)
	if err != nil {
		return fmt.Errorf("insert watering request %q: %w", rec.ID, err)
	}
	return nil
}

func (r *WateringSQLite) MarkRunning(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, markRunningSQL, models.StatusRunning, formatTime(at), id, models.StatusPending)
	if err != nil {
		return false, fmt.Errorf("mark watering request %q running: %w", id, err)
	}
	return affected(res)
}

func (r *WateringSQLite) Complete(ctx context.Context, id, status, errText string, at time.Time) (bool, error) {
	if !models.IsTerminal(status) {
		return false, fmt.Errorf("complete watering request %q: %q is not a terminal status", id, status)
	}
	res, err := r.db.ExecContext(ctx, completeWateringSQL,
		status, errText, formatTime(at), id, models.StatusPending, models.StatusRunning)
	if err != nil {
		return false, fmt.Errorf("complete watering request %q: %w", id, err)
	}
	return affected(res)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *WateringSQLite) Get(ctx context.Context, id string) (models.WateringRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectWateringSQL+" WHERE id = ?", id)
	if err != nil {
		return models.WateringRecord{}, fmt.Errorf("get watering request %q: %w", id, err)
	}
	recs, err := scanWatering(rows)
	if err != nil {
		return models.WateringRecord{}, err
	}
	if len(recs) == 0 {
		return models.WateringRecord{}, fmt.Errorf("watering request %q: %w", id, models.ErrNotFound)
	}
	return recs[0], nil
}

// List returns requests matching f, newest first.
func (r *WateringSQLite) List(ctx context.Context, f WateringFilter) ([]models.WateringRecord, error) {
	var (
		conds []string
		args  []any
	)
	if f.Position > 0 {
		conds = append(conds, "position = ?")
		args = append(args, f.Position)
	}
	if s := strings.ToUpper(strings.TrimSpace(f.Status)); s != "" {
		conds = append(conds, "status = ?")
		args = append(args, s)
	}
	if !f.From.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, formatTime(f.To))
	}

	q := selectWateringSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list watering requests: %w", err)
	}
	return scanWatering(rows)
}

// ListOpen returns every PENDING or RUNNING request, oldest first.
func (r *WateringSQLite) ListOpen(ctx context.Context) ([]models.WateringRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		selectWateringSQL+" WHERE status IN (?, ?) ORDER BY created_at ASC",
		models.StatusPending, models.StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("list open watering requests: %w", err)
	}
	return scanWatering(rows)
}

// ListOverdue returns open requests whose deadline is before now.
func (r *WateringSQLite) ListOverdue(ctx context.Context, now time.Time) ([]models.WateringRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		selectWateringSQL+" WHERE status IN (?, ?) AND deadline_at < ? ORDER BY created_at ASC",
		models.StatusPending, models.StatusRunning, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("list overdue watering requests: %w", err)
	}
	return scanWatering(rows)
}

func scanWatering(rows *sql.Rows) ([]models.WateringRecord, error) {
	defer rows.Close()

	out := make([]models.WateringRecord, 0, 16)
	for rows.Next() {
		var (
			rec               models.WateringRecord
			errText           sql.NullString
			created, deadline string
			started, finished sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Position, &rec.Line, &rec.Duration, &rec.Status,
			&errText, &created, &started, &finished, &deadline); err != nil {
			return nil, fmt.Errorf("scan watering request: %w", err)
		}
		rec.Error = errText.String

		var err error
		if rec.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("watering request %q created_at: %w", rec.ID, err)
		}
		if rec.DeadlineAt, err = parseTime(deadline); err != nil {
			return nil, fmt.Errorf("watering request %q deadline_at: %w", rec.ID, err)
		}
		if rec.StartedAt, err = parseNullTime(started); err != nil {
			return nil, fmt.Errorf("watering request %q started_at: %w", rec.ID, err)
		}
		if rec.FinishedAt, err = parseNullTime(finished); err != nil {
			return nil, fmt.Errorf("watering request %q finished_at: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// IsNotFound reports whether err means the request does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
