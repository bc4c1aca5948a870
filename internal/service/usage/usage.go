// Package usage keeps the request ledger: one row per submission with
// metadata only. Prompts, images and responses are never written.
package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"visionchat/internal/models"
)

type Recorder interface {
	Record(ctx context.Context, rec models.UsageRecord) error
	Summary(ctx context.Context) ([]models.UsageSummary, error)
	Recent(ctx context.Context, limit int) ([]models.UsageRecord, error)
}

type SQLRecorder struct {
	db *sql.DB
}

func NewSQLRecorder(db *sql.DB) (*SQLRecorder, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	return &SQLRecorder{db: db}, nil
}

func (r *SQLRecorder) Record(ctx context.Context, rec models.UsageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO request_log (session_id, app, has_text, has_image, streamed, outcome, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.App, rec.HasText, rec.HasImage, rec.Streamed,
		string(rec.Outcome), rec.Error, rec.DurationMS, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert request log: %w", err)
	}
	return nil
}

func (r *SQLRecorder) Summary(ctx context.Context) ([]models.UsageSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT app, outcome, COUNT(*) FROM request_log GROUP BY app, outcome ORDER BY app, outcome`)
	if err != nil {
		return nil, fmt.Errorf("query usage summary: %w", err)
	}
	defer rows.Close()

	var out []models.UsageSummary
	for rows.Next() {
		var (
			s       models.UsageSummary
			outcome string
		)
		if err := rows.Scan(&s.App, &outcome, &s.Count); err != nil {
			return nil, fmt.Errorf("scan usage summary: %w", err)
		}
		s.Outcome = models.Outcome(outcome)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Recent returns the newest records first.
func (r *SQLRecorder) Recent(ctx context.Context, limit int) ([]models.UsageRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, app, has_text, has_image, streamed, outcome, error, duration_ms, created_at
		 FROM request_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent usage: %w", err)
	}
	defer rows.Close()

	var out []models.UsageRecord
	for rows.Next() {
		var (
			rec     models.UsageRecord
			outcome string
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.App, &rec.HasText, &rec.HasImage,
			&rec.Streamed, &outcome, &rec.Error, &rec.DurationMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		rec.Outcome = models.Outcome(outcome)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Nop discards records. It is used when the ledger database is disabled.
type Nop struct{}

func (Nop) Record(context.Context, models.UsageRecord) error { return nil }

func (Nop) Summary(context.Context) ([]models.UsageSummary, error) { return nil, nil }

func (Nop) Recent(context.Context, int) ([]models.UsageRecord, error) { return nil, nil }
