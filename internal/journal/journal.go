// Package journal persists one row per dispatch attempt to Postgres so a
// show's cue history survives process restarts and can be audited later.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/garimto81/ggm-timeline/internal/domain"
)

// ErrDuplicateAttempt is returned when an attempt id is inserted twice.
var ErrDuplicateAttempt = errors.New("journal: duplicate attempt")

// Store writes dispatch attempts. Insert-only; nothing in the hot path
// reads it.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects with lib/pq and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	return db, nil
}

// RecordAttempt inserts one dispatch attempt.
func (s *Store) RecordAttempt(ctx context.Context, attemptID string, job domain.Job, outcome error, d time.Duration) error {
	status := "success"
	errText := sql.NullString{}
	if outcome != nil {
		status = "failure"
		errText = sql.NullString{String: outcome.Error(), Valid: true}
	}
	var seq sql.NullString
	if len(job.Sequence) > 0 {
		seq = sql.NullString{String: strings.Join(job.Sequence, ","), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, insertAttemptQuery,
		attemptID,
		string(job.Type),
		string(job.Key.Kind),
		job.Code,
		job.Label,
		float64(job.Key.TimeDs)/10,
		status,
		errText,
		seq,
		d.Milliseconds(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateAttempt
		}
		return fmt.Errorf("journal: insert attempt: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicateAttempt
	}
	return nil
}

// EnsureSchema creates the attempts table if missing. Called once at
// startup; production deployments usually migrate out-of-band.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableQuery); err != nil {
		return fmt.Errorf("journal: ensure schema: %w", err)
	}
	return nil
}
