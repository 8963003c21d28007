package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"visit-summary/pkg"
)

// ErrDuplicateRun is returned when a run id is inserted twice.
var ErrDuplicateRun = errors.New("extraction run already recorded")

const uniqueViolation = "23505"

// Repository wraps database operations for extraction runs.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a new Repository from an existing sql.DB.
// The caller is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// InsertRun stores the metadata of one pipeline run.  run.ID must be a UUID.
func (r *Repository) InsertRun(ctx context.Context, run pkg.ExtractionRun) error {
	id, err := uuid.Parse(run.ID)
	if err != nil {
		return fmt.Errorf("extraction run id %q: %w", run.ID, err)
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO extraction_runs (id, model, transcript_chars, status, field, duration_ms, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id.String(), run.Model, run.TranscriptChars, run.Status,
		sql.NullString{String: run.Field, Valid: run.Field != ""},
		run.Duration.Milliseconds(), run.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateRun, run.ID)
		}
		return fmt.Errorf("inserting extraction run: %w", err)
	}
	return nil
}
