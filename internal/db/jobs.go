package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/google/uuid"
)

// ErrJobNotFound is returned by GetRenderJob for unknown ids.
var ErrJobNotFound = errors.New("job not found")

func (db *DB) CreateRenderJob(ctx context.Context, job *models.RenderJob) error {
	query := `
		INSERT INTO render_jobs (id, status, request, attempts)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		job.ID, job.Status, job.Request, job.Attempts,
	).Scan(&job.CreatedAt)
}

func (db *DB) GetRenderJob(ctx context.Context, id uuid.UUID) (*models.RenderJob, error) {
	query := `
		SELECT
			id, status, request, attempts, result_url, local_path, duration_sec,
			error_kind, error_message, started_at, finished_at, created_at
		FROM render_jobs
		WHERE id = $1
	`

	job := &models.RenderJob{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.Status, &job.Request, &job.Attempts, &job.ResultURL,
		&job.LocalPath, &job.DurationSec, &job.ErrorKind, &job.ErrorMessage,
		&job.StartedAt, &job.FinishedAt, &job.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

// MarkJobRunning records the start of an attempt.
func (db *DB) MarkJobRunning(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE render_jobs
		SET status = $1, started_at = $2, attempts = attempts + 1
		WHERE id = $3
	`
	_, err := db.ExecContext(ctx, query, models.JobStatusRunning, time.Now(), id)
	return err
}

func (db *DB) MarkJobSucceeded(ctx context.Context, id uuid.UUID, result *models.RenderResult) error {
	query := `
		UPDATE render_jobs
		SET status = $1, result_url = $2, local_path = $3, duration_sec = $4,
			error_kind = NULL, error_message = NULL, finished_at = $5
		WHERE id = $6
	`
	_, err := db.ExecContext(ctx, query,
		models.JobStatusSucceeded, nullString(result.URL), nullString(result.LocalPath),
		result.Duration, time.Now(), id,
	)
	return err
}

// MarkJobRetrying puts the job back to queued, keeping the last error.
func (db *DB) MarkJobRetrying(ctx context.Context, id uuid.UUID, kind models.ErrorKind, message string) error {
	query := `
		UPDATE render_jobs
		SET status = $1, error_kind = $2, error_message = $3
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, models.JobStatusQueued, string(kind), message, id)
	return err
}

func (db *DB) MarkJobFailed(ctx context.Context, id uuid.UUID, kind models.ErrorKind, message string) error {
	query := `
		UPDATE render_jobs
		SET status = $1, error_kind = $2, error_message = $3, finished_at = $4
		WHERE id = $5
	`
	_, err := db.ExecContext(ctx, query, models.JobStatusFailed, string(kind), message, time.Now(), id)
	return err
}

// RequestJSONB converts a render request for the request column.
func RequestJSONB(req models.RenderRequest) (models.JSONB, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	var out models.JSONB
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to convert request: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
