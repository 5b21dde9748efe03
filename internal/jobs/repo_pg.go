package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const jobColumns = `id, program_id, kind, status, processed_documents, total_documents, error_message, created_at, started_at, completed_at, last_progress_at`

// Create inserts a new job.
func (r *PGRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO jobs (id, program_id, kind, status, processed_documents, total_documents, created_at, last_progress_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		job.ID,
		job.ProgramID,
		job.Kind,
		job.Status,
		job.ProcessedDocuments,
		job.TotalDocuments,
		job.CreatedAt,
		job.LastProgressAt,
	)
	return err
}

// GetByID returns a job by ID.
func (r *PGRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1 LIMIT 1`
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	return job, nil
}

// ListByProgram returns all jobs for a program, newest first.
func (r *PGRepo) ListByProgram(ctx context.Context, programID string) ([]Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE program_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, programID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// LatestByKind returns the newest job of the given kind for a program.
func (r *PGRepo) LatestByKind(ctx context.Context, programID, kind string) (Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE program_id = $1 AND kind = $2 ORDER BY created_at DESC LIMIT 1`
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, programID, kind))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	return job, nil
}

// MarkProcessing moves a PENDING job to PROCESSING.
func (r *PGRepo) MarkProcessing(ctx context.Context, jobID string, at time.Time) error {
	const query = `
UPDATE jobs
SET status = 'PROCESSING',
    started_at = COALESCE(started_at, $1::timestamptz),
    last_progress_at = $1::timestamptz
WHERE id = $2::uuid AND status = 'PENDING'`
	res, err := r.DB.ExecContext(ctx, query, at, jobID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s not pending: %w", jobID, ErrNotFound)
	}
	return nil
}

// IncrementProcessed bumps processed_documents atomically, never past the total.
func (r *PGRepo) IncrementProcessed(ctx context.Context, jobID string, at time.Time) (Job, error) {
	query := `
UPDATE jobs
SET processed_documents = LEAST(processed_documents + 1, total_documents),
    last_progress_at = $1::timestamptz
WHERE id = $2::uuid
RETURNING ` + jobColumns
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, at, jobID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	return job, nil
}

// MarkCompleted moves a job to COMPLETED and forces counts consistent.
func (r *PGRepo) MarkCompleted(ctx context.Context, jobID string, at time.Time) error {
	const query = `
UPDATE jobs
SET status = 'COMPLETED',
    processed_documents = total_documents,
    completed_at = $1::timestamptz,
    last_progress_at = $1::timestamptz
WHERE id = $2::uuid`
	res, err := r.DB.ExecContext(ctx, query, at, jobID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed moves a job to FAILED with the captured error message.
func (r *PGRepo) MarkFailed(ctx context.Context, jobID, errorMessage string, at time.Time) error {
	const query = `
UPDATE jobs
SET status = 'FAILED',
    error_message = $1,
    completed_at = $2::timestamptz
WHERE id = $3::uuid`
	res, err := r.DB.ExecContext(ctx, query, errorMessage, at, jobID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStalled returns PROCESSING jobs with no progress since cutoff.
func (r *PGRepo) ListStalled(ctx context.Context, cutoff time.Time) ([]Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = 'PROCESSING' AND last_progress_at < $1::timestamptz ORDER BY last_progress_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var j Job
	var errorMessage sql.NullString
	var startedAt sql.NullTime
	var completedAt sql.NullTime
	if err := row.Scan(
		&j.ID,
		&j.ProgramID,
		&j.Kind,
		&j.Status,
		&j.ProcessedDocuments,
		&j.TotalDocuments,
		&errorMessage,
		&j.CreatedAt,
		&startedAt,
		&completedAt,
		&j.LastProgressAt,
	); err != nil {
		return Job{}, err
	}
	if errorMessage.Valid {
		j.ErrorMessage = &errorMessage.String
	}
	if startedAt.Valid {
		j.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		j.CompletedAt = &completedAt.Time
	}
	return j, nil
}
