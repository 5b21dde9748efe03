package assessments

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new assessment.
func (r *PGRepo) Create(ctx context.Context, assessment Assessment) error {
	const query = `
INSERT INTO assessments (id, program_id, document_id, status, result, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	payload, err := json.Marshal(assessment.Result)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		assessment.ID,
		assessment.ProgramID,
		assessment.DocumentID,
		assessment.Status,
		payload,
		assessment.CreatedAt,
	)
	return err
}

// GetByID returns an assessment by ID.
func (r *PGRepo) GetByID(ctx context.Context, assessmentID string) (Assessment, error) {
	const query = `
SELECT id, program_id, document_id, status, result, created_at
FROM assessments
WHERE id = $1
LIMIT 1`
	var a Assessment
	var result sql.NullString
	err := r.DB.QueryRowContext(ctx, query, assessmentID).Scan(
		&a.ID,
		&a.ProgramID,
		&a.DocumentID,
		&a.Status,
		&result,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assessment{}, ErrNotFound
		}
		return Assessment{}, err
	}
	if result.Valid {
		if err := json.Unmarshal([]byte(result.String), &a.Result); err != nil {
			return Assessment{}, err
		}
	}
	return a, nil
}

// ListByProgram returns assessments for a program, newest first.
func (r *PGRepo) ListByProgram(ctx context.Context, programID string, limit, offset int) ([]Assessment, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
SELECT id, program_id, document_id, status, result, created_at
FROM assessments
WHERE program_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, programID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Assessment
	for rows.Next() {
		var a Assessment
		var result sql.NullString
		if err := rows.Scan(&a.ID, &a.ProgramID, &a.DocumentID, &a.Status, &result, &a.CreatedAt); err != nil {
			return nil, err
		}
		if result.Valid {
			if err := json.Unmarshal([]byte(result.String), &a.Result); err != nil {
				return nil, err
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
