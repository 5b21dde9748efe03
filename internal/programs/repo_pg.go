package programs

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

// Create inserts a new program.
func (r *PGRepo) Create(ctx context.Context, program Program) error {
	const query = `
INSERT INTO programs (id, name, description, status, warnings, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	warnings, err := marshalWarnings(program.Warnings)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		program.ID,
		program.Name,
		program.Description,
		program.Status,
		warnings,
		program.CreatedAt,
		program.UpdatedAt,
	)
	return err
}

// GetByID returns a program by ID.
func (r *PGRepo) GetByID(ctx context.Context, programID string) (Program, error) {
	const query = `
SELECT id, name, description, status, warnings, created_at, updated_at
FROM programs
WHERE id = $1
LIMIT 1`
	var p Program
	var warnings sql.NullString
	err := r.DB.QueryRowContext(ctx, query, programID).Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Status,
		&warnings,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Program{}, ErrNotFound
		}
		return Program{}, err
	}
	if warnings.Valid {
		if err := json.Unmarshal([]byte(warnings.String), &p.Warnings); err != nil {
			p.Warnings = nil
		}
	}
	return p, nil
}

// List returns programs newest-first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Program, error) {
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
SELECT id, name, description, status, warnings, created_at, updated_at
FROM programs
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Program
	for rows.Next() {
		var p Program
		var warnings sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &warnings, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if warnings.Valid {
			if err := json.Unmarshal([]byte(warnings.String), &p.Warnings); err != nil {
				p.Warnings = nil
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateStatus sets the lifecycle status.
func (r *PGRepo) UpdateStatus(ctx context.Context, programID, status string) error {
	const query = `
UPDATE programs
SET status = $1,
    updated_at = now()
WHERE id = $2::uuid`
	res, err := r.DB.ExecContext(ctx, query, status, programID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendWarning appends one warning to the warnings JSONB array.
func (r *PGRepo) AppendWarning(ctx context.Context, programID string, warning Warning) error {
	const query = `
UPDATE programs
SET warnings = warnings || $1::jsonb,
    updated_at = now()
WHERE id = $2::uuid`
	payload, err := json.Marshal(warning)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, payload, programID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearWarnings resets the warnings array.
func (r *PGRepo) ClearWarnings(ctx context.Context, programID string) error {
	const query = `
UPDATE programs
SET warnings = '[]'::jsonb,
    updated_at = now()
WHERE id = $1::uuid`
	res, err := r.DB.ExecContext(ctx, query, programID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)

func marshalWarnings(warnings []Warning) ([]byte, error) {
	if warnings == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(warnings)
}
