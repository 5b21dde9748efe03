package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (id, program_id, file_name, mime_type, size_bytes, category, storage_key, extracted_text_key, analysis, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	var analysis any
	if doc.Analysis != nil {
		payload, err := json.Marshal(doc.Analysis)
		if err != nil {
			return err
		}
		analysis = payload
	}
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.ProgramID,
		doc.FileName,
		doc.MimeType,
		doc.SizeBytes,
		doc.Category,
		doc.StorageKey,
		doc.ExtractedTextKey,
		analysis,
		doc.CreatedAt,
	)
	return err
}

// GetByID returns a document scoped to its program.
func (r *PGRepo) GetByID(ctx context.Context, programID, documentID string) (Document, error) {
	const query = `
SELECT id, program_id, file_name, mime_type, size_bytes, category, storage_key, extracted_text_key, analysis, created_at
FROM documents
WHERE id = $1 AND program_id = $2
LIMIT 1`
	var doc Document
	var analysis sql.NullString
	err := r.DB.QueryRowContext(ctx, query, documentID, programID).Scan(
		&doc.ID,
		&doc.ProgramID,
		&doc.FileName,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.Category,
		&doc.StorageKey,
		&doc.ExtractedTextKey,
		&analysis,
		&doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if analysis.Valid {
		doc.Analysis = map[string]any{}
		if err := json.Unmarshal([]byte(analysis.String), &doc.Analysis); err != nil {
			doc.Analysis = nil
		}
	}
	return doc, nil
}

// ListByProgram returns all documents for a program, oldest first.
func (r *PGRepo) ListByProgram(ctx context.Context, programID string) ([]Document, error) {
	const query = `
SELECT id, program_id, file_name, mime_type, size_bytes, category, storage_key, extracted_text_key, analysis, created_at
FROM documents
WHERE program_id = $1
ORDER BY created_at ASC`

	rows, err := r.DB.QueryContext(ctx, query, programID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var doc Document
		var analysis sql.NullString
		if err := rows.Scan(
			&doc.ID,
			&doc.ProgramID,
			&doc.FileName,
			&doc.MimeType,
			&doc.SizeBytes,
			&doc.Category,
			&doc.StorageKey,
			&doc.ExtractedTextKey,
			&analysis,
			&doc.CreatedAt,
		); err != nil {
			return nil, err
		}
		if analysis.Valid {
			doc.Analysis = map[string]any{}
			if err := json.Unmarshal([]byte(analysis.String), &doc.Analysis); err != nil {
				doc.Analysis = nil
			}
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// UpdateExtraction records the derived extracted-text key.
func (r *PGRepo) UpdateExtraction(ctx context.Context, programID, documentID, extractedTextKey string, at time.Time) error {
	const query = `
UPDATE documents
SET extracted_text_key = $1
WHERE id = $2::uuid AND program_id = $3::uuid`
	_ = at
	res, err := r.DB.ExecContext(ctx, query, extractedTextKey, documentID, programID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAnalysis overwrites the structured analysis for a document.
func (r *PGRepo) UpdateAnalysis(ctx context.Context, programID, documentID string, analysis map[string]any) error {
	const query = `
UPDATE documents
SET analysis = $1::jsonb
WHERE id = $2::uuid AND program_id = $3::uuid`
	payload, err := json.Marshal(analysis)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, payload, documentID, programID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ DocumentsRepo = (*PGRepo)(nil)
