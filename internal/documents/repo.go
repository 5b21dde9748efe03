package documents

import (
	"context"
	"time"
)

// DocumentsRepo abstracts document persistence.
type DocumentsRepo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, programID, documentID string) (Document, error)
	ListByProgram(ctx context.Context, programID string) ([]Document, error)
	UpdateExtraction(ctx context.Context, programID, documentID, extractedTextKey string, at time.Time) error
	UpdateAnalysis(ctx context.Context, programID, documentID string, analysis map[string]any) error
}
