package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores documents in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu        sync.RWMutex
	byID      map[string]Document
	byProgram map[string][]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:      make(map[string]Document),
		byProgram: make(map[string][]string),
	}
}

// Create stores the document.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[doc.ID] = doc
	r.byProgram[doc.ProgramID] = append(r.byProgram[doc.ProgramID], doc.ID)
	return nil
}

// GetByID returns a document scoped to its program.
func (r *MemoryRepo) GetByID(ctx context.Context, programID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.byID[documentID]
	if !ok || doc.ProgramID != programID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// ListByProgram returns all documents for a program, oldest first.
func (r *MemoryRepo) ListByProgram(ctx context.Context, programID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	ids := r.byProgram[programID]
	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := r.byID[id]; ok {
			docs = append(docs, doc)
		}
	}
	r.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	return docs, nil
}

// UpdateExtraction records the derived extracted-text key.
func (r *MemoryRepo) UpdateExtraction(ctx context.Context, programID, documentID, extractedTextKey string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.byID[documentID]
	if !ok || doc.ProgramID != programID {
		return ErrNotFound
	}
	doc.ExtractedTextKey = extractedTextKey
	r.byID[documentID] = doc
	_ = at
	return nil
}

// UpdateAnalysis overwrites the structured analysis for a document.
// Reprocessing the same document is safe and replaces the prior result.
func (r *MemoryRepo) UpdateAnalysis(ctx context.Context, programID, documentID string, analysis map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.byID[documentID]
	if !ok || doc.ProgramID != programID {
		return ErrNotFound
	}
	doc.Analysis = analysis
	r.byID[documentID] = doc
	return nil
}

var _ DocumentsRepo = (*MemoryRepo)(nil)
