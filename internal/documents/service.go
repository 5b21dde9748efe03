package documents

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"grantflow-backend/internal/programs"
	"grantflow-backend/internal/shared/storage/object"
)

// Service contains business logic for documents.
type Service struct {
	Store       object.ObjectStore
	Repo        DocumentsRepo
	ProgramRepo programs.Repo
}

// Upload saves the file to object storage and records the document against the program.
func (s *Service) Upload(ctx context.Context, programID, fileName, category string, r io.Reader) (Document, error) {
	if programID == "" || fileName == "" {
		return Document{}, ErrInvalidInput
	}
	if !ValidCategory(category) {
		return Document{}, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, category)
	}
	if s.ProgramRepo != nil {
		if _, err := s.ProgramRepo.GetByID(ctx, programID); err != nil {
			return Document{}, err
		}
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, programID, fileName, r)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		ID:         uuid.NewString(),
		ProgramID:  programID,
		FileName:   fileName,
		MimeType:   mimeType,
		SizeBytes:  size,
		Category:   category,
		StorageKey: storageKey,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}

	return doc, nil
}

// Get returns a document scoped to its program.
func (s *Service) Get(ctx context.Context, programID, documentID string) (Document, error) {
	if programID == "" || documentID == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, programID, documentID)
}

// List returns all documents for a program.
func (s *Service) List(ctx context.Context, programID string) ([]Document, error) {
	if programID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByProgram(ctx, programID)
}
