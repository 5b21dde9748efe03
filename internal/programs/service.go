package programs

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service contains business logic for programs.
type Service struct {
	Repo Repo
}

// Create records a new program in DRAFT.
func (s *Service) Create(ctx context.Context, name, description string) (Program, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Program{}, ErrInvalidInput
	}

	now := time.Now().UTC()
	program := Program{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Repo.Create(ctx, program); err != nil {
		return Program{}, err
	}
	return program, nil
}

// Get returns a program by ID.
func (s *Service) Get(ctx context.Context, programID string) (Program, error) {
	if programID == "" {
		return Program{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, programID)
}

// List returns programs newest-first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Program, error) {
	return s.Repo.List(ctx, limit, offset)
}
