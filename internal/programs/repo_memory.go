package programs

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores programs in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Program
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Program)}
}

// Create stores the program.
func (r *MemoryRepo) Create(ctx context.Context, program Program) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[program.ID] = program
	return nil
}

// GetByID returns a program by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, programID string) (Program, error) {
	if err := ctx.Err(); err != nil {
		return Program{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	program, ok := r.byID[programID]
	if !ok {
		return Program{}, ErrNotFound
	}
	// copy the warnings slice so callers cannot mutate stored state
	if len(program.Warnings) > 0 {
		warnings := make([]Warning, len(program.Warnings))
		copy(warnings, program.Warnings)
		program.Warnings = warnings
	}
	return program, nil
}

// List returns programs newest-first with limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	all := make([]Program, 0, len(r.byID))
	for _, p := range r.byID {
		all = append(all, p)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []Program{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

// UpdateStatus sets the lifecycle status.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, programID, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	program, ok := r.byID[programID]
	if !ok {
		return ErrNotFound
	}
	program.Status = status
	program.UpdatedAt = time.Now().UTC()
	r.byID[programID] = program
	return nil
}

// AppendWarning attaches a degraded-analysis warning to the program.
func (r *MemoryRepo) AppendWarning(ctx context.Context, programID string, warning Warning) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	program, ok := r.byID[programID]
	if !ok {
		return ErrNotFound
	}
	program.Warnings = append(program.Warnings, warning)
	program.UpdatedAt = time.Now().UTC()
	r.byID[programID] = program
	return nil
}

// ClearWarnings removes all warnings, used before a full reprocess.
func (r *MemoryRepo) ClearWarnings(ctx context.Context, programID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	program, ok := r.byID[programID]
	if !ok {
		return ErrNotFound
	}
	program.Warnings = nil
	program.UpdatedAt = time.Now().UTC()
	r.byID[programID] = program
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
