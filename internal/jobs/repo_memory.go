package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores jobs in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu        sync.RWMutex
	byID      map[string]Job
	byProgram map[string][]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:      make(map[string]Job),
		byProgram: make(map[string][]string),
	}
}

// Create stores the job.
func (r *MemoryRepo) Create(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[job.ID] = job
	r.byProgram[job.ProgramID] = append(r.byProgram[job.ProgramID], job.ID)
	return nil
}

// GetByID returns a job by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.byID[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// ListByProgram returns all jobs for a program, newest first.
func (r *MemoryRepo) ListByProgram(ctx context.Context, programID string) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	ids := r.byProgram[programID]
	out := make([]Job, 0, len(ids))
	for _, id := range ids {
		if job, ok := r.byID[id]; ok {
			out = append(out, job)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// LatestByKind returns the newest job of the given kind for a program.
func (r *MemoryRepo) LatestByKind(ctx context.Context, programID, kind string) (Job, error) {
	all, err := r.ListByProgram(ctx, programID)
	if err != nil {
		return Job{}, err
	}
	for _, job := range all {
		if job.Kind == kind {
			return job, nil
		}
	}
	return Job{}, ErrNotFound
}

// MarkProcessing moves a PENDING job to PROCESSING.
func (r *MemoryRepo) MarkProcessing(ctx context.Context, jobID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Status != StatusPending {
		return fmt.Errorf("job %s is %s, expected %s", jobID, job.Status, StatusPending)
	}
	job.Status = StatusProcessing
	started := at
	job.StartedAt = &started
	job.LastProgressAt = at
	r.byID[jobID] = job
	return nil
}

// IncrementProcessed bumps the processed count by one, never past the total,
// and returns the updated job so the caller can decide on completion.
func (r *MemoryRepo) IncrementProcessed(ctx context.Context, jobID string, at time.Time) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	if job.ProcessedDocuments >= job.TotalDocuments {
		return job, nil
	}
	job.ProcessedDocuments++
	job.LastProgressAt = at
	r.byID[jobID] = job
	return job, nil
}

// MarkCompleted moves a job to COMPLETED.
func (r *MemoryRepo) MarkCompleted(ctx context.Context, jobID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	job.Status = StatusCompleted
	job.ProcessedDocuments = job.TotalDocuments
	completed := at
	job.CompletedAt = &completed
	job.LastProgressAt = at
	r.byID[jobID] = job
	return nil
}

// MarkFailed moves a job to FAILED with the captured error message.
func (r *MemoryRepo) MarkFailed(ctx context.Context, jobID, errorMessage string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	job.Status = StatusFailed
	job.ErrorMessage = &errorMessage
	completed := at
	job.CompletedAt = &completed
	r.byID[jobID] = job
	return nil
}

// ListStalled returns PROCESSING jobs whose last progress is older than cutoff.
func (r *MemoryRepo) ListStalled(ctx context.Context, cutoff time.Time) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Job
	for _, job := range r.byID {
		if job.Status == StatusProcessing && job.LastProgressAt.Before(cutoff) {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastProgressAt.Before(out[j].LastProgressAt)
	})
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
