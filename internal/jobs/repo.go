package jobs

import (
	"context"
	"time"
)

// Repo abstracts job persistence. Increment and status transitions must be
// atomic so a poller never observes counts that contradict the status.
type Repo interface {
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, jobID string) (Job, error)
	ListByProgram(ctx context.Context, programID string) ([]Job, error)
	LatestByKind(ctx context.Context, programID, kind string) (Job, error)
	MarkProcessing(ctx context.Context, jobID string, at time.Time) error
	IncrementProcessed(ctx context.Context, jobID string, at time.Time) (Job, error)
	MarkCompleted(ctx context.Context, jobID string, at time.Time) error
	MarkFailed(ctx context.Context, jobID, errorMessage string, at time.Time) error
	ListStalled(ctx context.Context, cutoff time.Time) ([]Job, error)
}
