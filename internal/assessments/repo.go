package assessments

import "context"

// Repo abstracts assessment persistence.
type Repo interface {
	Create(ctx context.Context, assessment Assessment) error
	GetByID(ctx context.Context, assessmentID string) (Assessment, error)
	ListByProgram(ctx context.Context, programID string, limit, offset int) ([]Assessment, error)
}
