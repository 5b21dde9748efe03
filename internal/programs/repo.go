package programs

import "context"

// Repo abstracts program persistence.
type Repo interface {
	Create(ctx context.Context, program Program) error
	GetByID(ctx context.Context, programID string) (Program, error)
	List(ctx context.Context, limit, offset int) ([]Program, error)
	UpdateStatus(ctx context.Context, programID, status string) error
	AppendWarning(ctx context.Context, programID string, warning Warning) error
	ClearWarnings(ctx context.Context, programID string) error
}
