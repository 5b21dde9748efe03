package programs

import "time"

const (
	StatusDraft      = "DRAFT"
	StatusProcessing = "PROCESSING"
	StatusActive     = "ACTIVE"
	StatusError      = "ERROR"
)

// Warning records a degraded analysis outcome surfaced to the user.
type Warning struct {
	Category       string `json:"category"`
	Message        string `json:"message"`
	RequiresReview bool   `json:"requiresReview"`
}

// Program is the funding record documents and jobs belong to.
// Status transitions are driven by job completion, never set by a client.
type Program struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	Warnings    []Warning `json:"warnings,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
