package documents

import "time"

const (
	CategoryApplicationForm   = "application_form"
	CategorySelectionCriteria = "selection_criteria"
	CategoryGoodExample       = "good_example"
	CategoryOutputTemplate    = "output_template"
)

// Document represents one uploaded file. Immutable once created; deleted
// only with its parent program.
type Document struct {
	ID               string         `json:"id"`
	ProgramID        string         `json:"programId"`
	FileName         string         `json:"fileName"`
	MimeType         string         `json:"mimeType"`
	SizeBytes        int64          `json:"sizeBytes"`
	Category         string         `json:"category"`
	StorageKey       string         `json:"-"`
	ExtractedTextKey string         `json:"-"`
	Analysis         map[string]any `json:"analysis,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
}

// ValidCategory reports whether the category is one of the fixed set.
func ValidCategory(category string) bool {
	switch category {
	case CategoryApplicationForm, CategorySelectionCriteria, CategoryGoodExample, CategoryOutputTemplate:
		return true
	}
	return false
}
