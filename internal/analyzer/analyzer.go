package analyzer

import (
	"context"
	"errors"
)

// Kind selects which analysis the capability performs.
type Kind string

const (
	// KindDocumentAnalysis extracts structured fields from a single document.
	KindDocumentAnalysis Kind = "DOCUMENT_ANALYSIS"
	// KindKnowledgeIndex prepares a document for knowledge-base retrieval.
	KindKnowledgeIndex Kind = "RAG_PROCESSING"
	// KindAssessment scores a submitted document against program criteria.
	KindAssessment Kind = "ASSESSMENT"
)

// Input captures the inputs for one capability invocation.
type Input struct {
	Kind        Kind
	ProgramName string
	Category    string
	FileName    string
	Text        string
	Criteria    string
}

// Outcome is the per-document result of the capability.
// Degraded means the analysis succeeded via a non-AI fallback and must be
// surfaced to the user as a warning, never silently treated as a full result.
type Outcome struct {
	Fields         map[string]any
	Degraded       bool
	DegradedReason string
}

// Client abstracts analysis providers.
type Client interface {
	Analyze(ctx context.Context, input Input) (Outcome, error)
}

// ErrNotConfigured is returned when no provider is wired.
var ErrNotConfigured = errors.New("analyzer not configured")
