package jobs

import "time"

const (
	KindDocumentAnalysis = "DOCUMENT_ANALYSIS"
	KindRAGProcessing    = "RAG_PROCESSING"
)

const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Job is one unit of asynchronous work against a program.
// Invariant: 0 <= ProcessedDocuments <= TotalDocuments, and
// Status == COMPLETED iff ProcessedDocuments == TotalDocuments.
type Job struct {
	ID                 string     `json:"id"`
	ProgramID          string     `json:"programId"`
	Kind               string     `json:"kind"`
	Status             string     `json:"status"`
	ProcessedDocuments int        `json:"processedDocuments"`
	TotalDocuments     int        `json:"totalDocuments"`
	ErrorMessage       *string    `json:"errorMessage,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	StartedAt          *time.Time `json:"startedAt,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	LastProgressAt     time.Time  `json:"-"`
}

// Progress returns the job's own completion as 0-100.
func (j Job) Progress() int {
	if j.Status == StatusCompleted {
		return 100
	}
	if j.TotalDocuments <= 0 {
		return 0
	}
	p := j.ProcessedDocuments * 100 / j.TotalDocuments
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return p
}

// Active reports whether the job is still in flight.
func (j Job) Active() bool {
	return j.Status == StatusPending || j.Status == StatusProcessing
}

// ValidKind reports whether the kind is one of the two pipeline phases.
func ValidKind(kind string) bool {
	return kind == KindDocumentAnalysis || kind == KindRAGProcessing
}
