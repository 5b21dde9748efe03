package jobs

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrJobActive         = errors.New("job already active")
	ErrAnalysisIncomplete = errors.New("document analysis not completed")
	ErrNoDocuments       = errors.New("program has no documents")
)

const (
	ErrorCodeAnalyzerTimeout = "ANALYZER_TIMEOUT"
	ErrorCodeAnalyzerOutput  = "ANALYZER_OUTPUT_INVALID"
	ErrorCodeStorage         = "STORAGE_ERROR"
	ErrorCodeStalled         = "JOB_STALLED"
	ErrorCodeInternal        = "INTERNAL_ERROR"
)
