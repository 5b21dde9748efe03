package assessments

import "time"

const (
	ResultStatusCompleted = "completed"
	ResultStatusError     = "error"
)

// Legacy detail categories. Always populated on non-template results so the
// four fixed UI fields render even when the analyzer returned none of them.
const (
	CategoryEligibility = "eligibility"
	CategoryImpact      = "impact"
	CategoryFeasibility = "feasibility"
	CategoryInnovation  = "innovation"
)

// TransparencyInfo tells the user whether AI was actually used and, if not,
// why. It is the only channel by which a degraded, non-AI score reaches the
// UI and must never be dropped.
type TransparencyInfo struct {
	AIUsed         bool   `json:"aiUsed"`
	FallbackReason string `json:"fallbackReason,omitempty"`
	UserMessage    string `json:"userMessage,omitempty"`
	StrategyUsed   string `json:"strategyUsed,omitempty"`
}

// CategoryDetail is one legacy detail entry.
type CategoryDetail struct {
	Score float64 `json:"score"`
	Notes string  `json:"notes"`
}

// AssessmentDetails holds the four fixed legacy categories.
type AssessmentDetails struct {
	Eligibility CategoryDetail `json:"eligibility"`
	Impact      CategoryDetail `json:"impact"`
	Feasibility CategoryDetail `json:"feasibility"`
	Innovation  CategoryDetail `json:"innovation"`
}

// TemplateSection is one rendered section of a structured template output.
type TemplateSection struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Type    string `json:"type"`
	Content any    `json:"content"`
}

// AssessmentResult is the canonical UI-facing result shape. Created once per
// document per assessment run, immutable after creation; a failed
// normalization yields a complete error-status result, never a partial one.
type AssessmentResult struct {
	FileName         string             `json:"fileName"`
	Rating           float64            `json:"rating"`
	Categories       []string           `json:"categories"`
	Summary          string             `json:"summary"`
	Status           string             `json:"status"`
	Details          *AssessmentDetails `json:"details,omitempty"`
	IsFilledTemplate bool               `json:"isFilledTemplate,omitempty"`
	FilledTemplate   string             `json:"filledTemplate,omitempty"`
	TemplateSections []TemplateSection  `json:"templateSections,omitempty"`
	Recommendations  []string           `json:"recommendations"`
	Transparency     *TransparencyInfo  `json:"transparencyInfo,omitempty"`
	ErrorMessage     string             `json:"errorMessage,omitempty"`
}

// Assessment is the persisted record of one assessment run.
type Assessment struct {
	ID         string           `json:"id"`
	ProgramID  string           `json:"programId"`
	DocumentID string           `json:"documentId"`
	Status     string           `json:"status"`
	Result     AssessmentResult `json:"result"`
	CreatedAt  time.Time        `json:"createdAt"`
}
