package assessments

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"grantflow-backend/internal/analyzer"
	"grantflow-backend/internal/documents"
	"grantflow-backend/internal/extract"
	"grantflow-backend/internal/programs"
	"grantflow-backend/internal/shared/metrics"
	"grantflow-backend/internal/shared/storage/object"
	"grantflow-backend/internal/shared/telemetry"
)

// Service runs assessments: analyze one submitted document against the
// program's scoring rubric and normalize whatever shape comes back.
type Service struct {
	Repo        Repo
	ProgramRepo programs.Repo
	DocRepo     documents.DocumentsRepo
	Store       object.ObjectStore
	Analyzer    analyzer.Client
}

// AssessDocument scores a document against the program criteria. Analyzer
// failures are isolated into a complete error-status result rather than an
// error return, so one bad file never aborts a batch assessment run.
func (s *Service) AssessDocument(ctx context.Context, programID, documentID, criteria string) (Assessment, error) {
	if programID == "" || documentID == "" {
		return Assessment{}, ErrInvalidInput
	}

	program, err := s.ProgramRepo.GetByID(ctx, programID)
	if err != nil {
		return Assessment{}, err
	}
	doc, err := s.DocRepo.GetByID(ctx, programID, documentID)
	if err != nil {
		return Assessment{}, err
	}

	if strings.TrimSpace(criteria) == "" {
		criteria = s.loadCriteria(ctx, programID)
	}

	result := s.runAssessment(ctx, program, doc, criteria)

	assessment := Assessment{
		ID:         uuid.NewString(),
		ProgramID:  programID,
		DocumentID: documentID,
		Status:     result.Status,
		Result:     result,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, assessment); err != nil {
		return Assessment{}, err
	}

	if result.Status == ResultStatusError {
		metrics.IncAssessmentFailed()
	} else {
		metrics.IncAssessmentCompleted()
	}
	telemetry.Info("assessment.completed", map[string]any{
		"program_id":    programID,
		"document_id":   documentID,
		"assessment_id": assessment.ID,
		"status":        result.Status,
		"rating":        result.Rating,
	})
	return assessment, nil
}

func (s *Service) runAssessment(ctx context.Context, program programs.Program, doc documents.Document, criteria string) AssessmentResult {
	text, err := s.loadDocumentText(ctx, doc)
	if err != nil {
		return errorResult(doc.FileName, "failed to read document text: "+err.Error())
	}

	outcome, err := s.Analyzer.Analyze(ctx, analyzer.Input{
		Kind:        analyzer.KindAssessment,
		ProgramName: program.Name,
		Category:    doc.Category,
		FileName:    doc.FileName,
		Text:        text,
		Criteria:    criteria,
	})
	if err != nil {
		return errorResult(doc.FileName, "analyzer failed: "+err.Error())
	}

	result := Normalize(anyFields(outcome.Fields), doc.FileName, program.Name)
	if outcome.Degraded && result.Transparency == nil {
		result.Transparency = &TransparencyInfo{
			AIUsed:         false,
			FallbackReason: "ai_provider_unavailable",
			UserMessage:    outcome.DegradedReason,
		}
	}
	return result
}

// Get returns an assessment by ID.
func (s *Service) Get(ctx context.Context, assessmentID string) (Assessment, error) {
	if assessmentID == "" {
		return Assessment{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, assessmentID)
}

// List returns assessments for a program, newest first.
func (s *Service) List(ctx context.Context, programID string, limit, offset int) ([]Assessment, error) {
	if programID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByProgram(ctx, programID, limit, offset)
}

// loadCriteria falls back to the program's first selection-criteria document.
func (s *Service) loadCriteria(ctx context.Context, programID string) string {
	docs, err := s.DocRepo.ListByProgram(ctx, programID)
	if err != nil {
		return ""
	}
	for _, doc := range docs {
		if doc.Category != documents.CategorySelectionCriteria {
			continue
		}
		text, err := s.loadDocumentText(ctx, doc)
		if err == nil && strings.TrimSpace(text) != "" {
			return text
		}
	}
	return ""
}

func (s *Service) loadDocumentText(ctx context.Context, doc documents.Document) (string, error) {
	if doc.ExtractedTextKey != "" {
		if text, err := loadText(ctx, s.Store, doc.ExtractedTextKey); err == nil {
			return text, nil
		}
	}
	return extract.ExtractText(ctx, s.Store, doc.StorageKey, doc.MimeType, doc.FileName)
}

func loadText(ctx context.Context, store object.ObjectStore, key string) (string, error) {
	body, err := store.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func anyFields(fields map[string]any) any {
	if fields == nil {
		return nil
	}
	return fields
}
