package jobs

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"grantflow-backend/internal/analyzer"
	"grantflow-backend/internal/documents"
	"grantflow-backend/internal/extract"
	"grantflow-backend/internal/programs"
	"grantflow-backend/internal/queue"
	"grantflow-backend/internal/shared/metrics"
	"grantflow-backend/internal/shared/storage/object"
	"grantflow-backend/internal/shared/telemetry"
)

const defaultDocumentConcurrency = 3

// Orchestrator creates jobs, drives phase transitions, invokes the analyzer
// per document, persists progress, and applies the fallback policy on failure.
type Orchestrator struct {
	Repo        Repo
	ProgramRepo programs.Repo
	DocRepo     documents.DocumentsRepo
	Store       object.ObjectStore
	Analyzer    analyzer.Client
	Queue       queue.Client
	Concurrency int
	Now         func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func (o *Orchestrator) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return defaultDocumentConcurrency
}

// Start begins (or resumes after failure) the pipeline for a program.
// Idempotent: if a job is already in flight the existing job is returned and
// nothing new is created. A FAILED run restarts from zero; partial state is
// not assumed safely resumable.
func (o *Orchestrator) Start(ctx context.Context, programID string) (Job, bool, error) {
	if programID == "" {
		return Job{}, false, ErrInvalidInput
	}
	program, err := o.ProgramRepo.GetByID(ctx, programID)
	if err != nil {
		return Job{}, false, err
	}

	existing, err := o.Repo.ListByProgram(ctx, programID)
	if err != nil {
		return Job{}, false, err
	}
	for _, job := range existing {
		if job.Active() {
			return job, false, nil
		}
	}
	// Nothing running and nothing failed means the pipeline already finished.
	if rag, ok := latestByKind(existing, KindRAGProcessing); ok && rag.Status == StatusCompleted {
		if analysis, ok := latestByKind(existing, KindDocumentAnalysis); ok && analysis.Status == StatusCompleted {
			return rag, false, nil
		}
	}

	docs, err := o.DocRepo.ListByProgram(ctx, programID)
	if err != nil {
		return Job{}, false, err
	}
	if len(docs) == 0 {
		return Job{}, false, ErrNoDocuments
	}

	// Full restart: stale warnings from the previous run must not survive.
	if len(program.Warnings) > 0 {
		if err := o.ProgramRepo.ClearWarnings(ctx, programID); err != nil {
			return Job{}, false, err
		}
	}

	job, err := o.CreateJob(ctx, programID, KindDocumentAnalysis, len(docs))
	if err != nil {
		return Job{}, false, err
	}
	if err := o.ProgramRepo.UpdateStatus(ctx, programID, programs.StatusProcessing); err != nil {
		return Job{}, false, err
	}

	o.dispatch(ctx, job)
	return job, true, nil
}

// CreateJob persists a new PENDING job. For RAG_PROCESSING the sibling
// DOCUMENT_ANALYSIS job must already be COMPLETED; this ordering is enforced
// here so no call site can skip it.
func (o *Orchestrator) CreateJob(ctx context.Context, programID, kind string, totalDocuments int) (Job, error) {
	if !ValidKind(kind) {
		return Job{}, fmt.Errorf("%w: unknown job kind %q", ErrInvalidInput, kind)
	}
	if totalDocuments <= 0 {
		return Job{}, ErrNoDocuments
	}

	if kind == KindRAGProcessing {
		analysis, err := o.Repo.LatestByKind(ctx, programID, KindDocumentAnalysis)
		if err != nil {
			return Job{}, fmt.Errorf("%w: %v", ErrAnalysisIncomplete, err)
		}
		if analysis.Status != StatusCompleted {
			return Job{}, ErrAnalysisIncomplete
		}
	}
	if latest, err := o.Repo.LatestByKind(ctx, programID, kind); err == nil && latest.Active() {
		return latest, ErrJobActive
	}

	now := o.now()
	job := Job{
		ID:             uuid.NewString(),
		ProgramID:      programID,
		Kind:           kind,
		Status:         StatusPending,
		TotalDocuments: totalDocuments,
		CreatedAt:      now,
		LastProgressAt: now,
	}
	if err := o.Repo.Create(ctx, job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// dispatch hands the job to the queue when one is configured, otherwise
// processes it on a background goroutine so the creating request returns
// immediately.
func (o *Orchestrator) dispatch(ctx context.Context, job Job) {
	requestID := requestIDFromContext(ctx)
	if o.Queue != nil {
		msg := queue.Message{
			JobID:      job.ID,
			RequestID:  requestID,
			EnqueuedAt: o.now().Format(time.RFC3339),
			Version:    1,
		}
		err := o.Queue.Send(ctx, msg)
		if err == nil {
			return
		}
		// fall through to in-process execution so the job is not stranded
		telemetry.Warn("job.enqueue_failed", map[string]any{
			"request_id": requestID,
			"job_id":     job.ID,
			"program_id": job.ProgramID,
			"error":      sanitizeError(err),
		})
	}
	go func(bg context.Context) {
		if err := o.ProcessJob(bg, job.ID); err != nil {
			telemetry.Error("job.process_failed", map[string]any{
				"request_id": requestID,
				"job_id":     job.ID,
				"program_id": job.ProgramID,
				"error":      sanitizeError(err),
			})
		}
	}(backgroundWithRequestID(ctx))
}

// ProcessJob advances a job from PENDING through every document to a terminal
// state, then chains the next phase. Safe to call from the worker or in-process.
func (o *Orchestrator) ProcessJob(ctx context.Context, jobID string) error {
	defer func() {
		if r := recover(); r != nil {
			o.failJob(ctx, jobID, fmt.Errorf("panic: %v", r))
		}
	}()

	startedAt := o.now()
	if err := o.Repo.MarkProcessing(ctx, jobID, startedAt); err != nil {
		return err
	}
	job, err := o.Repo.GetByID(ctx, jobID)
	if err != nil {
		o.failJob(ctx, jobID, fmt.Errorf("job lookup: %w", err))
		return err
	}
	metrics.IncJobStarted()
	o.logStatus(ctx, job, "pending->processing", nil)

	program, err := o.ProgramRepo.GetByID(ctx, job.ProgramID)
	if err != nil {
		o.failJob(ctx, jobID, fmt.Errorf("program lookup: %w", err))
		return err
	}
	docs, err := o.DocRepo.ListByProgram(ctx, job.ProgramID)
	if err != nil {
		o.failJob(ctx, jobID, fmt.Errorf("document list: %w", err))
		return err
	}
	if len(docs) == 0 {
		o.failJob(ctx, jobID, ErrNoDocuments)
		return ErrNoDocuments
	}

	client := newRetryingAnalyzer(o.Analyzer, jobID, requestIDFromContext(ctx))
	if client == nil {
		o.failJob(ctx, jobID, analyzer.ErrNotConfigured)
		return analyzer.ErrNotConfigured
	}

	if err := o.processDocuments(ctx, job, program, docs, client); err != nil {
		o.failJob(ctx, jobID, err)
		return err
	}

	completedAt := o.now()
	if err := o.Repo.MarkCompleted(ctx, jobID, completedAt); err != nil {
		o.failJob(ctx, jobID, fmt.Errorf("mark completed: %w", err))
		return err
	}
	metrics.IncJobCompleted()
	metrics.ObserveJobDurationMs(float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0)
	job.Status = StatusCompleted
	o.logStatus(ctx, job, "processing->completed", nil)

	return o.advancePhase(ctx, job, len(docs))
}

// advancePhase reacts to a completed job: analysis completion triggers the
// indexing phase without any caller action, and indexing completion activates
// the program.
func (o *Orchestrator) advancePhase(ctx context.Context, job Job, totalDocuments int) error {
	switch job.Kind {
	case KindDocumentAnalysis:
		next, err := o.CreateJob(ctx, job.ProgramID, KindRAGProcessing, totalDocuments)
		if err != nil {
			if err == ErrJobActive {
				return nil
			}
			o.setProgramStatus(ctx, job.ProgramID, programs.StatusError)
			return fmt.Errorf("chain rag job: %w", err)
		}
		o.dispatch(ctx, next)
	case KindRAGProcessing:
		o.setProgramStatus(ctx, job.ProgramID, programs.StatusActive)
	}
	return nil
}

// processDocuments runs the per-document analyzer calls through a bounded
// worker pool. The first unrecoverable failure cancels the remaining work.
func (o *Orchestrator) processDocuments(ctx context.Context, job Job, program programs.Program, docs []documents.Document, client analyzer.Client) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, o.concurrency())
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(doc documents.Document) {
			defer wg.Done()
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}
			if err := o.processDocument(ctx, job, program, doc, client); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("document %s (%s): %w", doc.ID, doc.FileName, err)
					cancel()
				}
				mu.Unlock()
			}
		}(doc)
	}
	wg.Wait()
	return firstErr
}

// processDocument runs one analyzer call and records the outcome atomically
// with the progress increment. Degraded outcomes still count as processed but
// leave a requires-review warning on the program.
func (o *Orchestrator) processDocument(ctx context.Context, job Job, program programs.Program, doc documents.Document, client analyzer.Client) error {
	text, err := o.loadDocumentText(ctx, doc)
	if err != nil {
		return err
	}

	input := analyzer.Input{
		Kind:        analyzer.Kind(job.Kind),
		ProgramName: program.Name,
		Category:    doc.Category,
		FileName:    doc.FileName,
		Text:        text,
	}
	outcome, err := client.Analyze(ctx, input)
	if err != nil {
		return err
	}

	if err := o.storeOutcome(ctx, job, doc, outcome); err != nil {
		return err
	}

	if outcome.Degraded {
		metrics.IncDocumentDegraded()
		warning := programs.Warning{
			Category:       doc.Category,
			Message:        fmt.Sprintf("%s: %s", doc.FileName, outcome.DegradedReason),
			RequiresReview: true,
		}
		if err := o.ProgramRepo.AppendWarning(ctx, job.ProgramID, warning); err != nil {
			return fmt.Errorf("append warning: %w", err)
		}
	}

	updated, err := o.Repo.IncrementProcessed(ctx, job.ID, o.now())
	if err != nil {
		return fmt.Errorf("increment processed: %w", err)
	}
	metrics.IncDocumentProcessed()
	telemetry.Info("job.document", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"job_id":      job.ID,
		"program_id":  job.ProgramID,
		"document_id": doc.ID,
		"kind":        job.Kind,
		"processed":   updated.ProcessedDocuments,
		"total":       updated.TotalDocuments,
		"degraded":    outcome.Degraded,
	})
	return nil
}

func (o *Orchestrator) storeOutcome(ctx context.Context, job Job, doc documents.Document, outcome analyzer.Outcome) error {
	analysis := doc.Analysis
	if analysis == nil {
		analysis = map[string]any{}
	}
	switch job.Kind {
	case KindRAGProcessing:
		analysis["knowledgeIndex"] = outcome.Fields
	default:
		analysis["documentAnalysis"] = outcome.Fields
	}
	if outcome.Degraded {
		analysis["degraded"] = true
		analysis["degradedReason"] = outcome.DegradedReason
	}
	if err := o.DocRepo.UpdateAnalysis(ctx, job.ProgramID, doc.ID, analysis); err != nil {
		return fmt.Errorf("store analysis: %w", err)
	}
	return nil
}

func (o *Orchestrator) loadDocumentText(ctx context.Context, doc documents.Document) (string, error) {
	if doc.ExtractedTextKey != "" {
		text, err := loadText(ctx, o.Store, doc.ExtractedTextKey)
		if err == nil {
			return text, nil
		}
	}
	text, err := extract.ExtractText(ctx, o.Store, doc.StorageKey, doc.MimeType, doc.FileName)
	if err != nil {
		return "", fmt.Errorf("extract: %w", err)
	}
	// Cache the extracted text so the next phase reads it instead of re-parsing.
	key, _, _, err := o.Store.Save(ctx, doc.ProgramID, doc.FileName+".extracted.txt", strings.NewReader(text))
	if err != nil {
		return "", fmt.Errorf("save extracted text: %w", err)
	}
	if err := o.DocRepo.UpdateExtraction(ctx, doc.ProgramID, doc.ID, key, o.now()); err != nil {
		return "", fmt.Errorf("update extraction: %w", err)
	}
	return text, nil
}

func (o *Orchestrator) failJob(ctx context.Context, jobID string, cause error) {
	code := classifyFailure(cause)
	msg := sanitizeError(cause)
	at := o.now()
	if err := o.Repo.MarkFailed(context.Background(), jobID, msg, at); err != nil {
		telemetry.Error("job.fail_update", map[string]any{
			"job_id": jobID,
			"error":  sanitizeError(err),
			"cause":  msg,
		})
	}
	metrics.IncJobFailed()

	job, err := o.Repo.GetByID(context.Background(), jobID)
	if err == nil {
		o.setProgramStatus(ctx, job.ProgramID, programs.StatusError)
		job.Status = StatusFailed
		o.logStatus(ctx, job, "processing->failed", map[string]any{"error_code": code, "error": msg})
	}
}

func (o *Orchestrator) setProgramStatus(ctx context.Context, programID, status string) {
	if err := o.ProgramRepo.UpdateStatus(context.Background(), programID, status); err != nil {
		telemetry.Error("program.status_update", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"program_id": programID,
			"status":     status,
			"error":      sanitizeError(err),
		})
	}
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

func (o *Orchestrator) logStatus(ctx context.Context, job Job, transition string, extra map[string]any) {
	fields := map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"job_id":            job.ID,
		"program_id":        job.ProgramID,
		"kind":              job.Kind,
		"status":            job.Status,
		"status_transition": transition,
	}
	for k, v := range extra {
		fields[k] = v
	}
	telemetry.Info("job.status", fields)
}
