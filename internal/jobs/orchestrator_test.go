package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"grantflow-backend/internal/analyzer"
	"grantflow-backend/internal/documents"
	"grantflow-backend/internal/programs"
	"grantflow-backend/internal/queue"
	"grantflow-backend/internal/shared/storage/object/local"
)

type recordingQueue struct {
	mu   sync.Mutex
	sent []queue.Message
	fail bool
}

func (q *recordingQueue) Send(ctx context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail {
		return errors.New("queue unavailable")
	}
	q.sent = append(q.sent, msg)
	return nil
}

func (q *recordingQueue) messages() []queue.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queue.Message(nil), q.sent...)
}

type scriptedAnalyzer struct {
	mu       sync.Mutex
	degraded map[string]string
	failWith map[string]error
	calls    int
}

func (a *scriptedAnalyzer) Analyze(ctx context.Context, input analyzer.Input) (analyzer.Outcome, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if err, ok := a.failWith[input.FileName]; ok {
		return analyzer.Outcome{}, err
	}
	if reason, ok := a.degraded[input.FileName]; ok {
		return analyzer.Outcome{
			Fields:         map[string]any{"summary": "fallback"},
			Degraded:       true,
			DegradedReason: reason,
		}, nil
	}
	return analyzer.Outcome{Fields: map[string]any{"summary": "ok"}}, nil
}

type orchestratorFixture struct {
	orch        *Orchestrator
	repo        *MemoryRepo
	programRepo *programs.MemoryRepo
	docRepo     *documents.MemoryRepo
	queue       *recordingQueue
	analyzer    *scriptedAnalyzer
}

func setupOrchestrator(t *testing.T, docNames ...string) orchestratorFixture {
	t.Helper()
	ctx := context.Background()

	store := local.New(t.TempDir())
	repo := NewMemoryRepo()
	programRepo := programs.NewMemoryRepo()
	docRepo := documents.NewMemoryRepo()
	q := &recordingQueue{}
	client := &scriptedAnalyzer{degraded: map[string]string{}, failWith: map[string]error{}}

	if err := programRepo.Create(ctx, programs.Program{ID: "prog-1", Name: "Arts Fund", Status: programs.StatusDraft}); err != nil {
		t.Fatalf("create program: %v", err)
	}
	for i, name := range docNames {
		key, _, _, err := store.Save(ctx, "prog-1", name, bytes.NewReader([]byte("grant application text for "+name)))
		if err != nil {
			t.Fatalf("save document text: %v", err)
		}
		doc := documents.Document{
			ID:               fmt.Sprintf("doc-%d", i+1),
			ProgramID:        "prog-1",
			FileName:         name,
			MimeType:         "text/plain",
			Category:         documents.CategoryApplicationForm,
			StorageKey:       key,
			ExtractedTextKey: key,
			CreatedAt:        time.Now().UTC(),
		}
		if err := docRepo.Create(ctx, doc); err != nil {
			t.Fatalf("create document: %v", err)
		}
	}

	orch := &Orchestrator{
		Repo:        repo,
		ProgramRepo: programRepo,
		DocRepo:     docRepo,
		Store:       store,
		Analyzer:    client,
		Queue:       q,
	}
	return orchestratorFixture{
		orch:        orch,
		repo:        repo,
		programRepo: programRepo,
		docRepo:     docRepo,
		queue:       q,
		analyzer:    client,
	}
}

func TestStartCreatesAnalysisJobAndEnqueues(t *testing.T) {
	ctx := context.Background()
	f := setupOrchestrator(t, "a.txt", "b.txt")

	job, created, err := f.orch.Start(ctx, "prog-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !created {
		t.Fatal("created = false, want true")
	}
	if job.Kind != KindDocumentAnalysis {
		t.Fatalf("kind = %q, want %q", job.Kind, KindDocumentAnalysis)
	}
	if job.Status != StatusPending {
		t.Fatalf("status = %q, want %q", job.Status, StatusPending)
	}
	if job.TotalDocuments != 2 {
		t.Fatalf("totalDocuments = %d, want 2", job.TotalDocuments)
	}

	program, err := f.programRepo.GetByID(ctx, "prog-1")
	if err != nil {
		t.Fatalf("get program: %v", err)
	}
	if program.Status != programs.StatusProcessing {
		t.Fatalf("program status = %q, want %q", program.Status, programs.StatusProcessing)
	}

	msgs := f.queue.messages()
	if len(msgs) != 1 {
		t.Fatalf("queued messages = %d, want 1", len(msgs))
	}
	if msgs[0].JobID != job.ID {
		t.Fatalf("queued job id = %q, want %q", msgs[0].JobID, job.ID)
	}
}

func TestStartIsIdempotentWhileJobActive(t *testing.T) {
	ctx := context.Background()
	f := setupOrchestrator(t, "a.txt")

	first, created, err := f.orch.Start(ctx, "prog-1")
	if err != nil || !created {
		t.Fatalf("first Start: created=%v err=%v", created, err)
	}

	second, created, err := f.orch.Start(ctx, "prog-1")
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if created {
		t.Fatal("second Start should not create a new job")
	}
	if second.ID != first.ID {
		t.Fatalf("second Start returned job %q, want %q", second.ID, first.ID)
	}
	if len(f.queue.messages()) != 1 {
		t.Fatalf("queued messages = %d, want 1", len(f.queue.messages()))
	}
}

func TestStartWithoutDocuments(t *testing.T) {
	ctx := context.Background()
	f := setupOrchestrator(t)

	_, _, err := f.orch.Start(ctx, "prog-1")
	if !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("err = %v, want ErrNoDocuments", err)
	}
}

func TestStartAfterFailureClearsWarnings(t *testing.T) {
	ctx := context.Background()
	f := setupOrchestrator(t, "a.txt")

	failedAt := time.Now().UTC()
	failed := Job{
		ID:             "job-old",
		ProgramID:      "prog-1",
		Kind:           KindDocumentAnalysis,
		Status:         StatusFailed,
		TotalDocuments: 1,
		CreatedAt:      failedAt.Add(-time.Hour),
	}
	if err := f.repo.Create(ctx, failed); err != nil {
		t.Fatalf("create failed job: %v", err)
	}
	warning := programs.Warning{Category: documents.CategoryApplicationForm, Message: "a.txt: degraded", RequiresReview: true}
	if err := f.programRepo.AppendWarning(ctx, "prog-1", warning); err != nil {
		t.Fatalf("append warning: %v", err)
	}

	job, created, err := f.orch.Start(ctx, "prog-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !created {
		t.Fatal("restart after failure should create a fresh job")
	}
	if job.ID == failed.ID {
		t.Fatal("restart must not reuse the failed job")
	}

	program, err := f.programRepo.GetByID(ctx, "prog-1")
	if err != nil {
		t.Fatalf("get program: %v", err)
	}
	if len(program.Warnings) != 0 {
		t.Fatalf("warnings = %d, want 0 after restart", len(program.Warnings))
	}
}

func TestProcessJobCompletesAnalysisAndChainsRAG(t *testing.T) {
	ctx := context.Background()
	f := setupOrchestrator(t, "a.txt", "b.txt", "c.txt")

	job, _, err := f.orch.Start(ctx, "prog-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.orch.ProcessJob(ctx, job.ID); err != nil {
		t.Fatalf("ProcessJob analysis: %v", err)
	}

	analysis, err := f.repo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get analysis job: %v", err)
	}
	if analysis.Status != StatusCompleted {
		t.Fatalf("analysis status = %q, want %q", analysis.Status, StatusCompleted)
	}
	if analysis.ProcessedDocuments != analysis.TotalDocuments {
		t.Fatalf("processed = %d, total = %d; completed job must be fully counted", analysis.ProcessedDocuments, analysis.TotalDocuments)
	}

	rag, err := f.repo.LatestByKind(ctx, "prog-1", KindRAGProcessing)
	if err != nil {
		t.Fatalf("rag job not created: %v", err)
	}
	if rag.Status != StatusPending {
		t.Fatalf("rag status = %q, want %q", rag.Status, StatusPending)
	}
	if rag.TotalDocuments != 3 {
		t.Fatalf("rag totalDocuments = %d, want 3", rag.TotalDocuments)
	}

	if err := f.orch.ProcessJob(ctx, rag.ID); err != nil {
		t.Fatalf("ProcessJob rag: %v", err)
	}
	program, err := f.programRepo.GetByID(ctx, "prog-1")
	if err != nil {
		t.Fatalf("get program: %v", err)
	}
	if program.Status != programs.StatusActive {
		t.Fatalf("program status = %q, want %q", program.Status, programs.StatusActive)
	}

	doc, err := f.docRepo.GetByID(ctx, "prog-1", "doc-1")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if doc.Analysis["documentAnalysis"] == nil {
		t.Fatal("document missing analysis payload")
	}
	if doc.Analysis["knowledgeIndex"] == nil {
		t.Fatal("document missing knowledge index payload")
	}
}

func TestProcessJobDegradedDocumentLeavesWarning(t *testing.T) {
	ctx := context.Background()
	f := setupOrchestrator(t, "a.txt", "b.txt", "c.txt")
	f.analyzer.degraded["b.txt"] = "keyword-based scoring used; AI provider unavailable"

	job, _, err := f.orch.Start(ctx, "prog-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.orch.ProcessJob(ctx, job.ID); err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}

	analysis, err := f.repo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if analysis.Status != StatusCompleted {
		t.Fatalf("degraded document must not fail the job: status = %q", analysis.Status)
	}

	program, err := f.programRepo.GetByID(ctx, "prog-1")
	if err != nil {
		t.Fatalf("get program: %v", err)
	}
	if len(program.Warnings) != 1 {
		t.Fatalf("warnings = %d, want exactly 1", len(program.Warnings))
	}
	w := program.Warnings[0]
	if !w.RequiresReview {
		t.Fatal("degraded warning must require review")
	}
	if w.Category != documents.CategoryApplicationForm {
		t.Fatalf("warning category = %q", w.Category)
	}

	doc, err := f.docRepo.GetByID(ctx, "prog-1", "doc-2")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if doc.Analysis["degraded"] != true {
		t.Fatal("degraded flag not stored on the document")
	}
}

func TestProcessJobAnalyzerFailureFailsJobAndProgram(t *testing.T) {
	ctx := context.Background()
	f := setupOrchestrator(t, "a.txt", "b.txt")
	f.analyzer.failWith["b.txt"] = errors.New("invalid json in response")

	job, _, err := f.orch.Start(ctx, "prog-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.orch.ProcessJob(ctx, job.ID); err == nil {
		t.Fatal("ProcessJob should return the document failure")
	}

	failed, err := f.repo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if failed.Status != StatusFailed {
		t.Fatalf("job status = %q, want %q", failed.Status, StatusFailed)
	}
	if failed.ErrorMessage == nil || *failed.ErrorMessage == "" {
		t.Fatal("failed job should carry an error message")
	}

	if _, err := f.repo.LatestByKind(ctx, "prog-1", KindRAGProcessing); !errors.Is(err, ErrNotFound) {
		t.Fatal("rag job must not be created after an analysis failure")
	}

	program, err := f.programRepo.GetByID(ctx, "prog-1")
	if err != nil {
		t.Fatalf("get program: %v", err)
	}
	if program.Status != programs.StatusError {
		t.Fatalf("program status = %q, want %q", program.Status, programs.StatusError)
	}
}

func TestCreateJobRAGRequiresCompletedAnalysis(t *testing.T) {
	ctx := context.Background()
	f := setupOrchestrator(t, "a.txt")

	if _, err := f.orch.CreateJob(ctx, "prog-1", KindRAGProcessing, 1); !errors.Is(err, ErrAnalysisIncomplete) {
		t.Fatalf("err = %v, want ErrAnalysisIncomplete", err)
	}

	job, _, err := f.orch.Start(ctx, "prog-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.orch.CreateJob(ctx, "prog-1", KindRAGProcessing, 1); !errors.Is(err, ErrAnalysisIncomplete) {
		t.Fatalf("err = %v, want ErrAnalysisIncomplete while analysis is pending", err)
	}

	if err := f.orch.ProcessJob(ctx, job.ID); err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}
	// ProcessJob already chained the RAG job, so a second create reports it active.
	if _, err := f.orch.CreateJob(ctx, "prog-1", KindRAGProcessing, 1); !errors.Is(err, ErrJobActive) {
		t.Fatalf("err = %v, want ErrJobActive", err)
	}
}

func TestCreateJobRejectsUnknownKind(t *testing.T) {
	ctx := context.Background()
	f := setupOrchestrator(t, "a.txt")

	if _, err := f.orch.CreateJob(ctx, "prog-1", "SOMETHING_ELSE", 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if _, err := f.orch.CreateJob(ctx, "prog-1", KindDocumentAnalysis, 0); !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("err = %v, want ErrNoDocuments for zero documents", err)
	}
}

func TestDispatchFallsBackWhenQueueFails(t *testing.T) {
	ctx := context.Background()
	f := setupOrchestrator(t, "a.txt")
	f.queue.fail = true

	job, _, err := f.orch.Start(ctx, "prog-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// The in-process fallback goroutine should drive the job to a terminal state.
	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := f.repo.GetByID(ctx, job.ID)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if got.Status == StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck in %q", got.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
