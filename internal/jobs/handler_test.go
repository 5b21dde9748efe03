package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newStatusRouter(t *testing.T, f orchestratorFixture) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(f.orch, f.programRepo, nil)
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestProcessEndpointAcceptsNewRun(t *testing.T) {
	f := setupOrchestrator(t, "a.txt")
	r := newStatusRouter(t, f)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/programs/prog-1/process", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["created"] != true {
		t.Fatalf("created = %v, want true", body["created"])
	}
	if body["kind"] != KindDocumentAnalysis {
		t.Fatalf("kind = %v", body["kind"])
	}
}

func TestProcessEndpointIdempotentReturnsOK(t *testing.T) {
	f := setupOrchestrator(t, "a.txt")
	r := newStatusRouter(t, f)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/v1/programs/prog-1/process", nil))
	if first.Code != http.StatusAccepted {
		t.Fatalf("first status = %d, want 202", first.Code)
	}

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/v1/programs/prog-1/process", nil))
	if second.Code != http.StatusOK {
		t.Fatalf("second status = %d, want 200", second.Code)
	}
}

func TestProcessEndpointUnknownProgram(t *testing.T) {
	f := setupOrchestrator(t)
	r := newStatusRouter(t, f)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/programs/missing/process", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestProcessEndpointNoDocuments(t *testing.T) {
	f := setupOrchestrator(t)
	r := newStatusRouter(t, f)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/programs/prog-1/process", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestStatusEndpointReportsProgress(t *testing.T) {
	ctx := context.Background()
	f := setupOrchestrator(t, "a.txt", "b.txt", "c.txt")

	analysis := Job{
		ID:                 "job-analysis",
		ProgramID:          "prog-1",
		Kind:               KindDocumentAnalysis,
		Status:             StatusProcessing,
		ProcessedDocuments: 1,
		TotalDocuments:     3,
		CreatedAt:          time.Now().UTC(),
	}
	if err := f.repo.Create(ctx, analysis); err != nil {
		t.Fatalf("create job: %v", err)
	}

	r := newStatusRouter(t, f)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/programs/prog-1/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp statusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Percent != 33 {
		t.Fatalf("percent = %d, want 33", resp.Percent)
	}
	if resp.Status != ProgressStatusProcessing {
		t.Fatalf("status = %q, want %q", resp.Status, ProgressStatusProcessing)
	}
	if resp.CurrentTask != "Analyzing documents... (1/3 processed)" {
		t.Fatalf("currentTask = %q", resp.CurrentTask)
	}
	if len(resp.Jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(resp.Jobs))
	}
	if resp.Warnings == nil {
		t.Fatal("warnings should be an empty array, not null")
	}
}

func TestStatusEndpointRateLimitsPolling(t *testing.T) {
	f := setupOrchestrator(t, "a.txt")
	r := newStatusRouter(t, f)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/v1/programs/prog-1/status", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/v1/programs/prog-1/status", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("429 response must set Retry-After")
	}
}

func TestListJobsEndpoint(t *testing.T) {
	ctx := context.Background()
	f := setupOrchestrator(t, "a.txt")
	if err := f.repo.Create(ctx, Job{ID: "job-1", ProgramID: "prog-1", Kind: KindDocumentAnalysis, Status: StatusPending, TotalDocuments: 1, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("create job: %v", err)
	}

	r := newStatusRouter(t, f)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/programs/prog-1/jobs", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var jobList []Job
	if err := json.Unmarshal(w.Body.Bytes(), &jobList); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(jobList) != 1 || jobList[0].ID != "job-1" {
		t.Fatalf("unexpected jobs payload: %+v", jobList)
	}
}
