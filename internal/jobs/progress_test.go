package jobs

import (
	"testing"
	"time"
)

func job(kind, status string, processed, total int, created time.Time) Job {
	return Job{
		ID:                 kind + "-" + status,
		ProgramID:          "prog-1",
		Kind:               kind,
		Status:             status,
		ProcessedDocuments: processed,
		TotalDocuments:     total,
		CreatedAt:          created,
	}
}

func TestComputeProgressNoJobs(t *testing.T) {
	got := ComputeProgress(nil, false)
	if got.Percent != 0 {
		t.Fatalf("percent = %d, want 0", got.Percent)
	}
	if got.Status != ProgressStatusWaiting {
		t.Fatalf("status = %q, want %q", got.Status, ProgressStatusWaiting)
	}
	if got.CurrentTask != "Waiting to start" {
		t.Fatalf("currentTask = %q", got.CurrentTask)
	}
}

func TestComputeProgressAnalysisPhase(t *testing.T) {
	base := time.Now().UTC()
	cases := []struct {
		name        string
		processed   int
		total       int
		wantPercent int
	}{
		{"not started", 0, 3, 20},
		{"one of three", 1, 3, 33},
		// 20 + 40*2/3 = 46.67 rounds up; truncating the ratio first would
		// report 46.
		{"two of three", 2, 3, 47},
		{"one of six", 1, 6, 27},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			jobList := []Job{job(KindDocumentAnalysis, StatusProcessing, tc.processed, tc.total, base)}
			got := ComputeProgress(jobList, false)
			if got.Percent != tc.wantPercent {
				t.Fatalf("percent = %d, want %d", got.Percent, tc.wantPercent)
			}
			if got.Status != ProgressStatusProcessing {
				t.Fatalf("status = %q, want %q", got.Status, ProgressStatusProcessing)
			}
		})
	}
}

func TestComputeProgressRAGPhase(t *testing.T) {
	base := time.Now().UTC()
	jobList := []Job{
		job(KindDocumentAnalysis, StatusCompleted, 3, 3, base),
		job(KindRAGProcessing, StatusProcessing, 1, 2, base.Add(time.Second)),
	}
	got := ComputeProgress(jobList, false)
	// 20 upload + 40 analysis + 20 for half the indexing phase.
	if got.Percent != 80 {
		t.Fatalf("percent = %d, want 80", got.Percent)
	}
	if got.CurrentTask != "Building knowledge base... (1/2 documents)" {
		t.Fatalf("currentTask = %q", got.CurrentTask)
	}
}

func TestComputeProgressCompleted(t *testing.T) {
	base := time.Now().UTC()
	jobList := []Job{
		job(KindDocumentAnalysis, StatusCompleted, 3, 3, base),
		job(KindRAGProcessing, StatusCompleted, 3, 3, base.Add(time.Second)),
	}

	got := ComputeProgress(jobList, false)
	if got.Percent != 100 {
		t.Fatalf("percent = %d, want 100", got.Percent)
	}
	if got.Status != ProgressStatusCompleted {
		t.Fatalf("status = %q, want %q", got.Status, ProgressStatusCompleted)
	}
	if got.CurrentTask != "Processing completed, knowledge base ready" {
		t.Fatalf("currentTask = %q", got.CurrentTask)
	}

	withWarnings := ComputeProgress(jobList, true)
	if withWarnings.Status != ProgressStatusCompletedWithWarnings {
		t.Fatalf("status = %q, want %q", withWarnings.Status, ProgressStatusCompletedWithWarnings)
	}
}

func TestComputeProgressFailureWins(t *testing.T) {
	base := time.Now().UTC()
	jobList := []Job{
		job(KindDocumentAnalysis, StatusFailed, 1, 3, base),
	}
	got := ComputeProgress(jobList, false)
	if got.Status != ProgressStatusFailed {
		t.Fatalf("status = %q, want %q", got.Status, ProgressStatusFailed)
	}
	if got.CurrentTask != "Document analysis failed" {
		t.Fatalf("currentTask = %q", got.CurrentTask)
	}

	jobList = []Job{
		job(KindDocumentAnalysis, StatusCompleted, 3, 3, base),
		job(KindRAGProcessing, StatusFailed, 1, 3, base.Add(time.Second)),
	}
	got = ComputeProgress(jobList, false)
	if got.Status != ProgressStatusFailed {
		t.Fatalf("status = %q, want %q", got.Status, ProgressStatusFailed)
	}
	if got.CurrentTask != "Knowledge base processing failed" {
		t.Fatalf("currentTask = %q", got.CurrentTask)
	}
}

func TestComputeProgressAnalysisDoneRAGPending(t *testing.T) {
	base := time.Now().UTC()
	jobList := []Job{
		job(KindDocumentAnalysis, StatusCompleted, 2, 2, base),
		job(KindRAGProcessing, StatusPending, 0, 2, base.Add(time.Second)),
	}
	got := ComputeProgress(jobList, false)
	if got.Percent != 60 {
		t.Fatalf("percent = %d, want 60", got.Percent)
	}
	if got.CurrentTask != "Documents analyzed, starting knowledge base build..." {
		t.Fatalf("currentTask = %q", got.CurrentTask)
	}
}

func TestComputeProgressMonotonicThroughPipeline(t *testing.T) {
	base := time.Now().UTC()
	total := 4
	prev := -1

	check := func(label string, jobList []Job) {
		t.Helper()
		got := ComputeProgress(jobList, false)
		if got.Percent < prev {
			t.Fatalf("%s: percent went backwards: %d -> %d", label, prev, got.Percent)
		}
		if got.Percent < 0 || got.Percent > 100 {
			t.Fatalf("%s: percent out of range: %d", label, got.Percent)
		}
		prev = got.Percent
	}

	check("waiting", nil)
	analysis := job(KindDocumentAnalysis, StatusPending, 0, total, base)
	check("analysis pending", []Job{analysis})
	analysis.Status = StatusProcessing
	for i := 0; i <= total; i++ {
		analysis.ProcessedDocuments = i
		check("analysis processing", []Job{analysis})
	}
	analysis.Status = StatusCompleted
	rag := job(KindRAGProcessing, StatusProcessing, 0, total, base.Add(time.Second))
	for i := 0; i <= total; i++ {
		rag.ProcessedDocuments = i
		check("rag processing", []Job{analysis, rag})
	}
	rag.Status = StatusCompleted
	check("done", []Job{analysis, rag})
	if prev != 100 {
		t.Fatalf("final percent = %d, want 100", prev)
	}
}

func TestComputeProgressUsesLatestJobPerKind(t *testing.T) {
	base := time.Now().UTC()
	jobList := []Job{
		job(KindDocumentAnalysis, StatusFailed, 0, 3, base),
		job(KindDocumentAnalysis, StatusProcessing, 1, 3, base.Add(time.Minute)),
	}
	got := ComputeProgress(jobList, false)
	if got.Status != ProgressStatusProcessing {
		t.Fatalf("status = %q, want %q (retry should mask the old failure)", got.Status, ProgressStatusProcessing)
	}
}

func TestJobProgressCompletedAlwaysFull(t *testing.T) {
	j := Job{Status: StatusCompleted, ProcessedDocuments: 1, TotalDocuments: 3}
	if got := j.Progress(); got != 100 {
		t.Fatalf("Progress() = %d, want 100", got)
	}
	j = Job{Status: StatusProcessing, ProcessedDocuments: 0, TotalDocuments: 0}
	if got := j.Progress(); got != 0 {
		t.Fatalf("Progress() with zero total = %d, want 0", got)
	}
}
