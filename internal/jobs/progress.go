package jobs

import (
	"fmt"
	"math"
)

const (
	ProgressStatusWaiting               = "waiting"
	ProgressStatusProcessing            = "processing"
	ProgressStatusCompleted             = "completed"
	ProgressStatusCompletedWithWarnings = "completed_with_warnings"
	ProgressStatusFailed                = "failed"
)

// Progress is the rollup returned to the polling client.
type Progress struct {
	Percent     int    `json:"percent"`
	CurrentTask string `json:"currentTask"`
	Status      string `json:"status"`
}

// Phase weights: a flat 20% once any job exists, then up to 40% for each of
// the two pipeline phases. The weighting is arbitrary but fixed; changing it
// makes the percentage jump backwards for clients mid-poll.
const (
	uploadWeight = 20.0
	phaseWeight  = 40.0
)

// ComputeProgress maps the jobs of one program into a single 0-100 percentage
// and a human-readable current task. Pure function; hasWarnings tells it
// whether degraded-analysis warnings were recorded so a finished run reports
// completed-with-warnings instead of plain success.
func ComputeProgress(jobList []Job, hasWarnings bool) Progress {
	analysis, hasAnalysis := latestByKind(jobList, KindDocumentAnalysis)
	rag, hasRAG := latestByKind(jobList, KindRAGProcessing)

	if !hasAnalysis && !hasRAG {
		return Progress{Percent: 0, CurrentTask: "Waiting to start", Status: ProgressStatusWaiting}
	}

	var percent float64 = uploadWeight
	percent += phaseContribution(analysis, hasAnalysis)
	percent += phaseContribution(rag, hasRAG)

	rounded := int(math.Round(percent))
	if rounded < 0 {
		rounded = 0
	}
	if rounded > 100 {
		rounded = 100
	}

	return Progress{
		Percent:     rounded,
		CurrentTask: currentTask(analysis, hasAnalysis, rag, hasRAG),
		Status:      overallStatus(analysis, hasAnalysis, rag, hasRAG, hasWarnings),
	}
}

// phaseContribution scales the phase weight by the job's document ratio
// without rounding; ComputeProgress rounds the summed percentage once so
// per-phase truncation cannot skew the total.
func phaseContribution(job Job, exists bool) float64 {
	if !exists {
		return 0
	}
	if job.Status == StatusCompleted {
		return phaseWeight
	}
	if job.TotalDocuments <= 0 {
		return 0
	}
	ratio := float64(job.ProcessedDocuments) / float64(job.TotalDocuments)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return phaseWeight * ratio
}

// currentTask is a priority chain evaluated top to bottom, first match wins.
// The ordering must reflect the furthest-advanced phase, not the most
// recently updated job.
func currentTask(analysis Job, hasAnalysis bool, rag Job, hasRAG bool) string {
	switch {
	case hasAnalysis && analysis.Status == StatusFailed:
		return "Document analysis failed"
	case hasRAG && rag.Status == StatusFailed:
		return "Knowledge base processing failed"
	case hasRAG && rag.Status == StatusCompleted:
		return "Processing completed, knowledge base ready"
	case hasRAG && rag.Status == StatusProcessing:
		return fmt.Sprintf("Building knowledge base... (%d/%d documents)", rag.ProcessedDocuments, rag.TotalDocuments)
	case hasAnalysis && analysis.Status == StatusCompleted:
		return "Documents analyzed, starting knowledge base build..."
	case hasAnalysis && analysis.Status == StatusProcessing:
		return fmt.Sprintf("Analyzing documents... (%d/%d processed)", analysis.ProcessedDocuments, analysis.TotalDocuments)
	case hasAnalysis || hasRAG:
		return "Documents uploaded, preparing analysis..."
	default:
		return "Waiting to start"
	}
}

func overallStatus(analysis Job, hasAnalysis bool, rag Job, hasRAG bool, hasWarnings bool) string {
	if (hasAnalysis && analysis.Status == StatusFailed) || (hasRAG && rag.Status == StatusFailed) {
		return ProgressStatusFailed
	}
	if hasRAG && rag.Status == StatusCompleted {
		if hasWarnings {
			return ProgressStatusCompletedWithWarnings
		}
		return ProgressStatusCompleted
	}
	return ProgressStatusProcessing
}

func latestByKind(jobList []Job, kind string) (Job, bool) {
	var latest Job
	found := false
	for _, job := range jobList {
		if job.Kind != kind {
			continue
		}
		if !found || job.CreatedAt.After(latest.CreatedAt) {
			latest = job
			found = true
		}
	}
	return latest, found
}
