package jobs

import (
	"context"
	"time"

	"grantflow-backend/internal/programs"
	"grantflow-backend/internal/shared/metrics"
	"grantflow-backend/internal/shared/telemetry"
)

const defaultStallBudget = 10 * time.Minute

// Watchdog fails jobs that stop making progress instead of letting them hang
// forever. It is the only automatic cancellation in the pipeline; recovery is
// a manual reprocess, not a resume.
type Watchdog struct {
	Repo        Repo
	ProgramRepo programs.Repo
	StallBudget time.Duration
	Now         func() time.Time
}

func (w *Watchdog) budget() time.Duration {
	if w.StallBudget > 0 {
		return w.StallBudget
	}
	return defaultStallBudget
}

func (w *Watchdog) now() time.Time {
	if w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

// Sweep marks every stalled PROCESSING job FAILED and flips its program to
// ERROR. Returns the number of jobs failed.
func (w *Watchdog) Sweep(ctx context.Context) (int, error) {
	now := w.now()
	cutoff := now.Add(-w.budget())

	stalled, err := w.Repo.ListStalled(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	failed := 0
	for _, job := range stalled {
		msg := "job timed out: no progress within " + w.budget().String()
		if err := w.Repo.MarkFailed(ctx, job.ID, msg, now); err != nil {
			telemetry.Error("watchdog.fail_update", map[string]any{
				"job_id": job.ID,
				"error":  sanitizeError(err),
			})
			continue
		}
		metrics.IncJobFailed()
		failed++
		if err := w.ProgramRepo.UpdateStatus(ctx, job.ProgramID, programs.StatusError); err != nil {
			telemetry.Error("watchdog.program_update", map[string]any{
				"job_id":     job.ID,
				"program_id": job.ProgramID,
				"error":      sanitizeError(err),
			})
		}
		telemetry.Warn("job.status", map[string]any{
			"job_id":            job.ID,
			"program_id":        job.ProgramID,
			"kind":              job.Kind,
			"status":            StatusFailed,
			"status_transition": "processing->failed",
			"error_code":        ErrorCodeStalled,
			"error":             msg,
		})
	}
	return failed, nil
}

// Run sweeps on a fixed interval until the context is cancelled.
func (w *Watchdog) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				telemetry.Error("watchdog.sweep", map[string]any{"error": sanitizeError(err)})
			}
		}
	}
}
