package jobs

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"grantflow-backend/internal/analyzer"
	"grantflow-backend/internal/shared/telemetry"
)

const analyzerRetryBaseDelay = 300 * time.Millisecond

// retryingAnalyzer retries one failed analyzer call per document. A single
// transient failure must not abort a large batch, but the budget is fixed at
// one retry so a dead provider fails the job promptly.
type retryingAnalyzer struct {
	base      analyzer.Client
	jobID     string
	requestID string
	sleep     func(time.Duration)
}

func newRetryingAnalyzer(base analyzer.Client, jobID, requestID string) analyzer.Client {
	if base == nil {
		return nil
	}
	return retryingAnalyzer{
		base:      base,
		jobID:     jobID,
		requestID: requestID,
	}
}

func (r retryingAnalyzer) Analyze(ctx context.Context, input analyzer.Input) (analyzer.Outcome, error) {
	outcome, err := r.base.Analyze(ctx, input)
	if err == nil || !shouldRetryAnalyze(err) {
		return outcome, err
	}

	telemetry.Warn("analyzer.retry", map[string]any{
		"request_id": r.requestID,
		"job_id":     r.jobID,
		"file_name":  input.FileName,
		"attempt":    1,
		"error":      sanitizeError(err),
	})

	if r.sleep != nil {
		r.sleep(analyzerRetryBaseDelay)
	} else {
		select {
		case <-time.After(analyzerRetryBaseDelay):
		case <-ctx.Done():
			return analyzer.Outcome{}, ctx.Err()
		}
	}

	return r.base.Analyze(ctx, input)
}

func shouldRetryAnalyze(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "timeout") && (strings.Contains(msg, "openai") || strings.Contains(msg, "gemini") || strings.Contains(msg, "client.timeout")) {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}

func classifyFailure(err error) string {
	if err == nil {
		return ErrorCodeInternal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeAnalyzerTimeout
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") {
		return ErrorCodeAnalyzerTimeout
	}
	if strings.Contains(msg, "invalid json") || strings.Contains(msg, "empty response") || strings.Contains(msg, "no choices") {
		return ErrorCodeAnalyzerOutput
	}
	if strings.Contains(msg, "document") || strings.Contains(msg, "storage") || strings.Contains(msg, "extract") {
		return ErrorCodeStorage
	}
	return ErrorCodeInternal
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
