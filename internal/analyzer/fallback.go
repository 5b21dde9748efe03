package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// HeuristicClient produces degraded analyses without calling any AI provider.
// Every outcome it returns is tagged Degraded so the pipeline records a warning.
type HeuristicClient struct{}

// Analyze derives structured fields from simple text statistics and keyword hits.
func (HeuristicClient) Analyze(ctx context.Context, input Input) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	words := strings.Fields(input.Text)
	switch input.Kind {
	case KindKnowledgeIndex:
		return Outcome{
			Fields: map[string]any{
				"chunks":   chunkText(input.Text, 800),
				"concepts": topKeywords(words, 10),
				"summary":  firstSentences(input.Text, 2),
			},
			Degraded:       true,
			DegradedReason: "keyword-based indexing used; AI provider unavailable",
		}, nil
	case KindAssessment:
		score := heuristicScore(words, input.Criteria)
		return Outcome{
			Fields: map[string]any{
				"overallScore": score,
				"feedback": map[string]any{
					"strengths":   []any{},
					"weaknesses":  []any{},
					"suggestions": []any{"Manual review recommended: automated scoring used keyword heuristics."},
				},
				"assessmentDetails": map[string]any{
					"eligibility": score,
					"impact":      score,
					"feasibility": score,
					"innovation":  score,
				},
				"recommendations": []any{},
				"transparencyInfo": map[string]any{
					"aiUsed":         false,
					"fallbackReason": "ai_provider_unavailable",
					"userMessage":    "This score was produced by keyword matching, not AI analysis. Treat it as a rough estimate.",
				},
			},
			Degraded:       true,
			DegradedReason: "keyword-based scoring used; AI provider unavailable",
		}, nil
	default:
		return Outcome{
			Fields: map[string]any{
				"title":     input.FileName,
				"summary":   firstSentences(input.Text, 2),
				"keyPoints": topKeywords(words, 5),
				"entities":  []any{},
				"language":  "unknown",
			},
			Degraded:       true,
			DegradedReason: "text statistics used; AI provider unavailable",
		}, nil
	}
}

// WithFallback wraps a primary client so that provider failures degrade to the
// fallback client instead of failing the document outright. The fallback's
// reason is extended with the primary error so it reaches the warning surface.
func WithFallback(primary, fallback Client) Client {
	if primary == nil {
		return fallback
	}
	if fallback == nil {
		return primary
	}
	return fallbackClient{primary: primary, fallback: fallback}
}

type fallbackClient struct {
	primary  Client
	fallback Client
}

func (f fallbackClient) Analyze(ctx context.Context, input Input) (Outcome, error) {
	outcome, err := f.primary.Analyze(ctx, input)
	if err == nil {
		return outcome, nil
	}
	if ctx.Err() != nil {
		return Outcome{}, err
	}

	degraded, fbErr := f.fallback.Analyze(ctx, input)
	if fbErr != nil {
		return Outcome{}, err
	}
	degraded.Degraded = true
	if degraded.DegradedReason == "" {
		degraded.DegradedReason = fmt.Sprintf("primary analyzer failed: %v", err)
	}
	return degraded, nil
}

func chunkText(text string, size int) []any {
	text = strings.TrimSpace(text)
	if text == "" {
		return []any{}
	}
	var chunks []any
	for len(text) > size {
		cut := size
		if idx := strings.LastIndexAny(text[:size], ".\n"); idx > size/2 {
			cut = idx + 1
		}
		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = text[cut:]
	}
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		chunks = append(chunks, trimmed)
	}
	return chunks
}

func firstSentences(text string, n int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	var out []string
	for _, s := range strings.SplitAfter(text, ".") {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
		if len(out) >= n {
			break
		}
	}
	return strings.Join(out, " ")
}

func topKeywords(words []string, n int) []any {
	counts := make(map[string]int)
	for _, w := range words {
		w = strings.ToLower(strings.Trim(w, ".,;:!?()\"'"))
		if len(w) < 5 {
			continue
		}
		counts[w]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, k)
	}
	return out
}

func heuristicScore(words []string, criteria string) float64 {
	if len(words) == 0 {
		return 0
	}
	terms := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(criteria)) {
		w = strings.Trim(w, ".,;:!?()\"'")
		if len(w) >= 5 {
			terms[w] = struct{}{}
		}
	}
	if len(terms) == 0 {
		// No criteria to match against; score on document substance alone.
		score := float64(len(words)) / 10
		if score > 50 {
			score = 50
		}
		return score
	}
	hits := make(map[string]struct{})
	for _, w := range words {
		w = strings.ToLower(strings.Trim(w, ".,;:!?()\"'"))
		if _, ok := terms[w]; ok {
			hits[w] = struct{}{}
		}
	}
	return float64(len(hits)) / float64(len(terms)) * 100
}
