package assessments

import "strconv"

// scoreExtractors is the ordered list of places a score may live, tried in
// sequence. Centralized here so detail synthesis and summary generation share
// one chain. Absence of a score is data, not an error: the chain defaults to
// zero rather than failing.
var scoreExtractors = []func(map[string]any) (float64, bool){
	func(f map[string]any) (float64, bool) { return toNumber(f["overallScore"]) },
	func(f map[string]any) (float64, bool) { return toNumber(f["score"]) },
	func(f map[string]any) (float64, bool) { return nestedNumber(f, "extractedFields", "overallScore") },
	func(f map[string]any) (float64, bool) { return nestedNumber(f, "assessment", "overallScore") },
}

// extractScore returns the first score found by the extractor chain, clamped
// to 0-100, or 0 when every location is absent.
func extractScore(fields map[string]any) float64 {
	if fields == nil {
		return 0
	}
	for _, extract := range scoreExtractors {
		if value, ok := extract(fields); ok {
			return clampScore(value)
		}
	}
	return 0
}

func nestedNumber(fields map[string]any, outer, inner string) (float64, bool) {
	nested, ok := fields[outer].(map[string]any)
	if !ok {
		return 0, false
	}
	return toNumber(nested[inner])
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func clampScore(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
