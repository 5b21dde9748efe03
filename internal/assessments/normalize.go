package assessments

import (
	"fmt"
	"strings"
)

// Normalize converts raw analyzer output for one document into the canonical
// AssessmentResult, regardless of which response shape the analyzer used.
// Missing optional fields never fail normalization; only entirely absent or
// unparseable output yields an error-status result.
func Normalize(raw any, fileName, recordName string) AssessmentResult {
	shape := detectShape(raw)
	if shape.kind == shapeInvalid {
		return errorResult(fileName, "analyzer output was missing or unparseable")
	}

	score := extractScore(shape.fields)
	transparency := extractTransparency(shape.fields)

	switch shape.kind {
	case shapeFilledTemplate:
		return AssessmentResult{
			FileName:         fileName,
			Rating:           score,
			Categories:       []string{},
			Summary:          buildSummary(shape.fields, recordName, score),
			Status:           ResultStatusCompleted,
			IsFilledTemplate: true,
			FilledTemplate:   shape.filledTemplate,
			Recommendations:  extractRecommendations(shape.fields),
			Transparency:     transparency,
		}
	case shapeStructuredTemplate:
		sections := buildSections(shape.formattedOutput)
		categories := make([]string, 0, len(sections))
		for _, section := range sections {
			categories = append(categories, section.Key)
		}
		return AssessmentResult{
			FileName:         fileName,
			Rating:           score,
			Categories:       categories,
			Summary:          buildSummary(shape.fields, recordName, score),
			Status:           ResultStatusCompleted,
			TemplateSections: sections,
			Recommendations:  extractRecommendations(shape.fields),
			Transparency:     transparency,
		}
	default:
		details := buildLegacyDetails(shape.fields, score)
		return AssessmentResult{
			FileName: fileName,
			Rating:   score,
			Categories: []string{
				CategoryEligibility,
				CategoryImpact,
				CategoryFeasibility,
				CategoryInnovation,
			},
			Summary:         buildSummary(shape.fields, recordName, score),
			Status:          ResultStatusCompleted,
			Details:         details,
			Recommendations: extractRecommendations(shape.fields),
			Transparency:    transparency,
		}
	}
}

func errorResult(fileName, message string) AssessmentResult {
	return AssessmentResult{
		FileName:        fileName,
		Rating:          0,
		Categories:      []string{},
		Summary:         message,
		Status:          ResultStatusError,
		Recommendations: []string{},
		ErrorMessage:    message,
	}
}

// buildLegacyDetails synthesizes the four fixed categories, each scored from
// assessmentDetails.<category> when present, else the extracted overall score.
func buildLegacyDetails(fields map[string]any, overallScore float64) *AssessmentDetails {
	notes := firstFeedbackSentence(fields)
	if notes == "" {
		notes = "Assessment completed."
	}
	return &AssessmentDetails{
		Eligibility: categoryDetail(fields, CategoryEligibility, overallScore, notes),
		Impact:      categoryDetail(fields, CategoryImpact, overallScore, notes),
		Feasibility: categoryDetail(fields, CategoryFeasibility, overallScore, notes),
		Innovation:  categoryDetail(fields, CategoryInnovation, overallScore, notes),
	}
}

func categoryDetail(fields map[string]any, category string, overallScore float64, notes string) CategoryDetail {
	score := overallScore
	if value, ok := nestedNumber(fields, "assessmentDetails", category); ok {
		score = clampScore(value)
	}
	return CategoryDetail{Score: score, Notes: notes}
}

// buildSummary prefers the analyzer's own first strength/weakness sentence
// verbatim over synthesized prose; score-banded text is the last resort.
func buildSummary(fields map[string]any, recordName string, score float64) string {
	if sentence := firstFeedbackSentence(fields); sentence != "" {
		if strings.TrimSpace(recordName) != "" {
			return fmt.Sprintf("%s: %s", recordName, sentence)
		}
		return sentence
	}
	return bandedSummary(recordName, score)
}

// bandedSummary falls back to score-banded prose with fixed 80/70/60 thresholds.
func bandedSummary(recordName string, score float64) string {
	name := strings.TrimSpace(recordName)
	if name == "" {
		name = "This submission"
	}
	switch {
	case score >= 80:
		return fmt.Sprintf("%s shows an excellent fit against the selection criteria.", name)
	case score >= 70:
		return fmt.Sprintf("%s shows a good fit against the selection criteria.", name)
	case score >= 60:
		return fmt.Sprintf("%s shows a moderate fit against the selection criteria.", name)
	default:
		return fmt.Sprintf("%s needs improvement against the selection criteria.", name)
	}
}

func firstFeedbackSentence(fields map[string]any) string {
	feedback, ok := fields["feedback"].(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"strengths", "weaknesses", "suggestions"} {
		for _, item := range toStringSlice(feedback[key]) {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func extractRecommendations(fields map[string]any) []string {
	out := toStringSlice(fields["recommendations"])
	if out == nil {
		return []string{}
	}
	return out
}

// extractTransparency copies transparencyInfo or strategyUsed through
// unchanged when the raw output carries them.
func extractTransparency(fields map[string]any) *TransparencyInfo {
	if fields == nil {
		return nil
	}
	if raw, ok := fields["transparencyInfo"].(map[string]any); ok {
		info := &TransparencyInfo{}
		if aiUsed, ok := raw["aiUsed"].(bool); ok {
			info.AIUsed = aiUsed
		}
		if reason, ok := raw["fallbackReason"].(string); ok {
			info.FallbackReason = reason
		}
		if msg, ok := raw["userMessage"].(string); ok {
			info.UserMessage = msg
		}
		if strategy, ok := raw["strategyUsed"].(string); ok {
			info.StrategyUsed = strategy
		}
		return info
	}
	if strategy, ok := fields["strategyUsed"].(string); ok && strings.TrimSpace(strategy) != "" {
		return &TransparencyInfo{AIUsed: true, StrategyUsed: strategy}
	}
	return nil
}

func toStringSlice(value any) []string {
	switch raw := value.(type) {
	case []string:
		return raw
	case []any:
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
