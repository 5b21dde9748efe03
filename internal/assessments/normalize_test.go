package assessments

import (
	"strings"
	"testing"
)

func TestNormalizeNilOutput(t *testing.T) {
	got := Normalize(nil, "app.pdf", "Arts Fund")
	if got.Status != ResultStatusError {
		t.Fatalf("status = %q, want %q", got.Status, ResultStatusError)
	}
	if got.Rating != 0 {
		t.Fatalf("rating = %v, want 0", got.Rating)
	}
	if got.FileName != "app.pdf" {
		t.Fatalf("fileName = %q", got.FileName)
	}
	if got.ErrorMessage == "" {
		t.Fatal("error result must carry a message")
	}
	if got.Recommendations == nil || len(got.Recommendations) != 0 {
		t.Fatalf("recommendations = %v, want empty slice", got.Recommendations)
	}
	if got.Details != nil {
		t.Fatal("error result must not synthesize details")
	}
}

func TestNormalizeEmptyObjectIsLegacyWithZeroScores(t *testing.T) {
	got := Normalize(map[string]any{}, "app.pdf", "Arts Fund")
	if got.Status != ResultStatusCompleted {
		t.Fatalf("status = %q, want %q", got.Status, ResultStatusCompleted)
	}
	if got.Rating != 0 {
		t.Fatalf("rating = %v, want 0", got.Rating)
	}
	want := []string{CategoryEligibility, CategoryImpact, CategoryFeasibility, CategoryInnovation}
	if len(got.Categories) != len(want) {
		t.Fatalf("categories = %v, want %v", got.Categories, want)
	}
	for i, category := range want {
		if got.Categories[i] != category {
			t.Fatalf("categories[%d] = %q, want %q", i, got.Categories[i], category)
		}
	}
	if got.Details == nil {
		t.Fatal("legacy result must synthesize details")
	}
	if got.Details.Eligibility.Score != 0 || got.Details.Innovation.Score != 0 {
		t.Fatalf("detail scores should default to 0: %+v", got.Details)
	}
	if got.Details.Eligibility.Notes != "Assessment completed." {
		t.Fatalf("notes = %q", got.Details.Eligibility.Notes)
	}
}

func TestNormalizeLegacyPrefersVerbatimFeedback(t *testing.T) {
	raw := map[string]any{
		"overallScore": float64(85),
		"feedback": map[string]any{
			"strengths": []any{"Great fit with the program goals."},
		},
	}
	got := Normalize(raw, "app.pdf", "Arts Fund")
	if got.Rating != 85 {
		t.Fatalf("rating = %v, want 85", got.Rating)
	}
	if !strings.Contains(got.Summary, "Great fit with the program goals.") {
		t.Fatalf("summary should quote the feedback verbatim: %q", got.Summary)
	}
	if !strings.HasPrefix(got.Summary, "Arts Fund: ") {
		t.Fatalf("summary should be prefixed with the record name: %q", got.Summary)
	}
	if got.Details.Impact.Score != 85 {
		t.Fatalf("detail score should inherit overall: %v", got.Details.Impact.Score)
	}
}

func TestNormalizeLegacyPerCategoryScores(t *testing.T) {
	raw := map[string]any{
		"overallScore": float64(70),
		"assessmentDetails": map[string]any{
			"eligibility": float64(90),
			"impact":      float64(55),
		},
	}
	got := Normalize(raw, "app.pdf", "Arts Fund")
	if got.Details.Eligibility.Score != 90 {
		t.Fatalf("eligibility = %v, want 90", got.Details.Eligibility.Score)
	}
	if got.Details.Impact.Score != 55 {
		t.Fatalf("impact = %v, want 55", got.Details.Impact.Score)
	}
	// Missing categories inherit the overall score.
	if got.Details.Feasibility.Score != 70 {
		t.Fatalf("feasibility = %v, want 70", got.Details.Feasibility.Score)
	}
}

func TestNormalizeBandedSummaries(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{85, "excellent fit"},
		{75, "good fit"},
		{65, "moderate fit"},
		{50, "needs improvement"},
	}
	for _, tc := range cases {
		raw := map[string]any{"overallScore": tc.score}
		got := Normalize(raw, "app.pdf", "Arts Fund")
		if !strings.Contains(got.Summary, tc.want) {
			t.Errorf("score %v: summary %q does not contain %q", tc.score, got.Summary, tc.want)
		}
	}
}

func TestNormalizeStringOutputIsFilledTemplate(t *testing.T) {
	got := Normalize("Filled template text.", "app.pdf", "Arts Fund")
	if !got.IsFilledTemplate {
		t.Fatal("string output should be a filled template")
	}
	if got.FilledTemplate != "Filled template text." {
		t.Fatalf("filledTemplate = %q", got.FilledTemplate)
	}
	if got.Status != ResultStatusCompleted {
		t.Fatalf("status = %q", got.Status)
	}
	if len(got.TemplateSections) != 0 {
		t.Fatal("filled templates carry no sections")
	}
	if got.Details != nil {
		t.Fatal("filled templates carry no legacy details")
	}
}

func TestNormalizeStringFormattedOutputIsFilledTemplate(t *testing.T) {
	raw := map[string]any{"formattedOutput": "Some filled text"}
	got := Normalize(raw, "app.pdf", "Arts Fund")
	if !got.IsFilledTemplate {
		t.Fatal("string formattedOutput should be treated as a filled template")
	}
	if got.FilledTemplate != "Some filled text" {
		t.Fatalf("filledTemplate = %q", got.FilledTemplate)
	}
}

func TestNormalizeTemplateFormatMarker(t *testing.T) {
	raw := map[string]any{
		"templateFormat": "raw_filled",
		"filledTemplate": "Rendered document body.",
		"overallScore":   float64(72),
	}
	got := Normalize(raw, "app.pdf", "Arts Fund")
	if !got.IsFilledTemplate {
		t.Fatal("templateFormat=raw_filled should be a filled template")
	}
	if got.FilledTemplate != "Rendered document body." {
		t.Fatalf("filledTemplate = %q", got.FilledTemplate)
	}
	if got.Rating != 72 {
		t.Fatalf("rating = %v, want 72", got.Rating)
	}
}

func TestNormalizeStructuredTemplate(t *testing.T) {
	raw := map[string]any{
		"templateApplied": true,
		"overallScore":    float64(64),
		"formattedOutput": map[string]any{
			"scoreBreakdown":  map[string]any{"eligibility": 60.0},
			"recommendations": []any{"Add a budget."},
			"projectSummary":  "A community arts project.",
			"metadata":        map[string]any{"templateName": "standard"},
		},
	}
	got := Normalize(raw, "app.pdf", "Arts Fund")
	if got.IsFilledTemplate {
		t.Fatal("structured output is not a filled template")
	}
	if len(got.TemplateSections) != 3 {
		t.Fatalf("sections = %d, want 3 (metadata is reserved)", len(got.TemplateSections))
	}
	// Sections are ordered by key; categories mirror the section keys.
	wantKeys := []string{"projectSummary", "recommendations", "scoreBreakdown"}
	for i, key := range wantKeys {
		if got.TemplateSections[i].Key != key {
			t.Fatalf("section[%d].Key = %q, want %q", i, got.TemplateSections[i].Key, key)
		}
		if got.Categories[i] != key {
			t.Fatalf("categories[%d] = %q, want %q", i, got.Categories[i], key)
		}
	}
}

func TestNormalizeTransparencyPassthrough(t *testing.T) {
	raw := map[string]any{
		"overallScore": float64(40),
		"transparencyInfo": map[string]any{
			"aiUsed":         false,
			"fallbackReason": "ai_provider_unavailable",
			"userMessage":    "Keyword matching was used.",
		},
	}
	got := Normalize(raw, "app.pdf", "Arts Fund")
	if got.Transparency == nil {
		t.Fatal("transparency info must pass through")
	}
	if got.Transparency.AIUsed {
		t.Fatal("aiUsed should be false")
	}
	if got.Transparency.FallbackReason != "ai_provider_unavailable" {
		t.Fatalf("fallbackReason = %q", got.Transparency.FallbackReason)
	}
	if got.Transparency.UserMessage != "Keyword matching was used." {
		t.Fatalf("userMessage = %q", got.Transparency.UserMessage)
	}
}

func TestNormalizeStrategyUsedShortForm(t *testing.T) {
	raw := map[string]any{"strategyUsed": "chunked_context"}
	got := Normalize(raw, "app.pdf", "Arts Fund")
	if got.Transparency == nil {
		t.Fatal("strategyUsed alone should still yield transparency info")
	}
	if !got.Transparency.AIUsed {
		t.Fatal("strategyUsed implies AI was used")
	}
	if got.Transparency.StrategyUsed != "chunked_context" {
		t.Fatalf("strategyUsed = %q", got.Transparency.StrategyUsed)
	}
}

func TestNormalizeRecommendations(t *testing.T) {
	raw := map[string]any{
		"recommendations": []any{"Clarify the timeline.", "Add letters of support."},
	}
	got := Normalize(raw, "app.pdf", "Arts Fund")
	if len(got.Recommendations) != 2 {
		t.Fatalf("recommendations = %v", got.Recommendations)
	}
}

func TestDetectShapeEdgeCases(t *testing.T) {
	if detectShape("   ").kind != shapeInvalid {
		t.Fatal("blank string should be invalid")
	}
	if detectShape(42).kind != shapeInvalid {
		t.Fatal("non-object scalar should be invalid")
	}
	if detectShape(map[string]any{"templateApplied": true}).kind != shapeLegacy {
		t.Fatal("templateApplied without formattedOutput object falls back to legacy")
	}
	if detectShape(map[string]any{"filledTemplate": "   "}).kind != shapeLegacy {
		t.Fatal("blank filledTemplate should not force the filled shape")
	}
}
