package assessments

import (
	"sort"
	"strings"
	"unicode"
)

const (
	sectionTypeScores          = "scores"
	sectionTypeRecommendations = "recommendations"
	sectionTypeMetadata        = "metadata"
	sectionTypeMixed           = "mixed"
	sectionTypeText            = "text"
)

// reserved formattedOutput keys that never become sections
var reservedSectionKeys = map[string]struct{}{
	"metadata":        {},
	"templateApplied": {},
	"templateName":    {},
}

// buildSections turns every non-reserved key of formattedOutput into one
// rendered section, ordered by key for stable output.
func buildSections(formattedOutput map[string]any) []TemplateSection {
	keys := make([]string, 0, len(formattedOutput))
	for key := range formattedOutput {
		if _, reserved := reservedSectionKeys[key]; reserved {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	sections := make([]TemplateSection, 0, len(keys))
	for _, key := range keys {
		value := formattedOutput[key]
		sections = append(sections, TemplateSection{
			Key:     key,
			Title:   sectionTitle(key),
			Type:    sectionType(key, value),
			Content: value,
		})
	}
	return sections
}

// sectionType infers the render type from the key name by substring match in
// priority order, falling back on the value's shape.
func sectionType(key string, value any) string {
	lower := strings.ToLower(key)
	switch {
	case strings.Contains(lower, "score"), strings.Contains(lower, "assessment"), strings.Contains(lower, "evaluation"):
		return sectionTypeScores
	case strings.Contains(lower, "recommendation"), strings.Contains(lower, "suggestion"), strings.Contains(lower, "action"):
		return sectionTypeRecommendations
	case strings.Contains(lower, "detail"), strings.Contains(lower, "summary"), strings.Contains(lower, "overview"):
		return sectionTypeMetadata
	default:
		if _, ok := value.(map[string]any); ok {
			return sectionTypeMixed
		}
		return sectionTypeText
	}
}

// sectionTitle renders a camelCase or snake_case key as a display title.
func sectionTitle(key string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range key {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
			prevLower = false
		case unicode.IsUpper(r) && prevLower:
			b.WriteRune(' ')
			b.WriteRune(r)
			prevLower = false
		default:
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
			b.WriteRune(r)
		}
	}
	title := strings.TrimSpace(b.String())
	if title == "" {
		return key
	}
	return strings.ToUpper(title[:1]) + title[1:]
}
