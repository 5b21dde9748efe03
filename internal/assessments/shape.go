package assessments

import "strings"

// The analyzer's output shape is not uniform across providers and versions.
// detectShape decides the shape exactly once; everything downstream switches
// on the tag instead of re-sniffing fields at each use site.

type shapeKind int

const (
	shapeInvalid shapeKind = iota
	shapeFilledTemplate
	shapeStructuredTemplate
	shapeLegacy
)

type rawShape struct {
	kind            shapeKind
	fields          map[string]any
	filledTemplate  string
	formattedOutput map[string]any
}

// detectShape classifies the raw analyzer output. Filled-template detection
// takes precedence over structured-section rendering.
func detectShape(raw any) rawShape {
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return rawShape{kind: shapeInvalid}
		}
		return rawShape{kind: shapeFilledTemplate, filledTemplate: v}
	case map[string]any:
		return detectObjectShape(v)
	default:
		return rawShape{kind: shapeInvalid}
	}
}

func detectObjectShape(fields map[string]any) rawShape {
	if format, ok := fields["templateFormat"].(string); ok {
		switch format {
		case "raw_filled", "filled_template":
			return rawShape{
				kind:           shapeFilledTemplate,
				fields:         fields,
				filledTemplate: filledTemplateText(fields),
			}
		}
	}
	if filled, ok := fields["filledTemplate"].(string); ok && strings.TrimSpace(filled) != "" {
		return rawShape{kind: shapeFilledTemplate, fields: fields, filledTemplate: filled}
	}
	if text, ok := fields["formattedOutput"].(string); ok && strings.TrimSpace(text) != "" {
		return rawShape{kind: shapeFilledTemplate, fields: fields, filledTemplate: text}
	}

	if applied, ok := fields["templateApplied"].(bool); ok && applied {
		if formatted, ok := fields["formattedOutput"].(map[string]any); ok {
			return rawShape{kind: shapeStructuredTemplate, fields: fields, formattedOutput: formatted}
		}
	}

	return rawShape{kind: shapeLegacy, fields: fields}
}

func filledTemplateText(fields map[string]any) string {
	if filled, ok := fields["filledTemplate"].(string); ok && strings.TrimSpace(filled) != "" {
		return filled
	}
	if text, ok := fields["formattedOutput"].(string); ok {
		return text
	}
	return ""
}
