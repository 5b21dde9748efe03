package analyzer

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are a grant and procurement document analyst. Respond with a single JSON object and no surrounding prose."

// SystemPrompt returns the shared system instruction for chat-style providers.
func SystemPrompt() string {
	return systemPrompt
}

// Prompt renders the user prompt for the given input.
func Prompt(input Input) string {
	var b strings.Builder
	switch input.Kind {
	case KindKnowledgeIndex:
		fmt.Fprintf(&b, "Prepare the following %s document for knowledge-base indexing.\n", categoryLabel(input.Category))
		b.WriteString("Return JSON with keys: \"chunks\" (array of short self-contained passages), \"concepts\" (array of key terms), \"summary\" (one paragraph).\n")
	case KindAssessment:
		fmt.Fprintf(&b, "Assess the following document against the selection criteria of program %q.\n", input.ProgramName)
		if strings.TrimSpace(input.Criteria) != "" {
			b.WriteString("Selection criteria:\n")
			b.WriteString(input.Criteria)
			b.WriteString("\n")
		}
		b.WriteString("Return JSON with keys: \"overallScore\" (0-100), \"feedback\" (object with \"strengths\", \"weaknesses\", \"suggestions\" string arrays), \"assessmentDetails\" (object with \"eligibility\", \"impact\", \"feasibility\", \"innovation\" numeric scores), \"recommendations\" (string array).\n")
	default:
		fmt.Fprintf(&b, "Analyze the following %s document uploaded to program %q.\n", categoryLabel(input.Category), input.ProgramName)
		b.WriteString("Return JSON with keys: \"title\", \"summary\", \"keyPoints\" (string array), \"entities\" (string array), \"language\".\n")
	}
	fmt.Fprintf(&b, "\nFile: %s\n\n", input.FileName)
	b.WriteString(input.Text)
	return b.String()
}

func categoryLabel(category string) string {
	switch category {
	case "application_form":
		return "application form"
	case "selection_criteria":
		return "selection criteria"
	case "good_example":
		return "good example"
	case "output_template":
		return "output template"
	default:
		return "supporting"
	}
}
