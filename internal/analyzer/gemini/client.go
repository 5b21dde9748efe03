package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"grantflow-backend/internal/analyzer"
)

const defaultModel = "gemini-2.5-flash"

// Client implements analyzer.Client using the Google GenAI API.
type Client struct {
	client    *genai.Client
	modelName string
}

// NewClient creates a Client configured for the Gemini API backend.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Client{client: client, modelName: model}, nil
}

// Analyze sends the rendered prompt to Gemini and decodes the JSON object reply.
func (c *Client) Analyze(ctx context.Context, input analyzer.Input) (analyzer.Outcome, error) {
	if c == nil || c.client == nil {
		return analyzer.Outcome{}, errors.New("gemini client is not initialized")
	}

	prompt := analyzer.SystemPrompt() + "\n\n" + analyzer.Prompt(input)
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}

	resp, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(prompt), cfg)
	if err != nil {
		return analyzer.Outcome{}, fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return analyzer.Outcome{}, errors.New("gemini api returned empty response")
	}

	fields := map[string]any{}
	if err := json.Unmarshal([]byte(stripCodeFence(output)), &fields); err != nil {
		return analyzer.Outcome{}, fmt.Errorf("gemini output invalid json: %w", err)
	}
	return analyzer.Outcome{Fields: fields}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.modelName
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

var _ analyzer.Client = (*Client)(nil)
