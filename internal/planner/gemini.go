package planner

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// geminiModel implements textModel against the Gemini API.
// The SDK client needs a context to construct, so it is created lazily on
// first use and reused afterwards.
type geminiModel struct {
	client *genai.Client
	apiKey string
	model  string
}

func newGeminiModel(apiKey, model string) *geminiModel {
	return &geminiModel{apiKey: apiKey, model: model}
}

// GenerateText issues one single-turn completion and returns the raw text of
// the response. Requesting a JSON response MIME type keeps the model from
// wrapping its output in prose or code fences.
func (m *geminiModel) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	if m.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  m.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return "", fmt.Errorf("create gemini client: %w", err)
		}
		m.client = client
	}

	temp := temperature
	config := &genai.GenerateContentConfig{
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
	}

	result, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini call: %w", err)
	}
	if result == nil {
		return "", fmt.Errorf("empty response from gemini")
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("gemini response has no text content")
	}
	return text, nil
}
