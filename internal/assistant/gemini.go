package assistant

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const promptTemplate = `
You are an expert assistant. Answer the following question clearly and concisely:
you should return the ans in max 10 lines. But you should always try to be short
Question:
%s

Answer:
`

// GeminiAnswerer answers questions with the Gemini generateContent API.
type GeminiAnswerer struct {
	client *genai.Client
	model  string
}

// NewGeminiAnswerer creates a Gemini API client. An empty baseURL uses the
// public endpoint.
func NewGeminiAnswerer(ctx context.Context, apiKey, model, baseURL string) (*GeminiAnswerer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: http.DefaultClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: strings.TrimRight(baseURL, "/"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiAnswerer{client: client, model: model}, nil
}

// Prompt wraps a question in the assistant instructions.
func Prompt(question string) string {
	return fmt.Sprintf(promptTemplate, question)
}

// Answer returns the trimmed text of the first candidate.
func (g *GeminiAnswerer) Answer(ctx context.Context, question string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(Prompt(question)), nil)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: %w", ErrEmptyAnswer)
	}
	part := resp.Candidates[0].Content.Parts[0]
	if part == nil {
		return "", fmt.Errorf("gemini: %w", ErrEmptyAnswer)
	}
	answer := strings.TrimSpace(part.Text)
	if answer == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyAnswer)
	}
	return answer, nil
}
