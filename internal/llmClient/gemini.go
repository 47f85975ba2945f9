package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	genai "google.golang.org/genai"

	"kgbuilder/internal/util/jsonutil"
)

// GeminiClient is a thin wrapper around the official genai client.
// Retries, pacing and logging are applied by middleware.
type GeminiClient struct {
	cli    *genai.Client
	model  string
	system string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("gemini: model is required")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli, model: model, system: DefaultSystemPrompt}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// GenerateJSON concatenates prompt and input, asks for application/json,
// and returns the model's JSON as json.RawMessage.
func (g *GeminiClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	full := prompt
	if input != nil {
		in, _ := json.MarshalIndent(input, "", "  ")
		full += "\n\n[INPUT JSON]\n" + string(in)
	}
	temp := float32(0.2)
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: full}}}},
		&genai.GenerateContentConfig{
			ResponseMIMEType:  "application/json",
			Temperature:       &temp,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: g.system}}},
		},
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("gemini: %w: %v", ErrTransient, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrInvalidJSON
	}
	raw, err := jsonutil.Clean(resp.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return raw, nil
}
