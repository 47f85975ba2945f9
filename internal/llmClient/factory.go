package llmclient

import (
	"context"
	"fmt"
	"strings"
)

// New builds a provider client by name. Empty provider means groq.
func New(ctx context.Context, provider, apiKey, model string) (LLMClient, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "groq":
		if model == "" {
			model = "llama-3.1-8b-instant"
		}
		return NewGroqClient(apiKey, model)
	case "gemini":
		if model == "" {
			model = "gemini-2.5-flash"
		}
		return NewGeminiClient(ctx, apiKey, model)
	case "fake":
		return NewFakeClient(), nil
	default:
		return nil, fmt.Errorf("llmclient: unknown provider %q", provider)
	}
}
