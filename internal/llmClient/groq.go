package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"kgbuilder/internal/util/jsonutil"
)

const (
	groqDefaultURL = "https://api.groq.com/openai/v1/chat/completions"

	// DefaultSystemPrompt frames every expansion request.
	DefaultSystemPrompt = "You are an educational assistant that helps create structured knowledge graphs for grade 9-12 science topics."
)

// GroqClient calls the Groq Chat Completions API (OpenAI-compatible) and asks for JSON.
// See: https://console.groq.com/docs/api-reference
type GroqClient struct {
	http      *http.Client
	apiKey    string
	model     string
	baseURL   string
	system    string
	maxTokens int

	rlMu      sync.RWMutex
	rlLast    RateLimitHeaders
	rlHasLast bool
	rlHandler RateLimitHeaderHandler
}

// GroqOption customizes a GroqClient.
type GroqOption func(*GroqClient)

// WithBaseURL points the client at another OpenAI-compatible endpoint.
func WithBaseURL(u string) GroqOption { return func(g *GroqClient) { g.baseURL = u } }

// WithHTTPClient replaces the default client (60s timeout).
func WithHTTPClient(c *http.Client) GroqOption { return func(g *GroqClient) { g.http = c } }

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(s string) GroqOption { return func(g *GroqClient) { g.system = s } }

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) GroqOption { return func(g *GroqClient) { g.maxTokens = n } }

// NewGroqClient creates a Groq client. If apiKey is empty, it falls back to GROQ_API_KEY env var.
func NewGroqClient(apiKey, model string, opts ...GroqOption) (*GroqClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("groq: model is required")
	}
	g := &GroqClient{
		http:      &http.Client{Timeout: 60 * time.Second},
		apiKey:    apiKey,
		model:     model,
		baseURL:   groqDefaultURL,
		system:    DefaultSystemPrompt,
		maxTokens: 1200,
	}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

func (g *GroqClient) Name() string { return "Groq:" + g.model }
func (g *GroqClient) Close() error { return nil }

func (g *GroqClient) SetRateLimitHeaderHandler(handler RateLimitHeaderHandler) {
	g.rlMu.Lock()
	defer g.rlMu.Unlock()
	g.rlHandler = handler
}

func (g *GroqClient) LastRateLimitHeaders() (RateLimitHeaders, bool) {
	g.rlMu.RLock()
	defer g.rlMu.RUnlock()
	return g.rlLast, g.rlHasLast
}

type groqChatReq struct {
	Model          string            `json:"model"`
	Messages       []groqMessage     `json:"messages"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	Temperature    float32           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}
type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
type groqChatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateJSON sends prompt (plus input, when given) as the user message and
// requests a JSON object back.
func (g *GroqClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	userContent := prompt
	if input != nil {
		in, _ := json.MarshalIndent(input, "", "  ")
		userContent += "\n\n[INPUT JSON]\n" + string(in)
	}

	reqBody := groqChatReq{
		Model: g.model,
		Messages: []groqMessage{
			{Role: "system", Content: g.system},
			{Role: "user", Content: userContent},
		},
		MaxTokens:      g.maxTokens,
		Temperature:    0.2,
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("groq: %w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()
	g.captureRateLimitHeaders(resp.Header)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		const max = 2048
		if len(body) > max {
			body = body[:max]
		}
		return nil, classifyStatus(resp.StatusCode, resp.Status, body)
	}
	var out groqChatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("groq: %w: decode envelope: %v", ErrTransient, err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return nil, ErrInvalidJSON
	}
	raw, err := jsonutil.Clean(out.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return raw, nil
}

func classifyStatus(code int, status string, body []byte) error {
	err := fmt.Errorf("groq: unexpected status %s: %s", status, string(body))
	switch {
	case code == http.StatusBadRequest && strings.Contains(string(body), `"code":"context_length_exceeded"`):
		return NewPermanentError(err)
	case code == http.StatusUnauthorized, code == http.StatusForbidden, code == http.StatusNotFound:
		return NewPermanentError(err)
	default:
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
}

func (g *GroqClient) captureRateLimitHeaders(h http.Header) {
	parsed, ok := parseGroqRateLimitHeaders(h)
	if !ok {
		return
	}
	g.rlMu.Lock()
	g.rlLast = parsed
	g.rlHasLast = true
	handler := g.rlHandler
	g.rlMu.Unlock()
	if handler != nil {
		handler(parsed)
	}
}
