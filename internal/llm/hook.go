package llm

import (
	"context"
	"encoding/json"

	llmclient "kgbuilder/internal/llmClient"
)

// PromptHook observes every call that passes through WithHooks.
type PromptHook interface {
	Before(ctx context.Context, phase, prompt string, input any)
	After(ctx context.Context, phase string, raw json.RawMessage, err error)
}

type ctxKeyHook struct{}
type ctxKeyPhase struct{}

// WithHook attaches a PromptHook to the context used by GenerateJSON.
func WithHook(ctx context.Context, hook PromptHook) context.Context {
	return context.WithValue(ctx, ctxKeyHook{}, hook)
}

// WithPhase tags calls made with ctx, e.g. with the topic being expanded.
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, ctxKeyPhase{}, phase)
}

// HookFrom returns the hook stored in the context.
func HookFrom(ctx context.Context) PromptHook {
	if h, ok := ctx.Value(ctxKeyHook{}).(PromptHook); ok {
		return h
	}
	return nil
}

// PhaseFrom returns the phase string stored in the context.
func PhaseFrom(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyPhase{}).(string); ok && s != "" {
		return s
	}
	return "unknown"
}

// WithHooks calls HookFrom(ctx).Before/After around GenerateJSON.
// If no hook is present in the context, it is a no-op.
func WithHooks() Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &hooked{next: next}
	}
}

type hooked struct{ next llmclient.LLMClient }

func (h *hooked) Name() string { return h.next.Name() }
func (h *hooked) Close() error { return h.next.Close() }
func (h *hooked) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	hook := HookFrom(ctx)
	if hook != nil {
		hook.Before(ctx, PhaseFrom(ctx), prompt, input)
	}
	raw, err := h.next.GenerateJSON(ctx, prompt, input)
	if hook != nil {
		hook.After(ctx, PhaseFrom(ctx), raw, err)
	}
	return raw, err
}
