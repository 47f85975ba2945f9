package llm

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	llmclient "kgbuilder/internal/llmClient"
)

const tracerName = "kgbuilder/internal/llm"

// WithTracing opens one span per call. Without a configured provider the
// global tracer is a no-op.
func WithTracing() Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &traced{next: next, tracer: otel.Tracer(tracerName)}
	}
}

type traced struct {
	next   llmclient.LLMClient
	tracer trace.Tracer
}

func (t *traced) Name() string { return t.next.Name() }
func (t *traced) Close() error { return t.next.Close() }
func (t *traced) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	ctx, span := t.tracer.Start(ctx, "llm.GenerateJSON", trace.WithAttributes(
		attribute.String("llm.client", t.next.Name()),
		attribute.String("llm.phase", PhaseFrom(ctx)),
		attribute.Int("llm.prompt_bytes", len(prompt)),
	))
	defer span.End()
	raw, err := t.next.GenerateJSON(ctx, prompt, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("llm.response_bytes", len(raw)))
	return raw, nil
}
