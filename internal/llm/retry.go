package llm

import (
	"context"
	"encoding/json"
	"time"

	llmclient "kgbuilder/internal/llmClient"
)

// RetryPolicy describes how many attempts a call gets and how long to wait
// between them. The wait before attempt i+1 is BaseDelay*2^i, capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// OnRetry, when set, is called before each backoff sleep.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// Backoff returns the wait after the given zero-based failed attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// RetryWith retries GenerateJSON up to p.MaxAttempts with exponential
// backoff. If the context is canceled, it stops immediately.
func RetryWith(p RetryPolicy) Middleware {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &retrying{next: next, p: p}
	}
}

// RetryError is returned once every attempt has failed.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string { return e.Err.Error() }
func (e *RetryError) Unwrap() error { return e.Err }

type retrying struct {
	next llmclient.LLMClient
	p    RetryPolicy
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	var last error
	for i := 0; i < r.p.MaxAttempts; i++ {
		resp, err := r.next.GenerateJSON(ctx, prompt, input)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// If it's a permanent error, do not retry.
		if llmclient.IsPermanent(err) {
			return nil, &RetryError{Attempts: i + 1, Err: err}
		}
		last = err
		if i == r.p.MaxAttempts-1 {
			break
		}
		wait := r.p.Backoff(i)
		if r.p.OnRetry != nil {
			r.p.OnRetry(i+1, wait, err)
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, &RetryError{Attempts: r.p.MaxAttempts, Err: last}
}
