package llm

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"time"

	llmclient "kgbuilder/internal/llmClient"
	"kgbuilder/internal/platform/logger"
)

// Middleware decorates an LLMClient to inject cross-cutting concerns
// (rate limiting, retries, logging, hooks, etc.).
type Middleware func(llmclient.LLMClient) llmclient.LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.LLMClient, mws ...Middleware) llmclient.LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Rate Limiting --------

// RateLimit limits request rate using rpsLimiter.
// If rps <= 0, the limiter is effectively disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &rateLimited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	next llmclient.LLMClient
	rl   *rpsLimiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}
func (c *rateLimited) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return nil, err
	}
	return c.next.GenerateJSON(ctx, prompt, input)
}

// RateLimitFromEnv reads RPS/BURST from environment variables with the
// given prefixes in priority order. For example, ("LLM","GROQ")
// checks LLM_RPS/LLM_BURST first, then GROQ_RPS/GROQ_BURST.
func RateLimitFromEnv(prefixes ...string) Middleware {
	find := func(suffix string) string {
		for _, p := range prefixes {
			if p == "" {
				continue
			}
			if v := os.Getenv(p + suffix); v != "" {
				return v
			}
		}
		return ""
	}
	rps, _ := strconv.ParseFloat(find("_RPS"), 64)
	burst, _ := strconv.Atoi(find("_BURST"))
	return RateLimit(rps, burst)
}

// -------- Provider rate-limit signals --------

// RespectRateLimitSignals waits before each call for as long as adapter
// derives from the last headers src observed. src is usually the provider
// client at the bottom of the chain.
func RespectRateLimitSignals(src llmclient.RateLimitHeaderAwareClient, adapter llmclient.RateLimitControlAdapter) Middleware {
	if adapter == nil {
		adapter = llmclient.HeaderRateLimitControlAdapter{}
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &signalAware{next: next, src: src, adapter: adapter}
	}
}

type signalAware struct {
	next    llmclient.LLMClient
	src     llmclient.RateLimitHeaderAwareClient
	adapter llmclient.RateLimitControlAdapter
}

func (s *signalAware) Name() string { return s.next.Name() }
func (s *signalAware) Close() error { return s.next.Close() }
func (s *signalAware) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	if s.src != nil {
		if h, ok := s.src.LastRateLimitHeaders(); ok {
			if err := sleepCtx(ctx, s.adapter.NextWait(h)); err != nil {
				return nil, err
			}
		}
	}
	return s.next.GenerateJSON(ctx, prompt, input)
}

// -------- Logging --------

// WithLogging logs request size, latency and errors. A nil logger disables output.
func WithLogging(log *logger.Logger) Middleware {
	log = logger.OrNop(log)
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &logging{next: next, log: log}
	}
}

type logging struct {
	next llmclient.LLMClient
	log  *logger.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }
func (l *logging) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	in, _ := json.Marshal(input)
	start := time.Now()
	l.log.Debug("llm request", "client", l.next.Name(), "phase", PhaseFrom(ctx), "bytes", len(prompt)+len(in))
	raw, err := l.next.GenerateJSON(ctx, prompt, input)
	if err != nil {
		l.log.Warn("llm error", "client", l.next.Name(), "phase", PhaseFrom(ctx), "elapsed", time.Since(start), "error", err)
		return raw, err
	}
	l.log.Debug("llm response", "client", l.next.Name(), "phase", PhaseFrom(ctx), "elapsed", time.Since(start), "bytes", len(raw))
	return raw, err
}

// -------- Validation --------

// ValidateJSON runs check on every successful reply. A failing check turns
// the reply into an error, so an outer Retry treats it like any other
// failed attempt.
func ValidateJSON(check func(json.RawMessage) error) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		if check == nil {
			return next
		}
		return &validating{next: next, check: check}
	}
}

type validating struct {
	next  llmclient.LLMClient
	check func(json.RawMessage) error
}

func (v *validating) Name() string { return v.next.Name() }
func (v *validating) Close() error { return v.next.Close() }
func (v *validating) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	raw, err := v.next.GenerateJSON(ctx, prompt, input)
	if err != nil {
		return nil, err
	}
	if err := v.check(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
