// Package oracle asks an LLM to break a topic into subtopics and
// prerequisites, memoizing every answer.
package oracle

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kgbuilder/internal/cache/expansion"
	"kgbuilder/internal/llm"
	llmclient "kgbuilder/internal/llmClient"
	"kgbuilder/internal/platform/logger"
	"kgbuilder/internal/types/kg"
)

// Config controls retries. Attempts per topic are MaxRetries+1.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultConfig() Config {
	return Config{MaxRetries: 2, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second}
}

// Request identifies one expansion.
type Request struct {
	Title      string
	Subject    string
	Difficulty kg.Difficulty
	// Depth is the hint sent to the model: 1 for seeds, growing downward.
	Depth int
	// CurrentHours replaces a missing estimated_hours in the reply.
	CurrentHours float64
}

// Response is a normalized expansion plus where it came from.
type Response struct {
	Expansion kg.Expansion
	Cached    bool
}

// Stats counts oracle activity for the run summary.
type Stats struct {
	CacheHits   int
	CacheMisses int
	Failures    int
}

type Client struct {
	llm    llmclient.LLMClient
	cache  *expansion.Cache
	log    *logger.Logger
	tracer trace.Tracer

	hits, misses, failures atomic.Int64
}

// New wraps base with retry and reply validation. base is expected to carry
// its own transport middleware (rate limit, logging, hooks).
func New(base llmclient.LLMClient, cache *expansion.Cache, cfg Config, log *logger.Logger) *Client {
	log = logger.OrNop(log).With("component", "oracle")
	if cache == nil {
		cache = expansion.New(nil)
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	chain := llm.Wrap(base,
		llm.RetryWith(llm.RetryPolicy{
			MaxAttempts: cfg.MaxRetries + 1,
			BaseDelay:   cfg.BaseDelay,
			MaxDelay:    cfg.MaxDelay,
			OnRetry: func(attempt int, wait time.Duration, err error) {
				log.Warn("expansion attempt failed; retrying", "attempt", attempt, "wait", wait, "error", err)
			},
		}),
		llm.ValidateJSON(validate),
	)
	return &Client{
		llm:    chain,
		cache:  cache,
		log:    log,
		tracer: otel.Tracer("kgbuilder/internal/oracle"),
	}
}

// Expand returns the expansion for req, from the cache when possible.
func (c *Client) Expand(ctx context.Context, req Request) (Response, error) {
	key := kg.CacheKey(req.Subject, req.Title, req.Difficulty)
	ctx, span := c.tracer.Start(ctx, "oracle.Expand", trace.WithAttributes(
		attribute.String("kg.subject", req.Subject),
		attribute.String("kg.title", req.Title),
		attribute.String("kg.difficulty", string(req.Difficulty)),
	))
	defer span.End()

	if exp, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		span.SetAttributes(attribute.Bool("kg.cache_hit", true))
		return Response{Expansion: finish(exp, req), Cached: true}, nil
	}
	c.misses.Add(1)
	span.SetAttributes(attribute.Bool("kg.cache_hit", false))

	prompt, err := Prompt()
	if err != nil {
		return Response{}, err
	}
	in := wireRequest{Title: req.Title, Subject: req.Subject, DifficultyLevel: req.Difficulty, Depth: req.Depth}
	raw, err := c.llm.GenerateJSON(llm.WithPhase(ctx, req.Subject+"/"+req.Title), prompt, in)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		c.failures.Add(1)
		ex := &ExhaustedError{Topic: req.Title, Attempts: 1, Err: err}
		var re *llm.RetryError
		if errors.As(err, &re) {
			ex.Attempts, ex.Err = re.Attempts, re.Err
		}
		span.RecordError(ex)
		span.SetStatus(codes.Error, "exhausted")
		return Response{}, ex
	}
	exp, err := decode(raw, req.Difficulty)
	if err != nil {
		// validate already accepted raw; only reachable if the two disagree
		c.failures.Add(1)
		return Response{}, &ExhaustedError{Topic: req.Title, Attempts: 1, Err: err}
	}
	if err := c.cache.Put(ctx, key, exp); err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}
	return Response{Expansion: finish(exp, req)}, nil
}

func (c *Client) Stats() Stats {
	return Stats{
		CacheHits:   int(c.hits.Load()),
		CacheMisses: int(c.misses.Load()),
		Failures:    int(c.failures.Load()),
	}
}

// finish fills request-dependent defaults on a copy of exp.
func finish(exp kg.Expansion, req Request) kg.Expansion {
	exp = exp.Clone()
	if !exp.DifficultyLevel.Valid() {
		exp.DifficultyLevel = kg.ParseDifficulty(string(req.Difficulty), kg.DifficultyBase)
	}
	if exp.EstimatedHours <= 0 {
		h := req.CurrentHours
		if h <= 0 {
			h = kg.DefaultEstimatedHours
		}
		exp.EstimatedHours = clampHours(h)
	}
	return exp
}
