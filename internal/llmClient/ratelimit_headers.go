package llmclient

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimitHeaders are the throttling hints a provider returned with its
// last response.
type RateLimitHeaders struct {
	RetryAfter time.Duration

	LimitRequests     int
	LimitTokens       int
	RemainingRequests int
	RemainingTokens   int

	ResetRequests time.Duration
	ResetTokens   time.Duration
}

type RateLimitHeaderHandler func(headers RateLimitHeaders)

// RateLimitHeaderAwareClient is implemented by clients that keep the last
// rate-limit signals their provider sent back.
type RateLimitHeaderAwareClient interface {
	SetRateLimitHeaderHandler(handler RateLimitHeaderHandler)
	LastRateLimitHeaders() (RateLimitHeaders, bool)
}

// RateLimitControlAdapter turns rate-limit hints into a pause before the
// next call.
type RateLimitControlAdapter interface {
	NextWait(headers RateLimitHeaders) time.Duration
}

// HeaderRateLimitControlAdapter honours Retry-After, then waits for an
// exhausted token or request window to reset. MaxWait caps the pause; zero
// means one minute.
type HeaderRateLimitControlAdapter struct {
	MaxWait time.Duration
}

func (a HeaderRateLimitControlAdapter) NextWait(h RateLimitHeaders) time.Duration {
	var wait time.Duration
	switch {
	case h.RetryAfter > 0:
		wait = h.RetryAfter
	case h.LimitTokens > 0 && h.RemainingTokens == 0:
		wait = h.ResetTokens
	case h.LimitRequests > 0 && h.RemainingRequests == 0:
		wait = h.ResetRequests
	}
	limit := a.MaxWait
	if limit <= 0 {
		limit = time.Minute
	}
	return min(wait, limit)
}

// groqHeaderFields maps Groq's response headers onto RateLimitHeaders. On
// Groq the request window is a day and the token window a minute.
var groqHeaderFields = []struct {
	key string
	set func(*RateLimitHeaders, string) bool
}{
	{"retry-after", func(r *RateLimitHeaders, v string) bool { return setSeconds(&r.RetryAfter, v) }},
	{"x-ratelimit-limit-requests", func(r *RateLimitHeaders, v string) bool { return setInt(&r.LimitRequests, v) }},
	{"x-ratelimit-limit-tokens", func(r *RateLimitHeaders, v string) bool { return setInt(&r.LimitTokens, v) }},
	{"x-ratelimit-remaining-requests", func(r *RateLimitHeaders, v string) bool { return setInt(&r.RemainingRequests, v) }},
	{"x-ratelimit-remaining-tokens", func(r *RateLimitHeaders, v string) bool { return setInt(&r.RemainingTokens, v) }},
	{"x-ratelimit-reset-requests", func(r *RateLimitHeaders, v string) bool { return setDuration(&r.ResetRequests, v) }},
	{"x-ratelimit-reset-tokens", func(r *RateLimitHeaders, v string) bool { return setDuration(&r.ResetTokens, v) }},
}

// parseGroqRateLimitHeaders reports false when none of the known headers
// carried a usable value.
func parseGroqRateLimitHeaders(h http.Header) (RateLimitHeaders, bool) {
	var out RateLimitHeaders
	found := false
	for _, f := range groqHeaderFields {
		v := strings.TrimSpace(h.Get(f.key))
		if v != "" && f.set(&out, v) {
			found = true
		}
	}
	return out, found
}

func setInt(dst *int, v string) bool {
	n, err := strconv.Atoi(v)
	if err != nil {
		return false
	}
	*dst = n
	return true
}

// setSeconds accepts whole or fractional seconds.
func setSeconds(dst *time.Duration, v string) bool {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return false
	}
	*dst = time.Duration(f * float64(time.Second))
	return true
}

func setDuration(dst *time.Duration, v string) bool {
	d, err := time.ParseDuration(v)
	if err != nil {
		return false
	}
	*dst = d
	return true
}
