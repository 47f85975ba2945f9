package llm

import (
	"context"
	"sync"
	"time"
)

// rpsLimiter is a token bucket refilled at rps tokens per second and
// holding at most burst tokens. A nil limiter never blocks.
type rpsLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	burst    float64
	tokens   float64
	last     time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// newRPSLimiter returns nil when rps <= 0. The bucket starts full.
func newRPSLimiter(rps float64, burst int) *rpsLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	interval := time.Duration(float64(time.Second) / rps)
	if interval <= 0 {
		interval = time.Nanosecond
	}
	return &rpsLimiter{
		interval: interval,
		burst:    float64(burst),
		tokens:   float64(burst),
		last:     time.Now(),
		stopCh:   make(chan struct{}),
	}
}

// reserve takes a token if one is available, otherwise reports how long
// until the next one.
func (l *rpsLimiter) reserve(now time.Time) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens = min(l.burst, l.tokens+float64(now.Sub(l.last))/float64(l.interval))
	l.last = now
	if l.tokens >= 1 {
		l.tokens--
		return 0, true
	}
	return time.Duration((1 - l.tokens) * float64(l.interval)), false
}

// Acquire blocks until a token is available, ctx ends or the limiter stops.
func (l *rpsLimiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	for {
		select {
		case <-l.stopCh:
			return context.Canceled
		default:
		}
		wait, ok := l.reserve(time.Now())
		if ok {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-l.stopCh:
			timer.Stop()
			return context.Canceled
		case <-timer.C:
		}
	}
}

func (l *rpsLimiter) Stop() {
	if l == nil {
		return
	}
	l.stopOnce.Do(func() { close(l.stopCh) })
}
