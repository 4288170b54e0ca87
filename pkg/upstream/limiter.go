package upstream

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/time/rate"
)

// Limiter paces calls per provider. It is shared by every request in the process.
type Limiter interface {
	Wait(ctx context.Context, provider string) error
}

// ProviderLimiter keeps one token bucket per provider.
type ProviderLimiter struct {
	limiters *xsync.Map[string, *rate.Limiter]
	spacing  time.Duration
	burst    int
}

// NewProviderLimiter allows one call per spacing per provider, with the given burst.
func NewProviderLimiter(spacing time.Duration, burst int) *ProviderLimiter {
	if spacing <= 0 {
		spacing = 500 * time.Millisecond
	}
	if burst <= 0 {
		burst = 1
	}
	return &ProviderLimiter{
		limiters: xsync.NewMap[string, *rate.Limiter](),
		spacing:  spacing,
		burst:    burst,
	}
}

// SetRule overrides the pacing for one provider.
func (l *ProviderLimiter) SetRule(provider string, spacing time.Duration, burst int) {
	if burst <= 0 {
		burst = 1
	}
	l.limiters.Store(provider, rate.NewLimiter(rate.Every(spacing), burst))
}

// Wait blocks until the provider's bucket has a token or ctx is done. When the token would only
// arrive after ctx's deadline, Wait fails at once and gives the reservation back.
func (l *ProviderLimiter) Wait(ctx context.Context, provider string) error {
	lim, ok := l.limiters.Load(provider)
	if !ok {
		lim, _ = l.limiters.LoadOrStore(provider, rate.NewLimiter(rate.Every(l.spacing), l.burst))
	}
	r := lim.Reserve()
	if !r.OK() {
		return context.DeadlineExceeded
	}
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}
	rateLimitWaits.WithLabelValues(provider).Inc()
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
		r.Cancel()
		return context.DeadlineExceeded
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

type nopLimiter struct{}

func (nopLimiter) Wait(context.Context, string) error { return nil }

// NopLimiter never waits.
func NopLimiter() Limiter { return nopLimiter{} }
