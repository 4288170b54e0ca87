package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/fractal-terminal/terminalx/pkg/cache"
	"github.com/fractal-terminal/terminalx/pkg/retry"
	"github.com/fractal-terminal/terminalx/pkg/utils"
	"go.uber.org/zap"
)

const (
	defaultTimeout      = 12 * time.Second
	defaultMaxBodyBytes = 8 << 20
)

// Caller wraps an http.Client with a response cache, per-provider pacing and 429 handling.
// Failures come back as a typed empty Result; Call never panics and never returns an error.
type Caller struct {
	client  *http.Client
	cache   cache.Store
	limiter Limiter
	logger  *zap.Logger
	backoff retry.Config
	timeout time.Duration
	maxBody int64

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// CallerOpts is the set of options for a new Caller.
type CallerOpts struct {
	HTTPClient   *http.Client
	Cache        cache.Store
	Limiter      Limiter
	Logger       *zap.Logger
	Backoff      retry.Config
	Timeout      time.Duration
	MaxBodyBytes int64
	// Sleep and Now are swapped out by tests.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// NewCaller creates a Caller with the given options.
func NewCaller(o CallerOpts) *Caller {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = defaultMaxBodyBytes
	}
	if o.Backoff.MaxRetries <= 0 {
		o.Backoff = retry.RateLimitConfig()
	}
	if o.Limiter == nil {
		o.Limiter = NopLimiter()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Sleep == nil {
		o.Sleep = retry.Sleep
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	client := o.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Caller{
		client:  client,
		cache:   o.Cache,
		limiter: o.Limiter,
		logger:  o.Logger,
		backoff: o.Backoff,
		timeout: o.Timeout,
		maxBody: o.MaxBodyBytes,
		sleep:   o.Sleep,
		now:     o.Now,
	}
}

// Call performs req against provider. A fresh cache entry short-circuits the network.
// On 429 the call is retried after Retry-After (or the backoff schedule) until the attempt
// budget is spent. A 404 yields KindNotFound so callers can try an alternate path; any other
// failure yields KindUnavailable without retrying.
func (c *Caller) Call(ctx context.Context, provider string, req Request, opts Options) Result {
	if opts.CacheKey != "" && c.cache != nil {
		if bz, ok := c.cache.Get(ctx, opts.CacheKey); ok {
			callsTotal.WithLabelValues(provider, "cache_hit").Inc()
			return Result{Status: http.StatusOK, Body: bz, Cached: true}
		}
	}

	maxAttempts := opts.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = c.backoff.MaxRetries
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	start := c.now()
	defer func() {
		callDuration.WithLabelValues(provider).Observe(c.now().Sub(start).Seconds())
	}()

	for attempt := 1; ; attempt++ {
		if opts.RateLimited {
			if err := c.pace(ctx, provider, timeout); err != nil {
				return c.fail(provider, req, KindUnavailable, 0, attempt, err)
			}
		}

		status, header, body, err := c.do(ctx, req, timeout)
		if err != nil {
			return c.fail(provider, req, KindUnavailable, status, attempt, err)
		}

		switch {
		case status == http.StatusTooManyRequests:
			if attempt >= maxAttempts {
				return c.fail(provider, req, KindRateLimited, status, attempt, nil)
			}
			delay, ok := retry.RetryAfter(header.Get("Retry-After"), c.now())
			if !ok {
				delay = retry.Delay(c.backoff, attempt)
			}
			if c.backoff.MaxDelay > 0 && delay > c.backoff.MaxDelay {
				delay = c.backoff.MaxDelay
			}
			retryAfterWaits.WithLabelValues(provider).Inc()
			c.logger.Debug("upstream rate limited, retrying",
				zap.String("provider", provider),
				zap.String("url", req.URL),
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", delay))
			if err := c.sleep(ctx, delay); err != nil {
				return c.fail(provider, req, KindUnavailable, status, attempt, err)
			}
			continue
		case status == http.StatusNotFound:
			return c.fail(provider, req, KindNotFound, status, attempt, nil)
		case status < 200 || status >= 300:
			return c.fail(provider, req, KindUnavailable, status, attempt, nil)
		}

		if !json.Valid(body) {
			return c.fail(provider, req, KindUnavailable, status, attempt, errors.New("invalid json body"))
		}
		if opts.Accept != nil && !opts.Accept(body) {
			return c.fail(provider, req, KindUnavailable, status, attempt, errors.New("body rejected"))
		}

		if opts.CacheKey != "" && c.cache != nil {
			c.cache.Set(ctx, opts.CacheKey, body, opts.CacheTTL)
		}
		callsTotal.WithLabelValues(provider, KindNone.String()).Inc()
		return Result{Status: status, Body: body, Attempts: attempt}
	}
}

// pace waits for the provider's limiter, giving up after timeout like a timed-out attempt.
func (c *Caller) pace(ctx context.Context, provider string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.limiter.Wait(waitCtx, provider)
}

// do runs a single attempt bounded by timeout.
func (c *Caller) do(ctx context.Context, req Request, timeout time.Duration) (int, http.Header, []byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, method, req.URL, body)
	if err != nil {
		return 0, nil, nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return 0, nil, nil, err
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, resp.Header, nil, nil
	}
	bz, err := utils.ReadLimited(resp.Body, c.maxBody)
	if err != nil {
		return resp.StatusCode, resp.Header, nil, err
	}
	return resp.StatusCode, resp.Header, bz, nil
}

func (c *Caller) fail(provider string, req Request, kind ErrorKind, status, attempts int, err error) Result {
	callsTotal.WithLabelValues(provider, kind.String()).Inc()
	fields := []zap.Field{
		zap.String("provider", provider),
		zap.String("url", req.URL),
		zap.Stringer("kind", kind),
		zap.Int("status", status),
		zap.Int("attempts", attempts),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	c.logger.Debug("upstream call produced no data", fields...)
	return Result{Status: status, Kind: kind, Attempts: attempts}
}
