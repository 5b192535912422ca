// Package client orchestrates resilient access to a rate-limited JSON API.
//
// Every request flows through the same pipeline: cache lookup, permit
// acquisition, circuit breaker gate, HTTP call, retry with jittered
// exponential backoff. Successful payloads are validated as JSON and
// written back to the cache; cache write failures degrade to pass-through
// rather than failing the request.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/apiward/apiward/internal/backoff"
	"github.com/apiward/apiward/internal/cache"
	"github.com/apiward/apiward/internal/config"
	"github.com/apiward/apiward/internal/ratelimit"
)

// maxErrorBodyBytes caps how much of an error response body is retained
// for error messages.
const maxErrorBodyBytes = 4 << 10

// Client coordinates the rate limiter, retry policy, cache, and circuit
// breaker around a single upstream API. Safe for concurrent use.
type Client struct {
	cfg     config.RuntimeConfig
	limiter ratelimit.Limiter
	policy  *backoff.Policy
	store   cache.Cache
	breaker *breaker
	httpc   *http.Client
	logger  zerolog.Logger

	counters counters

	// sleep and now are swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpc = hc }
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client from runtime configuration and its collaborators.
// The breaker is built here from the current breaker config; the limiter,
// policy, and cache are injected so they can be shared and tested
// independently.
func New(cfg config.RuntimeConfig, limiter ratelimit.Limiter, policy *backoff.Policy, store cache.Cache, opts ...Option) *Client {
	c := &Client{
		cfg:     cfg,
		limiter: limiter,
		policy:  policy,
		store:   store,
		logger:  zerolog.Nop(),
		sleep:   sleepContext,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	snapshot := cfg.Get()
	if c.httpc == nil {
		c.httpc = &http.Client{Timeout: snapshot.API.GetTimeout()}
	}
	if snapshot.Breaker.IsEnabled() {
		c.breaker = newBreaker(snapshot.Breaker, &c.logger)
	}

	return c
}

// Request fetches the given endpoint with the given query parameters.
// The cache is consulted first; a hit consumes no rate limit permit and
// performs no network call. On a miss the call is retried per the backoff
// policy until it succeeds, fails terminally, or attempts are exhausted.
func (c *Client) Request(ctx context.Context, endpoint string, params url.Values) (*Response, error) {
	c.counters.totalRequests.Add(1)

	key := Key(endpoint, params)
	if payload, err := c.store.Get(ctx, key); err == nil {
		c.counters.cacheHits.Add(1)
		c.logger.Debug().Str("endpoint", endpoint).Msg("cache hit")
		return &Response{Payload: payload, FromCache: true}, nil
	} else if !errors.Is(err, cache.ErrNotFound) {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("cache read failed, falling through to network")
	}
	c.counters.cacheMisses.Add(1)

	return c.fetch(ctx, endpoint, params, key)
}

// Invalidate removes the cached entry for the given endpoint and
// parameters, forcing the next Request to hit the network.
func (c *Client) Invalidate(ctx context.Context, endpoint string, params url.Values) error {
	return c.store.Delete(ctx, Key(endpoint, params))
}

// Stats returns a snapshot of the client's counters, including the
// limiter's. BreakerState is empty when the breaker is disabled.
func (c *Client) Stats() Stats {
	s := c.counters.snapshot()
	s.Limiter = c.limiter.Stats()
	if c.breaker != nil {
		s.BreakerState = c.breaker.state().String()
	}
	return s
}

// fetch runs the permit/breaker/HTTP/retry loop after a cache miss.
func (c *Client) fetch(ctx context.Context, endpoint string, params url.Values, key string) (*Response, error) {
	start := c.now()

	var lastErr error
	attempt := 0
	for {
		if err := c.acquirePermit(ctx); err != nil {
			return nil, err
		}

		resp, retryable, err := c.attempt(ctx, endpoint, params, key)
		if err == nil {
			resp.Attempts = attempt + 1
			return resp, nil
		}
		if !retryable {
			c.counters.failures.Add(1)
			return nil, err
		}

		lastErr = err
		class, delayHint := classifyAttempt(err)
		if !c.policy.ShouldRetry(class, attempt) {
			break
		}

		delay := c.policy.NextDelay(attempt)
		if delayHint > 0 {
			delay = delayHint
		}
		c.counters.retries.Add(1)
		c.logger.Debug().
			Str("endpoint", endpoint).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Err(err).
			Msg("retrying after failure")

		if err := c.sleep(ctx, delay); err != nil {
			c.counters.failures.Add(1)
			return nil, fmt.Errorf("client: wait before retry: %w", err)
		}
		attempt++
	}

	c.counters.failures.Add(1)
	return nil, &RetryExhaustedError{
		Attempts: attempt + 1,
		Elapsed:  c.now().Sub(start),
		LastErr:  lastErr,
	}
}

// acquirePermit waits for one rate limit permit under the configured
// acquisition timeout. A timeout here means no network call was made.
func (c *Client) acquirePermit(ctx context.Context) error {
	acquireCtx, cancel := context.WithTimeout(ctx, c.cfg.Get().RateLimit.GetAcquireTimeout())
	defer cancel()

	err := c.limiter.Acquire(acquireCtx, 1)
	if err == nil {
		return nil
	}
	if errors.Is(err, ratelimit.ErrContextCancelled) && ctx.Err() != nil {
		c.counters.failures.Add(1)
		return fmt.Errorf("client: request cancelled while waiting for permit: %w", ctx.Err())
	}
	c.counters.rateLimitTimeouts.Add(1)
	c.counters.failures.Add(1)
	return fmt.Errorf("%w: no permit within %v", ErrRateLimitTimeout, c.cfg.Get().RateLimit.GetAcquireTimeout())
}

// attemptError carries the retry class and server delay hint alongside the
// underlying failure.
type attemptError struct {
	err       error
	class     backoff.Class
	delayHint time.Duration
}

func (e *attemptError) Error() string { return e.err.Error() }
func (e *attemptError) Unwrap() error { return e.err }

func classifyAttempt(err error) (backoff.Class, time.Duration) {
	var ae *attemptError
	if errors.As(err, &ae) {
		return ae.class, ae.delayHint
	}
	return backoff.Classify(0, err), 0
}

// attempt performs one network call. The bool return reports whether the
// failure is retryable.
func (c *Client) attempt(ctx context.Context, endpoint string, params url.Values, key string) (*Response, bool, error) {
	snapshot := c.cfg.Get()

	var done func(error)
	if c.breaker != nil {
		var err error
		done, err = c.breaker.allow()
		if err != nil {
			c.counters.breakerRejections.Add(1)
			return nil, false, err
		}
	}

	resp, retryable, err := c.doHTTP(ctx, snapshot, endpoint, params, key)
	if done != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		var se *StatusError
		if errors.As(err, &se) {
			status = se.StatusCode
		}
		if countsAsFailure(status, err) {
			done(err)
		} else {
			done(nil)
		}
	}
	return resp, retryable, err
}

func (c *Client) doHTTP(ctx context.Context, snapshot *config.Config, endpoint string, params url.Values, key string) (*Response, bool, error) {
	c.counters.networkCalls.Add(1)

	apiKey := snapshot.API.ResolvedKey()
	target, err := buildURL(snapshot.API.BaseURL, endpoint, params, snapshot.API.KeyParam, apiKey)
	if err != nil {
		return nil, false, fmt.Errorf("client: build request URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if snapshot.API.KeyHeader != "" && apiKey != "" {
		req.Header.Set(snapshot.API.KeyHeader, apiKey)
	}

	httpResp, err := c.httpc.Do(req)
	if err != nil {
		// The request context going dead means the caller's deadline or
		// cancellation ended the attempt; anything else, including the
		// transport's own per-attempt timeout, is fair game for a retry.
		if ctx.Err() != nil {
			return nil, false, fmt.Errorf("client: request aborted: %w", err)
		}
		class := backoff.Classify(0, err)
		if class == backoff.ClassNone {
			return nil, false, fmt.Errorf("client: request aborted: %w", err)
		}
		return nil, true, &attemptError{err: err, class: class}
	}
	defer httpResp.Body.Close()

	if snap, ok := parseRateHeaders(httpResp.Header, c.now()); ok {
		c.limiter.Observe(snap)
	}

	if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
		return c.consumeSuccess(ctx, httpResp, key, endpoint)
	}

	body, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBodyBytes))
	statusErr := &StatusError{StatusCode: httpResp.StatusCode, Body: string(body)}
	class := backoff.Classify(httpResp.StatusCode, nil)
	if !class.Retryable() {
		return nil, false, statusErr
	}

	var hint time.Duration
	if value := httpResp.Header.Get("Retry-After"); value != "" {
		if d, ok := backoff.ParseRetryAfter(value, c.now()); ok {
			hint = d
		}
	}
	return nil, true, &attemptError{err: statusErr, class: class, delayHint: hint}
}

// consumeSuccess reads, validates, and caches a 2xx response body.
func (c *Client) consumeSuccess(ctx context.Context, httpResp *http.Response, key, endpoint string) (*Response, bool, error) {
	payload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, true, &attemptError{err: fmt.Errorf("client: read response body: %w", err), class: backoff.ClassTransient}
	}
	if !gjson.ValidBytes(payload) {
		return nil, true, &attemptError{err: ErrInvalidPayload, class: backoff.ClassServer}
	}

	if err := c.store.SetWithTTL(ctx, key, payload, c.cfg.Get().Cache.GetTTL()); err != nil && !errors.Is(err, cache.ErrClosed) {
		c.counters.cacheWriteFailures.Add(1)
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("cache write failed, serving uncached")
	}

	return &Response{Payload: payload, StatusCode: httpResp.StatusCode}, false, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
