// Package backoff decides whether and when a failed request attempt is tried
// again.
//
// The retry state machine is deliberately explicit: Classify turns a
// transport error or HTTP status into a Class, ShouldRetry turns a Class and
// attempt number into a yes/no decision, and NextDelay computes the jittered
// exponential backoff for the attempt. Nothing in here performs I/O or
// sleeps, so the whole decision surface is unit-testable without provoking
// real failures.
//
// Delays double per attempt from BaseDelay up to MaxDelay and are then
// jittered uniformly into [0.5x, 1.0x] of the computed value to avoid
// synchronized retries from many callers.
package backoff

import (
	"errors"
	"math/rand/v2"
	"time"
)

// Defaults applied by NewDefaultPolicy.
const (
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 60 * time.Second
	DefaultMaxAttempts = 5
)

// ErrInvalidPolicy is returned at construction when delays or the attempt
// ceiling are not positive, or MaxDelay is below BaseDelay.
var ErrInvalidPolicy = errors.New("backoff: delays and max attempts must be positive, max delay >= base delay")

// Policy computes retry decisions and delays. The zero value is not usable;
// construct with NewPolicy or NewDefaultPolicy.
//
// Policy is stateless apart from its configuration and safe for concurrent
// use; per-request attempt counters live with the caller.
type Policy struct {
	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int
}

// NewPolicy creates a Policy with the given base delay, delay cap, and
// attempt ceiling. Configuration errors surface here, not on first use.
func NewPolicy(baseDelay, maxDelay time.Duration, maxAttempts int) (*Policy, error) {
	if baseDelay <= 0 || maxDelay <= 0 || maxAttempts <= 0 || maxDelay < baseDelay {
		return nil, ErrInvalidPolicy
	}
	return &Policy{
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		maxAttempts: maxAttempts,
	}, nil
}

// NewDefaultPolicy creates a Policy with 1s base delay, 60s cap, and 5
// attempts: un-jittered delays of 1, 2, 4, 8, 16 seconds.
func NewDefaultPolicy() *Policy {
	p, err := NewPolicy(DefaultBaseDelay, DefaultMaxDelay, DefaultMaxAttempts)
	if err != nil {
		panic(err) // defaults are statically valid
	}
	return p
}

// MaxAttempts returns the attempt ceiling.
func (p *Policy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry reports whether another attempt should follow a failure of the
// given class. attempt is the zero-based index of the attempt that just
// failed, so with a ceiling of 5 the last retryable failure is attempt 3.
// Terminal classes are never retried regardless of attempts remaining.
func (p *Policy) ShouldRetry(class Class, attempt int) bool {
	if !class.Retryable() {
		return false
	}
	return attempt+1 < p.maxAttempts
}

// NextDelay returns the jittered backoff delay for the zero-based attempt
// number: uniform in [0.5x, 1.0x] of min(base * 2^attempt, max).
func (p *Policy) NextDelay(attempt int) time.Duration {
	return jitter(p.UnjitteredDelay(attempt))
}

// UnjitteredDelay returns min(base * 2^attempt, max) without jitter. Exposed
// so callers can reason about the theoretical schedule.
func (p *Policy) UnjitteredDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := p.baseDelay
	for range attempt {
		if delay >= p.maxDelay/2 {
			return p.maxDelay
		}
		delay *= 2
	}
	if delay > p.maxDelay {
		return p.maxDelay
	}
	return delay
}

// jitter scales d uniformly into [0.5x, 1.0x].
func jitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.5 + 0.5*rand.Float64()))
}
