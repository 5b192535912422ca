package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// waitThreshold is the minimum blocked duration counted as a wait.
// Acquisitions that complete faster had permits available immediately.
const waitThreshold = time.Millisecond

// TokenBucket implements Limiter using golang.org/x/time/rate.
//
// The bucket is configured with rate = rpm/60 permits per second and burst
// equal to the configured capacity, so a full minute's budget can be consumed
// instantly and then refills gradually. rate.Limiter performs the
// replenish-deduct-or-sleep cycle internally with an O(1) critical section:
// a caller sleeping out its reservation never holds the limiter's lock, so
// one caller's wait cannot serialize another caller's replenishment check.
//
// Thread safety: all methods are safe for concurrent use.
type TokenBucket struct {
	limiter      *rate.Limiter
	policy       PacingPolicy
	rpm          int
	burst        int
	floorRPM     int
	warnFraction float64
	lastSnap     Snapshot
	hasSnap      bool
	mu           sync.RWMutex // protects limiter swap, limits, snapshot, policy

	acquires  atomic.Uint64
	waits     atomic.Uint64
	timeouts  atomic.Uint64
	warnings  atomic.Uint64
	waitNanos atomic.Int64
}

var _ Limiter = (*TokenBucket)(nil)

// Option configures a TokenBucket.
type Option func(*TokenBucket)

// WithWarnFraction sets the low-budget warning threshold as a fraction of
// the server-reported limit. Default is 0.10: a warning is emitted when the
// server says fewer than 10% of requests remain. Values outside (0, 1] are
// ignored.
func WithWarnFraction(f float64) Option {
	return func(b *TokenBucket) {
		if f > 0 && f <= 1 {
			b.warnFraction = f
		}
	}
}

// WithFloor sets the lowest requests-per-minute value a pacing policy may
// tighten the limiter to. Default is 1. The floor guards against a stale or
// hostile header starving legitimate local traffic.
func WithFloor(rpm int) Option {
	return func(b *TokenBucket) {
		if rpm > 0 {
			b.floorRPM = rpm
		}
	}
}

// NewTokenBucket creates a token bucket limiter allowing rpm requests per
// minute with the given burst capacity. Returns ErrInvalidLimit when either
// value is zero or negative; invalid configuration is a construction-time
// error, not a first-use surprise.
func NewTokenBucket(rpm, burst int, opts ...Option) (*TokenBucket, error) {
	if rpm <= 0 || burst <= 0 {
		return nil, ErrInvalidLimit
	}

	b := &TokenBucket{
		limiter:      rate.NewLimiter(perSecond(rpm), burst),
		rpm:          rpm,
		burst:        burst,
		floorRPM:     1,
		warnFraction: 0.10,
	}

	for _, opt := range opts {
		opt(b)
	}

	log := logger()
	log.Debug().
		Int("rpm", rpm).
		Int("burst", burst).
		Float64("warn_fraction", b.warnFraction).
		Msg("token bucket created")

	return b, nil
}

// perSecond converts a per-minute ceiling to the per-second refill rate.
func perSecond(rpm int) rate.Limit {
	return rate.Limit(float64(rpm) / 60.0)
}

// Acquire blocks until n permits are available or the context deadline
// expires. The blocking wait happens inside rate.Limiter, outside its
// critical section. No permits are consumed on failure.
func (b *TokenBucket) Acquire(ctx context.Context, n int) error {
	b.mu.RLock()
	limiter := b.limiter
	burst := b.burst
	b.mu.RUnlock()

	if n > burst {
		return ErrTooManyPermits
	}

	start := time.Now()
	err := limiter.WaitN(ctx, n)
	elapsed := time.Since(start)

	if elapsed >= waitThreshold {
		b.waits.Add(1)
		b.waitNanos.Add(int64(elapsed))
	}

	if err != nil {
		if ctx.Err() == context.Canceled {
			return ErrContextCancelled
		}
		// Deadline expired, or rate.Limiter proved the wait could never
		// finish inside the deadline and failed fast.
		b.timeouts.Add(1)
		log := logger()
		log.Debug().
			Int("permits", n).
			Dur("waited", elapsed).
			Msg("acquire timed out")
		return ErrAcquireTimeout
	}

	b.acquires.Add(1)
	return nil
}

// TryAcquire consumes n permits if immediately available. It never blocks.
func (b *TokenBucket) TryAcquire(n int) bool {
	b.mu.RLock()
	limiter := b.limiter
	b.mu.RUnlock()

	if !limiter.AllowN(time.Now(), n) {
		return false
	}
	b.acquires.Add(1)
	return true
}

// Observe ingests an advisory server snapshot. When the server reports the
// remaining budget below the warning fraction of its limit, a warning is
// logged and counted. When a pacing policy is installed its recommendation
// is applied, clamped to the configured floor. Observation alone never
// shrinks capacity.
func (b *TokenBucket) Observe(snap Snapshot) {
	if snap.ObservedAt.IsZero() {
		snap.ObservedAt = time.Now()
	}

	b.mu.Lock()
	b.lastSnap = snap
	b.hasSnap = true
	policy := b.policy
	currentRPM := b.rpm
	floor := b.floorRPM
	warnAt := b.warnFraction
	b.mu.Unlock()

	log := logger()

	if snap.Limit > 0 && float64(snap.Remaining) < warnAt*float64(snap.Limit) {
		b.warnings.Add(1)
		log.Warn().
			Int("limit", snap.Limit).
			Int("remaining", snap.Remaining).
			Time("reset", snap.Reset).
			Msg("server rate budget nearly exhausted")
	}

	if policy == nil {
		return
	}

	rpm, ok := policy.Recommend(snap, currentRPM)
	if !ok || rpm == currentRPM {
		return
	}
	if rpm < floor {
		rpm = floor
	}
	if err := b.SetLimit(rpm, rpm); err != nil {
		log.Error().Err(err).Int("rpm", rpm).Msg("pacing policy recommendation rejected")
		return
	}
	log.Info().
		Int("old_rpm", currentRPM).
		Int("new_rpm", rpm).
		Msg("pacing tightened from server snapshot")
}

// SetLimit replaces the requests-per-minute ceiling and burst capacity by
// swapping in a fresh rate.Limiter, the same way dynamic limit updates work
// for hot-reloaded configuration.
func (b *TokenBucket) SetLimit(rpm, burst int) error {
	if rpm <= 0 || burst <= 0 {
		return ErrInvalidLimit
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.limiter = rate.NewLimiter(perSecond(rpm), burst)
	b.rpm = rpm
	b.burst = burst
	return nil
}

// SetPacingPolicy installs (or, with nil, removes) the policy consulted on
// each observed snapshot. No policy is installed by default.
func (b *TokenBucket) SetPacingPolicy(p PacingPolicy) {
	b.mu.Lock()
	b.policy = p
	b.mu.Unlock()
}

// LastSnapshot returns the most recently observed server snapshot, if any.
func (b *TokenBucket) LastSnapshot() (Snapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastSnap, b.hasSnap
}

// Tokens reports the current permit balance. The balance is a real number
// in [0, burst]; fractional permits accumulate between refill instants.
func (b *TokenBucket) Tokens() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.limiter.Tokens()
}

// Limits returns the configured requests-per-minute ceiling and burst
// capacity.
func (b *TokenBucket) Limits() (rpm, burst int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rpm, b.burst
}

// Stats returns a point-in-time snapshot of limiter counters.
func (b *TokenBucket) Stats() Stats {
	return Stats{
		Acquires: b.acquires.Load(),
		Waits:    b.waits.Load(),
		WaitTime: time.Duration(b.waitNanos.Load()),
		Timeouts: b.timeouts.Load(),
		Warnings: b.warnings.Load(),
	}
}
