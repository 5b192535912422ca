// Package ratelimit enforces the remote service's published rate contract.
//
// The package provides a token bucket limiter built on golang.org/x/time/rate:
// a fixed-capacity pool of permits refills continuously at the configured
// requests-per-minute rate, each outbound request consumes one permit, and
// callers block (outside any lock) when the pool is empty.
//
// The limiter also ingests advisory rate-limit snapshots parsed from server
// response headers. Snapshots never shrink local capacity on their own; by
// default they only raise warnings when the server reports the budget is
// nearly exhausted. A PacingPolicy hook can be installed to tighten pacing
// from observed headers, but none is enabled by default.
//
// Basic usage:
//
//	limiter, err := ratelimit.NewTokenBucket(240, 240) // 240 req/min, burst 240
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
//	defer cancel()
//	if err := limiter.Acquire(ctx, 1); err != nil {
//		// ErrAcquireTimeout: deadline expired before a permit freed up
//	}
package ratelimit

import (
	"context"
	"time"
)

// Limiter defines the permit-acquisition interface shared by all rate
// limiter implementations. All implementations must be safe for concurrent
// use by multiple goroutines.
type Limiter interface {
	// Acquire blocks until n permits are available or the context deadline
	// expires. On success n permits have been consumed. Returns
	// ErrAcquireTimeout when the deadline expires (or provably cannot be
	// met), ErrContextCancelled when the context is cancelled outright.
	Acquire(ctx context.Context, n int) error

	// TryAcquire consumes n permits if they are immediately available and
	// reports whether it did. It never blocks.
	TryAcquire(n int) bool

	// Observe ingests an advisory rate-limit snapshot parsed from server
	// response headers. Observing never reduces local capacity.
	Observe(snap Snapshot)

	// SetLimit replaces the requests-per-minute ceiling and burst capacity.
	// Values at or below zero are rejected.
	SetLimit(rpm, burst int) error

	// Stats returns a point-in-time snapshot of limiter counters.
	Stats() Stats
}

// Snapshot is the server's view of the caller's rate budget, parsed from
// X-RateLimit-Limit / X-RateLimit-Remaining / X-RateLimit-Reset headers.
// It is advisory: a stale or misbehaving header must not starve local
// traffic, so snapshots only drive warnings (and, optionally, a pacing
// policy).
type Snapshot struct {
	// Limit is the server-reported request ceiling for the current window.
	Limit int

	// Remaining is the server-reported number of requests left.
	Remaining int

	// Reset is the epoch time at which the server window resets.
	Reset time.Time

	// ObservedAt is when the snapshot was taken locally.
	ObservedAt time.Time
}

// Stats are the limiter's operational counters. All counters are cumulative
// since construction.
type Stats struct {
	// Acquires is the total number of successful permit acquisitions.
	Acquires uint64 `json:"acquires"`

	// Waits is the number of acquisitions that had to block.
	Waits uint64 `json:"waits"`

	// WaitTime is the cumulative time spent blocked across all acquisitions.
	WaitTime time.Duration `json:"wait_time"`

	// Timeouts is the number of acquisitions that failed on deadline.
	Timeouts uint64 `json:"timeouts"`

	// Warnings is the number of low-budget warnings emitted from observed
	// server snapshots.
	Warnings uint64 `json:"warnings"`
}

// PacingPolicy decides whether observed server snapshots should tighten
// local pacing. Install one via TokenBucket.SetPacingPolicy; no policy is
// installed by default, leaving header observation warning-only.
type PacingPolicy interface {
	// Recommend inspects a snapshot against the current local ceiling and
	// returns a replacement requests-per-minute value. Returning ok=false
	// leaves the local limit untouched. Recommendations below the limiter's
	// configured floor are clamped, never honored as-is.
	Recommend(snap Snapshot, currentRPM int) (rpm int, ok bool)
}
