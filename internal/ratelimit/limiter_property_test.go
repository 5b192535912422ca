package ratelimit

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property-based tests for TokenBucket invariants.

func TestTokenBucket_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	// Property 1: Construction succeeds iff both limits are positive.
	properties.Property("construction validates limits", prop.ForAll(
		func(rpm, burst int) bool {
			b, err := NewTokenBucket(rpm, burst)
			if rpm > 0 && burst > 0 {
				return err == nil && b != nil
			}
			return err != nil && b == nil
		},
		gen.IntRange(-100, 1000),
		gen.IntRange(-100, 1000),
	))

	// Property 2: The permit balance never leaves [0, burst] no matter how
	// many immediate acquisitions are attempted.
	properties.Property("balance stays within bucket bounds", prop.ForAll(
		func(burst, attempts int) bool {
			b, err := NewTokenBucket(600, burst)
			if err != nil {
				return false
			}
			for range attempts {
				b.TryAcquire(1)
				tokens := b.Tokens()
				if tokens < -0.001 || tokens > float64(burst)+0.001 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 50),
		gen.IntRange(1, 200),
	))

	// Property 3: Immediate grants never exceed burst capacity from a fresh
	// bucket with negligible refill.
	properties.Property("fresh bucket grants at most burst permits", prop.ForAll(
		func(burst, attempts int) bool {
			b, err := NewTokenBucket(60, burst)
			if err != nil {
				return false
			}
			granted := 0
			for range attempts {
				if b.TryAcquire(1) {
					granted++
				}
			}
			// One extra grant is tolerated for refill during the loop.
			return granted <= burst+1
		},
		gen.IntRange(1, 50),
		gen.IntRange(1, 200),
	))

	// Property 4: Observing snapshots never changes configured limits when
	// no pacing policy is installed.
	properties.Property("observation alone never alters limits", prop.ForAll(
		func(limit, remaining int) bool {
			b, err := NewTokenBucket(240, 240)
			if err != nil {
				return false
			}
			b.Observe(Snapshot{Limit: limit, Remaining: remaining})
			rpm, burst := b.Limits()
			return rpm == 240 && burst == 240
		},
		gen.IntRange(0, 10000),
		gen.IntRange(0, 10000),
	))

	properties.TestingRun(t)
}
