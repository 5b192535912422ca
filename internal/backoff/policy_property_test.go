package backoff

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property-based tests for the backoff schedule.

func TestPolicy_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	// Property 1: The un-jittered schedule is non-decreasing in the attempt
	// number and never exceeds the cap.
	properties.Property("unjittered schedule monotone and capped", prop.ForAll(
		func(baseMS, attempts int) bool {
			base := time.Duration(baseMS) * time.Millisecond
			p, err := NewPolicy(base, 60*time.Second, 10)
			if err != nil {
				return base > 60*time.Second
			}
			prev := time.Duration(0)
			for attempt := range attempts {
				d := p.UnjitteredDelay(attempt)
				if d < prev || d > 60*time.Second {
					return false
				}
				prev = d
			}
			return true
		},
		gen.IntRange(1, 5000),
		gen.IntRange(1, 30),
	))

	// Property 2: Jittered delays always land in [0.5x, 1.0x] of the
	// theoretical value.
	properties.Property("jitter stays within bounds", prop.ForAll(
		func(attempt int) bool {
			p := NewDefaultPolicy()
			theoretical := p.UnjitteredDelay(attempt)
			d := p.NextDelay(attempt)
			return d >= theoretical/2 && d <= theoretical
		},
		gen.IntRange(0, 20),
	))

	// Property 3: ShouldRetry is false for every class once attempts reach
	// the ceiling.
	properties.Property("attempt ceiling is absolute", prop.ForAll(
		func(maxAttempts, over int) bool {
			p, err := NewPolicy(time.Second, time.Minute, maxAttempts)
			if err != nil {
				return false
			}
			attempt := maxAttempts - 1 + over
			for _, class := range []Class{ClassTransient, ClassThrottled, ClassServer, ClassClient, ClassNone} {
				if p.ShouldRetry(class, attempt) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 10),
		gen.IntRange(0, 10),
	))

	properties.TestingRun(t)
}
