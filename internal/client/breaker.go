package client

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/apiward/apiward/internal/config"
)

// breaker wraps sony/gobreaker TwoStepCircuitBreaker so repeated upstream
// failures short-circuit before burning rate limit permits.
type breaker struct {
	cb *gobreaker.TwoStepCircuitBreaker[struct{}]
}

func newBreaker(cfg config.BreakerConfig, logger *zerolog.Logger) *breaker {
	halfOpenProbes := cfg.GetHalfOpenProbes()
	if halfOpenProbes < 0 {
		halfOpenProbes = 0
	}
	failureThreshold := cfg.GetFailureThreshold()
	if failureThreshold < 1 {
		failureThreshold = 1
	}

	settings := gobreaker.Settings{
		Name:        "upstream",
		MaxRequests: uint32(halfOpenProbes), //nolint:gosec // validated non-negative above
		Timeout:     cfg.GetOpenDuration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failureThreshold) //nolint:gosec // validated positive above
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger == nil {
				return
			}
			event := logger.Info()
			if to == gobreaker.StateOpen {
				event = logger.Warn()
			}
			event.
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &breaker{cb: gobreaker.NewTwoStepCircuitBreaker[struct{}](settings)}
}

// allow checks whether a call may proceed. Returns ErrCircuitOpen when the
// circuit is open; otherwise the returned done func must be called with the
// call's outcome.
func (b *breaker) allow() (done func(err error), err error) {
	d, err := b.cb.Allow()
	if err != nil {
		return nil, ErrCircuitOpen
	}
	return d, nil
}

func (b *breaker) state() gobreaker.State {
	return b.cb.State()
}

// countsAsFailure reports whether a response should trip the breaker.
// Client errors other than 429 are the caller's fault, not the server's.
func countsAsFailure(statusCode int, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	return statusCode >= 500 || statusCode == 429
}
