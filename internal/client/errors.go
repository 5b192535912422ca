package client

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for client operations.
var (
	// ErrRateLimitTimeout is returned when the permit acquisition deadline
	// expired before the network call was attempted. Distinct from server
	// failures so callers can tell local throttling from a down upstream.
	ErrRateLimitTimeout = errors.New("client: rate limit acquisition timed out")

	// ErrCircuitOpen is returned when the circuit breaker is open and the
	// network call was skipped.
	ErrCircuitOpen = errors.New("client: circuit breaker is open")

	// ErrInvalidPayload is returned when a 2xx response body is not valid
	// JSON. Treated as a transient upstream fault and retried.
	ErrInvalidPayload = errors.New("client: response body is not valid JSON")
)

// StatusError is a terminal HTTP failure: a 4xx status other than 429.
// Retrying cannot fix the request, so it surfaces immediately.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("client: request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("client: request failed with status %d: %s", e.StatusCode, e.Body)
}

// RetryExhaustedError is returned when every attempt failed with a retryable
// error. It carries enough context for the caller to degrade gracefully
// instead of crashing.
type RetryExhaustedError struct {
	// Attempts is the number of network calls performed.
	Attempts int

	// Elapsed is the wall time spent across all attempts and backoff waits.
	Elapsed time.Duration

	// LastErr is the failure from the final attempt.
	LastErr error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("client: %d attempts exhausted in %v: %v", e.Attempts, e.Elapsed.Round(time.Millisecond), e.LastErr)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.LastErr
}
