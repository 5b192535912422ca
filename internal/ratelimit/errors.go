package ratelimit

import "errors"

// Common errors returned by rate limiters.
//
// Use errors.Is to check for these errors:
//
//	if errors.Is(err, ratelimit.ErrAcquireTimeout) {
//		// throttled locally, no network call was made
//	}
var (
	// ErrAcquireTimeout is returned when the caller's deadline expires
	// before enough permits become available. It is distinct from server
	// errors so callers can tell "we're throttling ourselves" apart from
	// "the server is down".
	ErrAcquireTimeout = errors.New("ratelimit: acquire timed out")

	// ErrContextCancelled is returned when the context is cancelled during
	// a blocking acquisition.
	ErrContextCancelled = errors.New("ratelimit: context cancelled")

	// ErrInvalidLimit is returned at construction when the requests-per-minute
	// ceiling or burst capacity is zero or negative. Misconfiguration is
	// reported up front, never deferred to first use.
	ErrInvalidLimit = errors.New("ratelimit: requests per minute and burst must be positive")

	// ErrTooManyPermits is returned when a single acquisition asks for more
	// permits than the bucket can ever hold.
	ErrTooManyPermits = errors.New("ratelimit: requested permits exceed burst capacity")
)
