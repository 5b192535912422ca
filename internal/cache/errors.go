package cache

import "errors"

// Standard errors for cache operations.
//
// Use errors.Is to check for these errors:
//
//	data, err := c.Get(ctx, key)
//	if errors.Is(err, cache.ErrNotFound) {
//		// handle cache miss
//	}
var (
	// ErrNotFound is returned when a key does not exist, has expired, or its
	// entry failed integrity verification.
	ErrNotFound = errors.New("cache: key not found")

	// ErrClosed is returned when operations are attempted on a closed cache.
	ErrClosed = errors.New("cache: cache is closed")

	// ErrWriteFailed wraps I/O failures during writes. Callers are expected
	// to treat write failures as degraded operation, never as fatal.
	ErrWriteFailed = errors.New("cache: write failed")
)
