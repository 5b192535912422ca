// Package cache provides the response cache for apiward.
//
// The package abstracts over three backends:
//   - Disk mode: checksum-verified, TTL-bound persistent store (default)
//   - Memory mode (Ristretto): ephemeral in-process cache
//   - Disabled mode (Noop): passthrough when caching is off
//
// The disk backend is content-addressed and integrity-checked: every entry
// stores a SHA-256 digest of its payload, recomputed and compared on every
// read, and entries are written with the temp-file-then-rename discipline so
// a concurrent reader only ever observes a fully formed entry. A corrupted,
// unreadable, or expired entry is indistinguishable from a miss to the
// caller; it never becomes an error that aborts a request.
//
// All implementations are safe for concurrent use.
//
// Basic usage:
//
//	c, err := cache.New(cache.Config{
//		Mode: cache.ModeDisk,
//		Disk: cache.DiskConfig{Dir: "/var/cache/apiward"},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	err = c.SetWithTTL(ctx, key, payload, 7*24*time.Hour)
//
//	data, err := c.Get(ctx, key)
//	if errors.Is(err, cache.ErrNotFound) {
//		// miss: absent, expired, or failed integrity verification
//	}
package cache

import (
	"context"
	"time"
)

// Cache defines the interface for cache operations.
// All implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns ErrNotFound if the key does not exist, has expired, or failed
	// integrity verification.
	// Returns ErrClosed if the cache has been closed.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with no expiration.
	// Returns ErrClosed if the cache has been closed.
	Set(ctx context.Context, key string, value []byte) error

	// SetWithTTL stores a value with a time-to-live. After the TTL expires
	// the key is no longer retrievable.
	// Returns ErrClosed if the cache has been closed.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Returns nil if the key does not exist
	// (idempotent). Returns ErrClosed if the cache has been closed.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a valid, unexpired entry exists for the key.
	// Returns ErrClosed if the cache has been closed.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases resources associated with the cache. After Close all
	// operations return ErrClosed. Close is idempotent.
	Close() error
}

// Stats provides cache statistics for observability.
type Stats struct {
	// Hits is the number of cache hits.
	Hits uint64 `json:"hits"`

	// Misses is the number of cache misses, including entries rejected for
	// corruption or expiry.
	Misses uint64 `json:"misses"`

	// KeyCount is the current number of entries.
	KeyCount uint64 `json:"key_count"`

	// BytesUsed is the approximate storage used by cached values.
	BytesUsed uint64 `json:"bytes_used"`

	// Corruptions is the number of entries removed after failing checksum
	// verification.
	Corruptions uint64 `json:"corruptions"`

	// Expirations is the number of entries removed lazily after their TTL
	// elapsed.
	Expirations uint64 `json:"expirations"`

	// WriteFailures is the number of writes that failed and were absorbed.
	WriteFailures uint64 `json:"write_failures"`
}

// StatsProvider is an optional interface for caches that support statistics.
// Use type assertion to check for support:
//
//	if sp, ok := c.(cache.StatsProvider); ok {
//		stats := sp.Stats()
//	}
type StatsProvider interface {
	// Stats returns current cache statistics.
	Stats() Stats
}

// Purger is an optional interface for caches that can drop all entries at
// once. Returns the number of entries removed where the backend can count
// them.
type Purger interface {
	// Purge removes every entry.
	Purge(ctx context.Context) (removed uint64, err error)
}
