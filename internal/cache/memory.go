package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog"
)

// memoryCache implements Cache using Ristretto. It is the ephemeral
// counterpart to the disk backend: nothing survives the process, and no
// checksum verification is needed because entries never leave process
// memory.
type memoryCache struct {
	cache  *ristretto.Cache[string, []byte]
	log    zerolog.Logger
	closed atomic.Bool
}

// Ensure memoryCache implements the required interfaces.
var (
	_ Cache         = (*memoryCache)(nil)
	_ StatsProvider = (*memoryCache)(nil)
	_ Purger        = (*memoryCache)(nil)
)

// newMemoryCache creates a Ristretto-backed cache from the configuration.
func newMemoryCache(cfg RistrettoConfig) (*memoryCache, error) {
	log := logger().With().Str("backend", "memory").Logger()

	bufferItems := cfg.BufferItems
	if bufferItems <= 0 {
		bufferItems = 64
	}

	rc, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: bufferItems,
		Metrics:     true,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create ristretto cache")
		return nil, err
	}

	log.Info().
		Int64("num_counters", cfg.NumCounters).
		Int64("max_cost", cfg.MaxCost).
		Msg("memory cache created")

	return &memoryCache{cache: rc, log: log}, nil
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.closed.Load() {
		return nil, ErrClosed
	}

	value, found := m.cache.Get(key)
	if !found {
		m.log.Debug().Str("key", key).Bool("hit", false).Msg("cache get")
		return nil, ErrNotFound
	}

	m.log.Debug().Str("key", key).Bool("hit", true).Int("size", len(value)).Msg("cache get")

	// Copy so callers cannot mutate the cached bytes.
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value []byte) error {
	return m.SetWithTTL(ctx, key, value, 0)
}

func (m *memoryCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.closed.Load() {
		return ErrClosed
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	if ttl > 0 {
		m.cache.SetWithTTL(key, valueCopy, int64(len(value)), ttl)
	} else {
		m.cache.Set(key, valueCopy, int64(len(value)))
	}

	m.log.Debug().Str("key", key).Int("size", len(value)).Dur("ttl", ttl).Msg("cache set")
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.closed.Load() {
		return ErrClosed
	}

	m.cache.Del(key)
	m.log.Debug().Str("key", key).Msg("cache delete")
	return nil
}

func (m *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if m.closed.Load() {
		return false, ErrClosed
	}

	_, found := m.cache.Get(key)
	return found, nil
}

func (m *memoryCache) Close() error {
	if m.closed.Swap(true) {
		return nil
	}

	// Flush pending writes before tearing down.
	m.cache.Wait()
	m.cache.Close()

	m.log.Info().Msg("memory cache closed")
	return nil
}

// Purge drops every entry. Ristretto does not expose a removed count, so
// it is reported as zero.
func (m *memoryCache) Purge(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if m.closed.Load() {
		return 0, ErrClosed
	}

	m.cache.Clear()
	m.log.Info().Msg("cache purged")
	return 0, nil
}

// Stats returns current cache statistics from Ristretto metrics.
func (m *memoryCache) Stats() Stats {
	if m.closed.Load() {
		return Stats{}
	}

	metrics := m.cache.Metrics
	return Stats{
		Hits:      metrics.Hits(),
		Misses:    metrics.Misses(),
		KeyCount:  metrics.KeysAdded() - metrics.KeysEvicted(),
		BytesUsed: metrics.CostAdded() - metrics.CostEvicted(),
	}
}
