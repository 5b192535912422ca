package cache

import (
	"errors"
	"fmt"
	"time"
)

// Mode represents the cache operating mode.
type Mode string

const (
	// ModeDisk uses the checksum-verified persistent store (default).
	ModeDisk Mode = "disk"

	// ModeMemory uses the local Ristretto cache. Entries do not survive the
	// process; useful for short-lived runs and tests.
	ModeMemory Mode = "memory"

	// ModeDisabled uses the noop cache (caching disabled).
	ModeDisabled Mode = "disabled"
)

// Config defines cache configuration.
// Use Validate() to check for configuration errors before creating a cache.
type Config struct {
	Mode Mode `yaml:"mode" toml:"mode"`

	// TTLSeconds is how long stored responses stay fresh. Zero applies the
	// 7-day default; negative disables expiry.
	TTLSeconds int64 `yaml:"ttl_seconds" toml:"ttl_seconds"`

	Disk      DiskConfig      `yaml:"disk" toml:"disk"`
	Ristretto RistrettoConfig `yaml:"ristretto" toml:"ristretto"`
}

// GetTTL returns the entry time-to-live with default fallback (7 days).
// A negative TTLSeconds disables expiry.
func (c *Config) GetTTL() time.Duration {
	if c.TTLSeconds == 0 {
		return 7 * 24 * time.Hour
	}
	if c.TTLSeconds < 0 {
		return 0
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

// DiskConfig configures the persistent integrity-checked store.
type DiskConfig struct {
	// Dir is the directory holding cache entries, one file per entry in a
	// flat layout keyed by the entry digest. Created if absent.
	Dir string `yaml:"dir" toml:"dir"`
}

// RistrettoConfig configures the Ristretto in-memory cache.
type RistrettoConfig struct {
	// NumCounters is the number of 4-bit access counters.
	// Recommended: 10x expected max items.
	NumCounters int64 `yaml:"num_counters" toml:"num_counters"`

	// MaxCost is the maximum memory the cache can hold, in bytes of cached
	// values.
	MaxCost int64 `yaml:"max_cost" toml:"max_cost"`

	// BufferItems is the number of keys per Get buffer. Recommended: 64.
	BufferItems int64 `yaml:"buffer_items" toml:"buffer_items"`
}

// Validate checks the configuration for errors.
// Returns nil if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeDisk:
		if c.Disk.Dir == "" {
			return errors.New("cache: disk.dir is required")
		}
	case ModeMemory:
		if c.Ristretto.MaxCost <= 0 {
			return errors.New("cache: ristretto.max_cost must be positive")
		}
		if c.Ristretto.NumCounters <= 0 {
			return errors.New("cache: ristretto.num_counters must be positive")
		}
	case ModeDisabled:
		// No validation needed for disabled mode
	case "":
		return errors.New("cache: mode is required")
	default:
		return fmt.Errorf("cache: unknown mode %q", c.Mode)
	}
	return nil
}

// DefaultRistrettoConfig returns a RistrettoConfig with sensible defaults:
// 1,000,000 counters (for ~100K items), 100 MB, 64 buffer items.
func DefaultRistrettoConfig() RistrettoConfig {
	return RistrettoConfig{
		NumCounters: 1_000_000,
		MaxCost:     100 << 20,
		BufferItems: 64,
	}
}
