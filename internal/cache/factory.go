package cache

import (
	"fmt"
	"time"
)

// New creates a Cache based on the configuration. It returns an error if the
// configuration is invalid or the backend fails to initialize.
//
// Example:
//
//	c, err := cache.New(cache.Config{
//		Mode: cache.ModeDisk,
//		Disk: cache.DiskConfig{Dir: "/var/cache/apiward"},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
func New(cfg Config) (Cache, error) {
	log := logger().With().Str("component", "cache_factory").Logger()
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		log.Debug().Err(err).Str("mode", string(cfg.Mode)).Msg("cache config validation failed")
		return nil, err
	}

	var c Cache
	var err error

	switch cfg.Mode {
	case ModeDisk:
		c, err = newDiskCache(cfg.Disk)
	case ModeMemory:
		c, err = newMemoryCache(cfg.Ristretto)
	case ModeDisabled:
		c = newNoopCache()
	default:
		return nil, fmt.Errorf("cache: unknown mode %q", cfg.Mode)
	}

	if err != nil {
		log.Error().Err(err).Str("mode", string(cfg.Mode)).Msg("cache backend initialization failed")
		return nil, err
	}

	log.Info().
		Str("mode", string(cfg.Mode)).
		Dur("init_time", time.Since(start)).
		Msg("cache backend initialized")

	return c, nil
}
