// Package config provides configuration loading, validation, and hot-reload
// for apiward.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/apiward/apiward/internal/cache"
)

// Configuration errors.
var (
	ErrBaseURLRequired = errors.New("config: api.base_url is required")
	ErrNoRateLimit     = errors.New("config: rate_limit.tier or rate_limit.requests_per_minute is required")
	ErrUnknownTier     = errors.New("config: unknown rate_limit.tier")
	ErrKeyPlacement    = errors.New("config: api.key_header and api.key_param are mutually exclusive")
)

// Rate tiers the remote service publishes. An explicit
// rate_limit.requests_per_minute overrides the tier preset.
const (
	// TierUnauthenticated is the requests-per-minute ceiling without an API
	// key.
	TierUnauthenticated = "unauthenticated"

	// TierAuthenticated is the higher ceiling granted to keyed clients.
	TierAuthenticated = "authenticated"
)

// Requests-per-minute presets per tier.
const (
	UnauthenticatedRPM = 40
	AuthenticatedRPM   = 240
)

// APIKeyEnv is the environment variable consulted when api.key is not set
// in the config file.
const APIKeyEnv = "APIWARD_API_KEY"

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Config represents the complete apiward configuration.
type Config struct {
	API       APIConfig       `yaml:"api" toml:"api"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry" toml:"retry"`
	Breaker   BreakerConfig   `yaml:"breaker" toml:"breaker"`
	Cache     cache.Config    `yaml:"cache" toml:"cache"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// APIConfig describes the remote JSON API and the credential used for it.
type APIConfig struct {
	// BaseURL is the scheme://host[:port][/prefix] requests are issued
	// against.
	BaseURL string `yaml:"base_url" toml:"base_url"`

	// Key is the API key credential. Supports ${VAR} expansion; when empty,
	// the APIWARD_API_KEY environment variable is consulted. The key is
	// never logged.
	Key string `yaml:"key" toml:"key"`

	// KeyHeader names the request header carrying the key.
	// Default: X-Api-Key. Mutually exclusive with KeyParam.
	KeyHeader string `yaml:"key_header" toml:"key_header"`

	// KeyParam names the query parameter carrying the key instead of a
	// header. The parameter is excluded from cache keys.
	KeyParam string `yaml:"key_param" toml:"key_param"`

	// TimeoutMS bounds a single network attempt. Default: 30000ms.
	TimeoutMS int `yaml:"timeout_ms" toml:"timeout_ms"`
}

// ResolvedKey returns the API key from the config file or, when absent, the
// APIWARD_API_KEY environment variable.
func (a *APIConfig) ResolvedKey() string {
	if a.Key != "" {
		return a.Key
	}
	return os.Getenv(APIKeyEnv)
}

// GetTimeout returns the per-attempt network timeout with default fallback.
func (a *APIConfig) GetTimeout() time.Duration {
	if a.TimeoutMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.TimeoutMS) * time.Millisecond
}

// RateLimitConfig defines the local pacing of outbound requests.
type RateLimitConfig struct {
	// Tier selects a published preset: "unauthenticated" (40 rpm) or
	// "authenticated" (240 rpm).
	Tier string `yaml:"tier" toml:"tier"`

	// RequestsPerMinute overrides the tier preset when positive.
	RequestsPerMinute int `yaml:"requests_per_minute" toml:"requests_per_minute"`

	// Burst is the bucket capacity. Defaults to the effective
	// requests-per-minute value.
	Burst int `yaml:"burst" toml:"burst"`

	// AcquireTimeoutMS bounds how long a request may block waiting for a
	// permit. Default: 30000ms.
	AcquireTimeoutMS int `yaml:"acquire_timeout_ms" toml:"acquire_timeout_ms"`

	// WarnFraction is the low-budget warning threshold as a fraction of the
	// server-reported limit. Default: 0.1.
	WarnFraction float64 `yaml:"warn_fraction" toml:"warn_fraction"`

	// FloorRPM is the lowest requests-per-minute a pacing policy may
	// tighten to. Default: 1.
	FloorRPM int `yaml:"floor_rpm" toml:"floor_rpm"`
}

// EffectiveRPM resolves the requests-per-minute ceiling from the explicit
// override or the tier preset.
func (r *RateLimitConfig) EffectiveRPM() (int, error) {
	if r.RequestsPerMinute > 0 {
		return r.RequestsPerMinute, nil
	}
	switch strings.ToLower(r.Tier) {
	case TierUnauthenticated:
		return UnauthenticatedRPM, nil
	case TierAuthenticated:
		return AuthenticatedRPM, nil
	case "":
		return 0, ErrNoRateLimit
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTier, r.Tier)
	}
}

// EffectiveBurst resolves the bucket capacity, defaulting to the effective
// requests-per-minute value.
func (r *RateLimitConfig) EffectiveBurst() (int, error) {
	if r.Burst > 0 {
		return r.Burst, nil
	}
	return r.EffectiveRPM()
}

// GetAcquireTimeout returns the permit acquisition deadline with default
// fallback.
func (r *RateLimitConfig) GetAcquireTimeout() time.Duration {
	if r.AcquireTimeoutMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(r.AcquireTimeoutMS) * time.Millisecond
}

// GetWarnFractionOption returns the configured warning fraction, or None
// when unset or out of range so the limiter default applies.
func (r *RateLimitConfig) GetWarnFractionOption() mo.Option[float64] {
	if r.WarnFraction <= 0 || r.WarnFraction > 1 {
		return mo.None[float64]()
	}
	return mo.Some(r.WarnFraction)
}

// GetFloorOption returns the configured pacing floor, or None when unset.
func (r *RateLimitConfig) GetFloorOption() mo.Option[int] {
	if r.FloorRPM <= 0 {
		return mo.None[int]()
	}
	return mo.Some(r.FloorRPM)
}

// RetryConfig defines the backoff schedule for failed attempts.
type RetryConfig struct {
	// MaxAttempts is the total attempt ceiling. Default: 5.
	MaxAttempts int `yaml:"max_attempts" toml:"max_attempts"`

	// BaseDelayMS is the first backoff delay. Default: 1000ms.
	BaseDelayMS int `yaml:"base_delay_ms" toml:"base_delay_ms"`

	// MaxDelayMS caps the backoff delay. Default: 60000ms.
	MaxDelayMS int `yaml:"max_delay_ms" toml:"max_delay_ms"`
}

// GetMaxAttempts returns the attempt ceiling with default fallback.
func (r *RetryConfig) GetMaxAttempts() int {
	if r.MaxAttempts <= 0 {
		return 5
	}
	return r.MaxAttempts
}

// GetBaseDelay returns the first backoff delay with default fallback.
func (r *RetryConfig) GetBaseDelay() time.Duration {
	if r.BaseDelayMS <= 0 {
		return time.Second
	}
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// GetMaxDelay returns the backoff delay cap with default fallback.
func (r *RetryConfig) GetMaxDelay() time.Duration {
	if r.MaxDelayMS <= 0 {
		return time.Minute
	}
	return time.Duration(r.MaxDelayMS) * time.Millisecond
}

// BreakerConfig defines circuit breaker behavior for the upstream API.
type BreakerConfig struct {
	// Enabled toggles the breaker. Defaults to true when unset.
	Enabled *bool `yaml:"enabled" toml:"enabled"`

	// FailureThreshold is the consecutive failure count that opens the
	// circuit. Default: 5.
	FailureThreshold int `yaml:"failure_threshold" toml:"failure_threshold"`

	// OpenDurationMS is how long the circuit stays open before probing.
	// Default: 30000ms.
	OpenDurationMS int `yaml:"open_duration_ms" toml:"open_duration_ms"`

	// HalfOpenProbes is the number of trial requests allowed while
	// half-open. Default: 1.
	HalfOpenProbes int `yaml:"half_open_probes" toml:"half_open_probes"`
}

// IsEnabled reports whether the breaker is on. Unset means enabled.
func (b *BreakerConfig) IsEnabled() bool {
	return b.Enabled == nil || *b.Enabled
}

// GetFailureThreshold returns the trip threshold with default fallback.
func (b *BreakerConfig) GetFailureThreshold() int {
	if b.FailureThreshold <= 0 {
		return 5
	}
	return b.FailureThreshold
}

// GetOpenDuration returns the open-state duration with default fallback.
func (b *BreakerConfig) GetOpenDuration() time.Duration {
	if b.OpenDurationMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.OpenDurationMS) * time.Millisecond
}

// GetHalfOpenProbes returns the half-open probe count with default fallback.
func (b *BreakerConfig) GetHalfOpenProbes() int {
	if b.HalfOpenProbes <= 0 {
		return 1
	}
	return b.HalfOpenProbes
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json, console, pretty
	Output string `yaml:"output" toml:"output"` // stdout, stderr, or file path
	Pretty bool   `yaml:"pretty" toml:"pretty"` // force colored console output
}

// ParseLevel converts the configured level to zerolog.Level.
// Returns zerolog.InfoLevel if the level string is invalid.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	switch strings.ToLower(l.Level) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Validate checks the configuration for errors. Misconfiguration surfaces
// here, at load time, never on first use.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return ErrBaseURLRequired
	}
	if c.API.KeyHeader != "" && c.API.KeyParam != "" {
		return ErrKeyPlacement
	}
	if _, err := c.RateLimit.EffectiveRPM(); err != nil {
		return err
	}
	if _, err := c.RateLimit.EffectiveBurst(); err != nil {
		return err
	}
	if c.Retry.MaxDelayMS > 0 && c.Retry.BaseDelayMS > c.Retry.MaxDelayMS {
		return errors.New("config: retry.base_delay_ms exceeds retry.max_delay_ms")
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	return nil
}

// Default returns the configuration used when no file is present: the
// authenticated tier, disk cache under the user cache dir, console logging.
func Default() *Config {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return &Config{
		API: APIConfig{
			KeyHeader: "X-Api-Key",
		},
		RateLimit: RateLimitConfig{
			Tier: TierAuthenticated,
		},
		Cache: cache.Config{
			Mode:      cache.ModeDisk,
			Disk:      cache.DiskConfig{Dir: filepath.Join(cacheDir, "apiward")},
			Ristretto: cache.DefaultRistrettoConfig(),
		},
		Logging: LoggingConfig{
			Level:  LevelInfo,
			Format: "console",
			Output: "stderr",
		},
	}
}

// RuntimeConfig is the read interface components use to observe hot-reloaded
// configuration instead of holding a *Config that goes stale.
type RuntimeConfig interface {
	Get() *Config
}
