package config

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/apiward/apiward/internal/cache"
)

func validConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "https://api.example.gov",
			KeyHeader: "X-Api-Key",
		},
		RateLimit: RateLimitConfig{Tier: TierAuthenticated},
		Cache:     cache.Config{Mode: cache.ModeDisabled},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.API.BaseURL = "" },
			wantErr: ErrBaseURLRequired,
		},
		{
			name: "header and param both set",
			mutate: func(c *Config) {
				c.API.KeyParam = "api_key"
			},
			wantErr: ErrKeyPlacement,
		},
		{
			name: "no tier and no override",
			mutate: func(c *Config) {
				c.RateLimit = RateLimitConfig{}
			},
			wantErr: ErrNoRateLimit,
		},
		{
			name: "unknown tier",
			mutate: func(c *Config) {
				c.RateLimit = RateLimitConfig{Tier: "platinum"}
			},
			wantErr: ErrUnknownTier,
		},
		{
			name: "invalid cache mode",
			mutate: func(c *Config) {
				c.Cache.Mode = "redis"
			},
			wantErr: nil, // distinct error type, just expect failure
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.name == "valid" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRetryDelays(t *testing.T) {
	cfg := validConfig()
	cfg.Retry = RetryConfig{BaseDelayMS: 5000, MaxDelayMS: 1000}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted base delay above max delay")
	}
}

func TestEffectiveRPM(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RateLimitConfig
		want    int
		wantErr bool
	}{
		{name: "unauthenticated tier", cfg: RateLimitConfig{Tier: TierUnauthenticated}, want: 40},
		{name: "authenticated tier", cfg: RateLimitConfig{Tier: TierAuthenticated}, want: 240},
		{name: "tier case-insensitive", cfg: RateLimitConfig{Tier: "Authenticated"}, want: 240},
		{name: "override wins over tier", cfg: RateLimitConfig{Tier: TierUnauthenticated, RequestsPerMinute: 100}, want: 100},
		{name: "override alone", cfg: RateLimitConfig{RequestsPerMinute: 12}, want: 12},
		{name: "nothing set", cfg: RateLimitConfig{}, wantErr: true},
		{name: "unknown tier", cfg: RateLimitConfig{Tier: "gold"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.EffectiveRPM()
			if (err != nil) != tt.wantErr {
				t.Fatalf("EffectiveRPM() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("EffectiveRPM() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEffectiveBurst(t *testing.T) {
	cfg := RateLimitConfig{Tier: TierAuthenticated}
	if got, _ := cfg.EffectiveBurst(); got != 240 {
		t.Errorf("EffectiveBurst() = %d, want rpm default 240", got)
	}

	cfg.Burst = 10
	if got, _ := cfg.EffectiveBurst(); got != 10 {
		t.Errorf("EffectiveBurst() = %d, want explicit 10", got)
	}
}

func TestDefaultsAndGetters(t *testing.T) {
	var (
		api     APIConfig
		rl      RateLimitConfig
		retry   RetryConfig
		breaker BreakerConfig
	)

	if got := api.GetTimeout(); got != 30*time.Second {
		t.Errorf("GetTimeout default = %v", got)
	}
	if got := rl.GetAcquireTimeout(); got != 30*time.Second {
		t.Errorf("GetAcquireTimeout default = %v", got)
	}
	if rl.GetWarnFractionOption().IsPresent() {
		t.Error("GetWarnFractionOption present for zero value")
	}
	rl.WarnFraction = 0.25
	if got := rl.GetWarnFractionOption().MustGet(); got != 0.25 {
		t.Errorf("GetWarnFractionOption = %v", got)
	}
	rl.WarnFraction = 1.5
	if rl.GetWarnFractionOption().IsPresent() {
		t.Error("GetWarnFractionOption present for out-of-range value")
	}

	if got := retry.GetMaxAttempts(); got != 5 {
		t.Errorf("GetMaxAttempts default = %d", got)
	}
	if got := retry.GetBaseDelay(); got != time.Second {
		t.Errorf("GetBaseDelay default = %v", got)
	}
	if got := retry.GetMaxDelay(); got != time.Minute {
		t.Errorf("GetMaxDelay default = %v", got)
	}

	if !breaker.IsEnabled() {
		t.Error("breaker disabled by default")
	}
	off := false
	breaker.Enabled = &off
	if breaker.IsEnabled() {
		t.Error("breaker enabled despite explicit false")
	}
	if got := breaker.GetFailureThreshold(); got != 5 {
		t.Errorf("GetFailureThreshold default = %d", got)
	}
	if got := breaker.GetOpenDuration(); got != 30*time.Second {
		t.Errorf("GetOpenDuration default = %v", got)
	}
	if got := breaker.GetHalfOpenProbes(); got != 1 {
		t.Errorf("GetHalfOpenProbes default = %d", got)
	}
}

func TestResolvedKey(t *testing.T) {
	api := APIConfig{Key: "from-file"}
	if got := api.ResolvedKey(); got != "from-file" {
		t.Errorf("ResolvedKey = %q", got)
	}

	api.Key = ""
	t.Setenv(APIKeyEnv, "from-env")
	if got := api.ResolvedKey(); got != "from-env" {
		t.Errorf("ResolvedKey = %q, want env fallback", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{level: "debug", want: zerolog.DebugLevel},
		{level: "INFO", want: zerolog.InfoLevel},
		{level: "warn", want: zerolog.WarnLevel},
		{level: "error", want: zerolog.ErrorLevel},
		{level: "verbose", want: zerolog.InfoLevel},
		{level: "", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		l := LoggingConfig{Level: tt.level}
		if got := l.ParseLevel(); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
