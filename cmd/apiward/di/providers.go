package di

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/apiward/apiward/internal/backoff"
	"github.com/apiward/apiward/internal/cache"
	"github.com/apiward/apiward/internal/client"
	"github.com/apiward/apiward/internal/config"
	"github.com/apiward/apiward/internal/ratelimit"
)

// Service wrapper types for DI registration.
// These provide type safety and allow distinguishing between similar types.

// ConfigService wraps the runtime configuration handle.
type ConfigService struct {
	Runtime *config.Runtime
}

// LoggerService wraps the zerolog logger for DI.
type LoggerService struct {
	Logger *zerolog.Logger
}

// CoordinatorService wraps the coordinator handing out named rate budgets.
// Every limiter in the process is obtained through it, so components naming
// the same budget share one bucket.
type CoordinatorService struct {
	Coordinator ratelimit.Coordinator
}

// LimiterService wraps the limiter for the upstream API's rate budget.
type LimiterService struct {
	Limiter ratelimit.Limiter
}

// CacheService wraps the cache implementation.
type CacheService struct {
	Cache cache.Cache
}

// PolicyService wraps the retry backoff policy.
type PolicyService struct {
	Policy *backoff.Policy
}

// ClientService wraps the API client.
type ClientService struct {
	Client *client.Client
}

// WatcherService wraps the config file watcher. Nil Watcher means no
// config file is on disk to watch.
type WatcherService struct {
	Watcher *config.Watcher
}

// RegisterSingletons registers all service providers as singletons.
// Services are registered in dependency order:
// 1. Config (no dependencies)
// 2. Logger (depends on Config)
// 3. Coordinator (depends on Config, Logger)
// 4. Limiter (depends on Coordinator)
// 5. Cache (depends on Config, Logger)
// 6. Policy (depends on Config)
// 7. Client (depends on Config, Logger, Limiter, Cache, Policy)
// 8. Watcher (depends on Config, Logger, Limiter).
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewLogger)
	do.Provide(i, NewCoordinator)
	do.Provide(i, NewLimiter)
	do.Provide(i, NewCache)
	do.Provide(i, NewPolicy)
	do.Provide(i, NewClient)
	do.Provide(i, NewWatcher)
}

// NewConfig loads the configuration from the config path. An empty path
// falls back to built-in defaults so the CLI works without a config file.
func NewConfig(i do.Injector) (*ConfigService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)

	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		cfg = config.Default()
	} else {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	return &ConfigService{Runtime: config.NewRuntime(cfg)}, nil
}

// NewLogger creates the zerolog logger from configuration and installs it
// as the process-wide default, including the component loggers used by the
// limiter and cache packages.
func NewLogger(i do.Injector) (*LoggerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	logger, err := client.NewLogger(cfgSvc.Runtime.Get().Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	log.Logger = logger
	zerolog.DefaultContextLogger = &logger
	ratelimit.SetLogger(&logger)
	cache.SetLogger(&logger)

	return &LoggerService{Logger: &logger}, nil
}

// UpstreamBudget names the rate budget shared by everything talking to the
// upstream API.
const UpstreamBudget = "upstream"

// NewCoordinator creates the process-local budget coordinator. Its factory
// builds a token bucket from the configured tier or override; the factory
// runs once per budget name, so repeated lookups share one bucket.
func NewCoordinator(i do.Injector) (*CoordinatorService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	do.MustInvoke[*LoggerService](i)

	factory := func(string) (ratelimit.Limiter, error) {
		rl := cfgSvc.Runtime.Get().RateLimit
		rpm, err := rl.EffectiveRPM()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve rate limit: %w", err)
		}
		burst, err := rl.EffectiveBurst()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve burst: %w", err)
		}

		var opts []ratelimit.Option
		if wf, ok := rl.GetWarnFractionOption().Get(); ok {
			opts = append(opts, ratelimit.WithWarnFraction(wf))
		}
		if floor, ok := rl.GetFloorOption().Get(); ok {
			opts = append(opts, ratelimit.WithFloor(floor))
		}

		return ratelimit.NewTokenBucket(rpm, burst, opts...)
	}

	return &CoordinatorService{Coordinator: ratelimit.NewProcessLocal(factory)}, nil
}

// NewLimiter resolves the upstream API's rate budget from the coordinator.
func NewLimiter(i do.Injector) (*LimiterService, error) {
	coordSvc := do.MustInvoke[*CoordinatorService](i)

	limiter, err := coordSvc.Coordinator.Budget(UpstreamBudget)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	return &LimiterService{Limiter: limiter}, nil
}

// NewCache creates the cache based on configuration.
func NewCache(i do.Injector) (*CacheService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	do.MustInvoke[*LoggerService](i)

	c, err := cache.New(cfgSvc.Runtime.Get().Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	return &CacheService{Cache: c}, nil
}

// Shutdown implements do.Shutdowner for graceful cache cleanup.
func (c *CacheService) Shutdown() error {
	if c.Cache != nil {
		return c.Cache.Close()
	}
	return nil
}

// NewPolicy creates the retry backoff policy from configuration.
func NewPolicy(i do.Injector) (*PolicyService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	retry := cfgSvc.Runtime.Get().Retry
	policy, err := backoff.NewPolicy(retry.GetBaseDelay(), retry.GetMaxDelay(), retry.GetMaxAttempts())
	if err != nil {
		return nil, fmt.Errorf("failed to create retry policy: %w", err)
	}

	return &PolicyService{Policy: policy}, nil
}

// NewClient assembles the API client from its collaborators.
func NewClient(i do.Injector) (*ClientService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)
	limiterSvc := do.MustInvoke[*LimiterService](i)
	cacheSvc := do.MustInvoke[*CacheService](i)
	policySvc := do.MustInvoke[*PolicyService](i)

	c := client.New(
		cfgSvc.Runtime,
		limiterSvc.Limiter,
		policySvc.Policy,
		cacheSvc.Cache,
		client.WithLogger(*loggerSvc.Logger),
	)

	return &ClientService{Client: c}, nil
}

// NewWatcher creates the config file watcher that feeds hot reloads into
// the runtime handle. With no config file on disk there is nothing to
// watch and the service carries a nil Watcher.
func NewWatcher(i do.Injector) (*WatcherService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)
	if path == "" {
		return &WatcherService{}, nil
	}

	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)
	limiterSvc := do.MustInvoke[*LimiterService](i)

	w, err := config.NewWatcher(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}

	w.OnReload(func(cfg *config.Config) error {
		cfgSvc.Runtime.Store(cfg)

		// Retune the bucket so rate changes apply without a restart.
		rpm, err := cfg.RateLimit.EffectiveRPM()
		if err != nil {
			return err
		}
		burst, err := cfg.RateLimit.EffectiveBurst()
		if err != nil {
			return err
		}
		if err := limiterSvc.Limiter.SetLimit(rpm, burst); err != nil {
			return err
		}

		loggerSvc.Logger.Info().
			Str("path", path).
			Int("rpm", rpm).
			Int("burst", burst).
			Msg("configuration reloaded")
		return nil
	})

	return &WatcherService{Watcher: w}, nil
}

// Shutdown implements do.Shutdowner for graceful watcher cleanup.
func (w *WatcherService) Shutdown() error {
	if w.Watcher != nil {
		return w.Watcher.Close()
	}
	return nil
}
