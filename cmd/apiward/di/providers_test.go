package di

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiward/apiward/internal/cache"
	"github.com/apiward/apiward/internal/config"
)

func newTestContainer(t *testing.T) *Container {
	t.Helper()
	container, err := NewContainer(createTempConfigFile(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Shutdown() })
	return container
}

func TestNewConfigService(t *testing.T) {
	container := newTestContainer(t)

	cfgSvc, err := Invoke[*ConfigService](container)
	require.NoError(t, err)

	cfg := cfgSvc.Runtime.Get()
	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, config.TierAuthenticated, cfg.RateLimit.Tier)
}

func TestNewLimiterService(t *testing.T) {
	container := newTestContainer(t)

	limiterSvc, err := Invoke[*LimiterService](container)
	require.NoError(t, err)
	require.NotNil(t, limiterSvc.Limiter)

	// The authenticated tier bucket starts full.
	assert.True(t, limiterSvc.Limiter.TryAcquire(1))
}

func TestLimiterSharesUpstreamBudget(t *testing.T) {
	container := newTestContainer(t)

	coordSvc, err := Invoke[*CoordinatorService](container)
	require.NoError(t, err)
	limiterSvc, err := Invoke[*LimiterService](container)
	require.NoError(t, err)

	// Two lookups of the same budget name must observe one bucket.
	shared, err := coordSvc.Coordinator.Budget(UpstreamBudget)
	require.NoError(t, err)
	assert.Same(t, limiterSvc.Limiter, shared)

	require.NoError(t, shared.SetLimit(60, 1))
	require.True(t, limiterSvc.Limiter.TryAcquire(1))
	assert.False(t, shared.TryAcquire(1), "draining one view should drain the other")
}

func TestNewCacheService(t *testing.T) {
	container := newTestContainer(t)

	cacheSvc, err := Invoke[*CacheService](container)
	require.NoError(t, err)
	require.NotNil(t, cacheSvc.Cache)

	ctx := context.Background()
	require.NoError(t, cacheSvc.Cache.Set(ctx, "k", []byte(`{"v":1}`)))
	got, err := cacheSvc.Cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":1}`), got)

	_, ok := cacheSvc.Cache.(cache.StatsProvider)
	assert.True(t, ok)
}

func TestNewClientService(t *testing.T) {
	container := newTestContainer(t)

	clientSvc, err := Invoke[*ClientService](container)
	require.NoError(t, err)
	assert.NotNil(t, clientSvc.Client)
}

func TestNewWatcherService(t *testing.T) {
	t.Run("with config file", func(t *testing.T) {
		container := newTestContainer(t)

		watcherSvc, err := Invoke[*WatcherService](container)
		require.NoError(t, err)
		assert.NotNil(t, watcherSvc.Watcher)
	})

	t.Run("without config file", func(t *testing.T) {
		container, err := NewContainer("")
		require.NoError(t, err)
		t.Cleanup(func() { _ = container.Shutdown() })

		watcherSvc, err := Invoke[*WatcherService](container)
		require.NoError(t, err)
		assert.Nil(t, watcherSvc.Watcher)
	})
}
