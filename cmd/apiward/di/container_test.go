package di

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTempConfigFile creates a temporary config file for testing.
func createTempConfigFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte(validConfig(dir)), 0o600)
	require.NoError(t, err)
	return path
}

// validConfig is a minimal valid configuration for testing.
func validConfig(dir string) string {
	return `
api:
  base_url: https://api.example.com
rate_limit:
  tier: authenticated
logging:
  level: info
  format: json
cache:
  mode: disk
  disk:
    dir: ` + filepath.Join(dir, "cache") + `
`
}

func TestNewContainer(t *testing.T) {
	t.Run("creates container with valid config", func(t *testing.T) {
		configPath := createTempConfigFile(t)

		container, err := NewContainer(configPath)
		require.NoError(t, err)
		require.NotNil(t, container)

		assert.NotNil(t, container.Injector())

		err = container.Shutdown()
		assert.NoError(t, err)
	})

	t.Run("creates container with empty path using defaults", func(t *testing.T) {
		container, err := NewContainer("")
		require.NoError(t, err)
		require.NotNil(t, container)

		cfgSvc, err := Invoke[*ConfigService](container)
		require.NoError(t, err)
		assert.NotNil(t, cfgSvc.Runtime.Get())

		_ = container.Shutdown()
	})

	t.Run("config load failure surfaces on invoke", func(t *testing.T) {
		dir := t.TempDir()
		badPath := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(badPath, []byte("api: [not a map"), 0o600))

		container, err := NewContainer(badPath)
		require.NoError(t, err)

		_, err = Invoke[*ConfigService](container)
		assert.Error(t, err)

		_ = container.Shutdown()
	})
}

func TestHealthCheck(t *testing.T) {
	configPath := createTempConfigFile(t)

	container, err := NewContainer(configPath)
	require.NoError(t, err)
	defer func() { _ = container.Shutdown() }()

	assert.NoError(t, container.HealthCheck())
}

func TestShutdownIdempotentServices(t *testing.T) {
	configPath := createTempConfigFile(t)

	container, err := NewContainer(configPath)
	require.NoError(t, err)

	// Resolve services so shutdown has something to tear down.
	_, err = Invoke[*ClientService](container)
	require.NoError(t, err)
	_, err = Invoke[*WatcherService](container)
	require.NoError(t, err)

	assert.NoError(t, container.Shutdown())
}
