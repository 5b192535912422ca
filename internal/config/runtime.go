package config

import "sync/atomic"

// Runtime provides atomic access to configuration for hot-reload support.
// It uses sync/atomic.Pointer for lock-free reads: in-flight requests finish
// with the config they started with while new requests observe the update.
//
// Example usage:
//
//	runtime := config.NewRuntime(initialConfig)
//
//	// In a component, per operation:
//	cfg := runtime.Get()
//	timeout := cfg.RateLimit.GetAcquireTimeout()
//
//	// In the config watcher callback:
//	runtime.Store(newConfig)
type Runtime struct {
	ptr atomic.Pointer[Config]
}

// NewRuntime creates a Runtime with the given initial configuration.
func NewRuntime(initial *Config) *Runtime {
	r := &Runtime{}
	r.ptr.Store(initial)
	return r
}

// Get returns the current configuration atomically. Components should call
// Get per operation to observe the latest configuration after hot-reload.
func (r *Runtime) Get() *Config {
	return r.ptr.Load()
}

// Store atomically replaces the configuration. Readers see either the old
// config or the new one, never a mix.
func (r *Runtime) Store(cfg *Config) {
	r.ptr.Store(cfg)
}

var _ RuntimeConfig = (*Runtime)(nil)
