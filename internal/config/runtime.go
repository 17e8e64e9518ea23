package config

import "sync/atomic"

// RuntimeConfig is the read side of hot-reloadable configuration. Components
// that honor reloads hold this interface instead of a bare *Config pointer,
// which would go stale after the watcher swaps in a new file.
//
// Providers and listen addresses are immutable for the process lifetime;
// only safely-reloadable tunables (log level, cache TTL) are read through
// Get per-operation.
type RuntimeConfig interface {
	Get() *Config
}

// Runtime provides atomic access to the current configuration. Reads are
// lock-free; in-flight requests keep whichever config they already loaded.
type Runtime struct {
	ptr atomic.Pointer[Config]
}

var _ RuntimeConfig = (*Runtime)(nil)

// NewRuntime creates a Runtime holding the initial configuration.
func NewRuntime(initial *Config) *Runtime {
	r := &Runtime{}
	r.ptr.Store(initial)
	return r
}

// Get returns the current configuration.
func (r *Runtime) Get() *Config {
	return r.ptr.Load()
}

// Store swaps in a new configuration. Called by the config watcher.
func (r *Runtime) Store(cfg *Config) {
	r.ptr.Store(cfg)
}
