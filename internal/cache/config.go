package cache

import "time"

// Defaults for the Ristretto backend, sized for small JSON payloads.
const (
	DefaultNumCounters = 1e5
	DefaultMaxCost     = 16 << 20 // 16 MB
	DefaultBufferItems = 64
	DefaultTTLMS       = 30000 // 30 seconds of acceptable staleness
)

// Config is the cache section of the wx-relay configuration.
type Config struct {
	// Enabled toggles response caching. Nil means enabled.
	Enabled *bool `yaml:"enabled" toml:"enabled"`

	// TTLMS is how long (milliseconds) a cached /data response stays fresh.
	TTLMS int `yaml:"ttl_ms" toml:"ttl_ms"`

	// NumCounters is the number of admission counters Ristretto keeps.
	NumCounters int64 `yaml:"num_counters" toml:"num_counters"`

	// MaxCost is the cache size budget in bytes.
	MaxCost int64 `yaml:"max_cost" toml:"max_cost"`

	// BufferItems is the Ristretto Get-buffer size.
	BufferItems int64 `yaml:"buffer_items" toml:"buffer_items"`
}

// IsEnabled reports whether caching is on. Defaults to true.
func (c *Config) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// GetTTL returns the response TTL with default fallback.
func (c *Config) GetTTL() time.Duration {
	if c.TTLMS <= 0 {
		return time.Duration(DefaultTTLMS) * time.Millisecond
	}
	return time.Duration(c.TTLMS) * time.Millisecond
}

// New builds a Cache from config: Ristretto when enabled, noop otherwise.
func New(cfg Config) (Cache, error) {
	if !cfg.IsEnabled() {
		return NewNoop(), nil
	}
	return newRistrettoCache(cfg)
}
