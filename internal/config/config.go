// Package config provides configuration loading and parsing for wx-relay.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/wxrelay/wxrelay/internal/cache"
	"github.com/wxrelay/wxrelay/internal/health"
)

// Configuration errors.
var (
	ErrProviderNameRequired = errors.New("config: provider name is required")
	ErrProviderURLRequired  = errors.New("config: provider base_url is required")
	ErrNoProvidersEnabled   = errors.New("config: no enabled providers")
)

// DuplicateProviderError is returned when two providers share a name.
type DuplicateProviderError struct {
	Name string
}

func (e DuplicateProviderError) Error() string {
	return fmt.Sprintf("config: duplicate provider name %q", e.Name)
}

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Config represents the complete wx-relay configuration. One file configures
// both services; `wxrelay serve` reads Providers/Server, `wxrelay watch`
// reads Watchdog, and Health/Cache/Logging apply to both.
type Config struct {
	Providers []ProviderConfig `yaml:"providers" toml:"providers"`
	Server    ServerConfig     `yaml:"server" toml:"server"`
	Watchdog  WatchdogConfig   `yaml:"watchdog" toml:"watchdog"`
	Health    health.Config    `yaml:"health" toml:"health"`
	Cache     cache.Config     `yaml:"cache" toml:"cache"`
	Logging   LoggingConfig    `yaml:"logging" toml:"logging"`
}

// ProviderConfig defines one upstream weather data provider.
//
// Providers are loaded at startup and immutable for the process lifetime;
// hot-reload never touches them.
type ProviderConfig struct {
	// Name identifies the provider in logs, snapshots, and circuit state.
	Name string `yaml:"name" toml:"name"`

	// BaseURL is the provider's current-conditions endpoint.
	BaseURL string `yaml:"base_url" toml:"base_url"`

	// Key is the provider credential (supports ${ENV_VAR} expansion).
	Key string `yaml:"key" toml:"key"`

	// QueryParam is the URL parameter carrying the requested location.
	// Default "q"; weatherstack uses "query".
	QueryParam string `yaml:"query_param" toml:"query_param"`

	// KeyParam is the URL parameter carrying the credential.
	// Default "key"; weatherstack uses "access_key".
	KeyParam string `yaml:"key_param" toml:"key_param"`

	// Priority ranks providers for failover: higher is preferred. Priority
	// is fixed configuration and never reordered based on runtime health.
	Priority int `yaml:"priority" toml:"priority"`

	// Enabled toggles the provider without removing its block.
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

// GetQueryParam returns the location parameter name with default fallback.
func (p *ProviderConfig) GetQueryParam() string {
	if p.QueryParam == "" {
		return "q"
	}
	return p.QueryParam
}

// GetKeyParam returns the credential parameter name with default fallback.
func (p *ProviderConfig) GetKeyParam() string {
	if p.KeyParam == "" {
		return "key"
	}
	return p.KeyParam
}

// Validate checks a provider block for errors.
func (p *ProviderConfig) Validate() error {
	if p.Name == "" {
		return ErrProviderNameRequired
	}
	if p.BaseURL == "" {
		return ErrProviderURLRequired
	}
	return nil
}

// EnabledProviders returns the providers that are switched on.
func (c *Config) EnabledProviders() []ProviderConfig {
	return lo.Filter(c.Providers, func(p ProviderConfig, _ int) bool {
		return p.Enabled
	})
}

// Validate checks the whole configuration for startup errors.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Providers))
	for i := range c.Providers {
		p := &c.Providers[i]
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := seen[p.Name]; dup {
			return DuplicateProviderError{Name: p.Name}
		}
		seen[p.Name] = struct{}{}
	}
	if len(c.EnabledProviders()) == 0 {
		return ErrNoProvidersEnabled
	}
	return nil
}

// ServerConfig defines proxy-side settings.
type ServerConfig struct {
	// Listen is the proxy bind address. Default ":8000".
	Listen string `yaml:"listen" toml:"listen"`

	// TimeoutMS bounds a single provider fetch. Default: 5000.
	TimeoutMS int `yaml:"timeout_ms" toml:"timeout_ms"`
}

// GetListen returns the bind address with default fallback.
func (s *ServerConfig) GetListen() string {
	if s.Listen == "" {
		return ":8000"
	}
	return s.Listen
}

// GetFetchTimeout returns the per-provider fetch timeout.
func (s *ServerConfig) GetFetchTimeout() time.Duration {
	return s.GetTimeoutOption().OrElse(5 * time.Second)
}

// GetTimeoutOption returns the fetch timeout as an Option.
// Returns None if TimeoutMS is zero (use default).
func (s *ServerConfig) GetTimeoutOption() mo.Option[time.Duration] {
	if s.TimeoutMS <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(s.TimeoutMS) * time.Millisecond)
}

// WatchdogConfig defines the heartbeat service settings. The millisecond
// fields map onto the seconds-granularity environment knobs the service has
// always recognized (HEALTH_CHECK_INTERVAL, WS_RECONNECT_INTERVAL,
// HTTP_TIMEOUT, WS_TIMEOUT, MAX_BACKOFF); see ApplyEnv.
type WatchdogConfig struct {
	// Listen is the watchdog bind address. Default ":8001".
	Listen string `yaml:"listen" toml:"listen"`

	// ProxyURL is the base URL of the proxy under watch.
	// Default "http://localhost:8000".
	ProxyURL string `yaml:"proxy_url" toml:"proxy_url"`

	// HealthCheckIntervalMS is the direct /health probe period. Default 5000.
	HealthCheckIntervalMS int `yaml:"health_check_interval_ms" toml:"health_check_interval_ms"`

	// ReconnectIntervalMS is the backoff base between reconnect attempts.
	// Default 1000.
	ReconnectIntervalMS int `yaml:"reconnect_interval_ms" toml:"reconnect_interval_ms"`

	// HTTPTimeoutMS bounds a single /health probe. Default 5000.
	HTTPTimeoutMS int `yaml:"http_timeout_ms" toml:"http_timeout_ms"`

	// WSTimeoutMS is the per-message read deadline on the heartbeat stream.
	// Default 30000.
	WSTimeoutMS int `yaml:"ws_timeout_ms" toml:"ws_timeout_ms"`

	// MaxBackoffMS caps the reconnect delay. Default 60000.
	MaxBackoffMS int `yaml:"max_backoff_ms" toml:"max_backoff_ms"`

	// ConnectTimeoutMS bounds the stream dial. Default 10000.
	ConnectTimeoutMS int `yaml:"connect_timeout_ms" toml:"connect_timeout_ms"`
}

// GetListen returns the watchdog bind address with default fallback.
func (w *WatchdogConfig) GetListen() string {
	if w.Listen == "" {
		return ":8001"
	}
	return w.Listen
}

// GetProxyURL returns the proxy base URL with default fallback.
func (w *WatchdogConfig) GetProxyURL() string {
	if w.ProxyURL == "" {
		return "http://localhost:8000"
	}
	return strings.TrimRight(w.ProxyURL, "/")
}

// HealthURL returns the proxy health endpoint URL.
func (w *WatchdogConfig) HealthURL() string {
	return w.GetProxyURL() + "/health"
}

// StreamURL returns the proxy heartbeat stream URL in ws:// form.
func (w *WatchdogConfig) StreamURL() string {
	base := w.GetProxyURL()
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/stream/heartbeat"
}

func durationMS(ms, defaultMS int) time.Duration {
	if ms <= 0 {
		ms = defaultMS
	}
	return time.Duration(ms) * time.Millisecond
}

// GetHealthCheckInterval returns the probe period.
func (w *WatchdogConfig) GetHealthCheckInterval() time.Duration {
	return durationMS(w.HealthCheckIntervalMS, 5000)
}

// GetReconnectInterval returns the backoff base.
func (w *WatchdogConfig) GetReconnectInterval() time.Duration {
	return durationMS(w.ReconnectIntervalMS, 1000)
}

// GetHTTPTimeout returns the probe timeout.
func (w *WatchdogConfig) GetHTTPTimeout() time.Duration {
	return durationMS(w.HTTPTimeoutMS, 5000)
}

// GetWSTimeout returns the stream read deadline.
func (w *WatchdogConfig) GetWSTimeout() time.Duration {
	return durationMS(w.WSTimeoutMS, 30000)
}

// GetMaxBackoff returns the reconnect delay cap.
func (w *WatchdogConfig) GetMaxBackoff() time.Duration {
	return durationMS(w.MaxBackoffMS, 60000)
}

// GetConnectTimeout returns the stream dial timeout.
func (w *WatchdogConfig) GetConnectTimeout() time.Duration {
	return durationMS(w.ConnectTimeoutMS, 10000)
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json, console, pretty
	Output string `yaml:"output" toml:"output"` // stdout, stderr, or file path
	Pretty bool   `yaml:"pretty" toml:"pretty"` // force colored console output
}

// ParseLevel converts the configured level to zerolog.Level.
// Returns zerolog.InfoLevel for unknown values.
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
