// Package health implements per-provider circuit breaking for wx-relay.
//
// Each upstream weather provider gets its own breaker with the usual
// CLOSED -> OPEN -> HALF_OPEN -> CLOSED life cycle. A provider that fails
// repeatedly is taken out of rotation for a cooldown window, then allowed a
// single trial request before the circuit fully closes again.
package health

import "time"

// Default breaker settings.
const (
	DefaultFailureThreshold = 3      // consecutive failures before the circuit opens
	DefaultCooldownMS       = 300000 // 5 minutes open before a trial is allowed
	DefaultTrialRequests    = 1      // requests permitted while half-open
)

// BreakerConfig defines circuit breaker behavior for all providers.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit. Default: 3.
	FailureThreshold int `yaml:"failure_threshold" toml:"failure_threshold"`

	// CooldownMS is how long (milliseconds) the circuit stays open before a
	// trial request is permitted. Default: 300000 (5 minutes).
	CooldownMS int `yaml:"cooldown_ms" toml:"cooldown_ms"`

	// TrialRequests is the number of requests allowed while half-open.
	// Default: 1 — a single trial decides whether the circuit closes.
	TrialRequests int `yaml:"trial_requests" toml:"trial_requests"`
}

// GetFailureThreshold returns the configured threshold or the default.
func (c *BreakerConfig) GetFailureThreshold() int {
	if c.FailureThreshold <= 0 {
		return DefaultFailureThreshold
	}
	return c.FailureThreshold
}

// GetCooldown returns the open-state cooldown as a time.Duration.
func (c *BreakerConfig) GetCooldown() time.Duration {
	if c.CooldownMS <= 0 {
		return time.Duration(DefaultCooldownMS) * time.Millisecond
	}
	return time.Duration(c.CooldownMS) * time.Millisecond
}

// GetTrialRequests returns the half-open trial budget or the default.
func (c *BreakerConfig) GetTrialRequests() int {
	if c.TrialRequests <= 0 {
		return DefaultTrialRequests
	}
	return c.TrialRequests
}

// Config is the health section of the wx-relay configuration.
type Config struct {
	Breaker BreakerConfig `yaml:"circuit_breaker" toml:"circuit_breaker"`
}
