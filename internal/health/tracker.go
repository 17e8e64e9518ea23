package health

import (
	"sync"

	"github.com/rs/zerolog"
)

// Tracker owns one CircuitBreaker per provider. Breakers are created lazily
// on first use and live for the process lifetime; there is deliberately no
// persistence across restarts.
type Tracker struct {
	circuits map[string]*CircuitBreaker
	logger   *zerolog.Logger
	config   BreakerConfig
	mu       sync.RWMutex
}

// NewTracker creates a Tracker applying cfg to every breaker it creates.
func NewTracker(cfg BreakerConfig, logger *zerolog.Logger) *Tracker {
	return &Tracker{
		circuits: make(map[string]*CircuitBreaker),
		config:   cfg,
		logger:   logger,
	}
}

// Circuit returns the breaker for a provider, creating it if needed.
func (t *Tracker) Circuit(provider string) *CircuitBreaker {
	t.mu.RLock()
	cb, ok := t.circuits[provider]
	t.mu.RUnlock()
	if ok {
		return cb
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if cb, ok = t.circuits[provider]; ok {
		return cb
	}

	cb = NewCircuitBreaker(provider, t.config, t.logger)
	t.circuits[provider] = cb
	return cb
}

// IsAvailableFunc returns a closure reporting whether the provider may be
// attempted. The closure is wired into the router's ProviderInfo so routing
// never touches breaker internals directly.
func (t *Tracker) IsAvailableFunc(provider string) func() bool {
	return func() bool {
		return t.Circuit(provider).IsAvailable()
	}
}

// GetState returns the current state for a provider. A provider without a
// breaker yet is CLOSED by definition.
func (t *Tracker) GetState(provider string) State {
	t.mu.RLock()
	cb, ok := t.circuits[provider]
	t.mu.RUnlock()
	if !ok {
		return StateClosed
	}
	return cb.State()
}

// RecordSuccess records a successful request for a provider.
func (t *Tracker) RecordSuccess(provider string) {
	t.Circuit(provider).RecordOutcome(nil)
}

// RecordFailure records a failed request for a provider.
func (t *Tracker) RecordFailure(provider string, err error) {
	t.Circuit(provider).RecordOutcome(err)
	if t.logger != nil {
		t.logger.Debug().
			Str("provider", provider).
			Str("state", t.GetState(provider).String()).
			Err(err).
			Msg("recorded failure")
	}
}

// AllStates returns a point-in-time view of every breaker's state.
func (t *Tracker) AllStates() map[string]State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	states := make(map[string]State, len(t.circuits))
	for provider, cb := range t.circuits {
		states[provider] = cb.State()
	}
	return states
}
