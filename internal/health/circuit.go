package health

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// State is the circuit breaker state.
type State = gobreaker.State

// Breaker states.
const (
	StateClosed   = gobreaker.StateClosed
	StateOpen     = gobreaker.StateOpen
	StateHalfOpen = gobreaker.StateHalfOpen
)

// CircuitBreaker gates requests to a single upstream provider. It wraps a
// sony/gobreaker two-step breaker: Allow reserves a slot and hands back a
// done callback that records the outcome. The two-step form keeps the
// half-open trial atomic: with TrialRequests=1 two concurrent requests can
// never both probe a recovering provider.
type CircuitBreaker struct {
	cb       *gobreaker.TwoStepCircuitBreaker[struct{}]
	provider string
}

// NewCircuitBreaker creates a breaker for the named provider.
func NewCircuitBreaker(provider string, cfg BreakerConfig, logger *zerolog.Logger) *CircuitBreaker {
	threshold := cfg.GetFailureThreshold()
	trials := cfg.GetTrialRequests()

	settings := gobreaker.Settings{
		Name:        provider,
		MaxRequests: uint32(trials), //nolint:gosec // GetTrialRequests is always positive
		Timeout:     cfg.GetCooldown(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold) //nolint:gosec // GetFailureThreshold is always positive
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger == nil {
				return
			}
			event := logger.Info()
			if to == gobreaker.StateOpen {
				event = logger.Warn()
			}
			event.
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit state change")
		},
		IsSuccessful: func(err error) bool {
			// A canceled caller says nothing about provider health.
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &CircuitBreaker{
		cb:       gobreaker.NewTwoStepCircuitBreaker[struct{}](settings),
		provider: provider,
	}
}

// Allow reserves a request slot. It returns ErrCircuitOpen while the circuit
// is open (or the half-open trial budget is spent); otherwise the returned
// done callback must be called with the request outcome.
func (c *CircuitBreaker) Allow() (done func(err error), err error) {
	d, err := c.cb.Allow()
	if err != nil {
		return nil, ErrCircuitOpen
	}
	return d, nil
}

// IsAvailable reports whether the provider may currently be attempted.
// Open circuits transition to half-open lazily inside gobreaker once the
// cooldown elapses, so no timer is needed here.
func (c *CircuitBreaker) IsAvailable() bool {
	return c.cb.State() != StateOpen
}

// State returns the current breaker state.
func (c *CircuitBreaker) State() State {
	return c.cb.State()
}

// Provider returns the provider name this breaker guards.
func (c *CircuitBreaker) Provider() string {
	return c.provider
}

// RecordOutcome records a request outcome made outside the Allow/done flow,
// such as a watchdog-initiated probe. Returns false when the circuit is open
// and the outcome could not be recorded.
func (c *CircuitBreaker) RecordOutcome(err error) bool {
	done, allowErr := c.Allow()
	if allowErr != nil {
		return false
	}
	done(err)
	return true
}
