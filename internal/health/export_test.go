package health

// NewTestBreaker builds a breaker with explicit settings for tests.
// Zero values fall back to package defaults.
func NewTestBreaker(threshold, cooldownMS, trials int) *CircuitBreaker {
	cfg := BreakerConfig{
		FailureThreshold: threshold,
		CooldownMS:       cooldownMS,
		TrialRequests:    trials,
	}
	return NewCircuitBreaker("test-provider", cfg, nil)
}
