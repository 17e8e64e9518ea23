package router

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/wxrelay/wxrelay/internal/health"
	"github.com/wxrelay/wxrelay/internal/upstream"
)

// Fetcher performs a single bounded fetch against one provider.
type Fetcher interface {
	Fetch(ctx context.Context, p upstream.Provider, location string) ([]byte, error)
}

// Result is a successful fetch with the provider that served it.
type Result struct {
	Provider string
	Payload  []byte
}

// Orchestrator walks providers in priority order until one answers.
//
// Each attempt goes through the provider's circuit breaker: Allow reserves
// a slot before the network call and the outcome is recorded immediately
// after, so a provider whose circuit is open costs nothing. One request
// attempts each provider at most once; there are no retries within a
// provider.
type Orchestrator struct {
	fetcher   Fetcher
	tracker   *health.Tracker
	onAttempt func()
	logger    *zerolog.Logger
	providers []ProviderInfo
}

// NewOrchestrator creates an Orchestrator over a fixed provider order.
// onAttempt, if non-nil, runs after every recorded outcome so the status
// publisher can refresh; it must not block.
func NewOrchestrator(providers []ProviderInfo, fetcher Fetcher, tracker *health.Tracker, onAttempt func(), logger *zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		providers: providers,
		fetcher:   fetcher,
		tracker:   tracker,
		onAttempt: onAttempt,
		logger:    logger,
	}
}

// Providers returns the fixed attempt order.
func (o *Orchestrator) Providers() []ProviderInfo {
	return o.providers
}

// Fetch serves one location request, failing over across providers.
// When every circuit is open the call returns ErrAllProvidersUnavailable
// without any network traffic.
func (o *Orchestrator) Fetch(ctx context.Context, location string) (*Result, error) {
	if len(o.providers) == 0 {
		return nil, ErrNoProviders
	}

	for _, info := range o.providers {
		name := info.Provider.Name

		done, allowErr := o.tracker.Circuit(name).Allow()
		if allowErr != nil {
			o.debug(name, "circuit open, skipping")
			continue
		}

		payload, err := o.fetcher.Fetch(ctx, info.Provider, location)
		done(err)
		o.notify()

		if err == nil {
			return &Result{Provider: name, Payload: payload}, nil
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}

		if o.logger != nil {
			o.logger.Warn().
				Str("provider", name).
				Err(err).
				Msg("provider failed, trying next")
		}
	}

	return nil, ErrAllProvidersUnavailable
}

func (o *Orchestrator) notify() {
	if o.onAttempt != nil {
		o.onAttempt()
	}
}

func (o *Orchestrator) debug(provider, msg string) {
	if o.logger != nil {
		o.logger.Debug().Str("provider", provider).Msg(msg)
	}
}
