// Package router selects upstream providers and orchestrates failover.
//
// Selection is strictly priority-ordered: the orchestrator walks providers
// from highest to lowest priority and attempts each one whose circuit admits
// the request. Health never reorders the list, it only gates which entries
// are attempted.
package router

import (
	"errors"
	"slices"

	"github.com/samber/lo"

	"github.com/wxrelay/wxrelay/internal/config"
	"github.com/wxrelay/wxrelay/internal/upstream"
)

// Router errors.
var (
	// ErrNoProviders means no enabled providers are configured.
	ErrNoProviders = errors.New("router: no providers configured")

	// ErrAllProvidersUnavailable means every provider was either gated by an
	// open circuit or failed during this request.
	ErrAllProvidersUnavailable = errors.New("router: all providers unavailable")
)

// ProviderInfo pairs a provider with its availability gate. IsAvailable is a
// closure over the provider's circuit so the router never inspects breaker
// internals.
type ProviderInfo struct {
	IsAvailable func() bool
	Provider    upstream.Provider
}

// BuildProviders resolves the enabled providers from cfg into a fixed,
// priority-descending attempt order. availableFor supplies the circuit gate
// per provider name.
func BuildProviders(cfg *config.Config, availableFor func(name string) func() bool) []ProviderInfo {
	infos := lo.Map(cfg.EnabledProviders(), func(pc config.ProviderConfig, _ int) ProviderInfo {
		return ProviderInfo{
			Provider:    upstream.FromConfig(pc),
			IsAvailable: availableFor(pc.Name),
		}
	})

	// Ties break by config order; SortStableFunc keeps it deterministic.
	slices.SortStableFunc(infos, func(a, b ProviderInfo) int {
		return b.Provider.Priority - a.Provider.Priority
	})
	return infos
}
