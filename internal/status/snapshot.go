// Package status maintains and broadcasts the proxy's health snapshot.
//
// Every circuit state change produces a new immutable Snapshot; the latest
// one answers /health and is pushed to every /stream/heartbeat subscriber.
package status

import (
	"slices"
	"time"
)

// Overall is the aggregate health classification.
type Overall string

// Aggregate health values.
const (
	OverallHealthy  Overall = "healthy"
	OverallDegraded Overall = "degraded"
	OverallDown     Overall = "down"
)

// Circuit state names as they appear in snapshots.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// ProviderStatus summarizes one provider's circuit inside a snapshot.
type ProviderStatus struct {
	Name     string `json:"name"`
	State    string `json:"state"`
	Priority int    `json:"priority"`
}

// Snapshot is an immutable point-in-time summary of system health.
// Generation increases by one per published snapshot, so subscribers can
// assert ordering and detect what they missed across a reconnect.
type Snapshot struct {
	Timestamp      time.Time        `json:"timestamp"`
	ActiveProvider string           `json:"active_provider,omitempty"`
	Providers      []ProviderStatus `json:"providers"`
	Generation     uint64           `json:"generation"`
	Overall        Overall          `json:"overall"`
}

// Compute derives the aggregate classification and returns an unstamped
// snapshot (the Publisher assigns generation and timestamp):
//
//   - HEALTHY: the top-priority provider's circuit is closed.
//   - DEGRADED: the top-priority provider is open or half-open but at least
//     one other provider can still serve.
//   - DOWN: every provider's circuit is open, or none are configured.
func Compute(providers []ProviderStatus, active string) Snapshot {
	sorted := make([]ProviderStatus, len(providers))
	copy(sorted, providers)
	slices.SortStableFunc(sorted, func(a, b ProviderStatus) int {
		return b.Priority - a.Priority
	})

	return Snapshot{
		Providers:      sorted,
		ActiveProvider: active,
		Overall:        classify(sorted),
	}
}

func classify(sorted []ProviderStatus) Overall {
	if len(sorted) == 0 {
		return OverallDown
	}

	allOpen := true
	for _, p := range sorted {
		if p.State != StateOpen {
			allOpen = false
			break
		}
	}
	if allOpen {
		return OverallDown
	}

	if sorted[0].State == StateClosed {
		return OverallHealthy
	}
	return OverallDegraded
}
