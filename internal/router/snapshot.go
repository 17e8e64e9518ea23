package router

import (
	"github.com/wxrelay/wxrelay/internal/health"
	"github.com/wxrelay/wxrelay/internal/status"
)

// StatusSnapshot derives an unstamped status snapshot from the current
// breaker states. The active provider is the highest-priority one whose
// circuit admits requests, or empty when none does.
func StatusSnapshot(providers []ProviderInfo, tracker *health.Tracker) status.Snapshot {
	statuses := make([]status.ProviderStatus, 0, len(providers))
	active := ""
	for _, info := range providers {
		name := info.Provider.Name
		state := tracker.GetState(name)
		if active == "" && state != health.StateOpen {
			active = name
		}
		statuses = append(statuses, status.ProviderStatus{
			Name:     name,
			State:    state.String(),
			Priority: info.Provider.Priority,
		})
	}
	return status.Compute(statuses, active)
}
