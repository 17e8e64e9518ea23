package router_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxrelay/wxrelay/internal/config"
	"github.com/wxrelay/wxrelay/internal/health"
	"github.com/wxrelay/wxrelay/internal/router"
	"github.com/wxrelay/wxrelay/internal/upstream"
)

type fakeFetcher struct {
	errs  map[string]error
	calls []string
	mu    sync.Mutex
}

func (f *fakeFetcher) Fetch(_ context.Context, p upstream.Provider, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p.Name)
	if err := f.errs[p.Name]; err != nil {
		return nil, err
	}
	return []byte(`{"provider":"` + p.Name + `"}`), nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testConfig() *config.Config {
	return &config.Config{
		Providers: []config.ProviderConfig{
			{Name: "secondary", BaseURL: "https://secondary.example.com", Priority: 1, Enabled: true},
			{Name: "primary", BaseURL: "https://primary.example.com", Priority: 2, Enabled: true},
		},
	}
}

func newOrchestrator(t *testing.T, fetcher *fakeFetcher, onAttempt func()) (*router.Orchestrator, *health.Tracker) {
	t.Helper()

	tracker := health.NewTracker(health.BreakerConfig{FailureThreshold: 3, CooldownMS: 300000}, nil)
	providers := router.BuildProviders(testConfig(), tracker.IsAvailableFunc)
	return router.NewOrchestrator(providers, fetcher, tracker, onAttempt, nil), tracker
}

func TestBuildProvidersOrdersByPriority(t *testing.T) {
	t.Parallel()

	tracker := health.NewTracker(health.BreakerConfig{}, nil)
	providers := router.BuildProviders(testConfig(), tracker.IsAvailableFunc)

	require.Len(t, providers, 2)
	assert.Equal(t, "primary", providers[0].Provider.Name)
	assert.Equal(t, "secondary", providers[1].Provider.Name)
}

func TestFetchPrefersHighestPriority(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	orch, _ := newOrchestrator(t, fetcher, nil)

	result, err := orch.Fetch(context.Background(), "London")

	require.NoError(t, err)
	assert.Equal(t, "primary", result.Provider)
	assert.Equal(t, []string{"primary"}, fetcher.calls, "secondary should not be touched")
}

func TestFetchFailsOverToNextProvider(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{errs: map[string]error{
		"primary": &upstream.UpstreamError{Provider: "primary", StatusCode: 500},
	}}
	orch, tracker := newOrchestrator(t, fetcher, nil)

	result, err := orch.Fetch(context.Background(), "London")

	require.NoError(t, err)
	assert.Equal(t, "secondary", result.Provider)
	assert.Equal(t, []string{"primary", "secondary"}, fetcher.calls)
	assert.Equal(t, health.StateClosed, tracker.GetState("primary"), "one failure should not open the circuit")
}

func TestFetchSkipsOpenCircuit(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	orch, tracker := newOrchestrator(t, fetcher, nil)

	for range 3 {
		tracker.RecordFailure("primary", &upstream.UpstreamError{Provider: "primary", StatusCode: 500})
	}
	require.Equal(t, health.StateOpen, tracker.GetState("primary"))

	result, err := orch.Fetch(context.Background(), "London")

	require.NoError(t, err)
	assert.Equal(t, "secondary", result.Provider)
	assert.Equal(t, []string{"secondary"}, fetcher.calls, "open circuit must cost no network call")
}

func TestFetchAllCircuitsOpen(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	orch, tracker := newOrchestrator(t, fetcher, nil)

	for _, name := range []string{"primary", "secondary"} {
		for range 3 {
			tracker.RecordFailure(name, &upstream.UpstreamError{Provider: name, StatusCode: 500})
		}
	}

	_, err := orch.Fetch(context.Background(), "London")

	assert.ErrorIs(t, err, router.ErrAllProvidersUnavailable)
	assert.Zero(t, fetcher.callCount(), "no provider should be contacted")
}

func TestFetchAllProvidersFailing(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{errs: map[string]error{
		"primary":   &upstream.UpstreamError{Provider: "primary", StatusCode: 500},
		"secondary": &upstream.UpstreamError{Provider: "secondary", StatusCode: 500},
	}}
	orch, _ := newOrchestrator(t, fetcher, nil)

	_, err := orch.Fetch(context.Background(), "London")

	assert.ErrorIs(t, err, router.ErrAllProvidersUnavailable)
	assert.Equal(t, []string{"primary", "secondary"}, fetcher.calls)
}

func TestFetchNoProviders(t *testing.T) {
	t.Parallel()

	tracker := health.NewTracker(health.BreakerConfig{}, nil)
	orch := router.NewOrchestrator(nil, &fakeFetcher{}, tracker, nil, nil)

	_, err := orch.Fetch(context.Background(), "London")

	assert.ErrorIs(t, err, router.ErrNoProviders)
}

func TestFetchCanceledContextDoesNotFailOver(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{errs: map[string]error{"primary": context.Canceled}}
	orch, tracker := newOrchestrator(t, fetcher, nil)

	_, err := orch.Fetch(context.Background(), "London")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"primary"}, fetcher.calls, "a canceled request must not cascade to other providers")
	assert.Equal(t, health.StateClosed, tracker.GetState("primary"))
}

func TestFetchNotifiesAfterEveryAttempt(t *testing.T) {
	t.Parallel()

	var attempts int
	fetcher := &fakeFetcher{errs: map[string]error{
		"primary": &upstream.UpstreamError{Provider: "primary", StatusCode: 500},
	}}
	orch, _ := newOrchestrator(t, fetcher, func() { attempts++ })

	_, err := orch.Fetch(context.Background(), "London")

	require.NoError(t, err)
	assert.Equal(t, 2, attempts, "one notification per recorded outcome")
}
