package watchdog_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxrelay/wxrelay/internal/config"
	"github.com/wxrelay/wxrelay/internal/status"
	"github.com/wxrelay/wxrelay/internal/watchdog"
)

type captureSink struct {
	events []watchdog.Event
	mu     sync.Mutex
}

func (s *captureSink) Notify(_ context.Context, event watchdog.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) kinds() []watchdog.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]watchdog.EventKind, len(s.events))
	for i, e := range s.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func (s *captureSink) has(kind watchdog.EventKind) bool {
	for _, k := range s.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// startProxyStub serves /stream/heartbeat from a publisher the test controls.
func startProxyStub(t *testing.T, publisher *status.Publisher) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.Handle("GET /stream/heartbeat", status.StreamHandler(publisher, nil))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func watchdogConfigFor(serverURL string) config.WatchdogConfig {
	return config.WatchdogConfig{
		ProxyURL:            serverURL,
		ReconnectIntervalMS: 5,
		MaxBackoffMS:        50,
		WSTimeoutMS:         2000,
		ConnectTimeoutMS:    1000,
	}
}

func healthyTestSnapshot() status.Snapshot {
	return status.Compute([]status.ProviderStatus{
		{Name: "weatherapi", State: status.StateClosed, Priority: 2},
	}, "weatherapi")
}

func downTestSnapshot() status.Snapshot {
	return status.Compute([]status.ProviderStatus{
		{Name: "weatherapi", State: status.StateOpen, Priority: 2},
	}, "")
}

func TestHeartbeatConnectsAndRelays(t *testing.T) {
	t.Parallel()

	publisher := status.NewPublisher(nil)
	publisher.Publish(healthyTestSnapshot())
	server := startProxyStub(t, publisher)

	relay := status.NewPublisher(nil)
	client := watchdog.NewHeartbeatClient(watchdogConfigFor(server.URL), &captureSink{}, relay, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	require.Eventually(t, func() bool {
		return client.State() == watchdog.StateConnected
	}, 3*time.Second, 10*time.Millisecond)

	// The on-connect snapshot lands on the relay hub.
	require.Eventually(t, func() bool {
		return relay.Current().Generation > 0
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, status.OverallHealthy, relay.Current().Overall)
	assert.Zero(t, client.ConsecutiveFailures())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.Equal(t, watchdog.StateDisconnected, client.State())
}

func TestHeartbeatAlertsOnStatusTransitions(t *testing.T) {
	t.Parallel()

	publisher := status.NewPublisher(nil)
	publisher.Publish(healthyTestSnapshot())
	server := startProxyStub(t, publisher)

	sink := &captureSink{}
	client := watchdog.NewHeartbeatClient(watchdogConfigFor(server.URL), sink, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	require.Eventually(t, func() bool {
		return client.State() == watchdog.StateConnected
	}, 3*time.Second, 10*time.Millisecond)

	publisher.Publish(downTestSnapshot())
	require.Eventually(t, func() bool {
		return sink.has(watchdog.EventStatusDegraded)
	}, 3*time.Second, 10*time.Millisecond)

	publisher.Publish(healthyTestSnapshot())
	require.Eventually(t, func() bool {
		return sink.has(watchdog.EventStatusRecovered)
	}, 3*time.Second, 10*time.Millisecond)
}

func TestHeartbeatReconnectsAfterDrop(t *testing.T) {
	t.Parallel()

	publisher := status.NewPublisher(nil)
	publisher.Publish(healthyTestSnapshot())

	mux := http.NewServeMux()
	mux.Handle("GET /stream/heartbeat", status.StreamHandler(publisher, nil))
	server := httptest.NewUnstartedServer(mux)
	// httptest stops tracking hijacked connections, so CloseClientConnections
	// cannot reach the upgraded WebSocket; track them here to kill them below.
	var connMu sync.Mutex
	conns := make(map[net.Conn]struct{})
	server.Config.ConnState = func(c net.Conn, cs http.ConnState) {
		connMu.Lock()
		defer connMu.Unlock()
		switch cs {
		case http.StateNew:
			conns[c] = struct{}{}
		case http.StateClosed:
			delete(conns, c)
		}
	}
	server.Start()
	t.Cleanup(server.Close)

	sink := &captureSink{}
	client := watchdog.NewHeartbeatClient(watchdogConfigFor(server.URL), sink, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	require.Eventually(t, func() bool {
		return client.State() == watchdog.StateConnected
	}, 3*time.Second, 10*time.Millisecond)

	// Kill every open connection; the client must notice and reconnect.
	connMu.Lock()
	for c := range conns {
		_ = c.Close()
	}
	connMu.Unlock()

	require.Eventually(t, func() bool {
		return sink.has(watchdog.EventStreamDisconnected)
	}, 3*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return client.State() == watchdog.StateConnected
	}, 3*time.Second, 10*time.Millisecond, "client should reconnect after the drop")
}

func TestHeartbeatBackoffCancelable(t *testing.T) {
	t.Parallel()

	// Point at a port nothing listens on, with a long max backoff.
	cfg := config.WatchdogConfig{
		ProxyURL:            "http://127.0.0.1:1",
		ReconnectIntervalMS: 60000,
		MaxBackoffMS:        600000,
		ConnectTimeoutMS:    100,
	}
	client := watchdog.NewHeartbeatClient(cfg, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	require.Eventually(t, func() bool {
		return client.ConsecutiveFailures() > 0
	}, 3*time.Second, 10*time.Millisecond)

	start := time.Now()
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("cancel during backoff sleep did not stop Run")
	}
	assert.Less(t, time.Since(start), 2*time.Second, "cancel must interrupt the backoff sleep promptly")
}

func TestHeartbeatStreamURL(t *testing.T) {
	t.Parallel()

	cfg := config.WatchdogConfig{ProxyURL: "http://proxy:8000"}
	streamURL := cfg.StreamURL()

	parsed, err := url.Parse(streamURL)
	require.NoError(t, err)
	assert.Equal(t, "ws", parsed.Scheme)
	assert.Equal(t, "/stream/heartbeat", parsed.Path)
}
