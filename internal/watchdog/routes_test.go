package watchdog_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxrelay/wxrelay/internal/config"
	"github.com/wxrelay/wxrelay/internal/status"
	"github.com/wxrelay/wxrelay/internal/watchdog"
)

func TestWatchdogHealthWhileDisconnected(t *testing.T) {
	t.Parallel()

	relay := status.NewPublisher(nil)
	client := watchdog.NewHeartbeatClient(config.WatchdogConfig{}, nil, relay, nil)
	server := httptest.NewServer(watchdog.SetupRoutes(client, relay, nil))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/health") //nolint:gosec // test server URL
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck // test teardown

	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var health watchdog.HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, watchdog.StateDisconnected, health.State)
	assert.Nil(t, health.LastSnapshot)
}

func TestWatchdogHealthCarriesLastSnapshot(t *testing.T) {
	t.Parallel()

	relay := status.NewPublisher(nil)
	relay.Publish(healthyTestSnapshot())

	client := watchdog.NewHeartbeatClient(config.WatchdogConfig{}, nil, relay, nil)
	server := httptest.NewServer(watchdog.SetupRoutes(client, relay, nil))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/health") //nolint:gosec // test server URL
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck // test teardown

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var health watchdog.HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	require.NotNil(t, health.LastSnapshot)
	assert.Equal(t, status.OverallHealthy, health.LastSnapshot.Overall)
}

func TestWatchdogStreamRelays(t *testing.T) {
	t.Parallel()

	relay := status.NewPublisher(nil)
	relay.Publish(healthyTestSnapshot())

	client := watchdog.NewHeartbeatClient(config.WatchdogConfig{}, nil, relay, nil)
	server := httptest.NewServer(watchdog.SetupRoutes(client, relay, nil))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close() //nolint:errcheck // test teardown

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var snap status.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, status.OverallHealthy, snap.Overall)
}
