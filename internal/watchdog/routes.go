package watchdog

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/wxrelay/wxrelay/internal/status"
)

// HealthResponse is the watchdog's own /health payload.
type HealthResponse struct {
	LastSnapshot        *status.Snapshot `json:"last_snapshot,omitempty"`
	State               ConnectionState  `json:"state"`
	ConsecutiveFailures int              `json:"consecutive_failures"`
}

// SetupRoutes builds the watchdog's HTTP handler.
// Routes:
//   - GET /stream - WebSocket relay of snapshots received from the proxy
//   - GET /health - the heartbeat client's connection state
func SetupRoutes(client *HeartbeatClient, relay *status.Publisher, logger *zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /stream", status.StreamHandler(relay, logger))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			State:               client.State(),
			ConsecutiveFailures: client.ConsecutiveFailures(),
		}
		if snap := relay.Current(); snap.Generation > 0 {
			resp.LastSnapshot = &snap
		}

		code := http.StatusOK
		if resp.State != StateConnected {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(resp); err != nil && logger != nil {
			logger.Error().Err(err).Msg("failed to write health response")
		}
	})

	return mux
}
