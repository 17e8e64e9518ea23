package proxy

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/wxrelay/wxrelay/internal/status"
)

// SetupRoutes builds the proxy's HTTP handler.
// Routes:
//   - GET /data?city=X - failover fetch through the orchestrator
//   - GET /health - current status snapshot
//   - GET /stream/heartbeat - WebSocket snapshot stream
//
// The stream route skips LoggingMiddleware: its writer wrapper hides
// http.Hijacker, which the WebSocket upgrade needs.
func SetupRoutes(dataHandler *DataHandler, publisher *status.Publisher, logger *zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	var data http.Handler = dataHandler
	data = LoggingMiddleware()(data)
	data = RequestIDMiddleware()(data)
	mux.Handle("GET /data", data)

	var health http.Handler = HealthHandler(publisher)
	health = LoggingMiddleware()(health)
	health = RequestIDMiddleware()(health)
	mux.Handle("GET /health", health)

	stream := RequestIDMiddleware()(status.StreamHandler(publisher, logger))
	mux.Handle("GET /stream/heartbeat", stream)

	return mux
}

// HealthHandler serves the current status snapshot as JSON.
func HealthHandler(publisher *status.Publisher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		snap := publisher.Current()
		code := http.StatusOK
		if snap.Overall == status.OverallDown {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, snap)
	})
}
