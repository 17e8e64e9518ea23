package proxy

import (
	"context"
	"net/http"
	"time"
)

// Server wraps http.Server with wx-relay timeouts.
type Server struct {
	httpServer *http.Server
	addr       string
}

// NewServer creates a Server.
// Timeout rationale:
//   - ReadTimeout: 10s - protect against slow clients
//   - WriteTimeout: 0 - /stream/heartbeat connections are long-lived; the
//     stream handler enforces its own per-frame write deadline
//   - IdleTimeout: 120s - reasonable keep-alive
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		addr: addr,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// ListenAndServe starts the server (blocks).
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
