package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ShutdownTimeout controls how long to wait for graceful shutdowns.
// Live websocket sessions are torn down within this window.
var ShutdownTimeout = 10 * time.Second

// Server wraps the http.Server with sensible defaults.
type Server struct {
	inner *http.Server
}

// New constructs a server listening on the provided port. No
// connection-level write timeout is set: the realtime endpoint holds
// its response stream open for the life of the websocket, so write
// deadlines are enforced per frame inside the realtime layer instead.
func New(port int, handler http.Handler) *Server {
	return &Server{
		inner: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully terminates the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
