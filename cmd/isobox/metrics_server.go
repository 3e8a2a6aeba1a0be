package main

import (
	"context"
	"net/http"

	"github.com/nordlow/isobox/sandbox"
)

// serveMetrics starts an HTTP server exposing m's Prometheus collectors at
// addr, shutting down when ctx is done. It runs in the caller's goroutine
// until shutdown completes; callers that want it in the background should
// invoke it via "go serveMetrics(...)".
func serveMetrics(ctx context.Context, addr string, m *sandbox.Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	}
}
