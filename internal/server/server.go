// Package server exposes the interview WebSocket endpoint together with
// metrics and health probes on one HTTP listener.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rehearsal-dev/voicescreen/internal/health"
	"github.com/rehearsal-dev/voicescreen/internal/observe"
	"github.com/rehearsal-dev/voicescreen/internal/session"
)

// Config holds the HTTP server settings.
type Config struct {
	// ListenAddr is the TCP address to listen on, e.g. ":8080".
	ListenAddr string
}

// Server serves /ws/interview, /metrics, /healthz, and /readyz.
type Server struct {
	http  *http.Server
	orch  *session.Orchestrator
	store *session.Store
}

// New assembles the server around an orchestrator and its session store.
// The extra checkers are exposed on /readyz.
func New(cfg Config, orch *session.Orchestrator, store *session.Store, checkers ...health.Checker) *Server {
	s := &Server{
		orch:  orch,
		store: store,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/interview", s.handleInterview)

	// Request metrics cover the short-lived routes; the interview socket
	// is long-lived and tracked through the session instruments.
	wrap := observe.Middleware(observe.DefaultMetrics())
	probes := health.New(checkers...)
	mux.Handle("GET /metrics", wrap(promhttp.Handler()))
	mux.Handle("GET /healthz", wrap(http.HandlerFunc(probes.Healthz)))
	mux.Handle("GET /readyz", wrap(http.HandlerFunc(probes.Readyz)))

	s.http = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
		// No global read/write timeouts: interview sockets are
		// long-lived; the session safety timeout bounds them instead.
		IdleTimeout: 60 * time.Second,
	}
	return s
}

// Run starts the idle-session sweep and serves HTTP until ctx is canceled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go s.store.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
