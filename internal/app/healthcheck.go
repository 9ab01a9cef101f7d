package app

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/RoJaebl/portfolio/internal/ctxlog"
	"github.com/RoJaebl/portfolio/internal/devserver"
)

// healthHandler reports liveness and how many task runs are in flight.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
	fmt.Fprintf(w, "task=%s active_runs=%d\n", a.config.Task, a.activeRuns.Load())
}

// startHealthCheck serves /health on the configured port until the returned
// stop function is called. Long-running tasks such as `dev` keep it up for
// as long as they run.
func (a *App) startHealthCheck(ctx context.Context) (stop func(), err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := ctxlog.FromContext(ctx)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.config.HealthcheckPort))
	if err != nil {
		return nil, fmt.Errorf("health check server: %w", err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)

	srvCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- devserver.Serve(srvCtx, ln, mux) }()
	logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost:%d/health", a.config.HealthcheckPort))

	return func() {
		cancel()
		if err := <-done; err != nil {
			logger.Error("Health check server failed", "error", err)
			return
		}
		logger.Debug("Health check server shut down gracefully.")
	}, nil
}
