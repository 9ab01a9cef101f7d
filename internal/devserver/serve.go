package devserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/RoJaebl/portfolio/internal/ctxlog"
)

// shutdownTimeout bounds graceful shutdown once the serving context ends.
const shutdownTimeout = 5 * time.Second

// Serve runs handler on ln until ctx is done, then shuts down gracefully. A
// shutdown caused by ctx is not an error.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	logger := ctxlog.FromContext(ctx)
	srv := &http.Server{Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Debug("Shutting down dev server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
