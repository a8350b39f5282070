package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/stratumdb/stratum/cluster"
)

// CreateRouter builds the admin router exposing the topology registry.
func CreateRouter(registry *cluster.Registry) *chi.Mux {
	r := chi.NewRouter()
	NewClustersHandler(registry).Register(r)

	return r
}

// StartServer serves the given handler until the context is canceled.
func StartServer(ctx context.Context, handler http.Handler, logger kitlog.Logger, bindAddr string) error {
	server := &http.Server{
		Addr:    bindAddr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()

		if err := server.Shutdown(context.Background()); err != nil {
			level.Error(logger).Log("msg", "failed to shutdown server", "err", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
