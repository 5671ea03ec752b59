package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/skyrot/internal/api"
	"github.com/star/skyrot/internal/auth"
	"github.com/star/skyrot/internal/batch"
	"github.com/star/skyrot/internal/catalog"
	"github.com/star/skyrot/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

func serveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(os.Stdout)
			if err != nil {
				return err
			}

			cat, err := catalog.New(cfg.Transforms)
			if err != nil {
				logger.Error("invalid transform catalog", "error", err)
				return err
			}
			metrics.SetCatalogEntries(cat.Len())
			logger.Info("catalog loaded", "entries", cat.Len(), "names", cat.Names())

			pool := batch.NewPool(cfg.Batch.Workers, cfg.Batch.ChunkSize, logger)

			srv := api.NewServer(api.Options{
				Addr:               cfg.HTTPAddr,
				Auth:               auth.Config{Enabled: cfg.Auth.Enabled, Token: cfg.Auth.Token},
				TrustProxy:         cfg.TrustProxy,
				MaxPoints:          cfg.Limits.MaxPoints,
				MaxConcurrentPerIP: cfg.Limits.MaxConcurrentPerIP,
			}, logger, cat, pool)

			// Graceful shutdown on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting server", "addr", cfg.HTTPAddr, "auth_enabled", cfg.Auth.Enabled)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					logger.Error("server listen error", "error", err)
					return err
				}
			case <-ctx.Done():
			}
			logger.Info("shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown error", "error", err)
				return fmt.Errorf("shutdown: %w", err)
			}

			logger.Info("server stopped")
			return nil
		},
	}
}
