package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/manas360/stepwise"
	"github.com/manas360/stepwise/internal/cli"
	httpAdapter "github.com/manas360/stepwise/pkg/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the stateless HTTP server",
		Long: `Exposes the engine as a JSON API. Clients keep the session state and send it
with every call; finished sessions go to the configured record store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.HTTP.Addr = addr
			}
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			handler := httpAdapter.NewHandler(rt.Engine,
				httpAdapter.WithLogger(rt.Logger),
				httpAdapter.WithMetricsHandler(rt.Metrics.Handler()),
				httpAdapter.WithVersion(stepwise.Version),
			)
			srv := &http.Server{
				Addr:              a.cfg.HTTP.Addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErrors := make(chan error, 1)
			go func() {
				rt.Logger.Info("Starting stepwise server", "addr", srv.Addr, "store", a.cfg.Store.Driver)
				serverErrors <- srv.ListenAndServe()
			}()

			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)
			case <-sigCtx.Done():
				rt.Logger.Info("Shutting down", "signal", fmt.Sprint(sigCtx.Signal()))
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					rt.Logger.Error("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
					return srv.Close()
				}
				rt.Logger.Info("Server stopped gracefully")
				return nil
			}
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config, :8080)")
	return cmd
}
