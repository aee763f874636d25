package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/compass"
	"github.com/aretw0/compass/internal/cli"
	httpAdapter "github.com/aretw0/compass/pkg/adapters/http"
	"github.com/aretw0/compass/pkg/runner"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the streaming chat endpoint, the plan store, session and graph
inspection, Prometheus metrics and the OpenAPI document.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd, cli.BuildOptions{})
		if err != nil {
			return err
		}
		defer app.Close()
		cfg := app.Config
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Server.Port = port
		}

		r := runner.New(app.Assistant,
			runner.WithLogger(app.Logger),
			runner.WithMaxInputSize(cfg.Server.MaxInputBytes),
			runner.WithObserver(app.Metrics),
		)
		handler := httpAdapter.NewHandler(r,
			httpAdapter.WithPlans(app.Plans),
			httpAdapter.WithSessions(app.Assistant),
			httpAdapter.WithGraph(app.Graph),
			httpAdapter.WithMetrics(app.Metrics.Handler()),
			httpAdapter.WithVersion(compass.Version()),
			httpAdapter.WithAllowedOrigin(cfg.Server.AllowedOrigin),
			httpAdapter.WithLogger(app.Logger),
		)

		srv := &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			app.Logger.Info("starting compass server", "addr", srv.Addr, "version", compass.Version())
			serverErrors <- srv.ListenAndServe()
		}()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			app.Logger.Info("start shutdown", "signal", ctx.Signal())

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				app.Logger.Warn("graceful shutdown did not complete", "timeout", cfg.Server.ShutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			app.Logger.Info("compass server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (overrides server.port)")
}
