package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/risterz/pantrypal-ai/pkg/enhancer"
	"github.com/risterz/pantrypal-ai/server"
)

func serveCMD(a *app) *cobra.Command {
	var (
		port   int
		refine bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if port == 0 {
				port = a.config.Server.Port
			}

			pipeline, err := a.newPipeline(refine)
			if err != nil {
				return err
			}

			config := server.Config{
				Metrics:        server.NewMetrics(),
				AllowedOrigins: a.config.Server.AllowedOrigins,
				Logger:         a.log,
			}
			config.Service = enhancer.NewService(enhancer.ServiceConfig{
				Fetcher:  a.newScraper(false, nil),
				Pipeline: pipeline,
				Timeout:  a.invocationTimeout(),
				Observe:  config.Metrics.Observe,
				Logger:   a.log,
			})

			if a.config.Database.URL != "" {
				st, err := a.openStore(ctx)
				if err != nil {
					return err
				}
				defer st.Close()
				config.Store = st
			} else {
				a.log.Warn().Msg("no database configured, read endpoints are disabled")
			}

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           server.NewWithConfig(config).Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info().Int("port", port).Msg("starting server")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				a.log.Info().Msg("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config or PORT)")
	cmd.Flags().BoolVar(&refine, "refine", false, "Allow requests to use the cleaning service")
	return cmd
}
