package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"mcpchat/internal/adapter/httpapi"
	"mcpchat/internal/di"

	"github.com/spf13/cobra"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var addr string
	var queryTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve [server]",
		Short: "Serve queries over HTTP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts, args, "")
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			container, err := di.NewContainer(ctx, cfg, nil)
			if err != nil {
				return fmt.Errorf("failed to start session: %w", err)
			}
			defer container.Close()

			handler := httpapi.NewHandler(container, container.Logger).Router("mcpchat")
			if queryTimeout > 0 {
				handler = http.TimeoutHandler(handler, queryTimeout, `{"error":"query timed out"}`)
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				container.Logger.Info("HTTP server listening", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			container.Logger.Info("Shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().DurationVar(&queryTimeout, "query-timeout", 0, "abort queries that run longer than this")
	return cmd
}
