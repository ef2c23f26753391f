package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/hupe1980/tagfind/server"
	"github.com/spf13/cobra"
)

func (c *cli) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server exposing find and tag endpoints:

  POST /v1/find, POST /v1/find/batch, POST /v1/vertices, GET /healthz
  and, with metrics enabled, GET /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer s.close(context.Background())

			opts := server.Options{
				Logger:      s.logger,
				MetricsPath: s.cfg.Metrics.Path,
				Timeout:     s.cfg.Engine.Timeout,
			}
			if s.metrics != nil {
				opts.Metrics = s.metrics
				opts.Gatherer = s.registry
			}
			srv := server.New(s.cfg.Server, s.store, opts)

			// Start server in a goroutine
			serverErrChan := make(chan error, 1)
			go func() {
				serverErrChan <- srv.Start()
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-serverErrChan:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := srv.Stop(shutdownCtx); err != nil {
					return fmt.Errorf("server shutdown error: %w", err)
				}
				return nil
			}
		},
	}

	flags := cmd.Flags()
	flags.String("host", "localhost", "server host")
	flags.Int("port", 8080, "server port")
	flags.String("mode", "release", "gin mode (debug, release, test)")
	_ = c.v.BindPFlag("server.host", flags.Lookup("host"))
	_ = c.v.BindPFlag("server.port", flags.Lookup("port"))
	_ = c.v.BindPFlag("server.mode", flags.Lookup("mode"))
	return cmd
}
