package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/lehigh-university-libraries/alttext/internal/batch"
	"github.com/lehigh-university-libraries/alttext/internal/handlers"
	"github.com/lehigh-university-libraries/alttext/internal/realtime"
	"github.com/lehigh-university-libraries/alttext/internal/schedule"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string
	var cronExpr string
	var redisAddr string
	var redisChannel string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ALT text API server",
		Long: `Starts the alttext API on the specified port.

The API scans the media library, generates ALT text for single images,
runs rate-limited batches in the background and streams batch status over
a websocket at /ws. With --redis-addr, status events are also published
to a Redis channel. With --schedule, a scan-and-batch runs periodically.`,
		Example: `  # Start server on default port 8888
  alttext serve

  # Scan for missing ALT text every six hours
  alttext serve --schedule "@every 6h"

  # Publish batch events to Redis
  alttext serve --redis-addr localhost:6379`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			hub := realtime.NewHub()
			presenters := batch.Multi{batch.LogPresenter{}, hub}

			if redisAddr != "" {
				rdb, err := realtime.Connect(ctx, redisAddr, os.Getenv("REDIS_PASSWORD"))
				if err != nil {
					return err
				}
				defer rdb.Close()
				presenters = append(presenters, realtime.NewRedisPresenter(rdb, redisChannel))
			}

			driver := batch.NewDriver(a.service, presenters, batch.DefaultOptions())

			if cronExpr != "" {
				scheduler, err := schedule.New(cronExpr, a.store, driver)
				if err != nil {
					return err
				}
				scheduler.Start(ctx)
			}

			handler := handlers.New(handlers.Options{
				Source:     a.store,
				Generator:  a.service,
				Tester:     a.client,
				Batches:    driver,
				Settings:   a.settings,
				Events:     hub,
				RunContext: ctx,
			})

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: handlers.NewRouter(handler),
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("alttext API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-ctx.Done():
				slog.Info("Shutting down server...")
				driver.Cancel()
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&cronExpr, "schedule", "", `Cron schedule for automatic scans, e.g. "@every 6h"`)
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address for publishing batch events")
	cmd.Flags().StringVar(&redisChannel, "redis-channel", realtime.DefaultChannel, "Redis channel for batch events")

	return cmd
}
