package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/gepa-run/gepa-engine/internal/adapters/http"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run history, Pareto front and live progress over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr != "" {
				host, port, err := splitAddr(addr)
				if err != nil {
					return err
				}
				cfg.Server.Host, cfg.Server.Port = host, port
			}

			db, err := initDB(ctx)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
			}
			runRepo := newRunRepository(db)
			broadcaster, publisher := newBroadcasterAndPublisher()

			server := httpadapter.NewServer(cfg, runRepo, db, broadcaster, publisher)

			errCh := make(chan error, 1)
			go func() {
				if err := server.Start(); err != nil {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return fmt.Errorf("http server: %w", err)
			case <-sigCh:
				slog.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
				defer cancel()
				return server.Stop(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "http", "", "override server.host:server.port, e.g. :8080")
	return cmd
}

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid --http address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid --http port %q: %w", portStr, err)
	}
	return host, port, nil
}
