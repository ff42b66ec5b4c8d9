// README: serve command; runs the agent loops and the control API until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"courier/internal/config"
	httptransport "courier/internal/http"
	"courier/internal/types"
)

func serveCmd() *cobra.Command {
	var driverID int64
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent and its local control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), types.ID(driverID))
		},
	}
	cmd.Flags().Int64Var(&driverID, "driver", 0, "DSPR driver id to select at startup")
	return cmd
}

func serve(parent context.Context, driverID types.ID) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("start agent: %w", err)
	}
	defer a.Close()

	restored, err := a.session.Preload(ctx)
	if err != nil {
		logger.Warn("preload session", slog.Any("error", err))
	}
	logger.Info("agent starting",
		slog.String("env", cfg.Env),
		slog.String("api", cfg.API.BaseURL),
		slog.Bool("session_restored", restored),
		slog.Bool("strict_store", cfg.StrictStore()))

	if driverID.Valid() {
		a.drivers.SelectDriver(driverID)
		if ev := a.drivers.Get(ctx, driverID); !ev.OK() {
			logger.Warn("initial driver fetch failed", slog.String("driver_id", driverID.String()), slog.String("error", ev.Err))
		}
	}

	deps := httptransport.RouterDeps{
		Orders:  a.orders,
		Drivers: a.drivers,
		Routes:  a.routes,
		Users:   a.users,
		Session: a.session,
		Cache:   a.store,
		Fixes:   a.runtime,
		Perm:    a.permission,
		Waker:   a.coordinator,
		Metrics: a.metricsHandler(),
		APIKey:  cfg.HTTP.APIKey,
		Logger:  logger.With(slog.String("component", "http")),
	}
	if a.locations != nil {
		deps.Nearby = a.locations
	}
	server := httptransport.NewServer(cfg.HTTP.Addr, deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return a.coordinator.Run(gctx) })
	if cfg.Driver.RefreshInterval > 0 {
		g.Go(func() error { return a.drivers.RunRefresher(gctx, cfg.Driver.RefreshInterval) })
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("agent stopped")
	return err
}
