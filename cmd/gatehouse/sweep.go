// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/observability"
)

// Default values for sweep command flags.
const defaultSweepInterval = time.Minute

// sweepConfig holds configuration for the sweep command.
type sweepConfig struct {
	interval time.Duration
}

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd() *cobra.Command {
	cfg := &sweepConfig{}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the expired-session sweeper",
		Long: `Run a long-lived process that periodically deletes expired sessions
and serves metrics and health probes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd, cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.interval, "interval", defaultSweepInterval, "time between sweeps")
	cmd.Flags().String("log-format", "json", "log format (json or text)")

	return cmd
}

func runSweep(cmd *cobra.Command, cfg *sweepConfig) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logging.SetDefault("gatehouse", version, conf.LogFormat)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rt, err := buildRuntime(ctx, conf)
	if err != nil {
		return err
	}
	defer rt.Close()

	slog.Info("connected to database")

	// Start observability server if configured
	var obsServer *observability.Server
	if conf.ObservabilityAddr != "" {
		obsServer = observability.NewServer(conf.ObservabilityAddr, func() bool {
			return rt.pool.Ping(ctx) == nil
		})
		obsErrChan, startErr := obsServer.Start()
		if startErr != nil {
			return startErr
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()

	cmd.Println("Sweeper started")
	slog.Info("sweeper ready", "interval", cfg.interval.String())

	for {
		select {
		case <-ticker.C:
			purged, purgeErr := rt.sessions.PurgeExpired(ctx)
			if purgeErr != nil {
				slog.Error("sweep failed", "error", purgeErr)
				continue
			}
			if purged > 0 {
				slog.Info("expired sessions purged", "count", purged)
			}
		case sig := <-sigChan:
			slog.Info("received shutdown signal", "signal", sig)
			return stopSweep(obsServer)
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down")
			return stopSweep(obsServer)
		}
	}
}

// stopSweep gracefully stops the observability server.
func stopSweep(obsServer *observability.Server) error {
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors monitors a server's error channel and cancels the
// context on error so a failed server triggers process shutdown. It
// exits when an error arrives, the channel closes, or the context ends.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}
