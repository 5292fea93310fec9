package cmd

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namelens/domainwatch/internal/config"
	"github.com/namelens/domainwatch/internal/core/engine"
	"github.com/namelens/domainwatch/internal/core/store"
	errwrap "github.com/namelens/domainwatch/internal/errors"
	"github.com/namelens/domainwatch/internal/notify"
	"github.com/namelens/domainwatch/internal/observability"
	"github.com/namelens/domainwatch/internal/server"
	"github.com/namelens/domainwatch/internal/server/handlers"
)

var runCmd = &cobra.Command{
	Use:   "run [domain]",
	Short: "Monitor the domain until interrupted",
	Long: `Run the monitor loop: check the domain, notify on change, persist the
snapshot and sleep for check_interval, forever.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: finish the current check, then exit
  • Ctrl+C twice within 2s: Force quit

When status_addr (or --status-addr) is set, a status server exposes
/health, /status, /snapshot, /version and /metrics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("once", false, "run a single check cycle and exit")
	runCmd.Flags().String("status-addr", "", "status server listen address (overrides status_addr)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	once, err := cmd.Flags().GetBool("once")
	if err != nil {
		return err
	}
	statusAddr, err := cmd.Flags().GetString("status-addr")
	if err != nil {
		return err
	}

	overrides := domainOverride(args)
	if statusAddr != "" {
		if overrides == nil {
			overrides = map[string]any{}
		}
		overrides["status_addr"] = statusAddr
	}

	ctx := cmd.Context()
	cfg, err := loadConfig(ctx, overrides)
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Invalid configuration",
			errwrap.WrapConfigInvalid(ctx, err, "set DOMAIN or domain in the config file"))
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	observability.InitServerLogger(config.AppName, level)
	logger := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(config.AppName, cfg.Metrics.Port); err != nil {
			logger.Warn("Failed to initialize metrics, continuing without them", zap.Error(err))
		}
	}

	snapshots, err := store.OpenSnapshotStore(ctx, cfg)
	if err != nil {
		ExitWithCode(logger, foundry.ExitFileNotFound, "Failed to open snapshot store", err)
	}
	defer snapshots.Close() // nolint:errcheck // best-effort cleanup on exit

	monitor := newMonitor(cfg, snapshots, newDispatcher(cfg, logger), logger)

	logger.Info("Initializing domain monitor",
		zap.String("service", config.AppName),
		zap.String("version", versionInfo.Version),
		zap.String("domain", cfg.Domain),
		zap.Duration("check_interval", cfg.CheckInterval),
		zap.String("store", snapshots.Location()),
		zap.Strings("channels", dispatcherChannelNames(monitor.Dispatcher)))

	if once {
		_, err := monitor.RunCycle(ctx)
		return err
	}

	var srv *server.Server
	if cfg.StatusAddr != "" {
		status := handlers.NewMonitorStatus(cfg.Domain, cfg.CheckInterval, snapshots)
		monitor.OnCycle = status.Record
		srv = server.New(server.Options{
			Addr:       cfg.StatusAddr,
			Timeouts:   cfg.Server,
			Status:     status,
			Logger:     logger,
			AdminToken: os.Getenv(server.AdminTokenEnv),
		})
	}

	return serveMonitor(ctx, cfg, monitor, srv)
}

func newMonitor(cfg *config.Config, snapshots store.SnapshotStore, dispatcher *notify.Dispatcher, logger *logging.Logger) *engine.Monitor {
	return &engine.Monitor{
		Domain:                cfg.Domain,
		Lookup:                buildLookup(cfg, logger),
		Normalizer:            newNormalizer(cfg),
		Store:                 snapshots,
		Dispatcher:            dispatcher,
		Logger:                logger,
		Interval:              cfg.CheckInterval,
		PersistErrorSnapshots: cfg.PersistErrorSnapshots,
	}
}

// serveMonitor runs the loop until a shutdown signal. Shutdown handlers run
// LIFO: stop the loop and wait for the current cycle, stop the status
// server, then flush the logger.
func serveMonitor(ctx context.Context, cfg *config.Config, monitor *engine.Monitor, srv *server.Server) error {
	logger := observability.LoggerOr(monitor.Logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopped := make(chan struct{})

	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Flushing logger...")
		if err := logger.Sync(); err != nil {
			// Sync errors are often benign (stdout/stderr already closed)
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})

	if srv != nil {
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Shutting down status server...")
			shutdownCtx, cancelShutdown := context.WithTimeout(ctx, shutdownTimeout(cfg))
			defer cancelShutdown()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "status server shutdown failed")
			}
			return nil
		})
	}

	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Shutdown requested, waiting for the current check to finish",
			zap.String("domain", monitor.Domain))
		cancel()
		select {
		case <-stopped:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	if srv != nil {
		go func() {
			logger.Info("Starting status server...", zap.String("addr", cfg.StatusAddr))
			if err := srv.Start(); err != nil {
				serverErr <- errwrap.WrapInternal(ctx, err, "status server error")
			}
		}()
	}

	go func() {
		if err := signals.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Signal handler error", zap.Error(err))
		}
	}()

	monitorErr := make(chan error, 1)
	go func() {
		err := monitor.Run(runCtx)
		close(stopped)
		monitorErr <- err
	}()

	select {
	case err := <-serverErr:
		cancel()
		<-stopped
		return err
	case err := <-monitorErr:
		return err
	}
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}

func dispatcherChannelNames(d *notify.Dispatcher) []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, d.Len())
	for _, ch := range d.Channels() {
		names = append(names, ch.Name())
	}
	return names
}
