package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Kone-AI/Kone-sub000/pkg/cli"
	"github.com/Kone-AI/Kone-sub000/pkg/config"
	"github.com/Kone-AI/Kone-sub000/pkg/healthstore"
	"github.com/Kone-AI/Kone-sub000/pkg/modelhealth"
	"github.com/Kone-AI/Kone-sub000/pkg/providerfactory"
	"github.com/Kone-AI/Kone-sub000/pkg/providers"
	"github.com/Kone-AI/Kone-sub000/pkg/server"
	"github.com/Kone-AI/Kone-sub000/pkg/telemetry/health"
	"github.com/Kone-AI/Kone-sub000/pkg/telemetry/metrics"
	"github.com/Kone-AI/Kone-sub000/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	noHealth      bool
	noWatch       bool
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway",
	Long: `Start the gateway: build the provider adapters, start the scheduled model
health checks and serve the ops endpoints.

The configuration file is watched; provider disable lists are applied on
change without a restart.

Examples:
  # Start with default config
  kone run

  # Start with custom config
  kone run --config /etc/kone/config.yaml

  # Override listen address
  kone run --listen 0.0.0.0:9090

  # Validate config and build providers without serving
  kone run --dry-run`,
	RunE: runGateway,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override ops server listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.noHealth, "no-health-checks", false, "do not run scheduled model health checks")
	runCmd.Flags().BoolVar(&runFlags.noWatch, "no-watch", false, "do not reload the config file on change")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config and build providers without serving")
}

func runGateway(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError(cfgFile, err.Error())
	}
	cfg := config.GetConfig()

	if runFlags.listenAddress != "" {
		cfg.Gateway.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError(cfgFile, err.Error())
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	g, err := buildGateway(ctx, cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer g.close()

	if runFlags.dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration valid (%d providers)\n", g.manager.ProviderCount())
		return nil
	}

	if err := g.serve(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

// gateway holds the running components of kone run.
type gateway struct {
	cfg       *config.Config
	logger    *slog.Logger
	collector *metrics.Collector
	tracer    *tracing.Tracer
	manager   *providerfactory.Manager
	store     healthstore.Store
	scheduler *healthstore.Scheduler
	checker   *modelhealth.Checker
	checks    *health.Checker
	server    *server.Server
}

// buildGateway wires every component from cfg. Nothing is started except
// the retention scheduler, which follows ctx.
func buildGateway(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*gateway, error) {
	g := &gateway{cfg: cfg, logger: logger}

	g.collector = metrics.NewCollector(cfg.MetricsConfig(), nil)

	tracer, err := tracing.New(cfg.TracingConfig(Version))
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	g.tracer = tracer

	g.manager, err = newManager(cfg, logger, g.collector, providerfactory.WithTracer(tracer.Tracer()))
	if err != nil {
		g.close()
		return nil, err
	}
	if err := g.collector.WatchKeys(g.manager); err != nil {
		logger.Warn("key metrics unavailable", "error", err)
	}

	g.checker = modelhealth.NewChecker(g.manager, cfg.HealthCheckerConfig(),
		modelhealth.WithLogger(logger),
		modelhealth.WithRecorder(g.collector),
	)

	g.store, err = openStore(cfg)
	if err != nil {
		g.close()
		return nil, err
	}
	if g.store != nil {
		if err := healthstore.WarmStart(ctx, g.store, g.checker); err != nil {
			logger.Warn("failed to restore health records", "error", err)
		}

		pruner := healthstore.NewPruner(g.store, cfg.RetentionConfig(), providers.SystemClock())
		g.scheduler = healthstore.NewScheduler(pruner)
		if err := g.scheduler.Start(ctx); err != nil {
			logger.Warn("failed to start retention scheduler", "error", err)
		}
	}

	g.checks = health.New(5 * time.Second)
	g.checks.RegisterCriticalCheck("providers", health.ProvidersCheck(g.manager, time.Now))
	if g.store != nil {
		g.checks.RegisterCheck("healthstore", health.StoreCheck(g.store))
	}
	if cfg.Health.IsEnabled() && !runFlags.noHealth {
		g.checks.RegisterCheck("health_schedule", health.ScheduleCheck(g.checker))
	}

	deps := server.Dependencies{
		Health:      g.checks,
		MetricsPath: cfg.Telemetry.Metrics.Path,
		Models:      g.checker,
		Providers:   g.manager,
		Version:     Version,
		Commit:      GitCommit,
		BuildTime:   BuildDate,
	}
	if cfg.Telemetry.Metrics.IsEnabled() {
		deps.Metrics = g.collector.Handler()
	}
	if g.store != nil {
		deps.History = g.store
	}
	g.server = server.NewServer(cfg.Gateway, deps, logger)

	return g, nil
}

// serve starts the health checks, the config watcher and the ops server,
// and blocks until ctx is cancelled or the server fails.
func (g *gateway) serve(ctx context.Context) error {
	if g.cfg.Health.IsEnabled() && !runFlags.noHealth {
		var cb modelhealth.Callback
		if g.store != nil {
			cb = healthstore.Persist(g.store, g.logger)
		}
		if err := g.checker.StartHealthChecks(ctx, cb); err != nil {
			return err
		}
		defer g.checker.StopHealthChecks()
	}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return g.server.Start(ctx)
	})

	if !runFlags.noWatch {
		watcher, err := config.NewWatcher(cfgFile, 0, g.logger.With("component", "config.watcher"))
		if err != nil {
			g.logger.Warn("config watcher unavailable", "error", err)
		} else {
			defer watcher.Stop()
			eg.Go(func() error {
				return watcher.Watch(ctx, g.applyConfig)
			})
		}
	}

	g.logger.Info("gateway started",
		"version", Version,
		"providers", g.manager.ProviderCount(),
		"listen_address", g.cfg.Gateway.ListenAddress,
		"health_checks", g.cfg.Health.IsEnabled() && !runFlags.noHealth,
		"storage", g.store != nil,
	)

	return eg.Wait()
}

// applyConfig applies the hot-reloadable parts of a reloaded config.
// Adapters, keys and listeners only change on restart.
func (g *gateway) applyConfig(cfg *config.Config) {
	g.manager.ApplyDisabledModels(cfg.DisabledModels())
	g.logger.Info("disabled models updated from config")
}

// close releases every component in reverse construction order.
func (g *gateway) close() {
	if g.scheduler != nil {
		g.scheduler.Stop()
	}
	if g.store != nil {
		if err := g.store.Close(); err != nil {
			g.logger.Warn("failed to close health store", "error", err)
		}
	}
	if g.manager != nil {
		if err := g.manager.Close(); err != nil {
			g.logger.Warn("failed to close providers", "error", err)
		}
	}
	if g.tracer != nil {
		ctx, cancel := shutdownContext(g.cfg)
		defer cancel()
		if err := g.tracer.Shutdown(ctx); err != nil {
			g.logger.Warn("failed to flush traces", "error", err)
		}
	}
}
