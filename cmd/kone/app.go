package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Kone-AI/Kone-sub000/pkg/cli"
	"github.com/Kone-AI/Kone-sub000/pkg/config"
	"github.com/Kone-AI/Kone-sub000/pkg/healthstore"
	"github.com/Kone-AI/Kone-sub000/pkg/providerfactory"
	"github.com/Kone-AI/Kone-sub000/pkg/telemetry/logging"
	"github.com/Kone-AI/Kone-sub000/pkg/telemetry/metrics"
)

// errNoProviders is returned when no configured provider can be built.
var errNoProviders = errors.New("no providers available: enable at least one provider and supply its API keys")

// loadConfig loads the --config file with KONE_* overrides applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err.Error())
	}
	return cfg, nil
}

// newLogger builds the process logger and installs it as the slog default.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	lc := cfg.LoggingConfig()
	lc.Writer = w
	if verbose {
		lc.Level = "debug"
	}

	logger, err := logging.New(lc)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	slog.SetDefault(logger)
	return logger, nil
}

// newManager builds the enabled adapters and the routing manager over them.
// Providers that fail to build are logged and skipped. collector may be nil.
func newManager(cfg *config.Config, logger *slog.Logger, collector *metrics.Collector, opts ...providerfactory.Option) (*providerfactory.Manager, error) {
	factoryOpts := providerfactory.Options{Logger: logger}
	if collector != nil {
		factoryOpts.Recorder = collector
	}

	adapters, errs := providerfactory.New(factoryOpts).BuildAdapters(cfg.ProviderSpecs())
	for _, err := range errs {
		logger.Warn("provider skipped", "error", err)
	}
	if len(adapters) == 0 {
		return nil, errNoProviders
	}

	base := []providerfactory.Option{providerfactory.WithLogger(logger)}
	if collector != nil {
		base = append(base, providerfactory.WithRecorder(collector))
	}
	return providerfactory.NewManager(adapters, cfg.ManagerConfig(), append(base, opts...)...), nil
}

// openStore opens the configured health store, or returns nil when storage
// is disabled.
func openStore(cfg *config.Config) (healthstore.Store, error) {
	if !cfg.Storage.IsEnabled() {
		return nil, nil
	}
	store, err := healthstore.NewSQLiteStore(cfg.SQLiteConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open health store: %w", err)
	}
	return store, nil
}

// shutdownContext bounds cleanup after the main context is cancelled.
func shutdownContext(cfg *config.Config) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), cfg.Gateway.ShutdownTimeout)
}
