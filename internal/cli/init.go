// Package cli implements the fintrack command tree and the start-up wiring
// shared by its commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/rates"
	"fintrack/internal/report"
	"fintrack/internal/services"
)

// LoadEnvFile loads a .env file for local use. A missing file is ignored.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from configuration and installs it
// as the slog default.
func SetupLogger(cfg *config.Config, debug bool, out io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if debug {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{
		Level:     level,
		Component: log.ComponentCLI,
		Format:    cfg.LogFormat,
		Output:    out,
	})
	log.SetDefault(logger)
	return logger, nil
}

// NewConverter chains the configured fixed rates in front of a cached
// remote source. The returned manager sweeps the cache; stop it when done.
func NewConverter(cfg *config.Config, logger *log.Logger) (*rates.Converter, *cache.Manager, error) {
	fixed, err := rates.ParseStaticRates(cfg.FixedRates)
	if err != nil {
		return nil, nil, err
	}
	remote := rates.NewCachedSource(rates.NewClient(cfg.RatesAPIURL, cfg.RatesTimeout, logger), cfg.RatesCacheSize, cfg.RatesCacheTTL)

	janitor := cache.NewManager(logger)
	janitor.Register(remote.Cache())
	if cfg.RatesCacheTTL > 0 {
		janitor.StartCleanup(cfg.RatesCacheTTL)
	}

	var source rates.Source = remote
	if len(fixed) > 0 {
		source = rates.Chain{fixed, remote}
	}
	return rates.NewConverter(source), janitor, nil
}

// App is everything a command needs once configuration is loaded.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Store   *services.RecordStore
	Rates   *rates.Converter
	Reports *report.Builder
	Events  *amqp.Client

	closers []func() error
}

// OpenApp builds the converter, the storage backend and the optional event
// publisher described by cfg.
func OpenApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	converter, janitor, err := NewConverter(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("rates: %w", err)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		janitor.Stop()
		return nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg, converter)
	if err != nil {
		janitor.Stop()
		return nil, err
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Store:   result.Store,
		Rates:   converter,
		Reports: report.NewBuilder(converter, logger),
		Events:  result.Events,
		closers: []func() error{
			func() error { janitor.Stop(); return nil },
			result.Cleanup,
		},
	}, nil
}

// Close releases the store, the broker connection and the cache janitor.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
