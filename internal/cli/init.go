// Package cli provides common CLI initialization utilities shared by
// cmd/fintrack and cmd/ledger-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/log"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the process default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Validator is one of the config validation entry points.
type Validator func(*config.Config) error

// LoadAndValidateConfig loads configuration and runs validate against it.
func LoadAndValidateConfig(validate Validator) (*config.Config, error) {
	cfg := config.Load()
	if validate != nil {
		if err := validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// OpenBackend builds the repository selected by cfg.DataBackend.
func OpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", bcfg.Type, err)
	}
	return res, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		if parent.Err() == nil {
			logger.Info("Shutdown signal received")
		}
	}()
	return ctx, stop
}

// ShutdownContext gives cleanup code a bounded amount of time once the main
// context is gone.
func ShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// Exit logs err and terminates the process with status 1.
func Exit(logger *log.Logger, msg string, err error) {
	logger.Error(msg, log.FieldError, err)
	os.Exit(1)
}
