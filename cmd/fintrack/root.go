package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
)

var flagLogLevel string

var rootCmd = &cobra.Command{
	Use:          "fintrack",
	Short:        "Personal finance chat bot",
	Long:         "Record expenses and incomes through a guided chat, list and filter them, delete them and draw statistics.",
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.AddCommand(serveCmd, importCmd)
}

// bootstrap loads .env and the configuration, and sets up logging.
func bootstrap() (*config.Config, *log.Logger, error) {
	cli.LoadEnvFile()
	if flagLogLevel != "" {
		_ = os.Setenv("LOG_LEVEL", flagLogLevel)
	}
	cfg, err := cli.LoadAndValidateConfig((*config.Config).Validate)
	if err != nil {
		logger := cli.SetupLogger("info")
		logger.Error("Configuration validation failed", log.FieldError, err)
		return nil, nil, err
	}
	return cfg, cli.SetupLogger(cfg.LogLevel), nil
}

func signalContext(cmd *cobra.Command, logger *log.Logger) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return cli.SignalContext(parent, logger)
}
