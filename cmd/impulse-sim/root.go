package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"impulse-sim/internal/config"
	"impulse-sim/internal/logging"
)

var (
	configPath string
	schemaPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:          "impulse-sim",
	Short:        "Impulse generator waveform simulator",
	Long:         "impulse-sim models a multi-stage impulse generator and reports peak voltage, front time and tail time of the resulting waveform.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "config/impulse.yaml", "Path to configuration YAML")
	pf.StringVar(&schemaPath, "schema", "schemas/impulse.cue", "Path to CUE schema file (empty disables validation)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text or json (default from config)")

	rootCmd.AddCommand(simulateCmd, sweepCmd, serveCmd, tuiCmd, explainCmd, replayCmd, dashboardCmd)
}

// setup loads the configuration and installs the logger. Log flags override the config.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath, schemaPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}
