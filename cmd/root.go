package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/cwbudde/benchfn/internal/config"
	"github.com/cwbudde/benchfn/internal/metrics"
	"github.com/cwbudde/benchfn/internal/registry"
	"github.com/cwbudde/benchfn/internal/runner"
	"github.com/cwbudde/benchfn/internal/store"
)

var (
	logLevel   string
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "benchfn",
	Short: "Benchmark objective functions for numerical optimizers",
	Long: `benchfn provides analytic test functions (value, gradient and Hessian)
for exercising optimizers, with a CLI, run storage and an HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		// Flag wins over config file
		levelName := logLevel
		if !cmd.Flags().Changed("log-level") {
			levelName = cfg.LogLevel()
		}

		var level slog.Level
		switch levelName {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		// Logs go to stderr so command output stays parseable
		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stderr, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (YAML, JSON or TOML)")
}

// currentConfig returns the loaded config, or defaults when a command is
// invoked directly without the root pre-run (as in tests).
func currentConfig() *config.Config {
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg
}

// newRunner assembles a runner. storeDir "" disables persistence and a nil
// reg disables metrics.
func newRunner(storeDir string, reg prometheus.Registerer) (*runner.Runner, error) {
	r := &runner.Runner{
		Registry: registry.Builtin(),
		Config:   currentConfig(),
	}
	if reg != nil {
		rec, err := metrics.NewRecorder(reg)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		r.Metrics = rec
	}
	if storeDir != "" {
		st, err := store.NewFSStore(storeDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create run store: %w", err)
		}
		r.Store = st
	}
	return r, nil
}

// resolveStoreDir prefers an explicit flag value over the configured dir.
func resolveStoreDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return currentConfig().StoreDir()
}
