package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/planloom/loom/internal/config"
)

var (
	configPath string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Plan validation, analysis, and execution engine",
	Long: `loom turns a high-level goal into a validated, executable plan.

Plans are dependency DAGs of typed steps (research, synthesize, experiment,
develop). loom validates their structure and rigor requirements, derives
execution topology (ordering, parallel groups, critical path), executes them
stage by stage with lifecycle events, and drives an LLM revision loop that
feeds validation errors back into plan generation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.NewLoader().LoadWithDefaults(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		configureLogger(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
}

// Execute runs the root command with signal-aware cancellation: SIGINT or
// SIGTERM cancels the command context so in-flight steps can unwind.
func Execute(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "loom.yaml"
	}
	return home + "/.loom/config.yaml"
}

// configureLogger installs the process-wide slog default according to the
// loaded configuration. The --verbose flag overrides the configured level.
func configureLogger(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
