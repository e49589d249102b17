package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/agenthands/geoenrich/internal/config"
	"github.com/agenthands/geoenrich/internal/enrich"
	"github.com/agenthands/geoenrich/internal/llm"
	"github.com/agenthands/geoenrich/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	configPath string
	envFile    string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "geoenrich",
		Short: "Tag research works and grants with the country their title refers to",
		Long: `geoenrich reads JSON arrays of works and grants, asks a language model
for the ISO country code each title refers to, and writes the records back
with a "location" field added.

Per-collection errors are logged and do not change the exit status.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "config.toml", "Path to configuration file (TOML or YAML)")
	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "Path to an optional .env file")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log prompts and raw model replies")

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	envErr := godotenv.Load(opts.envFile)

	cfg, err := config.Load(opts.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(cmd.OutOrStdout(), cfg.Log, opts.verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if envErr != nil {
		if errors.Is(envErr, fs.ErrNotExist) {
			logger.Debug("no .env file found, using defaults", zap.String("path", opts.envFile))
		} else {
			logger.Warn("failed to load .env file", zap.String("path", opts.envFile), zap.Error(envErr))
		}
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	if c, ok := client.(interface{ Close() error }); ok {
		defer c.Close()
	}

	logger.Info("starting location enrichment",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
		zap.String("base_url", cfg.LLM.BaseURL),
		zap.Int("collections", len(cfg.Collections)),
	)

	report := enrich.NewOrchestrator(cfg, client, logger).Run(ctx)
	if report.Failed() {
		logger.Warn("run finished with errors", zap.String("run_id", report.RunID))
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
