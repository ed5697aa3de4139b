package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"GrowthAgent/internal/app"
	"GrowthAgent/internal/config"
	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/logging"
	"GrowthAgent/internal/usecase"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "growthagent",
		Short:         "Content curation and growth tracking agent",
		Long:          `Ingests creator timelines and feeds, curates them with a language model, drafts a daily post, and mirrors issues and engagement metrics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (default $GROWTH_AGENT_CONFIG)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newInitCommand(opts),
		newRunCommand(opts),
		newGenerateCommand(opts),
		newScheduleCommand(opts),
		newArchiveCommand(opts),
		newSubscriptionsCommand(opts),
		newStatusCommand(opts),
		newConfigCommand(opts),
	)
	return cmd
}

// withApp loads configuration, builds the application, and runs fn with it.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app.Application, logger *slog.Logger) error) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	level := cfg.Logging.Level
	if opts.verbose {
		level = "debug"
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), level, cfg.Logging.Format)
	logger.Debug("configuration loaded", "config", cfg.Redacted())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close application", "error", err)
		}
	}()
	return fn(ctx, application, logger)
}

// finishRun prints the summary and turns a partial or failed run into its
// exit code.
func finishRun(cmd *cobra.Command, summary domain.RunSummary, runErr error) error {
	if len(summary.Stages) > 0 || summary.Fatal != "" {
		renderSummary(cmd.OutOrStdout(), summary)
	}
	code := usecase.ExitCode(summary, runErr)
	if code == 0 {
		return nil
	}
	if runErr != nil && len(summary.Stages) == 0 {
		return fmt.Errorf("%s: %w", summary.Workflow, runErr)
	}
	return &exitError{code: code}
}
