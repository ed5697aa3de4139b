package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"GrowthAgent/internal/app"
	"GrowthAgent/internal/config"
	"GrowthAgent/internal/usecase"
)

var workflowNames = []string{
	usecase.WorkflowContent,
	usecase.WorkflowIngest,
	usecase.WorkflowCurate,
	usecase.WorkflowGenerate,
	usecase.WorkflowIssues,
	usecase.WorkflowMetrics,
	usecase.WorkflowArchive,
}

func newInitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the data directory layout and empty subscription files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
				if err := a.Init(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "data layout initialised")
				return nil
			})
		},
	}
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "run <workflow>",
		Short:     "Run one workflow once",
		Long:      "Run one workflow once under the run lock. Workflows: content (ingest, curate, generate), ingest, curate, generate, issues, metrics, archive.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: workflowNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
				summary, err := a.Run(ctx, args[0])
				return finishRun(cmd, summary, err)
			})
		},
	}
}

func newGenerateCommand(opts *rootOptions) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draft the blog post for a day's curated collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
				summary, err := a.Generate(ctx, date)
				return finishRun(cmd, summary, err)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to generate (YYYY-MM-DD, default today in the scheduler time zone)")
	return cmd
}

func newScheduleCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run workflows on the cron schedule and serve the status endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application, logger *slog.Logger) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				if err := a.Serve(ctx); err != nil {
					return err
				}
				logger.Info("scheduler stopped")
				return nil
			})
		},
	}
}

func newArchiveCommand(opts *rootOptions) *cobra.Command {
	var prune bool
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive curated collections of past days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
				summary, err := a.Archive(ctx, prune)
				return finishRun(cmd, summary, err)
			})
		},
	}
	cmd.Flags().BoolVar(&prune, "prune", false, "also delete archives older than archive.retention_days")
	return cmd
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show curated days and recent runs from the run journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
				active, archived, err := a.Days()
				if err != nil {
					return err
				}
				renderDays(cmd.OutOrStdout(), active, archived)

				runs, err := a.RecentRuns(ctx, limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
					return nil
				}
				renderRuns(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	return cmd
}

func newConfigCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg.Redacted()); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return enc.Close()
		},
	}
}
