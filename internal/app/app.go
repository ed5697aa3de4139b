package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"GrowthAgent/internal/config"
	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/infrastructure/llm"
	"GrowthAgent/internal/infrastructure/lock"
	"GrowthAgent/internal/infrastructure/scheduler"
	"GrowthAgent/internal/infrastructure/sources"
	"GrowthAgent/internal/infrastructure/status"
	"GrowthAgent/internal/infrastructure/storage"
	"GrowthAgent/internal/infrastructure/telegram"
	"GrowthAgent/internal/infrastructure/telemetry"
	"GrowthAgent/internal/logging"
	"GrowthAgent/internal/ports"
	"GrowthAgent/internal/retry"
	"GrowthAgent/internal/source"
	"GrowthAgent/internal/usecase"
)

const schedulerStopTimeout = 2 * time.Minute

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.Store
	journal  *storage.SQLJournal
	registry *prometheus.Registry

	subscriptions *usecase.Subscriptions
	lifecycle     *usecase.Lifecycle
	content       *usecase.ContentPipeline
	issues        *usecase.IssueSync
	metrics       *usecase.MetricsTracker
	runner        *usecase.Runner
}

// New builds the application. The data layout is created only once the
// language model backend is configured. It opens the run journal, so callers
// must Close the result.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	location := cfg.Scheduler.Location()

	backend, err := llm.NewBackend(cfg.LLM)
	if err != nil {
		return nil, err
	}

	store := storage.NewStore(cfg.DataRoot, storage.WithLogger(baseLogger.With("component", "store")))
	if err := store.Init(); err != nil {
		return nil, err
	}

	journal, err := openJournal(ctx, cfg.Journal, store)
	if err != nil {
		return nil, err
	}

	xClient := sources.NewXClient(cfg.X)
	registry := source.NewRegistry(
		sources.NewXFetcher(xClient, baseLogger.With("component", "source.x")),
		sources.NewFeedFetcher(cfg.RSS, baseLogger.With("component", "source.rss")),
	)

	fetchRetry := retryPolicy(cfg.Retry, cfg.Retry.CallTimeout)
	llmRetry := retryPolicy(cfg.Retry, cfg.LLM.Timeout)

	lifecycle := usecase.NewLifecycle(store, baseLogger, cfg.Archive.RetentionDays, location)
	content := usecase.NewContentPipeline(usecase.ContentDeps{
		Store:     store,
		Fetchers:  registry,
		Judge:     backend,
		Drafter:   backend,
		Lifecycle: lifecycle,
		Logger:    baseLogger,
		Settings: usecase.ContentSettings{
			MaxItemsPerSource: cfg.Ingest.MaxItemsPerSource,
			FetchConcurrency:  cfg.Ingest.Concurrency,
			MinScore:          cfg.Curation.MinScore,
			TopK:              cfg.Curation.TopK,
			MaxCurateItems:    cfg.Curation.MaxCurateItems,
			JudgeConcurrency:  cfg.Curation.Concurrency,
			GenerationEnabled: cfg.Blog.Enabled,
			BlogContext:       cfg.Blog.Context,
			Defaults: usecase.DocumentDefaults{
				Title:  cfg.Blog.Title,
				Tags:   cfg.Blog.Tags,
				Author: cfg.Blog.Author,
			},
			Location:   location,
			FetchRetry: fetchRetry,
			JudgeRetry: llmRetry,
			DraftRetry: llmRetry,
		},
	})

	issues := usecase.NewIssueSync(store, sources.NewGitHubIssues(cfg.GitHub), usecase.IssueSyncSettings{
		Repository: cfg.GitHub.Repository,
		Query:      domain.IssueQuery{State: cfg.GitHub.State, Limit: cfg.GitHub.Limit},
		Retry:      fetchRetry,
	}, baseLogger)

	accounts := make([]domain.TrackedAccount, 0, len(cfg.Metrics.Accounts))
	for _, a := range cfg.Metrics.Accounts {
		accounts = append(accounts, domain.TrackedAccount{Username: a.Username, UserID: a.UserID})
	}
	tracker := usecase.NewMetricsTracker(store, sources.NewXMetrics(xClient), usecase.TrackSettings{
		Accounts:      accounts,
		PostsPerCheck: cfg.Metrics.PostsPerCheck,
		Retry:         fetchRetry,
	}, baseLogger)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	runner := usecase.NewRunner(usecase.RunnerDeps{
		Guard:       lock.New(store.Path(storage.LockFile), cfg.Lock.StaleAfter, baseLogger),
		Journal:     journal,
		Observer:    telemetry.NewMetrics(promRegistry),
		Notifier:    notifier,
		NotifyRetry: fetchRetry,
		Logger:      baseLogger,
	})

	return &Application{
		cfg:           cfg,
		logger:        baseLogger,
		store:         store,
		journal:       journal,
		registry:      promRegistry,
		subscriptions: usecase.NewSubscriptions(store, baseLogger),
		lifecycle:     lifecycle,
		content:       content,
		issues:        issues,
		metrics:       tracker,
		runner:        runner,
	}, nil
}

func openJournal(ctx context.Context, cfg config.JournalConfig, store *storage.Store) (*storage.SQLJournal, error) {
	dialect := storage.Dialect(cfg.Driver)
	dsn := cfg.DSN
	if dialect == storage.DialectSQLite && dsn == "" {
		dsn = store.Path(storage.JournalFile)
	}
	return storage.OpenJournal(ctx, dialect, dsn)
}

func retryPolicy(cfg config.RetryConfig, callTimeout time.Duration) retry.Policy {
	p := retry.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialDelay > 0 {
		p.InitialDelay = cfg.InitialDelay
	}
	if cfg.MaxDelay > 0 {
		p.MaxDelay = cfg.MaxDelay
	}
	if callTimeout > 0 {
		p.CallTimeout = callTimeout
	}
	return p
}

// Close releases the run journal.
func (a *Application) Close() error {
	if a.journal == nil {
		return nil
	}
	return a.journal.Close()
}

// Subscriptions exposes the subscription manager to the CLI.
func (a *Application) Subscriptions() *usecase.Subscriptions {
	return a.subscriptions
}

// Init creates the data layout and empty subscription collections.
func (a *Application) Init(ctx context.Context) error {
	return a.subscriptions.InitLayout(ctx)
}

// Workflow resolves a workflow by name.
func (a *Application) Workflow(name string) (usecase.Workflow, error) {
	switch name {
	case usecase.WorkflowContent:
		return a.content.ContentWorkflow(), nil
	case usecase.WorkflowIngest, usecase.WorkflowCurate, usecase.WorkflowGenerate:
		return a.content.StageWorkflow(name)
	case usecase.WorkflowIssues:
		return a.issues.Workflow(), nil
	case usecase.WorkflowMetrics:
		return a.metrics.Workflow(), nil
	case usecase.WorkflowArchive:
		return a.lifecycle.Workflow(false), nil
	}
	return usecase.Workflow{}, fmt.Errorf("unknown workflow %q", name)
}

// Run executes the named workflow once under the run lock.
func (a *Application) Run(ctx context.Context, name string) (domain.RunSummary, error) {
	wf, err := a.Workflow(name)
	if err != nil {
		return domain.RunSummary{Workflow: name}, err
	}
	return a.runner.Run(ctx, wf)
}

// Generate drafts the document for day, or for today when day is empty.
func (a *Application) Generate(ctx context.Context, day string) (domain.RunSummary, error) {
	if day == "" {
		day = a.content.Today()
	}
	if _, err := time.Parse(storage.DayLayout, day); err != nil {
		return domain.RunSummary{Workflow: usecase.WorkflowGenerate}, fmt.Errorf("date %q: want %s", day, storage.DayLayout)
	}
	return a.runner.Run(ctx, a.content.GenerateWorkflow(day))
}

// Archive archives stale day collections and optionally prunes old archives.
func (a *Application) Archive(ctx context.Context, prune bool) (domain.RunSummary, error) {
	return a.runner.Run(ctx, a.lifecycle.Workflow(prune))
}

// Days lists the days with active curated collections and the days with
// archives, both oldest first.
func (a *Application) Days() (active, archived []string, err error) {
	if active, err = a.lifecycle.ActiveDays(); err != nil {
		return nil, nil, err
	}
	if archived, err = a.lifecycle.ArchivedDays(); err != nil {
		return nil, nil, err
	}
	return active, archived, nil
}

// RecentRuns returns the latest journal entries, newest first.
func (a *Application) RecentRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	return a.journal.Recent(ctx, limit)
}

// Serve runs the scheduler daemon and the status server until ctx is done.
// A trigger runs the content workflow, then the issue mirror and metrics
// tracker when they are configured.
func (a *Application) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if a.cfg.Status.Addr != "" {
		server := status.New(a.cfg.Status.Addr, a.journal, a.registry, a.logger.With("component", "status"))
		g.Go(func() error { return server.Run(gctx) })
	}

	if a.cfg.Scheduler.Enabled {
		driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location(), a.logger)
		sched := usecase.NewScheduler(driver, a.runner, a.logger, a.scheduledWorkflows()...)
		if next, err := driver.Next(time.Now()); err == nil {
			a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression, "timezone", a.cfg.Scheduler.Timezone, "next", next)
		}
		g.Go(func() error {
			if err := sched.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), schedulerStopTimeout)
			defer cancel()
			return sched.Stop(stopCtx)
		})
	} else {
		a.logger.Warn("scheduler disabled")
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *Application) scheduledWorkflows() []usecase.Workflow {
	workflows := []usecase.Workflow{a.content.ContentWorkflow()}
	if a.cfg.GitHub.Repository != "" {
		workflows = append(workflows, a.issues.Workflow())
	}
	if len(a.cfg.Metrics.Accounts) > 0 {
		workflows = append(workflows, a.metrics.Workflow())
	}
	return workflows
}
