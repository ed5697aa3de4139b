package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/ports"
	"GrowthAgent/internal/retry"
)

// Workflow names accepted by the CLI and the scheduler.
const (
	WorkflowContent  = "content"
	WorkflowIngest   = "ingest"
	WorkflowCurate   = "curate"
	WorkflowGenerate = "generate"
	WorkflowIssues   = "issues"
	WorkflowMetrics  = "metrics"
	WorkflowArchive  = "archive"
)

// Stage is one step of a workflow. A returned error is fatal and stops the
// workflow; unit failures are counted in the report instead.
type Stage func(ctx context.Context) (domain.StageReport, error)

// Workflow is an ordered list of stages run under one lock.
type Workflow struct {
	Name   string
	Stages []Stage
}

// ContentWorkflow runs ingest, curate, and generate for today.
func (p *ContentPipeline) ContentWorkflow() Workflow {
	return Workflow{Name: WorkflowContent, Stages: []Stage{p.Ingest, p.Curate, p.generateToday}}
}

// StageWorkflow wraps a single content stage.
func (p *ContentPipeline) StageWorkflow(name string) (Workflow, error) {
	switch name {
	case WorkflowIngest:
		return Workflow{Name: name, Stages: []Stage{p.Ingest}}, nil
	case WorkflowCurate:
		return Workflow{Name: name, Stages: []Stage{p.Curate}}, nil
	case WorkflowGenerate:
		return Workflow{Name: name, Stages: []Stage{p.generateToday}}, nil
	}
	return Workflow{}, fmt.Errorf("unknown content stage %q", name)
}

// GenerateWorkflow drafts the document for a specific day.
func (p *ContentPipeline) GenerateWorkflow(day string) Workflow {
	return Workflow{Name: WorkflowGenerate, Stages: []Stage{
		func(ctx context.Context) (domain.StageReport, error) { return p.Generate(ctx, day) },
	}}
}

func (p *ContentPipeline) generateToday(ctx context.Context) (domain.StageReport, error) {
	return p.Generate(ctx, p.Today())
}

// Workflow wraps the issue mirror.
func (s *IssueSync) Workflow() Workflow {
	return Workflow{Name: WorkflowIssues, Stages: []Stage{s.Sync}}
}

// Workflow wraps the metrics tracker.
func (t *MetricsTracker) Workflow() Workflow {
	return Workflow{Name: WorkflowMetrics, Stages: []Stage{t.Track}}
}

// Workflow wraps stale-day archival, optionally followed by pruning.
func (l *Lifecycle) Workflow(prune bool) Workflow {
	return Workflow{Name: WorkflowArchive, Stages: []Stage{
		func(ctx context.Context) (domain.StageReport, error) { return l.Archive(ctx, prune) },
	}}
}

// RunnerDeps wires the cross-cutting collaborators of every run.
type RunnerDeps struct {
	Guard    ports.RunGuard
	Journal  ports.RunJournal
	Observer ports.RunObserver
	Notifier ports.Notifier
	// NotifyRetry governs report delivery.
	NotifyRetry retry.Policy
	Logger      *slog.Logger
	Now         func() time.Time
}

// Runner executes workflows under the run lock and publishes their summaries.
type Runner struct {
	guard       ports.RunGuard
	journal     ports.RunJournal
	observer    ports.RunObserver
	notifier    ports.Notifier
	notifyRetry retry.Policy
	logger      *slog.Logger
	now         func() time.Time
}

// NewRunner constructs the runner.
func NewRunner(deps RunnerDeps) *Runner {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		guard:       deps.Guard,
		journal:     deps.Journal,
		observer:    deps.Observer,
		notifier:    deps.Notifier,
		notifyRetry: deps.NotifyRetry,
		logger:      componentLogger(deps.Logger, "runner"),
		now:         now,
	}
}

// Run executes wf's stages in order. The returned error is the fatal error
// that aborted the run, if any; the summary is always populated.
func (r *Runner) Run(ctx context.Context, wf Workflow) (domain.RunSummary, error) {
	summary := domain.RunSummary{Workflow: wf.Name, StartedAt: r.now().UTC()}

	if r.guard != nil {
		release, err := r.guard.Acquire(ctx)
		if err != nil {
			summary.FinishedAt = r.now().UTC()
			summary.Fatal = err.Error()
			return summary, err
		}
		defer func() {
			if err := release(); err != nil {
				r.logger.Warn("release run lock", "error", err)
			}
		}()
	}

	r.logger.Info("run started", "workflow", wf.Name)
	var runErr error
	for _, stage := range wf.Stages {
		report, err := stage(ctx)
		summary.Stages = append(summary.Stages, report)
		if err != nil {
			runErr = fmt.Errorf("%s: %w", report.Stage, err)
			summary.Fatal = runErr.Error()
			break
		}
	}
	summary.FinishedAt = r.now().UTC()

	r.publish(ctx, summary)
	return summary, runErr
}

func (r *Runner) publish(ctx context.Context, summary domain.RunSummary) {
	status := summary.Status()
	attrs := []any{"workflow", summary.Workflow, "status", status, "duration", summary.Duration()}
	switch status {
	case domain.RunFailed:
		r.logger.Error("run finished", append(attrs, "fatal", summary.Fatal)...)
	case domain.RunPartial:
		r.logger.Warn("run finished", attrs...)
	default:
		r.logger.Info("run finished", attrs...)
	}

	if r.observer != nil {
		r.observer.ObserveRun(summary)
	}

	// Reporting must outlive a cancelled run context.
	reportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if r.journal != nil {
		if err := r.journal.Record(reportCtx, summary); err != nil {
			r.logger.Warn("journal run", "error", err)
		}
	}
	if r.notifier != nil {
		err := retry.Do(reportCtx, r.notifyRetry, func(ctx context.Context) error {
			return r.notifier.PublishReport(ctx, summary)
		})
		if err != nil {
			r.logger.Warn("publish run report", "error", err)
		}
	}
}

// ExitCode maps a run outcome to the CLI exit code: 0 success, 2 partial,
// 1 failed.
func ExitCode(summary domain.RunSummary, err error) int {
	if err != nil {
		return 1
	}
	switch summary.Status() {
	case domain.RunSuccess:
		return 0
	case domain.RunPartial:
		return 2
	default:
		return 1
	}
}
