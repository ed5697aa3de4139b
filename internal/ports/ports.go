package ports

import (
	"context"
	"time"

	"GrowthAgent/internal/domain"
)

// SourceFetcher pulls recent content for one subscription.
type SourceFetcher interface {
	Kind() domain.SourceKind
	Fetch(ctx context.Context, sub domain.Subscription, limit int) ([]domain.RawRecord, error)
}

// Judge scores a record's text with a language model.
type Judge interface {
	Evaluate(ctx context.Context, text string, jc domain.JudgeContext) (domain.Judgement, error)
}

// Drafter writes a blog post from the day's curated records.
type Drafter interface {
	Draft(ctx context.Context, records []domain.CuratedRecord, blogContext string) (domain.Draft, error)
}

// IssueSource lists the current issues of a repository.
type IssueSource interface {
	ListIssues(ctx context.Context, repo string, q domain.IssueQuery) ([]domain.TrackedIssue, error)
}

// MetricsSource fetches engagement counters for an account's recent posts.
type MetricsSource interface {
	FetchEngagement(ctx context.Context, account domain.TrackedAccount, count int) ([]domain.MetricSnapshot, error)
}

// Notifier streams run reports to Telegram or other channels.
type Notifier interface {
	PublishReport(ctx context.Context, summary domain.RunSummary) error
}

// RunJournal persists run summaries for audit.
type RunJournal interface {
	Record(ctx context.Context, summary domain.RunSummary) error
	Recent(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

// RunObserver receives every finished run (metrics, tracing).
type RunObserver interface {
	ObserveRun(summary domain.RunSummary)
}

// RunGuard serializes runs across processes.
type RunGuard interface {
	Acquire(ctx context.Context) (release func() error, err error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
