package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/infrastructure/storage"
	"GrowthAgent/internal/ports"
	"GrowthAgent/internal/retry"
)

// IssueSyncSettings is the immutable configuration of the issue mirror.
type IssueSyncSettings struct {
	Repository string
	Query      domain.IssueQuery
	Retry      retry.Policy
}

// IssueSync mirrors a repository's issues into github/issues.jsonl.
type IssueSync struct {
	store    *storage.Store
	source   ports.IssueSource
	settings IssueSyncSettings
	logger   *slog.Logger
}

// NewIssueSync constructs the issue mirror.
func NewIssueSync(store *storage.Store, src ports.IssueSource, settings IssueSyncSettings, logger *slog.Logger) *IssueSync {
	return &IssueSync{store: store, source: src, settings: settings, logger: componentLogger(logger, "issues")}
}

// Sync lists the repository's issues and applies the upsert-by-id policy.
// A failed listing writes nothing.
func (s *IssueSync) Sync(ctx context.Context) (domain.StageReport, error) {
	report := domain.NewStageReport(StageSync)
	report.Note("repository", s.settings.Repository)

	if s.source == nil || s.settings.Repository == "" {
		report.Skipped = 1
		report.Note("reason", "no repository configured")
		return report, nil
	}

	incoming, err := retry.Value(ctx, s.settings.Retry, func(ctx context.Context) ([]domain.TrackedIssue, error) {
		return s.source.ListIssues(ctx, s.settings.Repository, s.settings.Query)
	})
	if err != nil {
		if ctx.Err() != nil {
			return report, fmt.Errorf("sync interrupted: %w", ctx.Err())
		}
		report.Attempted = 1
		report.Fail(s.settings.Repository, err)
		s.logger.Error("list issues failed", "repository", s.settings.Repository, "error", err)
		return report, nil
	}

	valid := make([]domain.TrackedIssue, 0, len(incoming))
	for _, issue := range incoming {
		report.Attempted++
		if err := issue.Validate(); err != nil {
			report.Fail(fmt.Sprintf("issue %d", issue.ID), err)
			continue
		}
		valid = append(valid, issue)
	}

	merge := &IssueMerge{}
	result, err := s.store.Issues().UpsertFunc(ctx, valid, IssueKey, merge.Resolve)
	if err != nil {
		return report, fmt.Errorf("upsert issues: %w", err)
	}

	report.Succeeded += len(valid)
	report.Note("new", result.Inserted)
	report.Note("updated", merge.Updated)
	report.Note("unchanged", merge.Unchanged)
	report.Note("total", result.Total)
	s.logger.Info("issues synced",
		"repository", s.settings.Repository,
		"new", result.Inserted,
		"updated", merge.Updated,
		"unchanged", merge.Unchanged,
	)
	return report, nil
}
