package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/infrastructure/storage"
	"GrowthAgent/internal/ports"
	"GrowthAgent/internal/retry"
)

// TrackSettings is the immutable configuration of the metrics tracker.
type TrackSettings struct {
	Accounts      []domain.TrackedAccount
	PostsPerCheck int
	Retry         retry.Policy
}

// MetricsTracker replaces metrics/stats.jsonl with fresh engagement snapshots.
type MetricsTracker struct {
	store    *storage.Store
	source   ports.MetricsSource
	settings TrackSettings
	logger   *slog.Logger
	now      func() time.Time
}

// NewMetricsTracker constructs the metrics tracker.
func NewMetricsTracker(store *storage.Store, src ports.MetricsSource, settings TrackSettings, logger *slog.Logger) *MetricsTracker {
	return &MetricsTracker{
		store:    store,
		source:   src,
		settings: settings,
		logger:   componentLogger(logger, "metrics"),
		now:      time.Now,
	}
}

// Track fetches every tracked account and overwrites the snapshot
// collection. Snapshots of accounts whose fetch failed are carried over from
// the previous collection; when every account fails nothing is written.
func (t *MetricsTracker) Track(ctx context.Context) (domain.StageReport, error) {
	report := domain.NewStageReport(StageTrack)

	if t.source == nil || len(t.settings.Accounts) == 0 {
		report.Skipped = 1
		report.Note("reason", "no tracked accounts")
		return report, nil
	}

	now := t.now().UTC()
	failed := map[string]bool{}
	var fresh []domain.MetricSnapshot
	for _, account := range t.settings.Accounts {
		report.Attempted++
		snaps, err := retry.Value(ctx, t.settings.Retry, func(ctx context.Context) ([]domain.MetricSnapshot, error) {
			return t.source.FetchEngagement(ctx, account, t.settings.PostsPerCheck)
		})
		if err != nil {
			if ctx.Err() != nil {
				return report, fmt.Errorf("track interrupted: %w", ctx.Err())
			}
			failed[account.Username] = true
			report.Fail(account.Username, err)
			t.logger.Error("fetch engagement failed", "account", account.Username, "error", err)
			continue
		}
		for _, s := range snaps {
			if s.ID == "" {
				s.ID = uuid.NewString()
			}
			if s.Account == "" {
				s.Account = account.Username
			}
			if s.RecordedAt.IsZero() {
				s.RecordedAt = now
			}
			fresh = append(fresh, s)
		}
		report.Succeeded++
	}

	if report.Succeeded == 0 {
		t.logger.Warn("every account failed, keeping previous snapshot")
		return report, nil
	}

	if len(failed) > 0 {
		previous, _, err := t.store.Metrics().ReadAll(ctx)
		if err != nil {
			return report, fmt.Errorf("read metrics: %w", err)
		}
		for _, s := range previous {
			if failed[s.Account] {
				fresh = append(fresh, s)
			}
		}
	}

	if err := t.store.Metrics().Overwrite(ctx, fresh); err != nil {
		return report, fmt.Errorf("write metrics: %w", err)
	}

	totals := SumEngagement(fresh)
	report.Note("snapshots", len(fresh))
	report.Note("likes", totals.Likes)
	report.Note("retweets", totals.Retweets)
	report.Note("replies", totals.Replies)
	report.Note("engagements", totals.Engagements)
	t.logger.Info("metrics tracked", "snapshots", len(fresh), "engagements", totals.Engagements)
	return report, nil
}

// EngagementTotals sums counters across snapshots.
type EngagementTotals struct {
	Likes       int
	Retweets    int
	Replies     int
	Quotes      int
	Impressions int
	Engagements int
}

// SumEngagement totals the snapshots' counters, missing values as zero.
func SumEngagement(snaps []domain.MetricSnapshot) EngagementTotals {
	var t EngagementTotals
	deref := func(v *int) int {
		if v == nil {
			return 0
		}
		return *v
	}
	for _, s := range snaps {
		t.Likes += deref(s.Likes)
		t.Retweets += deref(s.Retweets)
		t.Replies += deref(s.Replies)
		t.Quotes += deref(s.Quotes)
		t.Impressions += deref(s.Impressions)
		t.Engagements += s.Engagements()
	}
	return t
}
