package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/infrastructure/storage"
	"GrowthAgent/internal/retry"
	"GrowthAgent/internal/source"
)

var fixedNow = time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func fastRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

type fakeFetcher struct {
	kind domain.SourceKind
	fn   func(sub domain.Subscription, limit int) ([]domain.RawRecord, error)
}

func (f *fakeFetcher) Kind() domain.SourceKind { return f.kind }

func (f *fakeFetcher) Fetch(_ context.Context, sub domain.Subscription, limit int) ([]domain.RawRecord, error) {
	return f.fn(sub, limit)
}

func tweets(sub domain.Subscription, n int) []domain.RawRecord {
	out := make([]domain.RawRecord, n)
	for i := range out {
		out[i] = domain.RawRecord{
			Source:      domain.SourceX,
			OriginID:    fmt.Sprintf("%s-%d", sub.ID, i),
			AuthorID:    sub.ID,
			Author:      sub.Name,
			Body:        fmt.Sprintf("tweet %d from %s", i, sub.Name),
			URL:         fmt.Sprintf("https://twitter.com/%s/status/%d", sub.Name, i),
			PublishedAt: fixedNow.Add(-time.Duration(i) * time.Minute),
			Tweet:       &domain.TweetFields{Username: sub.Name},
		}
	}
	return out
}

func articles(sub domain.Subscription, n int) []domain.RawRecord {
	out := make([]domain.RawRecord, n)
	for i := range out {
		out[i] = domain.RawRecord{
			Source:      domain.SourceRSS,
			OriginID:    fmt.Sprintf("%s/%d", sub.Locator, i),
			AuthorID:    sub.ID,
			Author:      sub.Name,
			Title:       fmt.Sprintf("Post %d", i),
			Body:        fmt.Sprintf("article %d", i),
			URL:         fmt.Sprintf("%s/%d", sub.Locator, i),
			PublishedAt: fixedNow.Add(-time.Duration(i) * time.Hour),
			Article:     &domain.FeedFields{FeedID: sub.ID, FeedTitle: sub.Name},
		}
	}
	return out
}

type fakeJudge struct {
	mu    sync.Mutex
	calls int
	fn    func(text string) (domain.Judgement, error)
}

func (j *fakeJudge) Evaluate(_ context.Context, text string, _ domain.JudgeContext) (domain.Judgement, error) {
	j.mu.Lock()
	j.calls++
	j.mu.Unlock()
	return j.fn(text)
}

type fakeDrafter struct {
	calls int
	got   []domain.CuratedRecord
	draft domain.Draft
	err   error
}

func (d *fakeDrafter) Draft(_ context.Context, records []domain.CuratedRecord, _ string) (domain.Draft, error) {
	d.calls++
	d.got = records
	return d.draft, d.err
}

type fakeIssues struct {
	issues []domain.TrackedIssue
	err    error
}

func (f *fakeIssues) ListIssues(context.Context, string, domain.IssueQuery) ([]domain.TrackedIssue, error) {
	return f.issues, f.err
}

type fakeMetrics struct {
	byAccount map[string][]domain.MetricSnapshot
	failing   map[string]bool
}

func (f *fakeMetrics) FetchEngagement(_ context.Context, account domain.TrackedAccount, _ int) ([]domain.MetricSnapshot, error) {
	if f.failing[account.Username] {
		return nil, &domain.FetchError{Source: account.Username, Kind: domain.FailurePermanent, Err: fmt.Errorf("suspended")}
	}
	return f.byAccount[account.Username], nil
}

type fakeGuard struct {
	mu   sync.Mutex
	held bool
}

func (g *fakeGuard) Acquire(context.Context) (func() error, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return nil, domain.ErrRunInProgress
	}
	g.held = true
	return func() error {
		g.mu.Lock()
		g.held = false
		g.mu.Unlock()
		return nil
	}, nil
}

type fakeJournal struct {
	runs []domain.RunSummary
}

func (j *fakeJournal) Record(_ context.Context, s domain.RunSummary) error {
	j.runs = append(j.runs, s)
	return nil
}

func (j *fakeJournal) Recent(context.Context, int) ([]domain.RunRecord, error) { return nil, nil }

type fakeObserver struct {
	runs []domain.RunSummary
}

func (o *fakeObserver) ObserveRun(s domain.RunSummary) { o.runs = append(o.runs, s) }

func testSettings() ContentSettings {
	return ContentSettings{
		MaxItemsPerSource: 20,
		FetchConcurrency:  4,
		MinScore:          60,
		TopK:              10,
		MaxCurateItems:    50,
		JudgeConcurrency:  4,
		GenerationEnabled: true,
		Location:          time.UTC,
		FetchRetry:        fastRetry(),
		JudgeRetry:        fastRetry(),
		DraftRetry:        fastRetry(),
	}
}

func newPipeline(t *testing.T, store *storage.Store, judge *fakeJudge, drafter *fakeDrafter, fetchers ...*fakeFetcher) *ContentPipeline {
	t.Helper()
	registry := source.NewRegistry()
	for _, f := range fetchers {
		registry.Register(f)
	}
	deps := ContentDeps{
		Store:    store,
		Fetchers: registry,
		Settings: testSettings(),
		Now:      clock,
	}
	if judge != nil {
		deps.Judge = judge
	}
	if drafter != nil {
		deps.Drafter = drafter
	}
	return NewContentPipeline(deps)
}

func stageRaw(t *testing.T, store *storage.Store, records []domain.RawRecord) {
	t.Helper()
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = fmt.Sprintf("raw-%02d", i)
		}
	}
	if err := store.Inbox().Overwrite(context.Background(), records); err != nil {
		t.Fatalf("stage inbox: %v", err)
	}
}

type fakeNotifier struct {
	errs    []error
	calls   int
	reports []domain.RunSummary
}

func (n *fakeNotifier) PublishReport(_ context.Context, summary domain.RunSummary) error {
	n.calls++
	if len(n.errs) > 0 {
		err := n.errs[0]
		n.errs = n.errs[1:]
		return err
	}
	n.reports = append(n.reports, summary)
	return nil
}
