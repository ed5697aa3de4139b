package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/infrastructure/storage"
)

func issue(id int, title string, updated time.Time) domain.TrackedIssue {
	return domain.TrackedIssue{ID: id, Title: title, State: domain.IssueOpen, UpdatedAt: updated, Labels: []string{}}
}

func TestIssueSyncUpsertByID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewStore(t.TempDir())
	t1 := fixedNow.Add(-2 * time.Hour)
	t2 := fixedNow.Add(-time.Hour)
	require.NoError(t, store.Issues().Overwrite(ctx, []domain.TrackedIssue{
		issue(1, "stored newer", t2),
		issue(2, "stored older", t1),
		issue(3, "stored same", t1),
	}))

	src := &fakeIssues{issues: []domain.TrackedIssue{
		issue(1, "incoming older", t1),
		issue(2, "incoming newer", t2),
		issue(3, "incoming same", t1),
		issue(4, "brand new", t2),
	}}
	sync := NewIssueSync(store, src, IssueSyncSettings{Repository: "acme/widgets", Retry: fastRetry()}, nil)

	report, err := sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", report.Notes["new"])
	assert.Equal(t, "1", report.Notes["updated"])
	assert.Equal(t, "2", report.Notes["unchanged"])

	got, _, err := store.Issues().ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "stored newer", got[0].Title, "older incoming keeps existing")
	assert.Equal(t, "incoming newer", got[1].Title)
	assert.Equal(t, "incoming same", got[2].Title, "equal timestamps take incoming")
	assert.Equal(t, "brand new", got[3].Title)

	_, err = sync.Sync(ctx)
	require.NoError(t, err)
	again, _, err := store.Issues().ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestIssueSyncFetchFailureWritesNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewStore(t.TempDir())
	src := &fakeIssues{err: &domain.FetchError{Source: "github", Kind: domain.FailurePermanent, Err: errors.New("401")}}
	sync := NewIssueSync(store, src, IssueSyncSettings{Repository: "acme/widgets", Retry: fastRetry()}, nil)

	report, err := sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.False(t, store.Issues().Exists())

	summary := domain.RunSummary{Stages: []domain.StageReport{report}}
	assert.Equal(t, domain.RunFailed, summary.Status())
}

func TestIssueSyncSkipsWithoutRepository(t *testing.T) {
	t.Parallel()

	sync := NewIssueSync(storage.NewStore(t.TempDir()), &fakeIssues{}, IssueSyncSettings{}, nil)
	report, err := sync.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
}
