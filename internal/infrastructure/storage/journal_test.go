package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrowthAgent/internal/domain"
)

func TestSQLiteJournalRecordAndRecent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, err := OpenJournal(ctx, DialectSQLite, filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	start := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	first := domain.RunSummary{
		Workflow:   "content",
		StartedAt:  start,
		FinishedAt: start.Add(time.Minute),
		Stages:     []domain.StageReport{{Stage: "ingest", Attempted: 2, Succeeded: 2}},
	}
	second := domain.RunSummary{
		Workflow:   "issues",
		StartedAt:  start.Add(time.Hour),
		FinishedAt: start.Add(time.Hour + time.Second),
		Stages:     []domain.StageReport{{Stage: "sync", Attempted: 1}},
	}
	second.Stages[0].Fail("repo", errors.New("boom"))

	require.NoError(t, j.Record(ctx, first))
	require.NoError(t, j.Record(ctx, second))

	runs, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "issues", runs[0].Workflow)
	assert.Equal(t, domain.RunFailed, runs[0].Status)
	assert.Equal(t, "content", runs[1].Workflow)
	assert.Equal(t, domain.RunSuccess, runs[1].Status)
	assert.Equal(t, 2, runs[1].Succeeded)
	assert.True(t, runs[1].StartedAt.Equal(start))
	assert.Contains(t, runs[0].Detail, "boom")

	limited, err := j.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestOpenJournalRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := OpenJournal(context.Background(), "mysql", "")
	require.ErrorIs(t, err, domain.ErrConfiguration)
}
