package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunSummaryStatus(t *testing.T) {
	t.Parallel()

	ok := RunSummary{Stages: []StageReport{{Attempted: 2, Succeeded: 2}}}
	assert.Equal(t, RunSuccess, ok.Status())

	partial := RunSummary{Stages: []StageReport{
		{Attempted: 2, Succeeded: 2},
		{Attempted: 1, Failed: 1},
	}}
	assert.Equal(t, RunPartial, partial.Status())

	allFailed := RunSummary{Stages: []StageReport{{Attempted: 1, Failed: 1}}}
	assert.Equal(t, RunFailed, allFailed.Status())

	fatal := RunSummary{Fatal: "store unavailable", Stages: []StageReport{{Attempted: 1, Succeeded: 1}}}
	assert.Equal(t, RunFailed, fatal.Status())

	empty := RunSummary{}
	assert.Equal(t, RunSuccess, empty.Status())
}

func TestStageReportFail(t *testing.T) {
	t.Parallel()

	r := NewStageReport("ingest")
	r.Fail("feed-1", errors.New("boom"))
	r.Note("records", 3)

	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, []string{"feed-1: boom"}, r.Errors)
	assert.Equal(t, "3", r.Notes["records"])
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	assert.True(t, IsTransient(&FetchError{Kind: FailureTransient, Err: errors.New("503")}))
	assert.False(t, IsTransient(&FetchError{Kind: FailurePermanent, Err: errors.New("404")}))
	assert.False(t, IsTransient(&JudgementError{Malformed: true, Err: errors.New("bad json")}))
	assert.True(t, IsTransient(&JudgementError{Err: errors.New("timeout")}))
	assert.False(t, IsTransient(errors.New("plain")))
	assert.False(t, IsTransient(nil))
}

func TestKindForStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FailureTransient, KindForStatus(429))
	assert.Equal(t, FailureTransient, KindForStatus(503))
	assert.Equal(t, FailurePermanent, KindForStatus(401))
	assert.Equal(t, FailurePermanent, KindForStatus(404))
}
