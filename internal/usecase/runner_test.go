package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrowthAgent/internal/domain"
)

func okStage(name string) Stage {
	return func(context.Context) (domain.StageReport, error) {
		return domain.StageReport{Stage: name, Attempted: 1, Succeeded: 1}, nil
	}
}

func TestRunnerStopsOnFatalStage(t *testing.T) {
	t.Parallel()

	journal := &fakeJournal{}
	observer := &fakeObserver{}
	r := NewRunner(RunnerDeps{Guard: &fakeGuard{}, Journal: journal, Observer: observer, Now: clock})

	ran := false
	wf := Workflow{Name: "content", Stages: []Stage{
		okStage("ingest"),
		func(context.Context) (domain.StageReport, error) {
			return domain.StageReport{Stage: "curate"}, domain.ErrStoreUnavailable
		},
		func(context.Context) (domain.StageReport, error) {
			ran = true
			return domain.StageReport{Stage: "generate"}, nil
		},
	}}

	summary, err := r.Run(context.Background(), wf)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.False(t, ran)
	assert.Len(t, summary.Stages, 2)
	assert.Equal(t, domain.RunFailed, summary.Status())
	assert.Equal(t, 1, ExitCode(summary, err))

	require.Len(t, journal.runs, 1)
	require.Len(t, observer.runs, 1)
	assert.Equal(t, "content", journal.runs[0].Workflow)
}

func TestRunnerRefusesConcurrentRun(t *testing.T) {
	t.Parallel()

	guard := &fakeGuard{}
	r := NewRunner(RunnerDeps{Guard: guard, Now: clock})

	var inner error
	wf := Workflow{Name: "outer", Stages: []Stage{func(ctx context.Context) (domain.StageReport, error) {
		_, inner = r.Run(ctx, Workflow{Name: "inner", Stages: []Stage{okStage("x")}})
		return domain.StageReport{Stage: "outer", Attempted: 1, Succeeded: 1}, nil
	}}}

	summary, err := r.Run(context.Background(), wf)
	require.NoError(t, err)
	require.ErrorIs(t, inner, domain.ErrRunInProgress)
	assert.Equal(t, 0, ExitCode(summary, err))

	_, err = r.Run(context.Background(), Workflow{Name: "after", Stages: []Stage{okStage("x")}})
	require.NoError(t, err, "lock is released after the run")
}

func TestExitCodes(t *testing.T) {
	t.Parallel()

	partial := domain.RunSummary{Stages: []domain.StageReport{{Attempted: 2, Succeeded: 1, Failed: 1}}}
	assert.Equal(t, 2, ExitCode(partial, nil))
	assert.Equal(t, 0, ExitCode(domain.RunSummary{}, nil))
	assert.Equal(t, 1, ExitCode(domain.RunSummary{}, errors.New("fatal")))
}

func TestStageWorkflow(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, nil, nil, nil)
	for _, name := range []string{WorkflowIngest, WorkflowCurate, WorkflowGenerate} {
		wf, err := p.StageWorkflow(name)
		require.NoError(t, err)
		assert.Len(t, wf.Stages, 1)
	}
	_, err := p.StageWorkflow("publish")
	require.Error(t, err)
	assert.Len(t, p.ContentWorkflow().Stages, 3)
}

func TestRunnerRetriesTransientReportDelivery(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{errs: []error{&domain.FetchError{Source: "telegram", Kind: domain.FailureTransient, Err: errors.New("502")}}}
	r := NewRunner(RunnerDeps{Guard: &fakeGuard{}, Notifier: notifier, NotifyRetry: fastRetry(), Now: clock})

	_, err := r.Run(context.Background(), Workflow{Name: "content", Stages: []Stage{okStage("ingest")}})
	require.NoError(t, err)
	assert.Equal(t, 2, notifier.calls)
	require.Len(t, notifier.reports, 1)
	assert.Equal(t, "content", notifier.reports[0].Workflow)

	denied := &fakeNotifier{errs: []error{errors.New("400 Bad Request"), errors.New("400 Bad Request")}}
	r = NewRunner(RunnerDeps{Guard: &fakeGuard{}, Notifier: denied, NotifyRetry: fastRetry(), Now: clock})
	_, err = r.Run(context.Background(), Workflow{Name: "content", Stages: []Stage{okStage("ingest")}})
	require.NoError(t, err, "report delivery never fails the run")
	assert.Equal(t, 1, denied.calls)
}
