package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrowthAgent/internal/domain"
)

func partialSummary() domain.RunSummary {
	start := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	return domain.RunSummary{
		Workflow:   "content",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Stages: []domain.StageReport{
			{Stage: "ingest", Attempted: 3, Succeeded: 2, Failed: 1, Errors: []string{"rss/Example: timeout"}, Notes: map[string]string{"records": "12"}},
			{Stage: "curate", Attempted: 12, Succeeded: 12, Notes: map[string]string{"selected": "5", "dropped": "7"}},
		},
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	renderSummary(&buf, partialSummary())

	out := buf.String()
	assert.Contains(t, out, "content: partial in 1.5s")
	assert.Contains(t, out, "dropped=7 selected=5")
	assert.Contains(t, out, "ingest: rss/Example: timeout")
	assert.NotContains(t, out, "fatal:")
}

func TestFinishRunExitCodes(t *testing.T) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	err := finishRun(cmd, partialSummary(), nil)
	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 2, exit.code)

	ok := partialSummary()
	ok.Stages = ok.Stages[1:]
	assert.NoError(t, finishRun(cmd, ok, nil))

	locked := domain.RunSummary{Workflow: "content", Fatal: domain.ErrRunInProgress.Error()}
	err = finishRun(cmd, locked, domain.ErrRunInProgress)
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	err = finishRun(cmd, domain.RunSummary{Workflow: "publish"}, errors.New("unknown workflow"))
	assert.EqualError(t, err, "publish: unknown workflow")
	assert.NotContains(t, out.String(), "publish")
}

func TestRenderSubscriptions(t *testing.T) {
	fetched := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	renderSubscriptions(&buf,
		[]domain.CreatorSubscription{{ID: "1", Username: "alice", FollowersCount: 42}},
		[]domain.FeedSubscription{{Title: "Go Blog", URL: "https://go.dev/blog/feed.atom", LastFetchedAt: &fetched}},
	)

	out := buf.String()
	assert.Contains(t, out, "@alice")
	assert.Contains(t, out, "never")
	assert.Contains(t, out, "Go Blog")
	assert.Contains(t, out, string(domain.FeedActive))
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCommand()
	for _, path := range [][]string{
		{"init"}, {"run"}, {"generate"}, {"schedule"}, {"archive"}, {"status"}, {"config"},
		{"subscriptions", "add-creator"}, {"subscriptions", "add-feed"}, {"subscriptions", "list"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}

	run, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	assert.Error(t, run.Args(run, []string{"publish"}))
	assert.NoError(t, run.Args(run, []string{"content"}))
}

func TestRenderDays(t *testing.T) {
	var buf bytes.Buffer
	renderDays(&buf, []string{"2026-01-01", "2026-01-02"}, nil)

	out := buf.String()
	assert.Contains(t, out, "2026-01-01")
	assert.Contains(t, out, "2026-01-02")
	assert.Contains(t, out, "archived")
	assert.Contains(t, out, "-")
}

func TestConfigCommandMasksSecrets(t *testing.T) {
	for _, key := range []string{"GROWTH_AGENT_CONFIG", "DATA_ROOT", "X_RAPIDAPI_KEY", "GITHUB_TOKEN", "TELEGRAM_BOT_TOKEN", "JOURNAL_DSN", "SCHEDULER_TIMEZONE"} {
		t.Setenv(key, "")
	}
	t.Setenv("OPENROUTER_API_KEY", "sk-or-secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_root: /srv/growth\n"), 0o644))

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "--config", path})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "data_root: /srv/growth")
	assert.Contains(t, out.String(), "***")
	assert.NotContains(t, out.String(), "sk-or-secret")
}
