package llm

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrowthAgent/internal/domain"
)

func TestDefaultPromptsRenderEvaluation(t *testing.T) {
	t.Parallel()

	system, user, err := DefaultPrompts().Evaluation("LLM evals are hard.", domain.JudgeContext{
		Author: "alice",
		Source: domain.SourceX,
		URL:    "https://twitter.com/alice/status/1",
	})
	require.NoError(t, err)
	assert.Contains(t, system, `"score"`)
	assert.Contains(t, user, "Analyze this content from alice (X):")
	assert.Contains(t, user, "URL: https://twitter.com/alice/status/1")
	assert.NotContains(t, user, "Title:")
	assert.Contains(t, user, "LLM evals are hard.")
}

func TestDefaultPromptsRenderDraft(t *testing.T) {
	t.Parallel()

	records := []domain.CuratedRecord{
		{Author: "bob", URL: "https://blog.example/a", Score: 91, Summary: "A", Rationale: "Deep", PublishedAt: time.Now()},
		{Score: 70, Summary: "B"},
	}
	system, user, err := DefaultPrompts().Draft(records, "Growth for dev tools")
	require.NoError(t, err)
	assert.Contains(t, system, "Growth for dev tools")
	assert.Contains(t, user, "**Source #1**")
	assert.Contains(t, user, "- Score: 91/100")
	assert.Contains(t, user, "**Source #2**\n- Author: Unknown\n- URL: N/A")
}

func TestLoadPromptsOverridesFromDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, EvaluationUserFile), []byte("Rate {{.Content}} by {{.Author}}"), 0o644))

	p, err := LoadPrompts(dir)
	require.NoError(t, err)

	system, user, err := p.Evaluation("this", domain.JudgeContext{Author: "carol", Source: domain.SourceRSS})
	require.NoError(t, err)
	assert.Equal(t, "Rate this by carol", user)
	assert.Contains(t, system, "senior technology editor", "missing files keep the default")
}

func TestLoadPromptsRejectsBadTemplate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DraftSystemFile), []byte("{{.Context"), 0o644))

	_, err := LoadPrompts(dir)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
