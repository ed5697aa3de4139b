package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrowthAgent/internal/domain"
)

func TestParseJudgement(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		raw  string
		want domain.Judgement
	}{
		"plain": {
			raw:  `{"score": 82, "summary": "Agents in prod.", "rationale": "Concrete numbers."}`,
			want: domain.Judgement{Score: 82, Summary: "Agents in prod.", Rationale: "Concrete numbers."},
		},
		"fenced with comment key": {
			raw:  "```json\n{\"score\": 64.6, \"summary\": \"Eval tricks\", \"comment\": \"Useful\"}\n```",
			want: domain.Judgement{Score: 65, Summary: "Eval tricks", Rationale: "Useful"},
		},
		"think block and prose": {
			raw:  "<think>hmm</think>Here you go: {\"score\": 0, \"summary\": \"Spam\"} thanks",
			want: domain.Judgement{Score: 0, Summary: "Spam"},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseJudgement(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseJudgementMalformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"no json here",
		`{"summary": "missing score"}`,
		`{"score": 140, "summary": "too high"}`,
		`{"score": 70, "summary": "  "}`,
		`{"score": "high", "summary": "x"}`,
	} {
		_, err := ParseJudgement(raw)
		require.Error(t, err, raw)

		var jerr *domain.JudgementError
		require.ErrorAs(t, err, &jerr, raw)
		assert.True(t, jerr.Malformed)
		assert.False(t, domain.IsTransient(err))
	}
}

func TestParseDraftWithFrontmatter(t *testing.T) {
	t.Parallel()

	raw := "```markdown\n---\ntitle: Agents Everywhere\ndate: 2026-01-02\nsummary: What shipped this week.\ntags:\n  - AI\n  - Agents\n---\n# Agents Everywhere\n\nBody text.\n```"

	d, err := ParseDraft(raw)
	require.NoError(t, err)
	assert.Equal(t, "Agents Everywhere", d.Title)
	assert.Equal(t, "What shipped this week.", d.Summary)
	assert.Equal(t, []string{"AI", "Agents"}, d.Tags)
	assert.Empty(t, d.Author)
	require.NotNil(t, d.Date)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), *d.Date)
	assert.Equal(t, "# Agents Everywhere\n\nBody text.\n", d.Body)
}

func TestParseDraftFallsBackToMarkdownOutline(t *testing.T) {
	t.Parallel()

	raw := "Intro line that is **bold** here\nand wraps.\n\n# The Real Title\n\nMore text."

	d, err := ParseDraft(raw)
	require.NoError(t, err)
	assert.Equal(t, "The Real Title", d.Title)
	assert.Equal(t, "Intro line that is bold here and wraps.", d.Summary)
	assert.Nil(t, d.Date)
	assert.Contains(t, d.Body, "More text.")
}

func TestParseDraftBrokenFrontmatterKeepsBody(t *testing.T) {
	t.Parallel()

	raw := "---\ntitle: [unclosed\n---\nJust the body."

	d, err := ParseDraft(raw)
	require.NoError(t, err)
	assert.Empty(t, d.Title)
	assert.Contains(t, d.Body, "Just the body.")
}

func TestParseDraftEmpty(t *testing.T) {
	t.Parallel()

	_, err := ParseDraft("  \n")
	var derr *domain.DraftError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.FailurePermanent, derr.Kind)
}
