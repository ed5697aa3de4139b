package frontmatter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderGoldenDocument(t *testing.T) {
	t.Parallel()

	shanghai := time.FixedZone("CST", 8*60*60)
	cases := map[string]struct {
		date time.Time
		want string
	}{
		"utc": {
			date: time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC),
			want: "---\n" +
				"title: AI Insights Daily\n" +
				"date: 2026-01-02T08:00:00Z\n" +
				"summary: Agents everywhere.\n" +
				"tags:\n" +
				"  - AI\n" +
				"  - Technology\n" +
				"author: Growth Agent\n" +
				"---\n" +
				"# Heading\n\nBody text.\n",
		},
		"offset": {
			date: time.Date(2026, 1, 2, 8, 0, 0, 0, shanghai),
			want: "---\n" +
				"title: AI Insights Daily\n" +
				"date: 2026-01-02T08:00:00+08:00\n" +
				"summary: Agents everywhere.\n" +
				"tags:\n" +
				"  - AI\n" +
				"  - Technology\n" +
				"author: Growth Agent\n" +
				"---\n" +
				"# Heading\n\nBody text.\n",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := Header{
				Title:   "AI Insights Daily",
				Date:    tc.date,
				Summary: "Agents everywhere.",
				Tags:    []string{"AI", "Technology"},
				Author:  "Growth Agent",
			}
			out, err := Render(h, []byte("# Heading\n\nBody text.\n"))
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(out))
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()

	h := Header{
		Title:   "Title: with colon",
		Date:    time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Summary: "line one",
		Tags:    []string{"AI"},
		Author:  "Someone",
	}
	body := []byte("text\n---\nnot a fence for the header\n")
	out, err := Render(h, body)
	require.NoError(t, err)

	var got Header
	gotBody, err := Parse(out, &got)
	require.NoError(t, err)
	assert.Equal(t, h.Title, got.Title)
	assert.True(t, h.Date.Equal(got.Date))
	assert.Equal(t, h.Tags, got.Tags)
	assert.Equal(t, string(body), string(gotBody))
}

func TestSplitErrors(t *testing.T) {
	t.Parallel()

	_, _, err := Split([]byte("# no header\n"))
	require.ErrorIs(t, err, ErrMissing)

	_, _, err = Split([]byte("---\ntitle: x\nbody without closing fence\n"))
	require.ErrorIs(t, err, ErrMalformed)

	meta, body, err := Split([]byte("---\r\ntitle: x\r\n---\r\nbody\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "title: x", string(meta))
	assert.Equal(t, "body\n", string(body))
}
