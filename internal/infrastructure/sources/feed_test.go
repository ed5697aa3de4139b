package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrowthAgent/internal/config"
	"GrowthAgent/internal/domain"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
  <title>Engineering Notes</title>
  <link>https://notes.example</link>
  <item>
    <title>Shipping agents</title>
    <link>https://notes.example/agents</link>
    <guid>notes-1</guid>
    <pubDate>Fri, 02 Jan 2026 06:00:00 GMT</pubDate>
    <category>ai</category>
    <description>Short &lt;b&gt;teaser&lt;/b&gt;</description>
    <content:encoded><![CDATA[<p>First paragraph.</p><script>track()</script><p>Second<br/>line.</p>]]></content:encoded>
  </item>
  <item>
    <title>Description only</title>
    <link>https://notes.example/desc</link>
    <pubDate>Thu, 01 Jan 2026 12:00:00 GMT</pubDate>
    <description>Plain summary text.</description>
  </item>
  <item>
    <title>Old news</title>
    <guid>notes-0</guid>
    <pubDate>Mon, 29 Dec 2025 12:00:00 GMT</pubDate>
    <description>Already seen.</description>
  </item>
  <item>
    <title>Empty</title>
    <guid>notes-empty</guid>
    <pubDate>Fri, 02 Jan 2026 07:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

func feedServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GrowthAgent-test", r.UserAgent())
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newFeedFetcher() *FeedFetcher {
	f := NewFeedFetcher(config.RSSConfig{UserAgent: "GrowthAgent-test", Timeout: 5 * time.Second}, nil)
	f.now = func() time.Time { return time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC) }
	return f
}

func TestFeedFetcherFetch(t *testing.T) {
	t.Parallel()

	srv := feedServer(t, http.StatusOK, rssFixture)
	since := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	sub := domain.Subscription{Kind: domain.SourceRSS, ID: "feed-1", Locator: srv.URL, Name: "Notes", LastFetchedAt: &since}

	records, err := newFeedFetcher().Fetch(context.Background(), sub, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, domain.SourceRSS, first.Source)
	assert.Equal(t, "notes-1", first.OriginID)
	assert.Equal(t, "feed-1", first.AuthorID)
	assert.Equal(t, "Engineering Notes", first.Author)
	assert.Equal(t, "Shipping agents", first.Title)
	assert.Equal(t, "First paragraph.\n\nSecond\nline.", first.Body)
	assert.Equal(t, time.Date(2026, 1, 2, 6, 0, 0, 0, time.UTC), first.PublishedAt)
	require.NotNil(t, first.Article)
	assert.Equal(t, "Engineering Notes", first.Article.FeedTitle)
	assert.Equal(t, []string{"ai"}, first.Article.Categories)
	assert.Equal(t, "Short teaser", first.Article.Excerpt)
	assert.Nil(t, first.Tweet)
	first.ID = "assigned-at-ingest"
	require.NoError(t, first.Validate())

	second := records[1]
	assert.Equal(t, "https://notes.example/desc", second.OriginID, "link stands in for a missing guid")
	assert.Equal(t, "Plain summary text.", second.Body)
}

func TestFeedFetcherRespectsLimit(t *testing.T) {
	t.Parallel()

	srv := feedServer(t, http.StatusOK, rssFixture)
	records, err := newFeedFetcher().Fetch(context.Background(), domain.Subscription{ID: "f", Locator: srv.URL}, 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFeedFetcherClassifiesErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		status    int
		body      string
		transient bool
	}{
		"unavailable": {http.StatusServiceUnavailable, "", true},
		"not found":   {http.StatusNotFound, "", false},
		"not a feed":  {http.StatusOK, "<html><body>hello</body></html>", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			srv := feedServer(t, tc.status, tc.body)
			_, err := newFeedFetcher().Fetch(context.Background(), domain.Subscription{ID: "f", Locator: srv.URL}, 5)
			var ferr *domain.FetchError
			require.ErrorAs(t, err, &ferr)
			assert.Equal(t, tc.transient, ferr.Transient())
		})
	}
}

func TestHTMLToText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "plain text", htmlToText("  plain   text "))
	assert.Equal(t, "Title\n\nBody", htmlToText("<h1>Title</h1><div>Body</div><style>p{}</style>"))
	assert.Equal(t, "", htmlToText(""))
	assert.Equal(t, "héll", truncateRunes("héllo", 4))
}
