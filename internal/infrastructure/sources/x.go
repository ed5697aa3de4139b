package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"GrowthAgent/internal/config"
	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/ports"
)

const twitterDateLayout = "Mon Jan 02 15:04:05 -0700 2006"

// XClient reads user timelines through the RapidAPI Twitter endpoint.
type XClient struct {
	baseURL string
	apiKey  string
	apiHost string
	http    *http.Client
}

// NewXClient creates a client for cfg.APIHost.
func NewXClient(cfg config.XConfig) *XClient {
	return &XClient{
		baseURL: "https://" + cfg.APIHost,
		apiKey:  cfg.APIKey,
		apiHost: cfg.APIHost,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL overrides the API base, mainly for tests.
func (c *XClient) WithBaseURL(base string) *XClient {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

// Tweet is one timeline post as returned by the API.
type Tweet struct {
	ID           string
	Text         string
	CreatedAt    time.Time
	Likes        int
	Retweets     int
	Replies      int
	Quotes       int
	Views        *int
	Media        []string
	Hashtags     []string
	HasTimestamp bool
}

// UserTweets returns up to count recent posts of the user with the numeric id.
func (c *XClient) UserTweets(ctx context.Context, userID string, count int) ([]Tweet, error) {
	if c.apiKey == "" || c.apiHost == "" {
		return nil, &domain.FetchError{Source: "x/" + userID, Kind: domain.FailurePermanent, Err: fmt.Errorf("rapidapi key or host missing: %w", domain.ErrConfiguration)}
	}

	q := url.Values{}
	q.Set("user", userID)
	q.Set("count", strconv.Itoa(count))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user-tweets?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.apiHost)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &domain.FetchError{Source: "x/" + userID, Kind: domain.FailureTransient, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &domain.FetchError{
			Source: "x/" + userID,
			Kind:   domain.KindForStatus(resp.StatusCode),
			Err:    fmt.Errorf("timeline returned %s: %s", resp.Status, strings.TrimSpace(string(detail))),
		}
	}

	var payload timelineResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &domain.FetchError{Source: "x/" + userID, Kind: domain.FailurePermanent, Err: fmt.Errorf("decode timeline: %w", err)}
	}

	results := payload.tweets()
	tweets := make([]Tweet, 0, len(results))
	for _, r := range results {
		if count > 0 && len(tweets) >= count {
			break
		}
		if t, ok := r.tweet(); ok {
			tweets = append(tweets, t)
		}
	}
	return tweets, nil
}

type tweetResults struct {
	Result *tweetResult `json:"result"`
}

type instruction struct {
	Type    string `json:"type"`
	Entries []struct {
		Content struct {
			EntryType   string `json:"entryType"`
			ItemContent struct {
				ItemType     string       `json:"itemType"`
				TweetResults tweetResults `json:"tweet_results"`
			} `json:"itemContent"`
			TweetResults tweetResults `json:"tweet_results"`
		} `json:"content"`
	} `json:"entries"`
}

type timeline struct {
	Instructions []instruction `json:"instructions"`
}

// timelineResponse covers both response shapes the endpoint is known to return.
type timelineResponse struct {
	Result *struct {
		Timeline timeline `json:"timeline"`
	} `json:"result"`
	Data *struct {
		User struct {
			Result struct {
				TimelineResponse struct {
					Timeline timeline `json:"timeline"`
				} `json:"timeline_response"`
			} `json:"result"`
		} `json:"user"`
	} `json:"data"`
}

func (r timelineResponse) tweets() []*tweetResult {
	var out []*tweetResult
	if r.Result != nil {
		for _, ins := range r.Result.Timeline.Instructions {
			if ins.Type != "TimelineAddEntries" {
				continue
			}
			for _, e := range ins.Entries {
				c := e.Content
				if c.EntryType == "TimelineTimelineItem" && c.ItemContent.ItemType == "TimelineTweet" && c.ItemContent.TweetResults.Result != nil {
					out = append(out, c.ItemContent.TweetResults.Result)
				}
			}
		}
	}
	if len(out) == 0 && r.Data != nil {
		for _, ins := range r.Data.User.Result.TimelineResponse.Timeline.Instructions {
			for _, e := range ins.Entries {
				if res := e.Content.TweetResults.Result; res != nil {
					out = append(out, res)
				}
			}
		}
	}
	return out
}

type tweetResult struct {
	RestID string `json:"rest_id"`
	Legacy struct {
		FullText      string `json:"full_text"`
		CreatedAt     string `json:"created_at"`
		FavoriteCount int    `json:"favorite_count"`
		RetweetCount  int    `json:"retweet_count"`
		ReplyCount    int    `json:"reply_count"`
		QuoteCount    int    `json:"quote_count"`
		Entities      struct {
			Hashtags []struct {
				Text string `json:"text"`
			} `json:"hashtags"`
		} `json:"entities"`
		ExtendedEntities struct {
			Media []struct {
				MediaURLHTTPS string `json:"media_url_https"`
			} `json:"media"`
		} `json:"extended_entities"`
	} `json:"legacy"`
	Views struct {
		Count string `json:"count"`
	} `json:"views"`
	// Set on TweetWithVisibilityResults wrappers.
	Tweet *tweetResult `json:"tweet"`
}

func (r *tweetResult) tweet() (Tweet, bool) {
	if r.RestID == "" && r.Tweet != nil {
		r = r.Tweet
	}
	if r.RestID == "" {
		return Tweet{}, false
	}
	t := Tweet{
		ID:       r.RestID,
		Text:     r.Legacy.FullText,
		Likes:    r.Legacy.FavoriteCount,
		Retweets: r.Legacy.RetweetCount,
		Replies:  r.Legacy.ReplyCount,
		Quotes:   r.Legacy.QuoteCount,
	}
	if created, err := time.Parse(twitterDateLayout, r.Legacy.CreatedAt); err == nil {
		t.CreatedAt = created.UTC()
		t.HasTimestamp = true
	}
	if v, err := strconv.Atoi(r.Views.Count); err == nil {
		t.Views = &v
	}
	for _, h := range r.Legacy.Entities.Hashtags {
		if h.Text != "" {
			t.Hashtags = append(t.Hashtags, h.Text)
		}
	}
	for _, m := range r.Legacy.ExtendedEntities.Media {
		if m.MediaURLHTTPS != "" {
			t.Media = append(t.Media, m.MediaURLHTTPS)
		}
	}
	return t, true
}

// TweetURL is the canonical link of a post.
func TweetURL(username, id string) string {
	return "https://twitter.com/" + username + "/status/" + id
}

// XFetcher turns creator timelines into raw records.
type XFetcher struct {
	client *XClient
	now    func() time.Time
	logger *slog.Logger
}

var _ ports.SourceFetcher = (*XFetcher)(nil)

// NewXFetcher wraps an XClient as a source fetcher.
func NewXFetcher(client *XClient, logger *slog.Logger) *XFetcher {
	return &XFetcher{client: client, now: time.Now, logger: logger}
}

// Kind identifies the fetcher inside the registry.
func (f *XFetcher) Kind() domain.SourceKind { return domain.SourceX }

// Fetch returns the creator's most recent posts. The timeline is always read
// from the top; there is no since cursor.
func (f *XFetcher) Fetch(ctx context.Context, sub domain.Subscription, limit int) ([]domain.RawRecord, error) {
	tweets, err := f.client.UserTweets(ctx, sub.Locator, limit)
	if err != nil {
		return nil, err
	}

	now := f.now().UTC()
	records := make([]domain.RawRecord, 0, len(tweets))
	for _, t := range tweets {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		published := t.CreatedAt
		if !t.HasTimestamp {
			published = now
		}
		records = append(records, domain.RawRecord{
			Source:      domain.SourceX,
			OriginID:    t.ID,
			AuthorID:    sub.ID,
			Author:      sub.Name,
			Body:        t.Text,
			URL:         TweetURL(sub.Name, t.ID),
			PublishedAt: published,
			FetchedAt:   now,
			Tweet: &domain.TweetFields{
				Username:     sub.Name,
				ReplyCount:   t.Replies,
				RetweetCount: t.Retweets,
				LikeCount:    t.Likes,
				QuoteCount:   t.Quotes,
				ViewCount:    t.Views,
				Media:        t.Media,
				Hashtags:     t.Hashtags,
			},
		})
	}
	if f.logger != nil {
		f.logger.Debug("timeline fetched", "username", sub.Name, "records", len(records))
	}
	return records, nil
}
