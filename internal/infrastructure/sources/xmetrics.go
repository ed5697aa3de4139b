package sources

import (
	"context"
	"time"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/ports"
)

// XMetrics reads engagement counters from an account's own timeline.
type XMetrics struct {
	client *XClient
	now    func() time.Time
}

var _ ports.MetricsSource = (*XMetrics)(nil)

// NewXMetrics shares the timeline client with the content fetcher.
func NewXMetrics(client *XClient) *XMetrics {
	return &XMetrics{client: client, now: time.Now}
}

// FetchEngagement returns one snapshot per recent post. Impressions and
// clicks are not exposed by the timeline endpoint and stay unknown.
func (m *XMetrics) FetchEngagement(ctx context.Context, account domain.TrackedAccount, count int) ([]domain.MetricSnapshot, error) {
	tweets, err := m.client.UserTweets(ctx, account.UserID, count)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	snapshots := make([]domain.MetricSnapshot, 0, len(tweets))
	for _, t := range tweets {
		snapshots = append(snapshots, domain.MetricSnapshot{
			Account:     account.Username,
			Platform:    "x",
			ContentType: "post",
			ContentID:   t.ID,
			URL:         TweetURL(account.Username, t.ID),
			Likes:       domain.Count(t.Likes),
			Retweets:    domain.Count(t.Retweets),
			Replies:     domain.Count(t.Replies),
			Quotes:      domain.Count(t.Quotes),
			Impressions: t.Views,
			RecordedAt:  now,
		})
	}
	return snapshots, nil
}
