package domain

import (
	"encoding/json"
	"time"
)

// TrackedAccount is an X account whose own posts are measured.
type TrackedAccount struct {
	Username string
	UserID   string
}

// MetricSnapshot records engagement counters for one published post.
// Engagements is derived and written on every serialization; stored values are ignored.
type MetricSnapshot struct {
	ID          string    `json:"id"`
	Account     string    `json:"account"`
	Platform    string    `json:"platform"`
	ContentType string    `json:"content_type"`
	ContentID   string    `json:"content_id"`
	URL         string    `json:"url"`
	Likes       *int      `json:"likes"`
	Retweets    *int      `json:"retweets"`
	Replies     *int      `json:"replies"`
	Quotes      *int      `json:"quotes"`
	Impressions *int      `json:"impressions"`
	Clicks      *int      `json:"clicks"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Engagements sums the snapshot's interaction counters.
func (m MetricSnapshot) Engagements() int {
	return Engagements(m.Likes, m.Retweets, m.Replies, m.Quotes)
}

// MarshalJSON writes the snapshot with a freshly computed engagements field.
func (m MetricSnapshot) MarshalJSON() ([]byte, error) {
	type plain MetricSnapshot
	return json.Marshal(struct {
		plain
		Engagements int `json:"engagements"`
	}{plain: plain(m), Engagements: m.Engagements()})
}

// Engagements is likes + retweets + replies + quotes with missing counters as zero.
func Engagements(likes, retweets, replies, quotes *int) int {
	total := 0
	for _, v := range []*int{likes, retweets, replies, quotes} {
		if v != nil {
			total += *v
		}
	}
	return total
}

// Count returns a pointer to n, or nil when n is zero and therefore unknown.
func Count(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}
