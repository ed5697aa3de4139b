package domain

import "time"

// FeedStatus marks whether a feed subscription takes part in ingestion.
type FeedStatus string

const (
	FeedActive   FeedStatus = "active"
	FeedInactive FeedStatus = "inactive"
)

// CreatorSubscription follows an X account by its numeric id.
type CreatorSubscription struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	DisplayName    string     `json:"display_name,omitempty"`
	FollowersCount int        `json:"followers_count"`
	SubscribedAt   time.Time  `json:"subscribed_at"`
	LastFetchedAt  *time.Time `json:"last_fetched_at"`
}

// Subscription converts the creator to the fetcher-facing view.
func (c CreatorSubscription) Subscription() Subscription {
	return Subscription{
		Kind:          SourceX,
		ID:            c.ID,
		Locator:       c.ID,
		Name:          c.Username,
		LastFetchedAt: c.LastFetchedAt,
	}
}

// FeedSubscription follows an RSS or Atom feed.
type FeedSubscription struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	Category      string     `json:"category,omitempty"`
	Language      string     `json:"language,omitempty"`
	Status        FeedStatus `json:"status"`
	SubscribedAt  time.Time  `json:"subscribed_at"`
	LastFetchedAt *time.Time `json:"last_fetched_at"`
}

// Active reports whether the feed should be fetched. Status defaults to active.
func (f FeedSubscription) Active() bool {
	return f.Status == "" || f.Status == FeedActive
}

// Subscription converts the feed to the fetcher-facing view.
func (f FeedSubscription) Subscription() Subscription {
	return Subscription{
		Kind:          SourceRSS,
		ID:            f.ID,
		Locator:       f.URL,
		Name:          f.Title,
		LastFetchedAt: f.LastFetchedAt,
	}
}

// Subscription is what a source fetcher needs to pull one account or feed.
type Subscription struct {
	Kind          SourceKind
	ID            string
	Locator       string
	Name          string
	LastFetchedAt *time.Time
}
