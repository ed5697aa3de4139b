package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/infrastructure/storage"
)

// Subscriptions manages the creator and feed collections.
type Subscriptions struct {
	store  *storage.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewSubscriptions constructs the subscription manager.
func NewSubscriptions(store *storage.Store, logger *slog.Logger) *Subscriptions {
	return &Subscriptions{store: store, logger: componentLogger(logger, "subscriptions"), now: time.Now}
}

// InitLayout creates the data directories and empty subscription files.
// Existing collections are left untouched.
func (s *Subscriptions) InitLayout(ctx context.Context) error {
	if err := s.store.Init(); err != nil {
		return err
	}
	if c := s.store.Creators(); !c.Exists() {
		if err := c.Overwrite(ctx, nil); err != nil {
			return err
		}
	}
	if f := s.store.Feeds(); !f.Exists() {
		if err := f.Overwrite(ctx, nil); err != nil {
			return err
		}
	}
	s.logger.Info("data layout ready", "root", s.store.Root())
	return nil
}

// AddCreator subscribes to an X account. Re-adding an existing id refreshes
// the profile fields and keeps the subscription and fetch timestamps.
func (s *Subscriptions) AddCreator(ctx context.Context, c domain.CreatorSubscription) (domain.CreatorSubscription, error) {
	c.ID = strings.TrimSpace(c.ID)
	c.Username = strings.TrimPrefix(strings.TrimSpace(c.Username), "@")
	if _, err := strconv.ParseUint(c.ID, 10, 64); err != nil {
		return c, fmt.Errorf("creator id %q is not numeric: %w", c.ID, domain.ErrInvalidSubscription)
	}
	if c.Username == "" {
		return c, fmt.Errorf("creator username is empty: %w", domain.ErrInvalidSubscription)
	}
	if c.SubscribedAt.IsZero() {
		c.SubscribedAt = s.now().UTC()
	}

	_, err := s.store.Creators().UpsertFunc(ctx, []domain.CreatorSubscription{c},
		func(c domain.CreatorSubscription) string { return c.ID },
		func(existing, incoming domain.CreatorSubscription) domain.CreatorSubscription {
			incoming.SubscribedAt = existing.SubscribedAt
			incoming.LastFetchedAt = existing.LastFetchedAt
			return incoming
		})
	if err != nil {
		return c, err
	}
	s.logger.Info("creator subscribed", "id", c.ID, "username", c.Username)
	return c, nil
}

// AddFeed subscribes to an RSS or Atom feed. The id is derived from the URL
// so re-adding the same feed updates it in place.
func (s *Subscriptions) AddFeed(ctx context.Context, f domain.FeedSubscription) (domain.FeedSubscription, error) {
	f.URL = strings.TrimSpace(f.URL)
	u, err := url.Parse(f.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return f, fmt.Errorf("feed url %q: %w", f.URL, domain.ErrInvalidSubscription)
	}
	f.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(f.URL)).String()
	if f.Title == "" {
		f.Title = u.Host
	}
	if f.Status == "" {
		f.Status = domain.FeedActive
	}
	if f.Status != domain.FeedActive && f.Status != domain.FeedInactive {
		return f, fmt.Errorf("feed status %q: %w", f.Status, domain.ErrInvalidSubscription)
	}
	if f.SubscribedAt.IsZero() {
		f.SubscribedAt = s.now().UTC()
	}

	_, err = s.store.Feeds().UpsertFunc(ctx, []domain.FeedSubscription{f},
		func(f domain.FeedSubscription) string { return f.ID },
		func(existing, incoming domain.FeedSubscription) domain.FeedSubscription {
			incoming.SubscribedAt = existing.SubscribedAt
			incoming.LastFetchedAt = existing.LastFetchedAt
			return incoming
		})
	if err != nil {
		return f, err
	}
	s.logger.Info("feed subscribed", "id", f.ID, "url", f.URL)
	return f, nil
}

// List returns every subscription. Missing collections read as empty.
func (s *Subscriptions) List(ctx context.Context) ([]domain.CreatorSubscription, []domain.FeedSubscription, error) {
	creators, _, err := s.store.Creators().ReadAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	feeds, _, err := s.store.Feeds().ReadAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	return creators, feeds, nil
}
