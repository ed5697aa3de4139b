package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"GrowthAgent/internal/config"
	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/ports"
)

const excerptLimit = 500

// FeedFetcher pulls RSS, Atom and JSON feeds.
type FeedFetcher struct {
	parser *gofeed.Parser
	now    func() time.Time
	logger *slog.Logger
}

var _ ports.SourceFetcher = (*FeedFetcher)(nil)

// NewFeedFetcher wires a gofeed parser with the configured user agent and timeout.
func NewFeedFetcher(cfg config.RSSConfig, logger *slog.Logger) *FeedFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	if cfg.UserAgent != "" {
		parser.UserAgent = cfg.UserAgent
	}
	return &FeedFetcher{parser: parser, now: time.Now, logger: logger}
}

// Kind identifies the fetcher inside the registry.
func (f *FeedFetcher) Kind() domain.SourceKind { return domain.SourceRSS }

// Fetch parses the feed and returns entries newer than the subscription's
// last fetch, at most limit of them.
func (f *FeedFetcher) Fetch(ctx context.Context, sub domain.Subscription, limit int) ([]domain.RawRecord, error) {
	parsed, err := f.parser.ParseURLWithContext(sub.Locator, ctx)
	if err != nil {
		return nil, feedError(ctx, sub, err)
	}

	feedTitle := strings.TrimSpace(parsed.Title)
	if feedTitle == "" {
		feedTitle = sub.Name
	}
	feedAuthor := personName(parsed.Authors)
	if feedAuthor == "" {
		feedAuthor = feedTitle
	}

	now := f.now().UTC()
	records := make([]domain.RawRecord, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if limit > 0 && len(records) >= limit {
			break
		}
		rec, ok := f.record(item, sub, feedTitle, feedAuthor, now)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	f.debug("feed parsed", "feed", sub.Locator, "items", len(parsed.Items), "records", len(records))
	return records, nil
}

func (f *FeedFetcher) record(item *gofeed.Item, sub domain.Subscription, feedTitle, feedAuthor string, now time.Time) (domain.RawRecord, bool) {
	originID := strings.TrimSpace(item.GUID)
	if originID == "" {
		originID = strings.TrimSpace(item.Link)
	}
	if originID == "" {
		return domain.RawRecord{}, false
	}

	body := htmlToText(item.Content)
	if body == "" {
		body = htmlToText(item.Description)
	}
	if body == "" {
		f.debug("entry has no content, skipping", "feed", sub.Locator, "entry", originID)
		return domain.RawRecord{}, false
	}

	published := now
	switch {
	case item.PublishedParsed != nil:
		published = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		published = item.UpdatedParsed.UTC()
	}
	if sub.LastFetchedAt != nil && !published.After(*sub.LastFetchedAt) {
		return domain.RawRecord{}, false
	}

	author := personName(item.Authors)
	if author == "" {
		author = feedAuthor
	}

	return domain.RawRecord{
		Source:      domain.SourceRSS,
		OriginID:    originID,
		AuthorID:    sub.ID,
		Author:      author,
		Title:       strings.TrimSpace(item.Title),
		Body:        body,
		URL:         strings.TrimSpace(item.Link),
		PublishedAt: published,
		FetchedAt:   now,
		Article: &domain.FeedFields{
			FeedID:     sub.ID,
			FeedTitle:  feedTitle,
			Categories: item.Categories,
			Excerpt:    truncateRunes(htmlToText(item.Description), excerptLimit),
		},
	}, true
}

func personName(people []*gofeed.Person) string {
	for _, p := range people {
		if p != nil && strings.TrimSpace(p.Name) != "" {
			return strings.TrimSpace(p.Name)
		}
	}
	return ""
}

func feedError(ctx context.Context, sub domain.Subscription, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	kind := domain.FailureTransient
	var httpErr gofeed.HTTPError
	switch {
	case errors.As(err, &httpErr):
		kind = domain.KindForStatus(httpErr.StatusCode)
	case errors.Is(err, gofeed.ErrFeedTypeNotDetected):
		kind = domain.FailurePermanent
	}
	return &domain.FetchError{Source: sub.Locator, Kind: kind, Err: fmt.Errorf("parse feed: %w", err)}
}

func (f *FeedFetcher) debug(msg string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
