package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SourceKind tags where a raw record came from.
type SourceKind string

const (
	SourceX   SourceKind = "x"
	SourceRSS SourceKind = "rss"
)

// Valid reports whether the kind is one the pipeline knows how to fetch.
func (k SourceKind) Valid() bool {
	return k == SourceX || k == SourceRSS
}

// TweetFields is the payload carried by records fetched from the X timeline.
type TweetFields struct {
	Username     string   `json:"username"`
	ReplyCount   int      `json:"reply_count"`
	RetweetCount int      `json:"retweet_count"`
	LikeCount    int      `json:"like_count"`
	QuoteCount   int      `json:"quote_count"`
	ViewCount    *int     `json:"view_count,omitempty"`
	Media        []string `json:"media,omitempty"`
	Hashtags     []string `json:"hashtags,omitempty"`
}

// FeedFields is the payload carried by records fetched from RSS/Atom feeds.
type FeedFields struct {
	FeedID     string   `json:"feed_id"`
	FeedTitle  string   `json:"feed_title"`
	Categories []string `json:"categories,omitempty"`
	Excerpt    string   `json:"excerpt,omitempty"`
}

// RawRecord is a fetched content unit waiting in the inbox for judgement.
// Exactly one of Tweet or Article is set, matching Source.
type RawRecord struct {
	ID          string       `json:"id"`
	Source      SourceKind   `json:"source"`
	OriginID    string       `json:"original_id"`
	AuthorID    string       `json:"author_id"`
	Author      string       `json:"author_name"`
	Title       string       `json:"title,omitempty"`
	Body        string       `json:"content"`
	URL         string       `json:"url"`
	PublishedAt time.Time    `json:"published_at"`
	FetchedAt   time.Time    `json:"fetched_at"`
	Tweet       *TweetFields `json:"x,omitempty"`
	Article     *FeedFields  `json:"rss,omitempty"`
}

// Validate checks the invariants a stored raw record must satisfy.
func (r RawRecord) Validate() error {
	var errs []error
	if strings.TrimSpace(r.ID) == "" {
		errs = append(errs, errors.New("id is empty"))
	}
	if strings.TrimSpace(r.Body) == "" {
		errs = append(errs, errors.New("content is empty"))
	}
	switch r.Source {
	case SourceX:
		if r.Tweet == nil || r.Article != nil {
			errs = append(errs, errors.New("x record must carry only the x payload"))
		}
	case SourceRSS:
		if r.Article == nil || r.Tweet != nil {
			errs = append(errs, errors.New("rss record must carry only the rss payload"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source %q", r.Source))
	}
	return errors.Join(errs...)
}

// Text renders the record as the judge sees it.
func (r RawRecord) Text() string {
	if r.Title == "" {
		return r.Body
	}
	return r.Title + "\n\n" + r.Body
}

// CuratedRecord is a judged raw record that made it into a day collection.
// Source fields are preserved so generation never needs the purged raw record.
type CuratedRecord struct {
	ID             string     `json:"id"`
	SourceRecordID string     `json:"source_id"`
	Score          int        `json:"score"`
	Summary        string     `json:"summary"`
	Rationale      string     `json:"rationale"`
	Rank           int        `json:"rank"`
	CuratedAt      time.Time  `json:"curated_at"`
	Source         SourceKind `json:"source"`
	URL            string     `json:"original_url"`
	Author         string     `json:"author_name"`
	Title          string     `json:"title,omitempty"`
	Body           string     `json:"original_content"`
	PublishedAt    time.Time  `json:"published_at"`
}

// Validate checks the score bounds and identity of a curated record.
func (c CuratedRecord) Validate() error {
	if c.ID == "" || c.SourceRecordID == "" {
		return errors.New("curated record without identity")
	}
	if c.Score < MinScore || c.Score > MaxScore {
		return fmt.Errorf("score %d outside %d..%d", c.Score, MinScore, MaxScore)
	}
	return nil
}

const (
	MinScore = 0
	MaxScore = 100
)
