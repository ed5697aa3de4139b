package storage

import (
	"fmt"
	"path"
	"strings"
	"time"

	"GrowthAgent/internal/domain"
)

const (
	CreatorsCollection = "subscriptions/x_creators.jsonl"
	FeedsCollection    = "subscriptions/rss_feeds.jsonl"
	InboxCollection    = "inbox/items.jsonl"
	IssuesCollection   = "github/issues.jsonl"
	MetricsCollection  = "metrics/stats.jsonl"

	CuratedDir  = "curated"
	ArchiveDir  = "curated/archives"
	BlogsDir    = "blogs"
	LogsDir     = "logs"
	StateDir    = "state"
	JournalFile = "state/journal.db"
	LockFile    = "state/run.lock"

	// DayLayout is the date format used in curated collection names.
	DayLayout = "2006-01-02"

	curatedSuffix = "_ranked.jsonl"
)

var layoutDirs = []string{"subscriptions", "inbox", CuratedDir, ArchiveDir, BlogsDir, "github", "metrics", LogsDir, StateDir}

// Creators is the X creator subscription collection.
func (s *Store) Creators() *JSONL[domain.CreatorSubscription] {
	return Collection[domain.CreatorSubscription](s, CreatorsCollection)
}

// Feeds is the RSS feed subscription collection.
func (s *Store) Feeds() *JSONL[domain.FeedSubscription] {
	return Collection[domain.FeedSubscription](s, FeedsCollection)
}

// Inbox is the staging collection of raw records awaiting judgement.
func (s *Store) Inbox() *JSONL[domain.RawRecord] {
	return Collection[domain.RawRecord](s, InboxCollection)
}

// Curated is the active day collection for the given day key.
func (s *Store) Curated(day string) *JSONL[domain.CuratedRecord] {
	return Collection[domain.CuratedRecord](s, CuratedPath(day))
}

// Issues is the mirrored GitHub issue collection.
func (s *Store) Issues() *JSONL[domain.TrackedIssue] {
	return Collection[domain.TrackedIssue](s, IssuesCollection)
}

// Metrics is the engagement snapshot collection.
func (s *Store) Metrics() *JSONL[domain.MetricSnapshot] {
	return Collection[domain.MetricSnapshot](s, MetricsCollection)
}

// DayKey formats t as a curated collection day in loc.
func DayKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(DayLayout)
}

// CuratedPath is the active collection path for a day.
func CuratedPath(day string) string {
	return path.Join(CuratedDir, day+curatedSuffix)
}

// ArchivePath is the archived collection path for a day. Attempt 1 has no
// suffix; later attempts get -2, -3, ...
func ArchivePath(day string, attempt int) string {
	if attempt <= 1 {
		return path.Join(ArchiveDir, day+curatedSuffix)
	}
	return path.Join(ArchiveDir, fmt.Sprintf("%s_ranked-%d.jsonl", day, attempt))
}

// DocumentPath is where a generated document is written.
func DocumentPath(doc domain.GeneratedDocument) string {
	return path.Join(BlogsDir, doc.Filename())
}

// DayFromPath extracts the day key from an active or archived collection path.
func DayFromPath(rel string) (string, bool) {
	base := path.Base(rel)
	day, _, ok := strings.Cut(base, "_ranked")
	if !ok {
		return "", false
	}
	if _, err := time.Parse(DayLayout, day); err != nil {
		return "", false
	}
	return day, true
}
