package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// SummaryLimit bounds the document summary, in runes.
	SummaryLimit = 300
	slugLimit    = 100
)

// GeneratedDocument is a drafted blog post ready to be written to blogs/.
type GeneratedDocument struct {
	ID              string
	Slug            string
	Title           string
	PublishedAt     time.Time
	Summary         string
	Tags            []string
	Author          string
	Body            string
	SourceRecordIDs []string
}

// Filename returns the document's file name inside the blogs directory.
func (d GeneratedDocument) Filename() string {
	return d.ID + "_" + d.Slug + ".md"
}

// Judgement is what the judge collaborator returns for one record.
type Judgement struct {
	Score     int    `json:"score"`
	Summary   string `json:"summary"`
	Rationale string `json:"rationale"`
}

// JudgeContext gives the judge hints about a record beyond its text.
type JudgeContext struct {
	Author string
	Source SourceKind
	Title  string
	URL    string
}

// Draft is the drafter's structured output before defaults are applied.
type Draft struct {
	Title   string
	Date    *time.Time
	Summary string
	Tags    []string
	Author  string
	Body    string
}

var (
	slugStrip    = regexp.MustCompile(`[^a-z0-9\s_-]+`)
	slugSeparate = regexp.MustCompile(`[\s_-]+`)
)

// Slugify converts a title to a lowercase, dash-separated file name fragment.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugStrip.ReplaceAllString(slug, "")
	slug = slugSeparate.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > slugLimit {
		slug = strings.TrimRight(slug[:slugLimit], "-")
	}
	return slug
}

// Truncate cuts s to at most limit runes, appending an ellipsis when cut.
func Truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}
