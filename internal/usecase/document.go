package usecase

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/frontmatter"
)

// DocumentDefaults fill in whatever the drafter left empty.
type DocumentDefaults struct {
	Title  string
	Tags   []string
	Author string
}

// DefaultDocumentDefaults returns the stock title, tags, and author.
func DefaultDocumentDefaults() DocumentDefaults {
	return DocumentDefaults{
		Title:  "AI Insights Daily",
		Tags:   []string{"AI", "Technology"},
		Author: "Growth Agent",
	}
}

// BuildDocument turns a draft into a document with identity, slug, and defaults.
// Source ids follow the curated ranking order.
func BuildDocument(d domain.Draft, curated []domain.CuratedRecord, now time.Time, defaults DocumentDefaults) domain.GeneratedDocument {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		title = defaults.Title
	}
	slug := domain.Slugify(title)
	if slug == "" {
		slug = "post"
	}

	published := now
	if d.Date != nil && !d.Date.IsZero() {
		published = *d.Date
	}

	summary := strings.TrimSpace(d.Summary)
	if summary == "" && len(curated) > 0 {
		summary = curated[0].Summary
	}

	tags := cleanTags(d.Tags)
	if len(tags) == 0 {
		tags = append([]string(nil), defaults.Tags...)
	}

	author := strings.TrimSpace(d.Author)
	if author == "" {
		author = defaults.Author
	}

	ids := make([]string, len(curated))
	for i, c := range curated {
		ids[i] = c.ID
	}

	return domain.GeneratedDocument{
		ID:              documentID(),
		Slug:            slug,
		Title:           title,
		PublishedAt:     published,
		Summary:         domain.Truncate(summary, domain.SummaryLimit),
		Tags:            tags,
		Author:          author,
		Body:            d.Body,
		SourceRecordIDs: ids,
	}
}

func documentHeader(doc domain.GeneratedDocument) frontmatter.Header {
	return frontmatter.Header{
		Title:   doc.Title,
		Date:    doc.PublishedAt,
		Summary: doc.Summary,
		Tags:    doc.Tags,
		Author:  doc.Author,
	}
}

func documentID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func cleanTags(tags []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	return out
}
