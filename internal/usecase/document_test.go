package usecase

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"GrowthAgent/internal/domain"
)

func TestBuildDocumentAppliesDefaults(t *testing.T) {
	t.Parallel()

	curated := []domain.CuratedRecord{{ID: "c1", Summary: strings.Repeat("x", 400)}, {ID: "c2"}}
	doc := BuildDocument(domain.Draft{Body: "body"}, curated, fixedNow, DefaultDocumentDefaults())

	assert.Len(t, doc.ID, 8)
	assert.Equal(t, "AI Insights Daily", doc.Title)
	assert.Equal(t, "ai-insights-daily", doc.Slug)
	assert.Equal(t, []string{"AI", "Technology"}, doc.Tags)
	assert.Equal(t, "Growth Agent", doc.Author)
	assert.True(t, doc.PublishedAt.Equal(fixedNow))
	assert.Equal(t, domain.SummaryLimit, len([]rune(doc.Summary)))
	assert.Equal(t, []string{"c1", "c2"}, doc.SourceRecordIDs)
}

func TestBuildDocumentKeepsDraftFields(t *testing.T) {
	t.Parallel()

	date := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	draft := domain.Draft{
		Title:   "深度 Agents!",
		Date:    &date,
		Summary: "s",
		Tags:    []string{"LLM", " llm ", "", "Agents"},
		Author:  "Editor",
	}
	doc := BuildDocument(draft, nil, fixedNow, DefaultDocumentDefaults())

	assert.Equal(t, "agents", doc.Slug)
	assert.True(t, doc.PublishedAt.Equal(date))
	assert.Equal(t, []string{"LLM", "Agents"}, doc.Tags)
	assert.Equal(t, "Editor", doc.Author)
	assert.Equal(t, "s", doc.Summary)
}
