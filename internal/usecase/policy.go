package usecase

import (
	"strconv"

	"GrowthAgent/internal/domain"
)

// IssueMerge is the upsert-by-id policy for mirrored issues. Incoming wins
// when it is at least as new as the stored copy; only strictly newer incoming
// counts as updated.
type IssueMerge struct {
	Updated   int
	Unchanged int
}

// Resolve picks the surviving issue and counts the outcome.
func (m *IssueMerge) Resolve(existing, incoming domain.TrackedIssue) domain.TrackedIssue {
	switch {
	case incoming.UpdatedAt.After(existing.UpdatedAt):
		m.Updated++
		return incoming
	case incoming.UpdatedAt.Equal(existing.UpdatedAt):
		m.Unchanged++
		return incoming
	default:
		m.Unchanged++
		return existing
	}
}

// IssueKey keys issues by number.
func IssueKey(i domain.TrackedIssue) string {
	return strconv.Itoa(i.ID)
}

func creatorKey(c domain.CreatorSubscription) string { return c.ID }

func feedKey(f domain.FeedSubscription) string { return f.ID }

func curatedSourceKey(c domain.CuratedRecord) string { return c.SourceRecordID }
