package domain

import (
	"errors"
	"time"
)

// IssueState is the open/closed state of a tracked issue.
type IssueState string

const (
	IssueOpen   IssueState = "open"
	IssueClosed IssueState = "closed"
)

// TrackedIssue mirrors a GitHub issue.
type TrackedIssue struct {
	ID        int        `json:"id"`
	NodeID    string     `json:"node_id,omitempty"`
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	State     IssueState `json:"state"`
	Author    string     `json:"author"`
	Labels    []string   `json:"labels"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at"`
	URL       string     `json:"url"`
}

// Validate rejects issues that cannot be keyed or classified.
func (i TrackedIssue) Validate() error {
	if i.ID <= 0 {
		return errors.New("issue number must be positive")
	}
	if i.State != IssueOpen && i.State != IssueClosed {
		return errors.New("issue state must be open or closed")
	}
	return nil
}

// IssueQuery narrows an issue listing.
type IssueQuery struct {
	State string
	Limit int
}
