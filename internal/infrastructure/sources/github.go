package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"GrowthAgent/internal/config"
	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/ports"
)

const maxPerPage = 100

// GitHubIssues lists repository issues through the REST API.
type GitHubIssues struct {
	apiBase string
	token   string
	http    *http.Client
}

var _ ports.IssueSource = (*GitHubIssues)(nil)

// NewGitHubIssues creates the issue source. An empty token works for public
// repositories at a lower rate limit.
func NewGitHubIssues(cfg config.GitHubConfig) *GitHubIssues {
	base := cfg.APIBase
	if base == "" {
		base = "https://api.github.com"
	}
	return &GitHubIssues{
		apiBase: strings.TrimRight(base, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type githubIssue struct {
	Number    int        `json:"number"`
	NodeID    string     `json:"node_id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	State     string     `json:"state"`
	HTMLURL   string     `json:"html_url"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	PullRequest *struct {
		URL string `json:"url"`
	} `json:"pull_request"`
}

// ListIssues pages through the repository's issues until q.Limit is reached.
// Pull requests, which the API mixes into the issue list, are skipped.
func (g *GitHubIssues) ListIssues(ctx context.Context, repo string, q domain.IssueQuery) ([]domain.TrackedIssue, error) {
	state := q.State
	if state == "" {
		state = "open"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = maxPerPage
	}

	var issues []domain.TrackedIssue
	for page := 1; len(issues) < limit; page++ {
		batch, err := g.page(ctx, repo, state, min(limit, maxPerPage), page)
		if err != nil {
			return nil, err
		}
		for _, raw := range batch {
			if raw.PullRequest != nil {
				continue
			}
			issues = append(issues, raw.issue())
			if len(issues) == limit {
				break
			}
		}
		if len(batch) < min(limit, maxPerPage) {
			break
		}
	}
	return issues, nil
}

func (g *GitHubIssues) page(ctx context.Context, repo, state string, perPage, page int) ([]githubIssue, error) {
	q := url.Values{}
	q.Set("state", state)
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	endpoint := fmt.Sprintf("%s/repos/%s/issues?%s", g.apiBase, repo, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &domain.FetchError{Source: "github/" + repo, Kind: domain.FailureTransient, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &domain.FetchError{
			Source: "github/" + repo,
			Kind:   domain.KindForStatus(resp.StatusCode),
			Err:    fmt.Errorf("list issues returned %s: %s", resp.Status, strings.TrimSpace(string(detail))),
		}
	}

	var batch []githubIssue
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, &domain.FetchError{Source: "github/" + repo, Kind: domain.FailurePermanent, Err: fmt.Errorf("decode issues: %w", err)}
	}
	return batch, nil
}

func (i githubIssue) issue() domain.TrackedIssue {
	labels := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		if l.Name != "" {
			labels = append(labels, l.Name)
		}
	}
	return domain.TrackedIssue{
		ID:        i.Number,
		NodeID:    i.NodeID,
		Title:     i.Title,
		Body:      i.Body,
		State:     domain.IssueState(strings.ToLower(i.State)),
		Author:    i.User.Login,
		Labels:    labels,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
		ClosedAt:  i.ClosedAt,
		URL:       i.HTMLURL,
	}
}
