package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"GrowthAgent/internal/config"
	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/ports"
)

// ServiceClient talks to an external scoring service that owns its own
// prompts. It posts to /evaluate and /draft.
type ServiceClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var (
	_ ports.Judge   = (*ServiceClient)(nil)
	_ ports.Drafter = (*ServiceClient)(nil)
)

// NewServiceClient creates a reusable HTTP client.
func NewServiceClient(cfg config.LLMConfig) *ServiceClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ServiceClient{
		endpoint: strings.TrimRight(cfg.ServiceURL, "/"),
		apiKey:   cfg.ServiceAPIKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// Evaluate sends the record text for scoring.
func (c *ServiceClient) Evaluate(ctx context.Context, text string, jc domain.JudgeContext) (domain.Judgement, error) {
	payload := map[string]any{
		"author":  jc.Author,
		"source":  string(jc.Source),
		"title":   jc.Title,
		"url":     jc.URL,
		"content": text,
	}

	var resp json.RawMessage
	if err := c.post(ctx, "/evaluate", payload, &resp); err != nil {
		return domain.Judgement{}, judgementFailure(err)
	}
	return ParseJudgement(string(resp))
}

// Draft requests a blog post for the curated records.
func (c *ServiceClient) Draft(ctx context.Context, records []domain.CuratedRecord, blogContext string) (domain.Draft, error) {
	payload := map[string]any{
		"context": blogContext,
		"items":   records,
	}

	var resp struct {
		Content string `json:"content"`
	}
	if err := c.post(ctx, "/draft", payload, &resp); err != nil {
		return domain.Draft{}, draftFailure(err)
	}
	return ParseDraft(resp.Content)
}

func (c *ServiceClient) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &callError{kind: domain.FailureTransient, err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &callError{
			kind: domain.KindForStatus(resp.StatusCode),
			err:  fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(detail))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
