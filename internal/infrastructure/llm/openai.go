package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"GrowthAgent/internal/config"
	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/ports"
)

// ChatClient implements the judge and drafter against an OpenAI-compatible
// chat completions API such as OpenRouter.
type ChatClient struct {
	endpoint    string
	model       string
	apiKey      string
	temperature float64
	maxTokens   int
	prompts     *Prompts
	httpClient  *http.Client
}

var (
	_ ports.Judge   = (*ChatClient)(nil)
	_ ports.Drafter = (*ChatClient)(nil)
)

// NewChatClient builds a client from configuration.
func NewChatClient(cfg config.LLMConfig, prompts *Prompts) *ChatClient {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatClient{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		prompts:     prompts,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Evaluate asks the model for a JSON verdict on one record.
func (c *ChatClient) Evaluate(ctx context.Context, text string, jc domain.JudgeContext) (domain.Judgement, error) {
	system, user, err := c.prompts.Evaluation(text, jc)
	if err != nil {
		return domain.Judgement{}, err
	}
	out, err := c.complete(ctx, system, user, true)
	if err != nil {
		return domain.Judgement{}, judgementFailure(err)
	}
	return ParseJudgement(out)
}

// Draft asks the model for a markdown post with frontmatter.
func (c *ChatClient) Draft(ctx context.Context, records []domain.CuratedRecord, blogContext string) (domain.Draft, error) {
	system, user, err := c.prompts.Draft(records, blogContext)
	if err != nil {
		return domain.Draft{}, err
	}
	out, err := c.complete(ctx, system, user, false)
	if err != nil {
		return domain.Draft{}, draftFailure(err)
	}
	return ParseDraft(out)
}

// complete returns the first choice's content. Errors carry a FailureKind
// so callers can tell rate limits and outages from bad requests.
func (c *ChatClient) complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chat client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("chat client misconfigured: %w", domain.ErrConfiguration)
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	if jsonMode {
		payload.ResponseFormat = map[string]any{"type": "json_object"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &callError{kind: domain.FailureTransient, err: fmt.Errorf("send chat request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &callError{
			kind: domain.KindForStatus(resp.StatusCode),
			err:  fmt.Errorf("chat error %s: %s", resp.Status, strings.TrimSpace(string(detail))),
		}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("chat response has no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

// callError tags a transport failure with its retry classification.
type callError struct {
	kind domain.FailureKind
	err  error
}

func (e *callError) Error() string   { return e.err.Error() }
func (e *callError) Unwrap() error   { return e.err }
func (e *callError) Transient() bool { return e.kind == domain.FailureTransient }

// judgementFailure keeps transient failures retryable. Permanent ones (bad
// credentials, rejected requests) pass through unwrapped.
func judgementFailure(err error) error {
	if domain.IsTransient(err) {
		return &domain.JudgementError{Err: err}
	}
	return err
}

func draftFailure(err error) error {
	kind := domain.FailurePermanent
	if domain.IsTransient(err) {
		kind = domain.FailureTransient
	}
	return &domain.DraftError{Kind: kind, Err: err}
}
