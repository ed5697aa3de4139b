package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"

	"GrowthAgent/internal/config"
	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/ports"
)

// OllamaClient implements the judge and drafter with a local Ollama model.
type OllamaClient struct {
	model       string
	temperature float64
	maxTokens   int
	prompts     *Prompts
	client      *ollama.Client
}

var (
	_ ports.Judge   = (*OllamaClient)(nil)
	_ ports.Drafter = (*OllamaClient)(nil)
)

// NewOllamaClient connects to cfg.OllamaHost, or to $OLLAMA_HOST when empty.
func NewOllamaClient(cfg config.LLMConfig, prompts *Prompts) (*OllamaClient, error) {
	if prompts == nil {
		prompts = DefaultPrompts()
	}

	var client *ollama.Client
	if cfg.OllamaHost != "" {
		base, err := url.Parse(cfg.OllamaHost)
		if err != nil {
			return nil, fmt.Errorf("%w: ollama host %q: %v", domain.ErrConfiguration, cfg.OllamaHost, err)
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		client = ollama.NewClient(base, &http.Client{Timeout: timeout})
	} else {
		var err error
		client, err = ollama.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("%w: ollama: %v", domain.ErrConfiguration, err)
		}
	}

	return &OllamaClient{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		prompts:     prompts,
		client:      client,
	}, nil
}

// Evaluate asks the model for a JSON verdict on one record.
func (c *OllamaClient) Evaluate(ctx context.Context, text string, jc domain.JudgeContext) (domain.Judgement, error) {
	system, user, err := c.prompts.Evaluation(text, jc)
	if err != nil {
		return domain.Judgement{}, err
	}
	out, err := c.generate(ctx, system, user, true)
	if err != nil {
		return domain.Judgement{}, judgementFailure(err)
	}
	return ParseJudgement(out)
}

// Draft asks the model for a markdown post with frontmatter.
func (c *OllamaClient) Draft(ctx context.Context, records []domain.CuratedRecord, blogContext string) (domain.Draft, error) {
	system, user, err := c.prompts.Draft(records, blogContext)
	if err != nil {
		return domain.Draft{}, err
	}
	out, err := c.generate(ctx, system, user, false)
	if err != nil {
		return domain.Draft{}, draftFailure(err)
	}
	return ParseDraft(out)
}

func (c *OllamaClient) generate(ctx context.Context, system, prompt string, jsonMode bool) (string, error) {
	stream := false
	req := &ollama.GenerateRequest{
		Model:  c.model,
		System: system,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": c.temperature,
		},
	}
	if c.maxTokens > 0 {
		req.Options["num_predict"] = c.maxTokens
	}
	if jsonMode {
		req.Format = []byte(`"json"`)
	}

	var response strings.Builder
	err := c.client.Generate(ctx, req, func(res ollama.GenerateResponse) error {
		response.WriteString(res.Response)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var status ollama.StatusError
		if errors.As(err, &status) {
			return "", &callError{kind: domain.KindForStatus(status.StatusCode), err: fmt.Errorf("ollama generate: %w", err)}
		}
		return "", &callError{kind: domain.FailureTransient, err: fmt.Errorf("ollama generate: %w", err)}
	}
	return response.String(), nil
}
