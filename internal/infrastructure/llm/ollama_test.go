package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrowthAgent/internal/config"
	"GrowthAgent/internal/domain"
)

func TestOllamaClientEvaluate(t *testing.T) {
	t.Parallel()

	var seen map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&seen)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":    "llama3",
			"response": `<think>weighing</think>{"score": 61, "summary": "Fine"}`,
			"done":     true,
		})
	}))
	defer srv.Close()

	client, err := NewOllamaClient(config.LLMConfig{OllamaHost: srv.URL, Model: "llama3", Temperature: 0.2}, nil)
	require.NoError(t, err)

	j, err := client.Evaluate(context.Background(), "text", domain.JudgeContext{Author: "eve", Source: domain.SourceRSS})
	require.NoError(t, err)
	assert.Equal(t, domain.Judgement{Score: 61, Summary: "Fine"}, j)

	assert.Equal(t, "llama3", seen["model"])
	assert.Equal(t, "json", seen["format"])
	assert.Equal(t, false, seen["stream"])
	assert.NotEmpty(t, seen["system"])
}

func TestOllamaClientBadHost(t *testing.T) {
	t.Parallel()

	_, err := NewOllamaClient(config.LLMConfig{OllamaHost: "://nope"}, nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
