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

func TestServiceClient(t *testing.T) {
	t.Parallel()

	var evaluated map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/evaluate":
			_ = json.NewDecoder(r.Body).Decode(&evaluated)
			_, _ = w.Write([]byte(`{"score": 88, "summary": "Good", "comment": "Timely"}`))
		case "/draft":
			_, _ = w.Write([]byte(`{"content": "# Daily\n\nFirst paragraph.\n"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewServiceClient(config.LLMConfig{ServiceURL: srv.URL + "/"})

	j, err := client.Evaluate(context.Background(), "body", domain.JudgeContext{Author: "dan", Source: domain.SourceX})
	require.NoError(t, err)
	assert.Equal(t, domain.Judgement{Score: 88, Summary: "Good", Rationale: "Timely"}, j)
	assert.Equal(t, "dan", evaluated["author"])
	assert.Equal(t, "x", evaluated["source"])

	d, err := client.Draft(context.Background(), []domain.CuratedRecord{{ID: "c1"}}, "ctx")
	require.NoError(t, err)
	assert.Equal(t, "Daily", d.Title)
	assert.Equal(t, "First paragraph.", d.Summary)
}

func TestServiceClientUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewServiceClient(config.LLMConfig{ServiceURL: srv.URL}).Evaluate(context.Background(), "x", domain.JudgeContext{})
	var jerr *domain.JudgementError
	require.ErrorAs(t, err, &jerr)
	assert.False(t, jerr.Malformed)
	assert.True(t, domain.IsTransient(err))
}
