package llm

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrowthAgent/internal/config"
	"GrowthAgent/internal/domain"
)

type countingBackend struct {
	calls atomic.Int32
}

func (b *countingBackend) Evaluate(context.Context, string, domain.JudgeContext) (domain.Judgement, error) {
	b.calls.Add(1)
	return domain.Judgement{Score: 50, Summary: "ok"}, nil
}

func (b *countingBackend) Draft(context.Context, []domain.CuratedRecord, string) (domain.Draft, error) {
	b.calls.Add(1)
	return domain.Draft{Body: "b"}, nil
}

func TestRateLimitedUnlimited(t *testing.T) {
	t.Parallel()

	next := &countingBackend{}
	limited := NewRateLimited(next, 0)
	for range 10 {
		_, err := limited.Evaluate(context.Background(), "x", domain.JudgeContext{})
		require.NoError(t, err)
	}
	assert.EqualValues(t, 10, next.calls.Load())
}

func TestRateLimitedDeadlineIsTransient(t *testing.T) {
	t.Parallel()

	next := &countingBackend{}
	limited := NewRateLimited(next, 1)

	_, err := limited.Evaluate(context.Background(), "x", domain.JudgeContext{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = limited.Draft(ctx, nil, "")
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.EqualValues(t, 1, next.calls.Load())
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	b, err := NewBackend(config.LLMConfig{Provider: config.ProviderService, ServiceURL: "http://localhost"})
	require.NoError(t, err)
	assert.IsType(t, &RateLimited{}, b)

	_, err = NewBackend(config.LLMConfig{Provider: "telepathy"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
