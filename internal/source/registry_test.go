package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrowthAgent/internal/domain"
)

type stubFetcher struct{ kind domain.SourceKind }

func (s stubFetcher) Kind() domain.SourceKind { return s.kind }

func (s stubFetcher) Fetch(context.Context, domain.Subscription, int) ([]domain.RawRecord, error) {
	return nil, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	r := NewRegistry(stubFetcher{kind: domain.SourceRSS})

	f, err := r.Resolve(domain.SourceRSS)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceRSS, f.Kind())

	_, err = r.Resolve(domain.SourceX)
	require.Error(t, err)

	r.Register(stubFetcher{kind: domain.SourceX})
	f, err = r.Resolve(domain.SourceX)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceX, f.Kind())
}

func TestNilRegistryResolvesNothing(t *testing.T) {
	t.Parallel()

	var r *Registry
	_, err := r.Resolve(domain.SourceX)
	assert.Error(t, err)
}
