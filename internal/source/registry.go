// Package source keeps the fetchers the ingest stage can dispatch to.
package source

import (
	"fmt"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/ports"
)

// Registry keeps a mapping from source kinds to their fetchers.
type Registry struct {
	fetchers map[domain.SourceKind]ports.SourceFetcher
}

// NewRegistry builds a registry holding the given fetchers.
func NewRegistry(fetchers ...ports.SourceFetcher) *Registry {
	r := &Registry{fetchers: map[domain.SourceKind]ports.SourceFetcher{}}
	for _, f := range fetchers {
		r.Register(f)
	}
	return r
}

// Register adds or replaces a fetcher implementation.
func (r *Registry) Register(fetcher ports.SourceFetcher) {
	if fetcher == nil {
		return
	}
	if r.fetchers == nil {
		r.fetchers = map[domain.SourceKind]ports.SourceFetcher{}
	}
	r.fetchers[fetcher.Kind()] = fetcher
}

// Resolve returns the fetcher for kind or an error if it is absent.
func (r *Registry) Resolve(kind domain.SourceKind) (ports.SourceFetcher, error) {
	if r != nil {
		if fetcher, ok := r.fetchers[kind]; ok {
			return fetcher, nil
		}
	}
	return nil, fmt.Errorf("no fetcher registered for source %s", kind)
}
