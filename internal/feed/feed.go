package feed

import (
	"context"
	"fmt"

	"threatwire/internal/domain"
)

// Feed describes a single configured syndication source.
type Feed struct {
	Name string
	URL  string
	Kind string
}

// Fetcher captures a single retrieval strategy (rss today; room for atom
// variants or JSON feeds later).
type Fetcher interface {
	Kind() string
	Fetch(ctx context.Context, f Feed) (items []domain.FeedItem, dropped int, err error)
}

// Registry keeps a mapping from fetcher kinds to their implementations.
type Registry struct {
	fetchers map[string]Fetcher
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: map[string]Fetcher{}}
}

// Register adds or replaces a fetcher implementation.
func (r *Registry) Register(f Fetcher) {
	if r.fetchers == nil {
		r.fetchers = map[string]Fetcher{}
	}
	r.fetchers[f.Kind()] = f
}

// Resolve returns a fetcher by kind or an error if it is absent.
func (r *Registry) Resolve(kind string) (Fetcher, error) {
	if f, ok := r.fetchers[kind]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("feed fetcher %q is not registered", kind)
}
