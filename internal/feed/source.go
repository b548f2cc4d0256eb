package feed

import (
	"context"
	"fmt"
	"log/slog"

	"threatwire/internal/config"
	"threatwire/internal/domain"
)

// Source resolves configured feeds to registered fetcher strategies. A
// fetch failure stays scoped to its feed; callers decide how to aggregate.
type Source struct {
	registry *Registry
	logger   *slog.Logger
}

// NewSource wires the fetcher registry.
func NewSource(reg *Registry, logger *slog.Logger) *Source {
	return &Source{registry: reg, logger: logger}
}

// Fetch pulls one feed through its strategy and stamps the source name on
// every surviving item.
func (s *Source) Fetch(ctx context.Context, f Feed) ([]domain.FeedItem, int, error) {
	if s.registry == nil {
		return nil, 0, fmt.Errorf("fetcher registry is not configured")
	}

	fetcher, err := s.registry.Resolve(f.Kind)
	if err != nil {
		return nil, 0, fmt.Errorf("feed %s: %w", f.Name, err)
	}

	items, dropped, err := fetcher.Fetch(ctx, f)
	if err != nil {
		return nil, dropped, fmt.Errorf("feed %s: %w", f.Name, err)
	}

	for i := range items {
		if items[i].Source == "" {
			items[i].Source = f.Name
		}
	}

	s.debug("feed fetched", "feed", f.Name, "items", len(items), "dropped", dropped)
	return items, dropped, nil
}

// FromConfig converts config feed entries to domain feeds.
func FromConfig(cfg []config.FeedConfig) []Feed {
	feeds := make([]Feed, 0, len(cfg))
	for _, fc := range cfg {
		if fc.URL == "" {
			continue
		}
		feeds = append(feeds, Feed{Name: fc.Name, URL: fc.URL, Kind: fc.Kind})
	}
	return feeds
}

func (s *Source) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
