package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"threatwire/internal/domain"
	"threatwire/internal/feed"
	"threatwire/pkg/textutil"
)

// Fetcher retrieves and parses RSS/Atom feeds into normalized items.
type Fetcher struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

var _ feed.Fetcher = (*Fetcher)(nil)

// NewFetcher wires an HTTP client; a nil client gets a 20s timeout default.
func NewFetcher(client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = "threatwire/1.0"
	return &Fetcher{parser: parser, logger: logger}
}

// Kind identifies the strategy inside the registry.
func (f *Fetcher) Kind() string {
	return "rss"
}

// Fetch pulls the feed and returns parsed items. Entries missing a title or
// link are dropped and counted, not errored.
func (f *Fetcher) Fetch(ctx context.Context, src feed.Feed) ([]domain.FeedItem, int, error) {
	parsed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]domain.FeedItem, 0, len(parsed.Items))
	dropped := 0
	for _, entry := range parsed.Items {
		if entry.Title == "" || entry.Link == "" {
			dropped++
			continue
		}

		publishedAt := time.Now().UTC()
		if entry.PublishedParsed != nil {
			publishedAt = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			publishedAt = entry.UpdatedParsed.UTC()
		}

		summary := entry.Description
		if summary == "" {
			summary = entry.Content
		}

		items = append(items, domain.FeedItem{
			Title:       textutil.CollapseSpace(entry.Title),
			Link:        entry.Link,
			Source:      src.Name,
			PublishedAt: publishedAt,
			Summary:     textutil.CleanHTML(summary),
		})
	}

	if dropped > 0 && f.logger != nil {
		f.logger.Debug("dropped malformed entries", "feed", src.Name, "count", dropped)
	}

	return items, dropped, nil
}
