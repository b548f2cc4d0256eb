package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"threatwire/internal/feed"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Security Wire</title>
    <item>
      <title>Acme Corp Patches CVE-2024-1234</title>
      <link>https://news.example/1</link>
      <description>&lt;p&gt;Acme released a &lt;b&gt;fix&lt;/b&gt; today.&lt;/p&gt;</description>
      <pubDate>Mon, 06 Jan 2025 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Botnet resurfaces</title>
      <link>https://news.example/2</link>
      <description>No date on this one.</description>
    </item>
    <item>
      <link>https://news.example/3</link>
      <description>Entry without a title.</description>
    </item>
  </channel>
</rss>`

func TestFetchNormalizesItems(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	fetcher := NewFetcher(srv.Client(), nil)
	items, dropped, err := fetcher.Fetch(context.Background(), feed.Feed{Name: "wire", URL: srv.URL, Kind: "rss"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1 (the title-less entry)", dropped)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}

	first := items[0]
	if first.Title != "Acme Corp Patches CVE-2024-1234" {
		t.Fatalf("unexpected title %q", first.Title)
	}
	if first.Link != "https://news.example/1" {
		t.Fatalf("unexpected link %q", first.Link)
	}
	if first.Source != "wire" {
		t.Fatalf("unexpected source %q", first.Source)
	}
	if first.Summary != "Acme released a fix today." {
		t.Fatalf("summary not sanitized: %q", first.Summary)
	}
	want := time.Date(2025, time.January, 6, 10, 0, 0, 0, time.UTC)
	if !first.PublishedAt.Equal(want) {
		t.Fatalf("unexpected published time %v", first.PublishedAt)
	}

	// No pubDate falls back to fetch time.
	if items[1].PublishedAt.IsZero() {
		t.Fatal("missing published fallback")
	}
}

func TestFetchFeedError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	fetcher := NewFetcher(srv.Client(), nil)
	if _, _, err := fetcher.Fetch(context.Background(), feed.Feed{Name: "wire", URL: srv.URL}); err == nil {
		t.Fatal("expected fetch error")
	}
}

func TestFetcherKind(t *testing.T) {
	t.Parallel()

	if kind := NewFetcher(nil, nil).Kind(); kind != "rss" {
		t.Fatalf("Kind = %q", kind)
	}
}
