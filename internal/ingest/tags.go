package ingest

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"threatwire/internal/domain"
)

// TagStore is the slice of the repository the tag cache needs for lazy
// tag creation.
type TagStore interface {
	InsertTag(ctx context.Context, name string) (int64, error)
}

// TagCache is the per-run name-to-id map. Names canonicalize to lowercase
// for comparison while the stored casing is whatever was seen first. One
// cache instance is owned by a single coordinator run; it is never shared
// across runs.
type TagCache struct {
	store TagStore

	mu    sync.Mutex
	byKey map[string]domain.Tag
}

// NewTagCache seeds the cache with all known tags.
func NewTagCache(store TagStore, seed []domain.Tag) *TagCache {
	cache := &TagCache{
		store: store,
		byKey: make(map[string]domain.Tag, len(seed)),
	}
	for _, tag := range seed {
		cache.byKey[canonicalTagKey(tag.Name)] = tag
	}
	return cache
}

// GetOrCreate returns the id for name, creating the tag row on first sight.
func (c *TagCache) GetOrCreate(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("empty tag name")
	}
	key := canonicalTagKey(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	if tag, ok := c.byKey[key]; ok {
		return tag.ID, nil
	}

	id, err := c.store.InsertTag(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("create tag %q: %w", name, err)
	}

	c.byKey[key] = domain.Tag{ID: id, Name: name}
	return id, nil
}

// Known returns a stable snapshot of all cached tags.
func (c *TagCache) Known() []domain.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()

	tags := make([]domain.Tag, 0, len(c.byKey))
	for _, tag := range c.byKey {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	return tags
}

func canonicalTagKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type tagMatcher struct {
	id      int64
	pattern *regexp.Regexp
}

// TagResolver associates articles with predefined keyword tags and
// AI-suggested tags.
type TagResolver struct {
	cache    *TagCache
	matchers []tagMatcher
}

// NewTagResolver compiles word-boundary matchers for every tag known at
// construction time. Tags created later in the run are still reachable via
// the suggested-tag path, just not by keyword match.
func NewTagResolver(cache *TagCache) *TagResolver {
	known := cache.Known()
	matchers := make([]tagMatcher, 0, len(known))
	for _, tag := range known {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(tag.Name) + `\b`)
		if err != nil {
			continue
		}
		matchers = append(matchers, tagMatcher{id: tag.ID, pattern: re})
	}
	return &TagResolver{cache: cache, matchers: matchers}
}

// Resolve returns the deduplicated tag id set for the combined article text
// plus any AI-suggested tag names. Suggested tags are created lazily.
func (r *TagResolver) Resolve(ctx context.Context, text string, suggested []string) ([]int64, error) {
	seen := make(map[int64]struct{})
	var ids []int64

	for _, m := range r.matchers {
		if m.pattern.MatchString(text) {
			if _, ok := seen[m.id]; !ok {
				seen[m.id] = struct{}{}
				ids = append(ids, m.id)
			}
		}
	}

	for _, name := range suggested {
		if strings.TrimSpace(name) == "" {
			continue
		}
		id, err := r.cache.GetOrCreate(ctx, name)
		if err != nil {
			return ids, err
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	return ids, nil
}
