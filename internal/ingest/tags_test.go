package ingest

import (
	"context"
	"strings"
	"testing"

	"threatwire/internal/domain"
)

type fakeTagStore struct {
	nextID  int64
	created []string
	byKey   map[string]int64
}

func newFakeTagStore() *fakeTagStore {
	return &fakeTagStore{nextID: 100, byKey: map[string]int64{}}
}

func (s *fakeTagStore) InsertTag(_ context.Context, name string) (int64, error) {
	key := strings.ToLower(name)
	if id, ok := s.byKey[key]; ok {
		return id, nil
	}
	s.nextID++
	s.byKey[key] = s.nextID
	s.created = append(s.created, name)
	return s.nextID, nil
}

func TestTagCacheGetOrCreateCanonicalizes(t *testing.T) {
	t.Parallel()

	store := newFakeTagStore()
	cache := NewTagCache(store, []domain.Tag{{ID: 1, Name: "Ransomware"}})

	id, err := cache.GetOrCreate(context.Background(), "ransomware")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected seeded id 1, got %d", id)
	}
	if len(store.created) != 0 {
		t.Fatalf("seeded tag was re-created: %v", store.created)
	}

	first, err := cache.GetOrCreate(context.Background(), "Acme Corp")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	second, err := cache.GetOrCreate(context.Background(), "ACME CORP")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if first != second {
		t.Fatalf("case variants produced different ids: %d vs %d", first, second)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected exactly one created tag, got %v", store.created)
	}
	// Stored casing is whatever was seen first.
	if store.created[0] != "Acme Corp" {
		t.Fatalf("unexpected stored casing %q", store.created[0])
	}
}

func TestTagResolverKeywordMatch(t *testing.T) {
	t.Parallel()

	cache := NewTagCache(newFakeTagStore(), []domain.Tag{
		{ID: 1, Name: "Ransomware"},
		{ID: 2, Name: "Phishing"},
		{ID: 3, Name: "Zero-Day"},
	})
	resolver := NewTagResolver(cache)

	ids, err := resolver.Resolve(context.Background(),
		"New RANSOMWARE campaign uses phishing lures", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 matches, got %v", ids)
	}
}

func TestTagResolverWordBoundary(t *testing.T) {
	t.Parallel()

	cache := NewTagCache(newFakeTagStore(), []domain.Tag{{ID: 1, Name: "Ransomware"}})
	resolver := NewTagResolver(cache)

	ids, err := resolver.Resolve(context.Background(), "antiransomware appliance released", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("substring inside a word must not match, got %v", ids)
	}
}

func TestTagResolverSuggestedAndDedup(t *testing.T) {
	t.Parallel()

	cache := NewTagCache(newFakeTagStore(), []domain.Tag{{ID: 1, Name: "Ransomware"}})
	resolver := NewTagResolver(cache)

	text := "Ransomware crew extorts Acme Corp"
	ids, err := resolver.Resolve(context.Background(), text, []string{"Acme Corp", "acme corp", "Ransomware"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	seen := map[int64]int{}
	for _, id := range ids {
		seen[id]++
	}
	for id, n := range seen {
		if n > 1 {
			t.Fatalf("tag %d appears %d times", id, n)
		}
	}
	// Keyword match for Ransomware plus one created Acme Corp tag.
	if len(ids) != 2 {
		t.Fatalf("expected 2 unique ids, got %v", ids)
	}

	// A second pass over the same input yields the same set.
	again, err := resolver.Resolve(context.Background(), text, []string{"Acme Corp"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(again) != 2 {
		t.Fatalf("second pass changed the result: %v", again)
	}
}
