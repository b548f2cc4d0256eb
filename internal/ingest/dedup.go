package ingest

import (
	"sync"

	"threatwire/internal/domain"
)

// DedupIndex is the in-run set of known links and content hashes. It is
// seeded from recently stored articles and mutated as items are accepted,
// so two feeds referencing the same story cannot both insert it. Safe for
// concurrent use; fetch workers may consult it while the coordinator writes.
type DedupIndex struct {
	mu     sync.RWMutex
	links  map[string]struct{}
	hashes map[string]struct{}
}

// NewDedupIndex seeds the index from stored link/hash pairs.
func NewDedupIndex(seed []domain.LinkHash) *DedupIndex {
	idx := &DedupIndex{
		links:  make(map[string]struct{}, len(seed)),
		hashes: make(map[string]struct{}, len(seed)),
	}
	for _, lh := range seed {
		if lh.Link != "" {
			idx.links[lh.Link] = struct{}{}
		}
		if lh.Hash != "" {
			idx.hashes[lh.Hash] = struct{}{}
		}
	}
	return idx
}

// SeenLink reports whether the exact link is already known.
func (d *DedupIndex) SeenLink(link string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.links[link]
	return ok
}

// SeenHash reports whether the content hash is already known.
func (d *DedupIndex) SeenHash(hash string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.hashes[hash]
	return ok
}

// Record marks an item as seen without waiting for persistence to complete.
func (d *DedupIndex) Record(link, hash string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if link != "" {
		d.links[link] = struct{}{}
	}
	if hash != "" {
		d.hashes[hash] = struct{}{}
	}
}

// Len returns the number of known links, used for run logging.
func (d *DedupIndex) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.links)
}
