package crawler

import (
	"sort"
	"sync"
)

// VisitedSet tracks the article ids already yielded by a crawl so that the
// same article reached from several listings is yielded once.
type VisitedSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewVisitedSet creates a set seeded with ids.
func NewVisitedSet(ids ...string) *VisitedSet {
	v := &VisitedSet{seen: make(map[string]struct{}, len(ids))}
	v.Import(ids)
	return v
}

// Seen reports whether id has been marked.
func (v *VisitedSet) Seen(id string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.seen[id]
	return ok
}

// Mark records id as visited.
func (v *VisitedSet) Mark(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seen[id] = struct{}{}
}

// Count returns the number of visited ids.
func (v *VisitedSet) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.seen)
}

// Reset forgets every id.
func (v *VisitedSet) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seen = make(map[string]struct{})
}

// Export returns the visited ids, sorted.
func (v *VisitedSet) Export() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ids := make([]string, 0, len(v.seen))
	for id := range v.seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Import marks every id of ids.
func (v *VisitedSet) Import(ids []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, id := range ids {
		v.seen[id] = struct{}{}
	}
}
