package match

import (
	"sync"

	"github.com/poiesic/lostfound/core"
)

// Index caches the term counts of reports between matching runs so an
// unchanged candidate is tokenized once. Entries are keyed by report ID and
// discarded when the report's surface text changes. Document frequencies
// and weights are still computed per run, over exactly the pool being
// scored.
//
// An Index is safe for concurrent use. Share one only between matchers
// configured with the same stop words.
type Index struct {
	mu      sync.RWMutex
	entries map[core.ID]indexEntry
}

type indexEntry struct {
	digest core.ID
	bag    bag
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{entries: make(map[core.ID]indexEntry)}
}

// Len returns the number of cached reports.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Forget drops cached entries, typically after reports are deleted or
// resolved.
func (x *Index) Forget(ids ...core.ID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, id := range ids {
		delete(x.entries, id)
	}
}

// bag returns the cached term counts for report, computing and storing them
// on a miss. Reports without an ID are never cached.
func (x *Index) bag(report *core.Report, stop StopWords) bag {
	surface := Surface(report)
	if report.Id == 0 {
		return newBag(tokenize(surface, stop))
	}
	digest := core.IDFromContent(surface)

	x.mu.RLock()
	entry, ok := x.entries[report.Id]
	x.mu.RUnlock()
	if ok && entry.digest == digest {
		return entry.bag
	}

	b := newBag(tokenize(surface, stop))
	x.mu.Lock()
	x.entries[report.Id] = indexEntry{digest: digest, bag: b}
	x.mu.Unlock()
	return b
}
