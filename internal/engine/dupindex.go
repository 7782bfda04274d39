package engine

import (
	"sort"
	"sync"
)

// DuplicateIndex accumulates digest ownership. The first registered path
// for a digest is canonical; every later path with the same digest is a
// duplicate of it, never the reverse.
type DuplicateIndex struct {
	mu     sync.Mutex
	owners map[string]string // digest -> first-seen path
	dupOf  map[string]string // duplicate path -> owner path
}

// NewDuplicateIndex creates an empty index.
func NewDuplicateIndex() *DuplicateIndex {
	return &DuplicateIndex{
		owners: make(map[string]string),
		dupOf:  make(map[string]string),
	}
}

// Register records that path has the given digest. The first
// registration of a digest returns ("", false); every subsequent one
// returns the owner path and true. Safe for concurrent use; exactly one
// winner per digest.
func (d *DuplicateIndex) Register(path, digest string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	owner, seen := d.owners[digest]
	if !seen {
		d.owners[digest] = path
		return "", false
	}
	d.dupOf[path] = owner
	return owner, true
}

// RegisterBatch registers a batch of hash results that completed
// together. The batch is ordered by path first, which makes the winner
// among simultaneous completions the lexicographically smallest path.
// Returns the paths in the batch that turned out to be duplicates, in
// registration order.
func (d *DuplicateIndex) RegisterBatch(batch []HashResult) []string {
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })

	var dups []string
	for _, r := range batch {
		if r.Err != nil || r.Digest == "" {
			continue
		}
		if _, isDup := d.Register(r.Path, r.Digest); isDup {
			dups = append(dups, r.Path)
		}
	}
	return dups
}

// DuplicateOf returns the canonical owner for a path previously
// registered as a duplicate.
func (d *DuplicateIndex) DuplicateOf(path string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	owner, ok := d.dupOf[path]
	return owner, ok
}

// Owner returns the canonical path for a digest.
func (d *DuplicateIndex) Owner(digest string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	owner, ok := d.owners[digest]
	return owner, ok
}

// Duplicates returns the number of paths flagged as duplicates.
func (d *DuplicateIndex) Duplicates() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dupOf)
}
