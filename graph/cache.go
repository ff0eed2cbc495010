package graph

import (
	"sync/atomic"
)

// AdjacencyKey identifies one adjacency list: the owning entity and the slot
type AdjacencyKey struct {
	Kind Kind
	ID   ID
	Slot Slot
}

// LookupCache memoizes raw adjacency lists for the lifetime of one traversal
// chain. It is an optimization only: a nil cache is valid and every lookup
// then goes to the store.
type LookupCache struct {
	lists map[AdjacencyKey][]ID

	// Statistics
	hits   int64
	misses int64
}

// NewLookupCache creates an empty cache
func NewLookupCache() *LookupCache {
	return &LookupCache{lists: make(map[AdjacencyKey][]ID)}
}

// Get returns a cached list
func (c *LookupCache) Get(key AdjacencyKey) ([]ID, bool) {
	if c == nil {
		return nil, false
	}
	ids, ok := c.lists[key]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	return ids, true
}

// Put stores a list
func (c *LookupCache) Put(key AdjacencyKey, ids []ID) {
	if c == nil {
		return
	}
	c.lists[key] = ids
}

// Len returns the number of cached lists
func (c *LookupCache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.lists)
}

// Stats returns hit and miss counts
func (c *LookupCache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}
