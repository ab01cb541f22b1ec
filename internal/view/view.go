package view

import (
	"sync"

	"github.com/rickgao/arbfeed/internal/model"
	"github.com/rickgao/arbfeed/internal/reconcile"
)

// Compute runs Filter, Sort and Paginate over records.
func Compute(records []model.Record, p Params) Page {
	p = p.Normalize()
	sorted := Filter(records, p)
	Sort(sorted, p.Sort)
	return Paginate(sorted, p.Page, p.PageSize)
}

// Cache memoizes the filtered and sorted list for one state generation and
// one set of filter and sort inputs. It is safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	valid      bool
	generation uint64
	key        string
	sorted     []model.Record

	hits   uint64
	misses uint64
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{}
}

// Page returns the page for p over state, recomputing the filtered and
// sorted list only when the generation or the filter and sort inputs
// changed.
func (c *Cache) Page(state *reconcile.State, p Params) Page {
	p = p.Normalize()
	key := p.filterKey()
	gen := state.Generation()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid || c.generation != gen || c.key != key {
		sorted := Filter(state.Records(), p)
		Sort(sorted, p.Sort)

		c.valid = true
		c.generation = gen
		c.key = key
		c.sorted = sorted
		c.misses++
	} else {
		c.hits++
	}

	return Paginate(c.sorted, p.Page, p.PageSize)
}

// Invalidate drops the memoized list.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.sorted = nil
	c.mu.Unlock()
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses}
}
