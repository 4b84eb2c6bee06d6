// Package sizecache memoises row counts of container tables.
//
// Entries are keyed by (endpoint, table) so every handle on the same physical
// table shares one count. The cache never recomputes on its own: each
// mutating operation on any handle must call Invalidate, and the next reader
// pays for one COUNT query.
package sizecache

import (
	"sync"

	"github.com/google/btree"
)

// Key identifies a physical table.
type Key struct {
	Endpoint string
	Table    string
}

type entry struct {
	key  Key
	size int
}

func less(a, b entry) bool {
	if a.key.Endpoint != b.key.Endpoint {
		return a.key.Endpoint < b.key.Endpoint
	}
	return a.key.Table < b.key.Table
}

type Cache struct {
	mu   sync.Mutex
	tree *btree.BTreeG[entry]
	// gens counts invalidations per key. A count computed while the
	// generation moved is stale and is not stored.
	gens map[Key]uint64
}

func New() *Cache {
	return &Cache{
		tree: btree.NewG[entry](16, less),
		gens: make(map[Key]uint64),
	}
}

var defaultCache = New()

// Default returns the process-wide cache.
func Default() *Cache {
	return defaultCache
}

func (c *Cache) Get(k Key) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.tree.Get(entry{key: k})
	return e.size, ok
}

// GetOrCompute returns the cached size of k, calling compute on a miss. A
// failed computation leaves the cache untouched. The second result reports a
// hit.
func (c *Cache) GetOrCompute(k Key, compute func() (int, error)) (int, bool, error) {
	c.mu.Lock()
	if e, ok := c.tree.Get(entry{key: k}); ok {
		c.mu.Unlock()
		return e.size, true, nil
	}
	gen, ok := c.gens[k]
	if !ok {
		// Registered so InvalidateEndpoint can see the computation.
		c.gens[k] = 0
	}
	c.mu.Unlock()

	size, err := compute()
	if err != nil {
		return 0, false, err
	}

	c.mu.Lock()
	if c.gens[k] == gen {
		c.tree.ReplaceOrInsert(entry{key: k, size: size})
	}
	c.mu.Unlock()
	return size, false, nil
}

func (c *Cache) Invalidate(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[k]++
	c.tree.Delete(entry{key: k})
}

// InvalidateEndpoint drops every table cached for endpoint.
func (c *Cache) InvalidateEndpoint(endpoint string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var doomed []entry
	c.tree.AscendGreaterOrEqual(entry{key: Key{Endpoint: endpoint}}, func(e entry) bool {
		if e.key.Endpoint != endpoint {
			return false
		}
		doomed = append(doomed, e)
		return true
	})
	for _, e := range doomed {
		c.tree.Delete(e)
	}
	for k := range c.gens {
		if k.Endpoint == endpoint {
			c.gens[k]++
		}
	}
	return len(doomed)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Len()
}
