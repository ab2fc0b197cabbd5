package cache

import (
	"sync"
	"sync/atomic"
)

// Resource is the contract a cached object must satisfy. Reference counts
// cover both the cache's own reference (one while resident) and every
// external holder (one each); the resource destroys its underlying driver
// object when the count reaches zero.
type Resource interface {
	// Ref adds a reference.
	Ref()

	// Unref drops a reference, destroying the resource at zero.
	Unref()

	// RefCount returns the current reference count.
	RefCount() int32

	// Key returns the structural key the resource was inserted under.
	Key() Key

	// Size returns the approximate GPU memory footprint in bytes, used for
	// budget accounting. May be zero for objects whose footprint is
	// negligible or unknowable.
	Size() uint64
}

// ResourceCache is a budgeted, reference-counted key→resource store.
//
// Keys may be shareable (one instance serves any number of holders) or
// non-shareable (a keyed multiset: several distinct instances live under one
// key value and a lookup only returns an instance not currently held
// outside the cache). The multiset form is what lets a descriptor-set pool
// pre-fill many structurally identical sets under a single key.
//
// The cache holds one reference to every resident resource. When the
// configured byte budget is exceeded, least-recently-used resources whose
// only remaining reference is the cache's are unrefed (and thereby
// destroyed) until the cache is back within budget. Resources still held
// externally are never purged.
//
// ResourceCache is safe for concurrent use; one cache may be shared by
// several providers under the same device context.
type ResourceCache struct {
	mu      sync.Mutex
	budget  uint64
	total   uint64
	entries map[string][]*cacheEntry
	lru     *lruList[*cacheEntry]

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// cacheEntry tracks one resident resource and its LRU position.
type cacheEntry struct {
	res  Resource
	node *lruNode[*cacheEntry]
}

// NewResourceCache creates a cache with the given byte budget.
// A budget of 0 means unlimited.
func NewResourceCache(budget uint64) *ResourceCache {
	return &ResourceCache{
		budget:  budget,
		entries: make(map[string][]*cacheEntry),
		lru:     newLRUList[*cacheEntry](),
	}
}

// FindAndRef looks up a resource by key and, on a hit, adds a reference on
// behalf of the caller and returns it. For shareable keys any resident
// instance matches; for non-shareable keys only an instance whose sole
// reference is the cache's own. Returns nil on a miss.
func (c *ResourceCache) FindAndRef(key Key) Resource {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries[key.Canonical()] {
		if !key.Shareable() && e.res.RefCount() != 1 {
			continue
		}
		e.res.Ref()
		c.lru.MoveToFront(e.node)
		c.hits.Add(1)
		return e.res
	}
	c.misses.Add(1)
	return nil
}

// Insert adds a resource to the cache. The resource must already carry a
// valid key (see Resource.Key); the cache takes its own reference. The
// caller's reference is unaffected. Inserting may purge least-recently-used
// idle resources if the budget is exceeded.
func (c *ResourceCache) Insert(res Resource) {
	key := res.Key()
	if !key.Valid() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	res.Ref()
	e := &cacheEntry{res: res}
	e.node = c.lru.PushFront(e)
	c.entries[key.Canonical()] = append(c.entries[key.Canonical()], e)
	c.total += res.Size()
	c.purgeAsNeeded()
}

// purgeAsNeeded unrefs LRU entries whose only reference is the cache's
// until the cache is within budget. Caller must hold c.mu.
func (c *ResourceCache) purgeAsNeeded() {
	if c.budget == 0 {
		return
	}
	for node := c.lru.Tail(); node != nil && c.total > c.budget; {
		e := node.key
		node = node.prev
		if e.res.RefCount() != 1 {
			// In use outside the cache; not purgeable.
			continue
		}
		c.removeLocked(e)
		c.evictions.Add(1)
	}
}

// removeLocked evicts one entry: drops it from the map and LRU list and
// releases the cache's reference. Caller must hold c.mu.
func (c *ResourceCache) removeLocked(e *cacheEntry) {
	canonical := e.res.Key().Canonical()
	insts := c.entries[canonical]
	for i, other := range insts {
		if other == e {
			insts[i] = insts[len(insts)-1]
			insts = insts[:len(insts)-1]
			break
		}
	}
	if len(insts) == 0 {
		delete(c.entries, canonical)
	} else {
		c.entries[canonical] = insts
	}
	c.lru.Remove(e.node)
	c.total -= e.res.Size()
	e.res.Unref()
}

// PurgeIdle evicts every resource whose only reference is the cache's,
// regardless of budget.
func (c *ResourceCache) PurgeIdle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for node := c.lru.Tail(); node != nil; {
		e := node.key
		node = node.prev
		if e.res.RefCount() != 1 {
			continue
		}
		c.removeLocked(e)
		c.evictions.Add(1)
	}
}

// ReleaseAll drops the cache's reference to every resident resource and
// empties the cache. Resources still held externally survive with their
// holders; idle ones are destroyed. Used at device-context teardown.
func (c *ResourceCache) ReleaseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, insts := range c.entries {
		for _, e := range insts {
			e.res.Unref()
		}
	}
	c.entries = make(map[string][]*cacheEntry)
	c.lru.Clear()
	c.total = 0
}

// Len returns the total number of resident resource instances.
func (c *ResourceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, insts := range c.entries {
		n += len(insts)
	}
	return n
}

// TotalSize returns the summed Size of all resident resources.
func (c *ResourceCache) TotalSize() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Budget returns the configured byte budget (0 = unlimited).
func (c *ResourceCache) Budget() uint64 { return c.budget }

// Stats returns hit/miss/eviction counters. The values are read atomically
// and may be slightly stale relative to each other.
func (c *ResourceCache) Stats() (hits, misses, evictions uint64) {
	return c.hits.Load(), c.misses.Load(), c.evictions.Load()
}
