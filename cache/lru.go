package cache

// lruNode is a node in a doubly-linked LRU list.
// The node stores a key for O(1) deletion from the parent map.
type lruNode[K comparable] struct {
	key  K
	prev *lruNode[K]
	next *lruNode[K]
}

// lruList is a doubly-linked list for LRU eviction. Head is the most
// recently used, tail the least. Not thread-safe; callers synchronize.
type lruList[K comparable] struct {
	head *lruNode[K]
	tail *lruNode[K]
	len  int
}

// newLRUList creates an empty LRU list.
func newLRUList[K comparable]() *lruList[K] {
	return &lruList[K]{}
}

// Len returns the number of nodes in the list.
func (l *lruList[K]) Len() int { return l.len }

// Tail returns the least recently used node, or nil if the list is empty.
// Callers may walk towards the head via prev.
func (l *lruList[K]) Tail() *lruNode[K] { return l.tail }

// PushFront adds a new node at the front (most recently used) and returns
// it for later access.
func (l *lruList[K]) PushFront(key K) *lruNode[K] {
	node := &lruNode[K]{key: key}
	if l.head == nil {
		l.head = node
		l.tail = node
	} else {
		node.next = l.head
		l.head.prev = node
		l.head = node
	}
	l.len++
	return node
}

// MoveToFront moves an existing node to the front (most recently used).
func (l *lruList[K]) MoveToFront(node *lruNode[K]) {
	if node == nil || node == l.head {
		return
	}
	l.unlink(node)
	node.next = l.head
	if l.head != nil {
		l.head.prev = node
	}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
	l.len++
}

// Remove removes a node from the list.
func (l *lruList[K]) Remove(node *lruNode[K]) {
	if node == nil {
		return
	}
	l.unlink(node)
}

// RemoveOldest removes and returns the key of the least recently used node.
// Returns the zero value and false if the list is empty.
func (l *lruList[K]) RemoveOldest() (K, bool) {
	if l.tail == nil {
		var zero K
		return zero, false
	}
	node := l.tail
	l.unlink(node)
	return node.key, true
}

// Clear removes all nodes from the list.
func (l *lruList[K]) Clear() {
	l.head = nil
	l.tail = nil
	l.len = 0
}

// unlink removes a node from the list and clears its pointers.
func (l *lruList[K]) unlink(node *lruNode[K]) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	l.len--
}

// LRU is a generic bounded map with least-recently-used eviction and an
// eviction callback. When insertion pushes the map over capacity, the
// oldest entries are removed and the callback (if any) is invoked for each
// victim — the callback is how the bind-group cache releases its reference
// to an evicted descriptor set.
//
// LRU is not thread-safe; vkres providers have single-producer affinity and
// guard their own state.
type LRU[K comparable, V any] struct {
	entries  map[K]*lruEntry[K, V]
	list     *lruList[K]
	capacity int
	onEvict  func(K, V)
}

// lruEntry holds a cached value with its LRU node.
type lruEntry[K comparable, V any] struct {
	value V
	node  *lruNode[K]
}

// NewLRU creates a bounded LRU map. A capacity <= 0 means unlimited.
// onEvict may be nil.
func NewLRU[K comparable, V any](capacity int, onEvict func(K, V)) *LRU[K, V] {
	return &LRU[K, V]{
		entries:  make(map[K]*lruEntry[K, V]),
		list:     newLRUList[K](),
		capacity: capacity,
		onEvict:  onEvict,
	}
}

// Get retrieves a value, marking it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.list.MoveToFront(e.node)
	return e.value, true
}

// Set stores a value. If the key already exists the old value is evicted
// (with callback) and replaced. If the map exceeds capacity, the oldest
// entries are evicted.
func (c *LRU[K, V]) Set(key K, value V) {
	if e, ok := c.entries[key]; ok {
		if c.onEvict != nil {
			c.onEvict(key, e.value)
		}
		e.value = value
		c.list.MoveToFront(e.node)
		return
	}

	node := c.list.PushFront(key)
	c.entries[key] = &lruEntry[K, V]{value: value, node: node}

	for c.capacity > 0 && len(c.entries) > c.capacity {
		oldest, ok := c.list.RemoveOldest()
		if !ok {
			break
		}
		victim := c.entries[oldest]
		delete(c.entries, oldest)
		if c.onEvict != nil {
			c.onEvict(oldest, victim.value)
		}
	}
}

// Len returns the number of entries.
func (c *LRU[K, V]) Len() int { return len(c.entries) }

// Capacity returns the configured capacity (0 = unlimited).
func (c *LRU[K, V]) Capacity() int { return c.capacity }

// Clear evicts every entry, invoking the eviction callback for each.
func (c *LRU[K, V]) Clear() {
	for key, e := range c.entries {
		if c.onEvict != nil {
			c.onEvict(key, e.value)
		}
	}
	c.entries = make(map[K]*lruEntry[K, V])
	c.list.Clear()
}
