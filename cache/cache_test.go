package cache

import (
	"sync/atomic"
	"testing"
)

// testResource is a minimal Resource with a destruction flag.
type testResource struct {
	refs      atomic.Int32
	key       Key
	size      uint64
	destroyed bool
}

func newTestResource(key Key, size uint64) *testResource {
	r := &testResource{key: key, size: size}
	r.refs.Store(1)
	return r
}

func (r *testResource) Ref() { r.refs.Add(1) }

func (r *testResource) Unref() {
	if r.refs.Add(-1) == 0 {
		r.destroyed = true
	}
}

func (r *testResource) RefCount() int32 { return r.refs.Load() }
func (r *testResource) Key() Key        { return r.key }
func (r *testResource) Size() uint64    { return r.size }

func shapeKey(typ KeyType, shareable Shareable, words ...uint32) Key {
	b := NewBuilder(typ, shareable)
	for _, w := range words {
		b.PushUint32(w)
	}
	return b.Finish()
}

func TestFindAndRefMiss(t *testing.T) {
	c := NewResourceCache(0)
	if got := c.FindAndRef(shapeKey(NextKeyType(), Shared, 1)); got != nil {
		t.Fatalf("expected miss, got %v", got)
	}
	_, misses, _ := c.Stats()
	if misses != 1 {
		t.Errorf("expected 1 miss, got %d", misses)
	}
}

func TestSharedKeyReturnsSameInstance(t *testing.T) {
	c := NewResourceCache(0)
	key := shapeKey(NextKeyType(), Shared, 7)
	r := newTestResource(key, 16)
	c.Insert(r)

	if r.RefCount() != 2 {
		t.Fatalf("expected creator+cache refs (2), got %d", r.RefCount())
	}

	a := c.FindAndRef(key)
	b := c.FindAndRef(key)
	if a != Resource(r) || b != Resource(r) {
		t.Error("shareable key should return the same instance to every holder")
	}
	if r.RefCount() != 4 {
		t.Errorf("expected 4 refs after two hits, got %d", r.RefCount())
	}
}

func TestNonShareableKeyIsMultiset(t *testing.T) {
	c := NewResourceCache(0)
	key := shapeKey(NextKeyType(), NotShareable, 9)

	r1 := newTestResource(key, 16)
	r2 := newTestResource(key, 16)
	c.Insert(r1)
	c.Insert(r2)
	// Drop the creation refs; the cache alone holds both now.
	r1.Unref()
	r2.Unref()

	if c.Len() != 2 {
		t.Fatalf("expected 2 instances under one key, got %d", c.Len())
	}

	a := c.FindAndRef(key)
	if a == nil {
		t.Fatal("expected an idle instance")
	}
	b := c.FindAndRef(key)
	if b == nil {
		t.Fatal("expected a second idle instance")
	}
	if a == b {
		t.Error("non-shareable key must not hand out an in-use instance")
	}
	if got := c.FindAndRef(key); got != nil {
		t.Error("all instances in use: expected a miss")
	}

	// Releasing one makes it findable again.
	a.Unref()
	if got := c.FindAndRef(key); got != a {
		t.Error("released instance should be handed out again")
	}
}

func TestBudgetPurgesIdleLRU(t *testing.T) {
	c := NewResourceCache(100)
	typ := NextKeyType()

	r1 := newTestResource(shapeKey(typ, Shared, 1), 60)
	c.Insert(r1)
	r1.Unref() // idle: cache-only ref

	r2 := newTestResource(shapeKey(typ, Shared, 2), 60)
	c.Insert(r2)

	// 120 bytes > 100 budget: the idle r1 must have been purged.
	if !r1.destroyed {
		t.Error("expected idle LRU resource to be purged and destroyed")
	}
	if r2.destroyed {
		t.Error("resource still referenced externally must survive")
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 resident instance, got %d", c.Len())
	}
	if c.TotalSize() != 60 {
		t.Errorf("expected 60 bytes accounted, got %d", c.TotalSize())
	}
}

func TestBudgetNeverPurgesInUse(t *testing.T) {
	c := NewResourceCache(50)
	typ := NextKeyType()

	r1 := newTestResource(shapeKey(typ, Shared, 1), 40) // held externally
	c.Insert(r1)
	r2 := newTestResource(shapeKey(typ, Shared, 2), 40) // held externally
	c.Insert(r2)

	if r1.destroyed || r2.destroyed {
		t.Error("in-use resources must never be purged")
	}
	if c.Len() != 2 {
		t.Errorf("expected both resident, got %d", c.Len())
	}
}

func TestPurgeIdle(t *testing.T) {
	c := NewResourceCache(0)
	key := shapeKey(NextKeyType(), Shared, 3)
	r := newTestResource(key, 8)
	c.Insert(r)
	r.Unref()

	c.PurgeIdle()
	if !r.destroyed {
		t.Error("PurgeIdle should destroy cache-only resources")
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
}

func TestReleaseAll(t *testing.T) {
	c := NewResourceCache(0)
	typ := NextKeyType()

	idle := newTestResource(shapeKey(typ, Shared, 1), 8)
	c.Insert(idle)
	idle.Unref()

	held := newTestResource(shapeKey(typ, Shared, 2), 8)
	c.Insert(held)

	c.ReleaseAll()
	if !idle.destroyed {
		t.Error("idle resource should be destroyed on ReleaseAll")
	}
	if held.destroyed {
		t.Error("externally held resource must survive ReleaseAll")
	}
	if held.RefCount() != 1 {
		t.Errorf("expected only the external ref to remain, got %d", held.RefCount())
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
}

func TestInsertInvalidKeyIgnored(t *testing.T) {
	c := NewResourceCache(0)
	r := newTestResource(Key{}, 8)
	c.Insert(r)
	if c.Len() != 0 {
		t.Error("resources without a valid key must not be inserted")
	}
	if r.RefCount() != 1 {
		t.Error("rejected insert must not take a reference")
	}
}

func TestStatsCounters(t *testing.T) {
	c := NewResourceCache(0)
	key := shapeKey(NextKeyType(), Shared, 5)
	c.FindAndRef(key)
	r := newTestResource(key, 8)
	c.Insert(r)
	c.FindAndRef(key)

	hits, misses, _ := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit / 1 miss, got %d / %d", hits, misses)
	}
}
