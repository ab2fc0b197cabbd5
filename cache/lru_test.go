package cache

import "testing"

func TestLRUGetSet(t *testing.T) {
	c := NewLRU[string, int](4, nil)

	c.Set("a", 1)
	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Fatalf("expected (1, true), got (%d, %v)", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestLRUEvictsOldest(t *testing.T) {
	var evicted []string
	c := NewLRU[string, int](2, func(k string, _ int) {
		evicted = append(evicted, k)
	})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3) // evicts "a"

	if len(evicted) != 1 || evicted[0] != "a" {
		t.Fatalf("expected [a] evicted, got %v", evicted)
	}
	if _, ok := c.Get("a"); ok {
		t.Error("evicted entry should be gone")
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
}

func TestLRUGetRefreshesRecency(t *testing.T) {
	var evicted []string
	c := NewLRU[string, int](2, func(k string, _ int) {
		evicted = append(evicted, k)
	})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")    // "b" is now oldest
	c.Set("c", 3) // evicts "b"

	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("expected [b] evicted, got %v", evicted)
	}
}

func TestLRUSetReplacesAndNotifies(t *testing.T) {
	replaced := 0
	c := NewLRU[string, int](4, func(string, int) { replaced++ })

	c.Set("a", 1)
	c.Set("a", 2)
	if replaced != 1 {
		t.Errorf("replacing a value should evict the old one, got %d callbacks", replaced)
	}
	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("expected replacement value 2, got %d", v)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
}

func TestLRUClearNotifiesAll(t *testing.T) {
	evicted := 0
	c := NewLRU[string, int](8, func(string, int) { evicted++ })

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if evicted != 2 {
		t.Errorf("expected callbacks for all entries, got %d", evicted)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
}

func TestLRUUnlimitedCapacity(t *testing.T) {
	c := NewLRU[int, int](0, nil)
	for i := range 100 {
		c.Set(i, i)
	}
	if c.Len() != 100 {
		t.Errorf("capacity 0 means unlimited, got %d entries", c.Len())
	}
}
