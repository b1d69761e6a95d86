package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestLRUCache_GetSetExpire(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute).WithClock(clock.now)

	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}

	clock.advance(time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry should expire at ttl")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry should be removed, size=%d", c.Size())
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("stats = %d hits, %d misses", hits, misses)
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most recent
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should survive")
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d, want 2", c.Size())
	}
}

func TestLRUCache_OverwriteDeleteClear(t *testing.T) {
	c := NewLRUCache[int](0, time.Hour) // clamps to 1
	c.Set("a", 1)
	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Fatalf("overwrite failed, got %d", v)
	}
	c.Delete("a")
	c.Delete("missing")
	if c.Size() != 0 {
		t.Fatal("delete failed")
	}

	c.Set("b", 1)
	c.Clear()
	if _, ok := c.Get("b"); ok || c.Size() != 0 {
		t.Fatal("clear failed")
	}
}

func TestManager_Sweep(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Second).WithClock(clock.now)
	c.Set("a", 1)
	c.Set("b", 2)

	m := NewManager(nil)
	m.Register(c)
	if n := m.Sweep(); n != 0 {
		t.Fatalf("nothing should be expired yet, removed %d", n)
	}
	clock.advance(2 * time.Second)
	if n := m.Sweep(); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}

	m.StartCleanup(time.Hour)
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
