package cache

import (
	"testing"
	"time"

	"fintrack/internal/core"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestLRUCacheBasicOperations(t *testing.T) {
	c := NewLRUCache[core.Snapshot](3, time.Minute)
	snap := core.Snapshot{Expenses: core.Collection{Kind: core.Expense, MonthlyTotal: 42}}

	c.Set("snapshot", snap)
	got, found := c.Get("snapshot")
	if !found {
		t.Fatal("snapshot should be cached")
	}
	if got.Expenses.MonthlyTotal != 42 {
		t.Errorf("MonthlyTotal = %v, want 42", got.Expenses.MonthlyTotal)
	}

	c.Delete("snapshot")
	if _, found := c.Get("snapshot"); found {
		t.Error("snapshot should be deleted")
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[string](3, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Get("key1") // key2 becomes least recently used
	c.Set("key4", "value4")

	if _, found := c.Get("key2"); found {
		t.Error("key2 should have been evicted")
	}
	for _, k := range []string{"key1", "key3", "key4"} {
		if _, found := c.Get(k); !found {
			t.Errorf("%s should still exist", k)
		}
	}
	if c.Size() != 3 {
		t.Errorf("Size() = %d, want 3", c.Size())
	}
}

func TestLRUCacheTTLExpiration(t *testing.T) {
	clk := newClock()
	c := NewLRUCache[string](100, 50*time.Millisecond).WithClock(clk.Now)

	c.Set("key1", "value1")
	if _, found := c.Get("key1"); !found {
		t.Error("key1 should exist immediately")
	}

	clk.Advance(60 * time.Millisecond)
	if _, found := c.Get("key1"); found {
		t.Error("key1 should have expired")
	}
}

func TestLRUCacheCleanExpired(t *testing.T) {
	clk := newClock()
	c := NewLRUCache[string](100, 50*time.Millisecond).WithClock(clk.Now)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	clk.Advance(60 * time.Millisecond)
	c.Set("key3", "value3")

	if removed := c.CleanExpired(); removed != 2 {
		t.Errorf("Expected 2 items cleaned, got %d", removed)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCachePurgeAndStats(t *testing.T) {
	c := NewLRUCache[int](10, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Get("missing")

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Size != 2 {
		t.Errorf("Stats() = %+v", st)
	}

	c.Purge()
	if c.Size() != 0 {
		t.Errorf("Size() after Purge = %d", c.Size())
	}
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Error("cache should be usable after Purge")
	}
}

func TestManagerCleanNow(t *testing.T) {
	clk := newClock()
	a := NewLRUCache[string](10, time.Second).WithClock(clk.Now)
	b := NewLRUCache[int](10, time.Second).WithClock(clk.Now)
	a.Set("x", "1")
	b.Set("y", 2)
	b.Set("z", 3)

	m := NewManager(nil)
	m.Register(a)
	m.Register(b)

	if n := m.CleanNow(); n != 0 {
		t.Errorf("CleanNow() = %d before expiry, want 0", n)
	}
	clk.Advance(2 * time.Second)
	if n := m.CleanNow(); n != 3 {
		t.Errorf("CleanNow() = %d, want 3", n)
	}

	m.StartCleanup(time.Hour)
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}

func BenchmarkLRUCache(b *testing.B) {
	c := NewLRUCache[core.Snapshot](1000, time.Hour)
	snap := core.Snapshot{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%10 == 0 {
			c.Set("bench-key", snap)
		} else {
			c.Get("bench-key")
		}
	}
}
