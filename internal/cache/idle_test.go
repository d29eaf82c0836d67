package cache

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/log"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

type eviction struct {
	key string
	why Reason
}

func TestIdleCacheSlidesOnRead(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	var evicted []eviction
	c := NewIdleCache(10, time.Minute,
		WithClock[string](clock.Now),
		OnEvict(func(key string, _ string, why Reason) { evicted = append(evicted, eviction{key, why}) }),
	)

	c.Put("a", "1")
	for i := 0; i < 3; i++ {
		clock.Advance(50 * time.Second)
		if v, ok := c.Get("a"); !ok || v != "1" {
			t.Fatalf("read %d: expected a live entry, got %q %v", i, v, ok)
		}
	}

	clock.Advance(61 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected the idle entry to expire")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be dropped on read")
	}
	if len(evicted) != 1 || evicted[0] != (eviction{"a", Expired}) {
		t.Fatalf("unexpected evictions %+v", evicted)
	}
}

func TestIdleCacheDisplacesLeastRecentlyTouched(t *testing.T) {
	var evicted []eviction
	c := NewIdleCache(2, time.Hour,
		OnEvict(func(key string, _ int, why Reason) { evicted = append(evicted, eviction{key, why}) }),
	)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a")
	c.Put("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("least recently touched entry should be displaced")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("recently read entry should survive")
	}
	if len(evicted) != 1 || evicted[0] != (eviction{"b", Displaced}) {
		t.Fatalf("unexpected evictions %+v", evicted)
	}

	c.Remove("a")
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", c.Len())
	}
	if len(evicted) != 1 {
		t.Fatalf("Remove must not fire the eviction hook")
	}
}

func TestIdleCacheMinimumCapacity(t *testing.T) {
	c := NewIdleCache[int](0, time.Hour)
	c.Put("a", 1)
	c.Put("b", 2)
	if c.Len() != 1 {
		t.Fatalf("expected capacity of 1, got %d entries", c.Len())
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Fatalf("latest entry should be kept, got %d %v", v, ok)
	}
}

func TestManagerSweep(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	expired := 0
	c := NewIdleCache(10, time.Second,
		WithClock[int](clock.Now),
		OnEvict(func(string, int, Reason) { expired++ }),
	)
	c.Put("a", 1)
	c.Put("b", 2)

	m := NewManager(log.Discard())
	m.Register("test", c)
	if n := m.Sweep(); n != 0 {
		t.Fatalf("nothing should expire yet, removed %d", n)
	}
	clock.Advance(2 * time.Second)
	c.Put("c", 3)
	if n := m.Sweep(); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if expired != 2 || c.Len() != 1 {
		t.Fatalf("expired=%d len=%d", expired, c.Len())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
