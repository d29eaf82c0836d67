package cache

import (
	"container/list"
	"sync"
	"time"
)

// Reason tells an eviction hook why an entry left the cache.
type Reason string

const (
	// Expired entries sat idle for longer than the cache's idle timeout.
	Expired Reason = "expired"
	// Displaced entries were the least recently touched when the cache was full.
	Displaced Reason = "displaced"
)

// IdleCache keeps at most capacity entries. Every Get or Put pushes an
// entry's deadline idle further out, so only untouched entries expire. When
// full, the least recently touched entry is displaced. Explicit Remove calls
// do not fire the eviction hook.
type IdleCache[V any] struct {
	capacity int
	idle     time.Duration
	now      func() time.Time
	onEvict  func(key string, v V, why Reason)

	mu      sync.Mutex
	index   map[string]*list.Element
	recency *list.List // front is most recently touched
}

type entry[V any] struct {
	key      string
	value    V
	deadline time.Time
}

// IdleOption configures an IdleCache.
type IdleOption[V any] func(*IdleCache[V])

// WithClock replaces time.Now.
func WithClock[V any](now func() time.Time) IdleOption[V] {
	return func(c *IdleCache[V]) { c.now = now }
}

// OnEvict registers a hook called for expired and displaced entries. It runs
// with the cache locked and must not call back into the cache.
func OnEvict[V any](fn func(key string, v V, why Reason)) IdleOption[V] {
	return func(c *IdleCache[V]) { c.onEvict = fn }
}

// NewIdleCache creates a cache of at most capacity entries (minimum 1) that
// drops entries untouched for idle.
func NewIdleCache[V any](capacity int, idle time.Duration, opts ...IdleOption[V]) *IdleCache[V] {
	c := &IdleCache[V]{
		capacity: max(capacity, 1),
		idle:     idle,
		now:      time.Now,
		index:    make(map[string]*list.Element),
		recency:  list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live value for key and restarts its idle timer.
func (c *IdleCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.index[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[V])
	now := c.now()
	if now.After(e.deadline) {
		c.drop(el, Expired)
		return zero, false
	}
	e.deadline = now.Add(c.idle)
	c.recency.MoveToFront(el)
	return e.value, true
}

// Put stores value under key with a fresh idle timer.
func (c *IdleCache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := c.now().Add(c.idle)
	if el, ok := c.index[key]; ok {
		e := el.Value.(*entry[V])
		e.value, e.deadline = value, deadline
		c.recency.MoveToFront(el)
		return
	}

	c.index[key] = c.recency.PushFront(&entry[V]{key: key, value: value, deadline: deadline})
	for c.recency.Len() > c.capacity {
		c.drop(c.recency.Back(), Displaced)
	}
}

// Remove forgets key without notifying the eviction hook.
func (c *IdleCache[V]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		delete(c.index, key)
		c.recency.Remove(el)
	}
}

// Sweep drops every expired entry and returns how many were dropped.
func (c *IdleCache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	// Walk from the least recently touched end; expired entries cluster there.
	for el := c.recency.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*entry[V]).deadline) {
			c.drop(el, Expired)
			n++
		}
		el = prev
	}
	return n
}

// Len is the number of stored entries, including expired ones not yet swept.
func (c *IdleCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

func (c *IdleCache[V]) drop(el *list.Element, why Reason) {
	e := el.Value.(*entry[V])
	delete(c.index, e.key)
	c.recency.Remove(el)
	if c.onEvict != nil {
		c.onEvict(e.key, e.value, why)
	}
}
