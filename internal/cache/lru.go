package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a size-bounded map whose entries expire ttl after they are written.
// When full, the least recently used entry is dropped.
type LRU[V any] struct {
	mu    sync.Mutex
	limit int
	ttl   time.Duration
	clock func() time.Time
	index map[string]*list.Element
	order *list.List // front is most recently used
}

type entry[V any] struct {
	key     string
	value   V
	expires time.Time
}

func NewLRU[V any](limit int, ttl time.Duration) *LRU[V] {
	return &LRU[V]{
		limit: max(limit, 1),
		ttl:   ttl,
		clock: time.Now,
		index: make(map[string]*list.Element),
		order: list.New(),
	}
}

// WithClock replaces the time source.
func (c *LRU[V]) WithClock(now func() time.Time) *LRU[V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = now
	return c
}

// live returns the element for key, dropping it first if it has expired.
func (c *LRU[V]) live(key string, now time.Time) *list.Element {
	el, ok := c.index[key]
	if !ok {
		return nil
	}
	if !now.Before(el.Value.(*entry[V]).expires) {
		c.remove(el)
		return nil
	}
	return el
}

func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el := c.live(key, c.clock())
	if el == nil {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry[V]).value, true
}

// Set stores value under key and restarts its ttl.
func (c *LRU[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	if el := c.live(key, now); el != nil {
		e := el.Value.(*entry[V])
		e.value, e.expires = value, now.Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}
	c.insert(key, value, now.Add(c.ttl))
}

// Update replaces the value under key with fn(old, found) atomically. A live
// entry keeps its expiry; a missing or expired one starts a fresh ttl. It
// returns the stored value and when it expires.
func (c *LRU[V]) Update(key string, fn func(old V, found bool) V) (V, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	if el := c.live(key, now); el != nil {
		e := el.Value.(*entry[V])
		e.value = fn(e.value, true)
		c.order.MoveToFront(el)
		return e.value, e.expires
	}
	var zero V
	v := fn(zero, false)
	expires := now.Add(c.ttl)
	c.insert(key, v, expires)
	return v, expires
}

func (c *LRU[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.remove(el)
	}
}

func (c *LRU[V]) insert(key string, value V, expires time.Time) {
	c.index[key] = c.order.PushFront(&entry[V]{key: key, value: value, expires: expires})
	for c.order.Len() > c.limit {
		c.remove(c.order.Back())
	}
}

func (c *LRU[V]) remove(el *list.Element) {
	delete(c.index, el.Value.(*entry[V]).key)
	c.order.Remove(el)
}

// RemoveExpired drops every expired entry and returns how many went.
func (c *LRU[V]) RemoveExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	n := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if !now.Before(el.Value.(*entry[V]).expires) {
			c.remove(el)
			n++
		}
		el = prev
	}
	return n
}

// Len counts stored entries, including expired ones not yet removed.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
