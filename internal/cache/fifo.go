package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// FIFO is a bounded in-memory map with insertion-order eviction. When a Put
// pushes the size past Capacity, the oldest Evict entries are dropped in one
// batch. Lookups do not refresh an entry's position. Safe for concurrent use.
type FIFO[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	evict    int
	items    map[K]V
	order    []K
}

// NewFIFO returns a cache holding at most capacity entries after each Put.
// evict is the batch size dropped on overflow and is clamped to [1, capacity].
func NewFIFO[K comparable, V any](capacity, evict int) *FIFO[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	if evict < 1 {
		evict = 1
	}
	if evict > capacity {
		evict = capacity
	}
	return &FIFO[K, V]{
		capacity: capacity,
		evict:    evict,
		items:    make(map[K]V, capacity),
	}
}

// Get returns the cached value for key.
func (c *FIFO[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

// Put stores value under key. Overwriting an existing key keeps its original
// insertion position.
func (c *FIFO[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; ok {
		c.items[key] = value
		return
	}
	c.items[key] = value
	c.order = append(c.order, key)
	if len(c.order) > c.capacity {
		n := c.evict
		if n > len(c.order) {
			n = len(c.order)
		}
		for _, k := range c.order[:n] {
			delete(c.items, k)
		}
		c.order = append(c.order[:0:0], c.order[n:]...)
	}
}

// Len reports the number of cached entries.
func (c *FIFO[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear drops every entry.
func (c *FIFO[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]V, c.capacity)
	c.order = nil
}

// KeyFrom builds a sha256 hex digest of parts joined by a blank line.
func KeyFrom(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte("\n\n"))
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
