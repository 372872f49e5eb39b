package cds

import "sync"

// CoarseMap is a hash map guarded by a single mutex. Every operation
// serializes on that mutex; it is the baseline StripedMap is measured
// against.
//
// The zero CoarseMap is empty and ready to use.
type CoarseMap[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]V
}

// NewCoarseMap creates an empty CoarseMap.
func NewCoarseMap[K comparable, V any]() *CoarseMap[K, V] {
	return &CoarseMap[K, V]{m: make(map[K]V)}
}

// Get returns the value mapped to key, if any.
func (c *CoarseMap[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	value, ok = c.m[key]
	c.mu.Unlock()
	return value, ok
}

// Contains reports whether a value is mapped to key.
func (c *CoarseMap[K, V]) Contains(key K) bool {
	_, ok := c.Get(key)
	return ok
}

// Put maps key to value, overwriting an existing mapping.
func (c *CoarseMap[K, V]) Put(key K, value V) {
	c.mu.Lock()
	if c.m == nil {
		c.m = make(map[K]V)
	}
	c.m[key] = value
	c.mu.Unlock()
}

// Remove deletes the mapping for key and reports whether it existed.
func (c *CoarseMap[K, V]) Remove(key K) bool {
	c.mu.Lock()
	_, ok := c.m[key]
	if ok {
		delete(c.m, key)
	}
	c.mu.Unlock()
	return ok
}

// Len returns the number of entries.
func (c *CoarseMap[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// Range calls yield for each entry while holding the map's mutex. yield
// must not call back into the map.
func (c *CoarseMap[K, V]) Range(yield func(key K, value V) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range c.m {
		if !yield(k, v) {
			return
		}
	}
}
