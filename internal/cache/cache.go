// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import "sync"

// Cache is a keyed store of objects that must exist at most once per key.
// Entries are never evicted; Drain releases them all at teardown.
//
// Cache is safe for concurrent use.
// Cache must not be copied after creation (has mutex).
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]V
	order   []K // insertion order, for Drain

	hits   uint64
	misses uint64
}

// New creates an empty cache.
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{entries: make(map[K]V)}
}

// GetOrCreate returns the cached value for key, or calls create and stores
// its result. create runs under the lock, so it is called at most once per
// missing key even with concurrent callers, and it must not call back into
// the cache. If create fails nothing is stored and the error is returned.
//
// The created result reports whether create was called successfully.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (value V, created bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.entries[key]; ok {
		c.hits++
		return v, false, nil
	}

	c.misses++
	value, err = create()
	if err != nil {
		var zero V
		return zero, false, err
	}
	c.entries[key] = value
	c.order = append(c.order, key)
	return value, true, nil
}

// Drain empties the cache and returns its values in reverse insertion
// order, so later objects (which may depend on earlier ones) come first.
// Statistics are kept.
func (c *Cache[K, V]) Drain() []V {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]V, 0, len(c.order))
	for i := len(c.order) - 1; i >= 0; i-- {
		out = append(out, c.entries[c.order[i]])
	}
	c.entries = make(map[K]V)
	c.order = nil
	return out
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Len:    len(c.entries),
		Hits:   c.hits,
		Misses: c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Hits is the number of lookups that found an entry.
	Hits uint64
	// Misses is the number of lookups that did not.
	Misses uint64
	// HitRate is Hits / (Hits + Misses), 0 before the first lookup.
	HitRate float64
}
