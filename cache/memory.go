// Copyright 2023 The imagecache authors.
// SPDX-License-Identifier: Apache-2.0

package cache

import "sync"

// MemoryCache provides an in-memory Cache implementation.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]Entry),
	}
}

func (c *MemoryCache) Get(u string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[u]
	return entry, ok
}

func (c *MemoryCache) Put(u string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[u] = entry
}

// Delete removes the cached entry for u, if any.
func (c *MemoryCache) Delete(u string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, u)
}

// Clear removes all cached entries.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
