// Package cache provides schedule caches keyed by a write generation.
package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process schedule cache. Entries expire after ttl and the
// oldest entry is evicted once maxEntries is reached.
type Memory struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	generation int64
	entries    map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	storedAt  time.Time
	expiresAt time.Time
}

// NewMemory constructs a Memory cache. Zero values fall back to a 30 second
// ttl and 128 entries.
func NewMemory(ttl time.Duration, maxEntries int, now func() time.Time) *Memory {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &Memory{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]memoryEntry),
	}
}

// Generation returns the current write generation.
func (c *Memory) Generation(context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation, nil
}

// Get returns a copy of the value stored under key.
func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return clone(entry.value), true, nil
}

// Set stores a copy of value under key.
func (c *Memory) Set(_ context.Context, key string, value []byte) error {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked(now)
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = memoryEntry{value: clone(value), storedAt: now, expiresAt: now.Add(c.ttl)}
	return nil
}

// Invalidate advances the generation and drops every entry.
func (c *Memory) Invalidate(context.Context) error {
	c.mu.Lock()
	c.generation++
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Memory) cleanupLocked(now time.Time) {
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *Memory) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for key, entry := range c.entries {
		if !found || entry.storedAt.Before(oldest) {
			oldestKey, oldest, found = key, entry.storedAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}

func clone(value []byte) []byte {
	if value == nil {
		return nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out
}
