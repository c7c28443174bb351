package router

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Cache defaults.
const (
	DefaultCacheTTL = time.Hour
	DefaultCacheCap = 100
)

type cacheEntry struct {
	plan      *Plan
	timestamp time.Time
	hitCount  int
}

// Cache is a TTL-bounded, size-capped map of routing plans keyed by
// message hash, complexity and category. Eviction on overflow removes
// the oldest-inserted entry (FIFO; hits do not reorder). Stale entries
// are deleted lazily on read.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   []string
	ttl     time.Duration
	cap     int
	now     func() time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock overrides the cache's time source, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a route cache. Non-positive ttl or capacity fall
// back to the defaults.
func NewCache(ttl time.Duration, capacity int, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if capacity <= 0 {
		capacity = DefaultCacheCap
	}
	c := &Cache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		cap:     capacity,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheKey builds the composite cache key. The message is trimmed and
// lower-cased before hashing so trivially-different phrasings collide;
// an empty session falls back to "anon".
func CacheKey(sessionID, message string, complexity int, category string) string {
	if sessionID == "" {
		sessionID = "anon"
	}
	normalized := strings.ToLower(strings.TrimSpace(message))
	sum := sha256.Sum256([]byte(sessionID + normalized))
	return fmt.Sprintf("%s:%d:%s", hex.EncodeToString(sum[:]), complexity, category)
}

// Get returns the cached plan for key, deleting the entry when it has
// outlived the TTL. A hit increments the entry's hit count.
func (c *Cache) Get(key string) (*Plan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.timestamp) > c.ttl {
		c.deleteLocked(key)
		return nil, false
	}
	entry.hitCount++
	return entry.plan, true
}

// Put inserts or overwrites the plan for key. When the cache exceeds
// capacity, exactly one entry is evicted: the oldest-inserted key.
func (c *Cache) Put(key string, plan *Plan) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = &cacheEntry{plan: plan, timestamp: c.now()}

	if len(c.entries) > c.cap && len(c.order) > 0 {
		c.deleteLocked(c.order[0])
	}
}

// CacheEntryStat describes one cache entry for diagnostics.
type CacheEntryStat struct {
	Model string `json:"model"`
	Hits  int    `json:"hits"`
}

// CacheStats is an administrative snapshot of the cache.
type CacheStats struct {
	Size      int              `json:"size"`
	TotalHits int              `json:"total_hits"`
	Entries   []CacheEntryStat `json:"entries"`
}

// Stats returns a snapshot of the cache. It has no side effects on TTL
// or hit counts.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{Size: len(c.entries)}
	for _, key := range c.order {
		entry, ok := c.entries[key]
		if !ok {
			continue
		}
		stats.TotalHits += entry.hitCount
		stats.Entries = append(stats.Entries, CacheEntryStat{Model: entry.plan.PrimaryModel, Hits: entry.hitCount})
	}
	return stats
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.order = nil
}

func (c *Cache) deleteLocked(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
