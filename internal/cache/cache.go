// Package cache keeps the latest refresh results close to the API:
// the merged availability snapshot and the URA detail records, each
// with a TTL so stale data ages out when refreshes stop.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/zeecm/parking/internal/carpark"
	"github.com/zeecm/parking/internal/metrics"
)

// Well-known keys. Refreshes overwrite in place; the API only ever
// reads the latest entry.
const (
	SnapshotKey = "parking:snapshot:latest"
	DetailsKey  = "parking:details:latest"
)

// Cache stores refresh results with expiration.
type Cache interface {
	// GetSnapshot returns the cached snapshot, or false when absent or
	// expired.
	GetSnapshot(key string) (*carpark.Snapshot, bool)
	// SetSnapshot stores a snapshot under key with the given TTL.
	SetSnapshot(key string, snap *carpark.Snapshot, ttl time.Duration)
	// GetDetails returns the cached detail records.
	GetDetails(key string) ([]carpark.Detail, bool)
	// SetDetails stores detail records under key with the given TTL.
	SetDetails(key string, details []carpark.Detail, ttl time.Duration)
	// Delete removes one entry.
	Delete(key string)
	// Clear removes all entries.
	Clear()
	// Stats returns cache counters.
	Stats() Stats
	// HealthCheck reports whether the backing store is reachable.
	HealthCheck(ctx context.Context) error
	// Close releases the backing store.
	Close() error
}

// Stats holds cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Sets        int64
	Evictions   int64
	CurrentSize int
}

type entry struct {
	value      any
	expiration time.Time
}

func (e *entry) isExpired() bool {
	return time.Now().After(e.expiration)
}

// memoryCache is the in-process fallback used when Redis is not
// configured.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	stats   Stats
	janitor *janitor
}

// NewMemoryCache creates an in-memory cache. cleanupInterval controls
// how often expired entries are swept; zero disables the sweeper.
func NewMemoryCache(cleanupInterval time.Duration) Cache {
	c := &memoryCache{
		entries: make(map[string]*entry),
	}
	if cleanupInterval > 0 {
		c.janitor = &janitor{
			interval: cleanupInterval,
			stop:     make(chan struct{}),
		}
		go c.janitor.run(c)
	}
	return c
}

func (c *memoryCache) GetSnapshot(key string) (*carpark.Snapshot, bool) {
	v, ok := c.get(key)
	if !ok {
		return nil, false
	}
	snap, ok := v.(*carpark.Snapshot)
	return snap, ok
}

func (c *memoryCache) SetSnapshot(key string, snap *carpark.Snapshot, ttl time.Duration) {
	c.set(key, snap, ttl)
}

func (c *memoryCache) GetDetails(key string) ([]carpark.Detail, bool) {
	v, ok := c.get(key)
	if !ok {
		return nil, false
	}
	details, ok := v.([]carpark.Detail)
	return details, ok
}

func (c *memoryCache) SetDetails(key string, details []carpark.Detail, ttl time.Duration) {
	c.set(key, details, ttl)
}

func (c *memoryCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found || e.isExpired() {
		c.stats.Misses++
		metrics.RecordCacheOp("get", "miss")
		return nil, false
	}

	c.stats.Hits++
	metrics.RecordCacheOp("get", "hit")
	return e.value, true
}

func (c *memoryCache) set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{
		value:      value,
		expiration: time.Now().Add(ttl),
	}
	c.stats.Sets++
	metrics.RecordCacheOp("set", "ok")
}

func (c *memoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *memoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

func (c *memoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.CurrentSize = len(c.entries)
	return stats
}

func (c *memoryCache) HealthCheck(context.Context) error { return nil }

func (c *memoryCache) Close() error {
	if c.janitor != nil {
		c.janitor.stop <- struct{}{}
	}
	return nil
}

func (c *memoryCache) deleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, e := range c.entries {
		if e.isExpired() {
			delete(c.entries, key)
			count++
		}
	}
	c.stats.Evictions += int64(count)
	return count
}

// janitor sweeps expired entries in the background.
type janitor struct {
	interval time.Duration
	stop     chan struct{}
}

func (j *janitor) run(c *memoryCache) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-j.stop:
			return
		}
	}
}

// noopCache disables caching; every read misses.
type noopCache struct{}

// NewNoopCache creates a cache that stores nothing.
func NewNoopCache() Cache {
	return &noopCache{}
}

func (noopCache) GetSnapshot(string) (*carpark.Snapshot, bool)            { return nil, false }
func (noopCache) SetSnapshot(string, *carpark.Snapshot, time.Duration)   {}
func (noopCache) GetDetails(string) ([]carpark.Detail, bool)             { return nil, false }
func (noopCache) SetDetails(string, []carpark.Detail, time.Duration)     {}
func (noopCache) Delete(string)                                          {}
func (noopCache) Clear()                                                 {}
func (noopCache) Stats() Stats                                           { return Stats{} }
func (noopCache) HealthCheck(context.Context) error                      { return nil }
func (noopCache) Close() error                                           { return nil }
