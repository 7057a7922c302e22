package archive

import (
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/pierrec/lz4/v4"
)

// DefaultCacheLimit bounds the extraction cache at 100 MiB.
const DefaultCacheLimit = 100 * 1024 * 1024

// cachePackThreshold is the smallest entry worth LZ4-packing when packing is
// enabled; below it the block header overhead wins.
const cachePackThreshold = 4 * 1024

// CacheStats is a point-in-time view of cache effectiveness.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Skipped   int64
	Entries   int
	Bytes     int64
}

// cacheEntry holds one cached extraction. lastAccess is a tick from the
// cache's logical clock, stored atomically so a hit can touch it under the
// shared read lock.
type cacheEntry struct {
	data       []byte
	lastAccess atomic.Int64
	packed     bool
	rawLen     int
}

// Cache holds decompressed entry bytes keyed by archive path, bounded by
// total stored size with least-recently-accessed eviction. Concurrent reads
// share the read lock and do not block each other; the hit/miss counters are
// atomics bumped outside any lock.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	bytes   int64
	limit   int64
	pack    bool
	clock   atomic.Int64

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	skipped   atomic.Int64
}

// NewCache creates a cache bounded at limit bytes. A zero limit selects
// DefaultCacheLimit; a negative limit disables caching entirely. When pack
// is true, entries past a size floor are LZ4 block packed in memory and
// unpacked transparently on Get.
func NewCache(limit int64, pack bool) *Cache {
	if limit == 0 {
		limit = DefaultCacheLimit
	}
	return &Cache{
		entries: make(map[string]*cacheEntry),
		limit:   limit,
		pack:    pack,
	}
}

// Get returns the cached bytes for key. The returned slice is the caller's
// to mutate.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	var data []byte
	var packed bool
	var rawLen int
	if ok {
		entry.lastAccess.Store(c.clock.Add(1))
		data = entry.data
		packed = entry.packed
		rawLen = entry.rawLen
	}
	c.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	if packed {
		out := make([]byte, rawLen)
		if _, err := lz4.UncompressBlock(data, out); err != nil {
			c.misses.Add(1)
			return nil, false
		}
		c.hits.Add(1)
		return out, true
	}

	c.hits.Add(1)
	return bytes.Clone(data), true
}

// Put inserts data under key, evicting least-recently-accessed entries until
// it fits. An entry larger than the limit is never cached. Replacing an
// existing key releases the old bytes first.
func (c *Cache) Put(key string, data []byte) {
	if c.limit < 0 {
		return
	}

	stored, packed, rawLen := c.packEntry(data)
	size := int64(len(stored))
	if size > c.limit {
		c.skipped.Add(1)
		return
	}

	entry := &cacheEntry{data: stored, packed: packed, rawLen: rawLen}
	entry.lastAccess.Store(c.clock.Add(1))

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.bytes -= int64(len(old.data))
		delete(c.entries, key)
	}

	for c.bytes+size > c.limit && len(c.entries) > 0 {
		c.evictOldestLocked()
	}

	c.entries[key] = entry
	c.bytes += size
}

// packEntry copies data for storage, LZ4 block packing it when packing is on
// and worthwhile. Incompressible data is kept raw.
func (c *Cache) packEntry(data []byte) (stored []byte, packed bool, rawLen int) {
	if !c.pack || len(data) < cachePackThreshold {
		return bytes.Clone(data), false, len(data)
	}

	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, buf, nil)
	if err != nil || n == 0 || n >= len(data) {
		return bytes.Clone(data), false, len(data)
	}
	return buf[:n:n], true, len(data)
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest int64
	first := true

	for key, entry := range c.entries {
		if at := entry.lastAccess.Load(); first || at < oldest {
			first = false
			oldest = at
			oldestKey = key
		}
	}
	if first {
		return
	}

	c.bytes -= int64(len(c.entries[oldestKey].data))
	delete(c.entries, oldestKey)
	c.evictions.Add(1)
}

// Clear drops every entry. The counters survive; they describe the cache's
// whole lifetime.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.bytes = 0
}

// Size reports the total stored bytes.
func (c *Cache) Size() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bytes
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats snapshots the counters and current occupancy.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	entries := len(c.entries)
	stored := c.bytes
	c.mu.RUnlock()

	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Skipped:   c.skipped.Load(),
		Entries:   entries,
		Bytes:     stored,
	}
}
