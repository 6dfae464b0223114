package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/readium/cachecoord/pkg/types"
)

// LRUCache is a thread-safe, byte-accounted LRU cache that satisfies
// the types.Component capability contract, so it can be registered with
// the coordinator. Values are opaque byte slices; callers own encoding.
type LRUCache struct {
	mu          sync.Mutex
	kind        types.CacheType
	maxMemory   int64
	currentSize int64
	enabled     bool
	items       map[string]*cacheItem
	evictList   *list.List

	hits      int64
	misses    int64
	evictions int64

	config Config
}

// Config holds per-cache tunables.
type Config struct {
	MaxMemory  int64
	MaxEntries int
	TTL        time.Duration // 0 disables expiry
}

type cacheItem struct {
	key         string
	data        []byte
	size        int64
	createdAt   time.Time
	accessedAt  time.Time
	accessCount int64
	priority    int
	element     *list.Element
}

// New creates an LRU cache for the given cache kind.
func New(kind types.CacheType, config Config) *LRUCache {
	return &LRUCache{
		kind:      kind,
		maxMemory: config.MaxMemory,
		enabled:   true,
		items:     make(map[string]*cacheItem),
		evictList: list.New(),
		config:    config,
	}
}

// Kind returns the cache type this cache was created for.
func (c *LRUCache) Kind() types.CacheType {
	return c.kind
}

// Get retrieves data from the cache. A disabled cache always misses
// without updating statistics.
func (c *LRUCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return nil, false
	}

	item, exists := c.items[key]
	if !exists {
		c.misses++
		return nil, false
	}

	if c.expired(item) {
		c.removeItem(key)
		c.misses++
		return nil, false
	}

	item.accessedAt = time.Now()
	item.accessCount++
	c.evictList.MoveToFront(item.element)
	c.hits++

	result := make([]byte, len(item.data))
	copy(result, item.data)
	return result, true
}

// Put stores data in the cache, evicting older entries as needed.
// A disabled cache drops the write.
func (c *LRUCache) Put(key string, data []byte) {
	if len(data) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}

	size := int64(len(data))

	if item, exists := c.items[key]; exists {
		c.currentSize += size - item.size
		item.data = make([]byte, len(data))
		copy(item.data, data)
		item.size = size
		item.accessedAt = time.Now()
		item.accessCount++
		c.evictList.MoveToFront(item.element)
		c.evictIfNeeded()
		return
	}

	item := &cacheItem{
		key:         key,
		data:        make([]byte, len(data)),
		size:        size,
		createdAt:   time.Now(),
		accessedAt:  time.Now(),
		accessCount: 1,
	}
	copy(item.data, data)
	item.element = c.evictList.PushFront(key)

	c.items[key] = item
	c.currentSize += size

	c.evictIfNeeded()
}

// Delete removes an item from the cache.
func (c *LRUCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeItem(key)
}

// SetPriority tags an entry with a caller-defined priority, surfaced to
// eviction strategies through EntriesMetadata.
func (c *LRUCache) SetPriority(key string, priority int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, exists := c.items[key]; exists {
		item.priority = priority
	}
}

// EntriesMetadata builds a snapshot of entry metadata for a single
// strategy decision. The slice is owned by the caller.
func (c *LRUCache) EntriesMetadata() []types.CacheEntryMetadata {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]types.CacheEntryMetadata, 0, len(c.items))
	for _, item := range c.items {
		entries = append(entries, types.CacheEntryMetadata{
			Key:            item.key,
			Size:           item.size,
			CreatedAt:      item.createdAt,
			LastAccessedAt: item.accessedAt,
			AccessCount:    item.accessCount,
			Priority:       item.priority,
		})
	}
	return entries
}

// MemoryUsage returns the current byte size of all cached entries.
func (c *LRUCache) MemoryUsage() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSize
}

// MaxMemoryLimit returns the configured memory ceiling.
func (c *LRUCache) MaxMemoryLimit() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxMemory
}

// SetMaxMemoryLimit changes the memory ceiling, evicting immediately if
// the cache is now over it.
func (c *LRUCache) SetMaxMemoryLimit(limit int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.maxMemory = limit
	c.evictIfNeeded()
}

// Clear removes all entries. Statistics are not reset; the coordinator
// resets them separately.
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*cacheItem)
	c.evictList.Init()
	c.currentSize = 0
}

// EntryCount returns the number of cached entries.
func (c *LRUCache) EntryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// EvictLRU frees at least bytesToFree bytes from the least recently
// used end, or as much as the cache holds.
func (c *LRUCache) EvictLRU(bytesToFree int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	freed := int64(0)
	for freed < bytesToFree && c.evictList.Len() > 0 {
		element := c.evictList.Back()
		key := element.Value.(string)
		if item, ok := c.items[key]; ok {
			freed += item.size
		}
		c.removeItem(key)
	}
}

// HitCount returns the total number of cache hits.
func (c *LRUCache) HitCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

// MissCount returns the total number of cache misses.
func (c *LRUCache) MissCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.misses
}

// EvictionCount returns the total number of evicted entries.
func (c *LRUCache) EvictionCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictions
}

// ResetStatistics zeroes the hit/miss/eviction counters.
func (c *LRUCache) ResetStatistics() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hits = 0
	c.misses = 0
	c.evictions = 0
}

// SetEnabled toggles the cache. Disabling does not drop existing
// entries; reads and writes are simply bypassed.
func (c *LRUCache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// IsEnabled reports whether the cache accepts reads and writes.
func (c *LRUCache) IsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Helper methods; all require the lock to be held.

func (c *LRUCache) expired(item *cacheItem) bool {
	if c.config.TTL == 0 {
		return false
	}
	return time.Since(item.createdAt) > c.config.TTL
}

func (c *LRUCache) removeItem(key string) {
	item, exists := c.items[key]
	if !exists {
		return
	}

	if item.element != nil {
		c.evictList.Remove(item.element)
	}
	delete(c.items, key)
	c.currentSize -= item.size
	c.evictions++
}

func (c *LRUCache) evictIfNeeded() {
	for c.maxMemory > 0 && c.currentSize > c.maxMemory && c.evictList.Len() > 0 {
		c.evictOldest()
	}

	if c.config.MaxEntries > 0 {
		for len(c.items) > c.config.MaxEntries && c.evictList.Len() > 0 {
			c.evictOldest()
		}
	}
}

func (c *LRUCache) evictOldest() {
	element := c.evictList.Back()
	if element == nil {
		return
	}
	c.removeItem(element.Value.(string))
}
