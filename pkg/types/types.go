package types

import (
	"fmt"
	"time"
)

// CacheType identifies one of the named caches managed by the coordinator.
type CacheType uint8

const (
	SearchResultCache CacheType = iota
	PageTextCache
	SearchHighlightCache
	PdfRenderCache
	ThumbnailCache
)

// AllCacheTypes lists every known cache type in declaration order.
var AllCacheTypes = []CacheType{
	SearchResultCache,
	PageTextCache,
	SearchHighlightCache,
	PdfRenderCache,
	ThumbnailCache,
}

// String returns the canonical name for a cache type.
func (t CacheType) String() string {
	switch t {
	case SearchResultCache:
		return "search_result"
	case PageTextCache:
		return "page_text"
	case SearchHighlightCache:
		return "search_highlight"
	case PdfRenderCache:
		return "pdf_render"
	case ThumbnailCache:
		return "thumbnail"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Valid reports whether t is one of the known cache types.
func (t CacheType) Valid() bool {
	return t <= ThumbnailCache
}

// ParseCacheType converts a canonical name back to a CacheType.
func ParseCacheType(name string) (CacheType, error) {
	for _, t := range AllCacheTypes {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown cache type %q", name)
}

// EvictionPriority returns the static importance score for a cache type.
// Higher values mean the cache is more expensive to repopulate and is
// evicted later under memory pressure.
func EvictionPriority(t CacheType) float64 {
	switch t {
	case SearchResultCache:
		return 0.9
	case PageTextCache:
		return 0.8
	case PdfRenderCache:
		return 0.7
	case SearchHighlightCache:
		return 0.5
	case ThumbnailCache:
		return 0.3
	default:
		return 0.1
	}
}

// CacheStats holds the point-in-time statistics for one cache. It is
// recomputed from live component state on every read, never persisted.
type CacheStats struct {
	MemoryUsage    int64   `json:"memory_usage"`
	MaxMemoryLimit int64   `json:"max_memory_limit"`
	EntryCount     int     `json:"entry_count"`
	HitRatio       float64 `json:"hit_ratio"`
	TotalHits      int64   `json:"total_hits"`
	TotalMisses    int64   `json:"total_misses"`
}

// CacheEntryMetadata describes one cached item for strategy-driven
// eviction decisions. Built transiently by the caller for a single
// decision; strategies must not retain it.
type CacheEntryMetadata struct {
	Key            string    `json:"key"`
	Size           int64     `json:"size"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	AccessCount    int64     `json:"access_count"`
	Priority       int       `json:"priority"`
}

// Component is the capability contract a cache must satisfy to be
// registered with the coordinator. The coordinator never owns or
// inspects cache contents; it only reads usage statistics and issues
// limit, clear and eviction commands. Implementations must be safe for
// concurrent use: coordinator timers and the cache's own callers may
// invoke them from different goroutines.
type Component interface {
	// Memory accounting
	MemoryUsage() int64
	MaxMemoryLimit() int64
	SetMaxMemoryLimit(limit int64)

	// Cache operations
	Clear()
	EntryCount() int

	// EvictLRU frees at least bytesToFree bytes using the cache's own
	// least-recently-used policy, or as much as it can.
	EvictLRU(bytesToFree int64)

	// Statistics
	HitCount() int64
	MissCount() int64
	ResetStatistics()

	// Enablement
	SetEnabled(enabled bool)
	IsEnabled() bool
}
