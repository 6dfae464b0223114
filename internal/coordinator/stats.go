package coordinator

import (
	"github.com/readium/cachecoord/internal/events"
	"github.com/readium/cachecoord/pkg/types"
)

// CacheStats returns the statistics snapshot for one cache type, or
// false when no component is registered for it.
func (c *Coordinator) CacheStats(t types.CacheType) (types.CacheStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cacheStatsLocked(t)
}

func (c *Coordinator) cacheStatsLocked(t types.CacheType) (types.CacheStats, bool) {
	comp, ok := c.caches[t]
	if !ok {
		return types.CacheStats{}, false
	}

	hits := comp.HitCount()
	misses := comp.MissCount()
	stats := types.CacheStats{
		MemoryUsage:    comp.MemoryUsage(),
		MaxMemoryLimit: comp.MaxMemoryLimit(),
		EntryCount:     comp.EntryCount(),
		TotalHits:      hits,
		TotalMisses:    misses,
	}
	if total := hits + misses; total > 0 {
		stats.HitRatio = float64(hits) / float64(total)
	}
	return stats, true
}

// AllCacheStats returns statistics for every registered cache.
func (c *Coordinator) AllCacheStats() map[types.CacheType]types.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[types.CacheType]types.CacheStats, len(c.caches))
	for t := range c.caches {
		if stats, ok := c.cacheStatsLocked(t); ok {
			out[t] = stats
		}
	}
	return out
}

// GlobalHitRatio returns hits over total accesses across all registered
// caches, or 0.0 when nothing has been accessed.
func (c *Coordinator) GlobalHitRatio() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.globalHitRatioLocked()
}

func (c *Coordinator) globalHitRatioLocked() float64 {
	var hits, misses int64
	for _, comp := range c.caches {
		hits += comp.HitCount()
		misses += comp.MissCount()
	}
	if total := hits + misses; total > 0 {
		return float64(hits) / float64(total)
	}
	return 0.0
}

// TotalCacheHits sums hit counts across all registered caches.
func (c *Coordinator) TotalCacheHits() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var hits int64
	for _, comp := range c.caches {
		hits += comp.HitCount()
	}
	return hits
}

// TotalCacheMisses sums miss counts across all registered caches.
func (c *Coordinator) TotalCacheMisses() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var misses int64
	for _, comp := range c.caches {
		misses += comp.MissCount()
	}
	return misses
}

// NotifyCacheAccess records a key access for usage-pattern analysis.
// Only the most recent accesses per cache type are retained.
func (c *Coordinator) NotifyCacheAccess(t types.CacheType, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	accesses := append(c.recentAccesses[t], key)
	if len(accesses) > maxTrackedAccesses {
		accesses = accesses[len(accesses)-maxTrackedAccesses:]
	}
	c.recentAccesses[t] = accesses
}

// NotifyCacheHit records a hit against the coordinator-level counters
// that feed adaptive redistribution.
func (c *Coordinator) NotifyCacheHit(t types.CacheType, key string) {
	c.mu.Lock()
	c.hits[t]++
	c.mu.Unlock()

	c.NotifyCacheAccess(t, key)
}

// NotifyCacheMiss records a miss against the coordinator-level counters
// that feed adaptive redistribution.
func (c *Coordinator) NotifyCacheMiss(t types.CacheType, key string) {
	c.mu.Lock()
	c.misses[t]++
	c.mu.Unlock()

	c.NotifyCacheAccess(t, key)
}

// RecentAccessCount returns how many accesses are tracked for a type.
func (c *Coordinator) RecentAccessCount(t types.CacheType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.recentAccesses[t])
}

// UpdateCacheStatistics publishes a statistics snapshot for every
// registered cache plus the aggregate view. The stats timer invokes
// this periodically; callers may also force a refresh.
func (c *Coordinator) UpdateCacheStatistics() {
	type typedStats struct {
		t     types.CacheType
		stats types.CacheStats
	}

	c.mu.Lock()
	perType := make([]typedStats, 0, len(c.caches))
	for t := range c.caches {
		if stats, ok := c.cacheStatsLocked(t); ok {
			perType = append(perType, typedStats{t: t, stats: stats})
		}
	}
	totalMemory := c.totalUsageLocked()
	globalRatio := c.globalHitRatioLocked()
	c.mu.Unlock()

	for _, ts := range perType {
		c.bus.Publish(events.TopicStatsUpdated, map[string]interface{}{
			"cache_type":   int(ts.t),
			"memory_usage": ts.stats.MemoryUsage,
			"max_memory":   ts.stats.MaxMemoryLimit,
			"entry_count":  ts.stats.EntryCount,
			"hit_ratio":    ts.stats.HitRatio,
			"total_hits":   ts.stats.TotalHits,
			"total_misses": ts.stats.TotalMisses,
		})
	}
	c.bus.Publish(events.TopicGlobalStatsUpdated, map[string]interface{}{
		"total_memory": totalMemory,
		"hit_ratio":    globalRatio,
	})
}
