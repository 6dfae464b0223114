package coordinator

import (
	"sort"

	"go.uber.org/zap"

	"github.com/readium/cachecoord/internal/events"
	"github.com/readium/cachecoord/internal/sysmem"
	"github.com/readium/cachecoord/pkg/types"
)

// Eviction and redistribution tunables. The eviction pass aims below
// the budget rather than at it so a single large insertion does not
// immediately re-trigger pressure.
const (
	// evictionTargetRatio is the usage the pressure pass drives toward,
	// as a fraction of the total budget.
	evictionTargetRatio = 0.7

	// maxEvictionShare caps how much of a single cache's usage one pass
	// may evict, so no cache is wiped out in one sweep.
	maxEvictionShare = 0.5

	// Adaptive redistribution weights: observed hit ratio dominates,
	// static importance tempers it, and each cache's slice of the budget
	// is scaled down so the five slices plus headroom fit the budget.
	adaptiveHitWeight        = 0.7
	adaptiveImportanceWeight = 0.3
	adaptiveBudgetShare      = 0.15

	// adaptiveFloorRatio is the minimum share of the budget any cache
	// keeps, so a cold cache is never starved to zero.
	adaptiveFloorRatio = 0.05

	// emergencyPressureMargin is subtracted from the system pressure
	// threshold to form the emergency eviction target.
	emergencyPressureMargin = 0.1
)

// evictionRecord captures one per-cache eviction issued during a pass,
// for publishing after the lock is released.
type evictionRecord struct {
	cacheType types.CacheType
	bytes     int64
}

// TotalMemoryUsage sums memory usage across enabled registered caches.
// Disabled caches keep their contents but do not count.
func (c *Coordinator) TotalMemoryUsage() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalUsageLocked()
}

func (c *Coordinator) totalUsageLocked() int64 {
	var total int64
	for t, comp := range c.caches {
		if c.isEnabledLocked(t) {
			total += comp.MemoryUsage()
		}
	}
	return total
}

// TotalMemoryLimit returns the aggregate cache memory budget.
func (c *Coordinator) TotalMemoryLimit() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Cache.TotalMemoryLimit
}

// GlobalMemoryUsageRatio returns usage divided by budget, or 0.0 when
// the budget is zero or negative.
func (c *Coordinator) GlobalMemoryUsageRatio() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usageRatioLocked()
}

func (c *Coordinator) usageRatioLocked() float64 {
	limit := c.cfg.Cache.TotalMemoryLimit
	if limit <= 0 {
		return 0.0
	}
	return float64(c.totalUsageLocked()) / float64(limit)
}

// EnforceMemoryLimits checks aggregate usage against the budget and
// runs an eviction pass when exceeded.
func (c *Coordinator) EnforceMemoryLimits() {
	c.mu.Lock()
	usage := c.totalUsageLocked()
	limit := c.cfg.Cache.TotalMemoryLimit
	var evictions []evictionRecord
	exceeded := limit > 0 && usage > limit
	if exceeded {
		evictions = c.performPressureEvictionLocked()
	}
	c.mu.Unlock()

	if exceeded {
		c.logger.Warn("cache memory limit exceeded",
			zap.Int64("current_usage", usage),
			zap.Int64("limit", limit))
		c.bus.Publish(events.TopicMemoryLimitExceeded, map[string]interface{}{
			"current_usage": usage,
			"limit":         limit,
		})
		c.publishEvictions(evictions)
	}
}

// HandleMemoryPressure grades current usage against the warning,
// critical and eviction thresholds, publishes the matching events, and
// evicts when usage exceeds the configured pressure threshold.
func (c *Coordinator) HandleMemoryPressure() {
	c.mu.Lock()
	ratio := c.usageRatioLocked()
	warning := c.warningThreshold
	critical := c.criticalThreshold
	threshold := float64(c.cfg.Pressure.Threshold) / 100.0

	var evictions []evictionRecord
	evict := ratio > threshold
	if evict {
		evictions = c.performPressureEvictionLocked()
	}
	c.mu.Unlock()

	// One graded event per pass: critical supersedes warning.
	switch {
	case ratio >= critical:
		c.logger.Warn("critical cache memory pressure", zap.Float64("usage_ratio", ratio))
		c.bus.Publish(events.TopicMemoryPressureCritical, map[string]interface{}{
			"usage_ratio": ratio,
		})
	case ratio >= warning:
		c.logger.Info("cache memory pressure warning", zap.Float64("usage_ratio", ratio))
		c.bus.Publish(events.TopicMemoryPressureWarning, map[string]interface{}{
			"usage_ratio": ratio,
		})
	}

	if evict {
		c.bus.Publish(events.TopicMemoryPressureDetected, map[string]interface{}{
			"usage_ratio": ratio,
		})
		c.publishEvictions(evictions)
	}
}

// performPressureEvictionLocked drives usage down toward the eviction
// target. Caches are evicted in ascending static priority so the most
// expendable contents (thumbnails, highlights) go first, each cache
// losing at most half its usage per pass. Must be called with the lock
// held; strategy hooks run under the lock and must not call back into
// the coordinator.
func (c *Coordinator) performPressureEvictionLocked() []evictionRecord {
	limit := c.cfg.Cache.TotalMemoryLimit
	if limit <= 0 {
		return nil
	}

	target := int64(float64(limit) * evictionTargetRatio)
	bytesToFree := c.totalUsageLocked() - target
	if bytesToFree <= 0 {
		return nil
	}

	var records []evictionRecord
	for _, t := range c.evictionOrderLocked() {
		if bytesToFree <= 0 {
			break
		}
		comp, ok := c.caches[t]
		if !ok || !c.isEnabledLocked(t) {
			continue
		}

		usage := comp.MemoryUsage()
		toEvict := bytesToFree
		if share := int64(float64(usage) * maxEvictionShare); toEvict > share {
			toEvict = share
		}
		if toEvict <= 0 {
			continue
		}

		c.consultStrategiesLocked(t, comp, toEvict)
		c.strategies.NotifyPreEvict(t, toEvict)
		comp.EvictLRU(toEvict)
		c.strategies.NotifyPostEvict(t, toEvict)

		c.logger.Info("pressure eviction",
			zap.Stringer("cache_type", t),
			zap.Int64("bytes_to_free", toEvict))

		records = append(records, evictionRecord{cacheType: t, bytes: toEvict})
		bytesToFree -= toEvict
	}
	return records
}

// evictionOrderLocked returns registered cache types in ascending
// static eviction priority, lowest-value contents first.
func (c *Coordinator) evictionOrderLocked() []types.CacheType {
	order := make([]types.CacheType, 0, len(c.caches))
	for t := range c.caches {
		order = append(order, t)
	}
	sort.Slice(order, func(i, j int) bool {
		pi, pj := types.EvictionPriority(order[i]), types.EvictionPriority(order[j])
		if pi != pj {
			return pi < pj
		}
		return order[i] < order[j]
	})
	return order
}

// consultStrategiesLocked asks registered strategies which entry they
// would evict. Suggestions are advisory: they are logged but the cache
// keeps full control of its own eviction order.
func (c *Coordinator) consultStrategiesLocked(t types.CacheType, comp types.Component, bytesToFree int64) {
	if !c.predictiveEnabled {
		return
	}
	provider, ok := comp.(MetadataProvider)
	if !ok {
		return
	}

	entries := provider.EntriesMetadata()
	if len(entries) == 0 {
		return
	}
	for _, s := range c.strategies.Strategies() {
		if candidate := s.SelectEvictionCandidate(entries, bytesToFree); candidate != "" {
			c.logger.Debug("strategy eviction suggestion",
				zap.String("strategy", s.Name()),
				zap.Stringer("cache_type", t),
				zap.String("candidate", candidate))
		}
	}
}

func (c *Coordinator) publishEvictions(records []evictionRecord) {
	for _, r := range records {
		c.bus.Publish(events.TopicEvictionRequested, map[string]interface{}{
			"cache_type":    int(r.cacheType),
			"bytes_to_free": r.bytes,
		})
	}
}

// RequestCacheEviction asks one cache to free the given number of
// bytes. Unregistered or disabled caches are skipped.
func (c *Coordinator) RequestCacheEviction(t types.CacheType, bytesToFree int64) {
	if bytesToFree <= 0 {
		return
	}

	c.mu.Lock()
	comp, ok := c.caches[t]
	evicted := ok && c.isEnabledLocked(t)
	if evicted {
		c.strategies.NotifyPreEvict(t, bytesToFree)
		comp.EvictLRU(bytesToFree)
		c.strategies.NotifyPostEvict(t, bytesToFree)
	}
	c.mu.Unlock()

	if evicted {
		c.bus.Publish(events.TopicEvictionRequested, map[string]interface{}{
			"cache_type":    int(t),
			"bytes_to_free": bytesToFree,
		})
	}
}

// AnalyzeUsagePatterns recomputes per-cache hit ratios from the
// coordinator-level access counters for the next redistribution pass.
func (c *Coordinator) AnalyzeUsagePatterns() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for t := range c.caches {
		total := c.hits[t] + c.misses[t]
		if total > 0 {
			c.usagePatterns[t] = float64(c.hits[t]) / float64(total)
		} else {
			c.usagePatterns[t] = 0.0
		}
	}
}

// OptimizeCacheDistribution redistributes the budget: caches that are
// hit often and hold important contents get bigger slices, but no cache
// falls below the floor share of the budget.
func (c *Coordinator) OptimizeCacheDistribution() {
	c.mu.Lock()
	defer c.mu.Unlock()

	budget := c.cfg.Cache.TotalMemoryLimit
	if budget <= 0 {
		return
	}
	floor := int64(float64(budget) * adaptiveFloorRatio)

	for t, hitRatio := range c.usagePatterns {
		if _, ok := c.caches[t]; !ok {
			continue
		}

		importance := types.EvictionPriority(t)
		factor := hitRatio*adaptiveHitWeight + importance*adaptiveImportanceWeight
		newLimit := int64(float64(budget) * factor * adaptiveBudgetShare)
		if newLimit < floor {
			newLimit = floor
		}

		c.setCacheLimitLocked(t, newLimit)
		c.logger.Debug("adaptive limit adjusted",
			zap.Stringer("cache_type", t),
			zap.Float64("hit_ratio", hitRatio),
			zap.Int64("new_limit", newLimit))
	}
}

// SystemMemoryUsage returns the process resident set size in bytes, or
// -1 when the platform probe fails.
func (c *Coordinator) SystemMemoryUsage() int64 {
	return c.prober.ProcessResident()
}

// SystemMemoryTotal returns total physical memory in bytes, or -1 when
// the platform probe fails.
func (c *Coordinator) SystemMemoryTotal() int64 {
	return c.prober.TotalPhysical()
}

// SystemMemoryPressure returns the fraction of physical memory this
// process occupies, or 0.0 when either probe fails.
func (c *Coordinator) SystemMemoryPressure() float64 {
	return sysmem.Pressure(c.prober)
}

// HandleSystemMemoryPressure samples system memory and, when the
// process's share of physical memory exceeds the configured threshold,
// publishes a pressure event and optionally runs an emergency eviction
// pass proportional to each cache's share of total cache memory.
func (c *Coordinator) HandleSystemMemoryPressure() {
	c.mu.Lock()
	enabled := c.sysMonEnabled
	threshold := c.cfg.SystemMem.PressureThreshold
	emergency := c.emergencyEnabled
	c.mu.Unlock()

	if !enabled {
		return
	}

	sample := c.monitor.Sample()
	if sample.Pressure <= threshold {
		return
	}

	c.logger.Warn("system memory pressure",
		zap.Float64("system_usage_ratio", sample.Pressure),
		zap.Int64("process_resident", sample.ProcessResident))
	c.bus.Publish(events.TopicSystemMemoryPressure, map[string]interface{}{
		"system_usage_ratio": sample.Pressure,
	})

	if emergency {
		c.performEmergencyEviction(sample, threshold)
	}
}

// performEmergencyEviction frees enough cache memory to bring the
// process back under the threshold with margin, spread across enabled
// caches proportionally to their usage.
func (c *Coordinator) performEmergencyEviction(sample sysmem.Sample, threshold float64) {
	if sample.TotalPhysical <= 0 || sample.ProcessResident <= 0 {
		return
	}

	targetResident := int64(float64(sample.TotalPhysical) * (threshold - emergencyPressureMargin))
	bytesToFree := sample.ProcessResident - targetResident
	if bytesToFree <= 0 {
		return
	}

	c.mu.Lock()
	totalCache := c.totalUsageLocked()
	var freed int64
	if totalCache > 0 {
		for t, comp := range c.caches {
			if !c.isEnabledLocked(t) {
				continue
			}
			usage := comp.MemoryUsage()
			if usage <= 0 {
				continue
			}

			share := float64(usage) / float64(totalCache)
			toEvict := int64(float64(bytesToFree) * share)
			if toEvict > usage {
				toEvict = usage
			}
			if toEvict <= 0 {
				continue
			}

			c.strategies.NotifyPreEvict(t, toEvict)
			comp.EvictLRU(toEvict)
			c.strategies.NotifyPostEvict(t, toEvict)
			freed += toEvict
		}
	}
	c.mu.Unlock()

	if freed > 0 {
		c.logger.Warn("emergency cache eviction", zap.Int64("bytes_freed", freed))
		c.bus.Publish(events.TopicEmergencyEviction, map[string]interface{}{
			"bytes_freed": freed,
		})
	}
}

// CompressInactiveCaches identifies caches with no recently tracked
// accesses as compression candidates. Cache components do not expose a
// compaction operation yet, so the pass only reports candidates.
// TODO: wire to component-level compaction once the render cache grows
// a recompress operation.
func (c *Coordinator) CompressInactiveCaches() {
	c.mu.Lock()
	compression := c.compressionEnabled
	var inactive []types.CacheType
	if compression {
		for t := range c.caches {
			if c.isEnabledLocked(t) && len(c.recentAccesses[t]) == 0 {
				inactive = append(inactive, t)
			}
		}
	}
	c.mu.Unlock()

	if !compression {
		return
	}

	for _, t := range inactive {
		c.logger.Debug("compression candidate", zap.Stringer("cache_type", t))
	}
	c.bus.Publish(events.TopicCompressionCompleted, map[string]interface{}{
		"memory_saved": int64(0),
	})
}

// OptimizeMemoryLayout trims every cache that is above its own limit
// back down to it and publishes the total amount reclaimed.
func (c *Coordinator) OptimizeMemoryLayout() {
	c.mu.Lock()
	var freed int64
	for t, comp := range c.caches {
		if !c.isEnabledLocked(t) {
			continue
		}
		limit := c.limits[t]
		usage := comp.MemoryUsage()
		if limit <= 0 || usage <= limit {
			continue
		}

		over := usage - limit
		c.strategies.NotifyPreEvict(t, over)
		comp.EvictLRU(over)
		c.strategies.NotifyPostEvict(t, over)
		freed += over
	}
	c.mu.Unlock()

	c.bus.Publish(events.TopicOptimizationCompleted, map[string]interface{}{
		"memory_freed": freed,
	})
	if freed > 0 {
		c.logger.Info("memory layout optimized", zap.Int64("memory_freed", freed))
	}
}
