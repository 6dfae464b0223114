package events

// Topics published by the cache coordination system. Components can
// subscribe to react to cache activity without direct coupling to the
// coordinator. Payload keys are documented per topic.
const (
	// TopicMemoryLimitExceeded fires when aggregate cache usage exceeds
	// the configured budget.
	// Data keys: "current_usage" (int64), "limit" (int64)
	TopicMemoryLimitExceeded = "cache.memory.limitExceeded"

	// TopicMemoryPressureDetected fires when the usage ratio crosses the
	// configured pressure threshold.
	// Data keys: "usage_ratio" (float64, 0.0-1.0)
	TopicMemoryPressureDetected = "cache.memory.pressureDetected"

	// TopicMemoryPressureWarning fires at the warning threshold.
	// Data keys: "usage_ratio" (float64, 0.0-1.0)
	TopicMemoryPressureWarning = "cache.memory.pressureWarning"

	// TopicMemoryPressureCritical fires at the critical threshold.
	// Data keys: "usage_ratio" (float64, 0.0-1.0)
	TopicMemoryPressureCritical = "cache.memory.pressureCritical"

	// TopicSystemMemoryPressure fires when system-wide memory pressure
	// crosses the configured threshold.
	// Data keys: "system_usage_ratio" (float64, 0.0-1.0)
	TopicSystemMemoryPressure = "cache.system.memoryPressure"

	// TopicStatsUpdated carries refreshed per-cache statistics.
	// Data keys: "cache_type" (int), "memory_usage" (int64),
	// "max_memory" (int64), "entry_count" (int), "hit_ratio" (float64),
	// "total_hits" (int64), "total_misses" (int64)
	TopicStatsUpdated = "cache.stats.updated"

	// TopicGlobalStatsUpdated carries refreshed aggregate statistics.
	// Data keys: "total_memory" (int64), "hit_ratio" (float64)
	TopicGlobalStatsUpdated = "cache.stats.global"

	// TopicEvictionRequested fires for each per-cache eviction issued
	// during a pressure pass.
	// Data keys: "cache_type" (int), "bytes_to_free" (int64)
	TopicEvictionRequested = "cache.eviction.requested"

	// TopicEmergencyEviction fires after a system-pressure eviction pass.
	// Data keys: "bytes_freed" (int64)
	TopicEmergencyEviction = "cache.eviction.emergency"

	// TopicConfigChanged fires when the global configuration is replaced.
	// No additional data.
	TopicConfigChanged = "cache.config.changed"

	// TopicOptimizationCompleted fires after a memory layout pass.
	// Data keys: "memory_freed" (int64)
	TopicOptimizationCompleted = "cache.optimization.completed"

	// TopicCompressionCompleted fires after a compression pass.
	// Data keys: "memory_saved" (int64)
	TopicCompressionCompleted = "cache.compression.completed"
)
