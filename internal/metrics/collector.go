// Package metrics exports cache coordination metrics to Prometheus. The
// collector subscribes to the event bus rather than polling the
// coordinator, so it observes exactly the activity the coordinator
// reports and carries no coupling to its internals.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/readium/cachecoord/internal/events"
	"github.com/readium/cachecoord/pkg/types"
)

const namespace = "cachecoord"

// Collector maintains Prometheus metrics fed by cache coordination
// events. Create it with NewCollector, then Attach it to the bus the
// coordinator publishes on.
type Collector struct {
	registry *prometheus.Registry

	memoryUsage  *prometheus.GaugeVec
	memoryLimit  *prometheus.GaugeVec
	entryCount   *prometheus.GaugeVec
	hitRatio     *prometheus.GaugeVec
	hitsTotal    *prometheus.GaugeVec
	missesTotal  *prometheus.GaugeVec
	totalMemory  prometheus.Gauge
	globalRatio  prometheus.Gauge
	evictions    *prometheus.CounterVec
	evictedBytes *prometheus.CounterVec

	pressureEvents  *prometheus.CounterVec
	limitExceeded   prometheus.Counter
	systemPressure  prometheus.Counter
	emergencyPasses prometheus.Counter
	configReloads   prometheus.Counter

	subscriptions []*events.Subscription
}

// NewCollector builds and registers the metric set on a fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		memoryUsage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_memory_bytes",
			Help:      "Memory used by each cache.",
		}, []string{"cache"}),
		memoryLimit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_memory_limit_bytes",
			Help:      "Memory limit of each cache.",
		}, []string{"cache"}),
		entryCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Entry count of each cache.",
		}, []string{"cache"}),
		hitRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_hit_ratio",
			Help:      "Hit ratio of each cache.",
		}, []string{"cache"}),
		hitsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cumulative hits reported per cache.",
		}, []string{"cache"}),
		missesTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cumulative misses reported per cache.",
		}, []string{"cache"}),
		totalMemory: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_memory_bytes",
			Help:      "Aggregate memory used across enabled caches.",
		}),
		globalRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "global_hit_ratio",
			Help:      "Hit ratio across all caches.",
		}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Eviction commands issued per cache.",
		}, []string{"cache"}),
		evictedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evicted_bytes_total",
			Help:      "Bytes requested for eviction per cache.",
		}, []string{"cache"}),
		pressureEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pressure_events_total",
			Help:      "Memory pressure events by severity.",
		}, []string{"severity"}),
		limitExceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "limit_exceeded_total",
			Help:      "Times aggregate usage exceeded the budget.",
		}),
		systemPressure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "system_pressure_total",
			Help:      "System-wide memory pressure events.",
		}),
		emergencyPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emergency_evictions_total",
			Help:      "Emergency eviction passes completed.",
		}),
		configReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_changes_total",
			Help:      "Global configuration replacements observed.",
		}),
	}

	c.registry.MustRegister(
		c.memoryUsage, c.memoryLimit, c.entryCount, c.hitRatio, c.hitsTotal, c.missesTotal,
		c.totalMemory, c.globalRatio, c.evictions, c.evictedBytes,
		c.pressureEvents, c.limitExceeded, c.systemPressure,
		c.emergencyPasses, c.configReloads,
	)
	return c
}

// Registry exposes the backing registry for HTTP handlers and tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Attach subscribes the collector to the coordination topics on bus.
func (c *Collector) Attach(bus *events.Bus) {
	sub := func(topic string, h events.Handler) {
		c.subscriptions = append(c.subscriptions, bus.Subscribe(topic, h))
	}

	sub(events.TopicStatsUpdated, c.onStats)
	sub(events.TopicGlobalStatsUpdated, c.onGlobalStats)
	sub(events.TopicEvictionRequested, c.onEviction)
	sub(events.TopicMemoryPressureWarning, func(events.Event) {
		c.pressureEvents.WithLabelValues("warning").Inc()
	})
	sub(events.TopicMemoryPressureCritical, func(events.Event) {
		c.pressureEvents.WithLabelValues("critical").Inc()
	})
	sub(events.TopicMemoryPressureDetected, func(events.Event) {
		c.pressureEvents.WithLabelValues("detected").Inc()
	})
	sub(events.TopicMemoryLimitExceeded, func(events.Event) {
		c.limitExceeded.Inc()
	})
	sub(events.TopicSystemMemoryPressure, func(events.Event) {
		c.systemPressure.Inc()
	})
	sub(events.TopicEmergencyEviction, func(events.Event) {
		c.emergencyPasses.Inc()
	})
	sub(events.TopicConfigChanged, func(events.Event) {
		c.configReloads.Inc()
	})
}

// Detach removes all bus subscriptions.
func (c *Collector) Detach() {
	for _, s := range c.subscriptions {
		s.Unsubscribe()
	}
	c.subscriptions = nil
}

func (c *Collector) onStats(e events.Event) {
	label, ok := cacheLabel(e.Data["cache_type"])
	if !ok {
		return
	}

	if v, ok := asInt64(e.Data["memory_usage"]); ok {
		c.memoryUsage.WithLabelValues(label).Set(float64(v))
	}
	if v, ok := asInt64(e.Data["max_memory"]); ok {
		c.memoryLimit.WithLabelValues(label).Set(float64(v))
	}
	if v, ok := e.Data["entry_count"].(int); ok {
		c.entryCount.WithLabelValues(label).Set(float64(v))
	}
	if v, ok := e.Data["hit_ratio"].(float64); ok {
		c.hitRatio.WithLabelValues(label).Set(v)
	}
	if v, ok := asInt64(e.Data["total_hits"]); ok {
		c.hitsTotal.WithLabelValues(label).Set(float64(v))
	}
	if v, ok := asInt64(e.Data["total_misses"]); ok {
		c.missesTotal.WithLabelValues(label).Set(float64(v))
	}
}

func (c *Collector) onGlobalStats(e events.Event) {
	if v, ok := asInt64(e.Data["total_memory"]); ok {
		c.totalMemory.Set(float64(v))
	}
	if v, ok := e.Data["hit_ratio"].(float64); ok {
		c.globalRatio.Set(v)
	}
}

func (c *Collector) onEviction(e events.Event) {
	label, ok := cacheLabel(e.Data["cache_type"])
	if !ok {
		return
	}
	c.evictions.WithLabelValues(label).Inc()
	if v, ok := asInt64(e.Data["bytes_to_free"]); ok {
		c.evictedBytes.WithLabelValues(label).Add(float64(v))
	}
}

func cacheLabel(v interface{}) (string, bool) {
	n, ok := v.(int)
	if !ok {
		return "", false
	}
	t := types.CacheType(n)
	if !t.Valid() {
		return "", false
	}
	return t.String(), true
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
