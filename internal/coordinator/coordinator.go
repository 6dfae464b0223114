// Package coordinator implements the cache memory coordinator: it owns
// the global cache configuration, tracks externally-owned cache
// components, and drives periodic eviction and rebalancing decisions
// across them.
package coordinator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/readium/cachecoord/internal/config"
	"github.com/readium/cachecoord/internal/events"
	"github.com/readium/cachecoord/internal/strategy"
	"github.com/readium/cachecoord/internal/sysmem"
	"github.com/readium/cachecoord/pkg/errors"
	"github.com/readium/cachecoord/pkg/types"
)

// maxTrackedAccesses caps the per-type recent-access list.
const maxTrackedAccesses = 1000

var errAlreadyStarted = errors.NewError(errors.ErrCodeAlreadyStarted,
	"cache coordinator already started")

// MetadataProvider is optionally implemented by cache components that
// can describe their entries for strategy-driven eviction decisions.
type MetadataProvider interface {
	EntriesMetadata() []types.CacheEntryMetadata
}

// Options configures a Coordinator. Zero-value fields get defaults.
type Options struct {
	Config     *config.Configuration
	Bus        *events.Bus
	Prober     sysmem.Prober
	Strategies *strategy.Registry
	Logger     *zap.Logger
}

// Coordinator coordinates memory across registered cache components. It
// never owns the components; external code registers and unregisters
// them and they must outlive their registration.
//
// A single mutex guards all mutable state. The coordinator runs on one
// goroutine in practice; the mutex guards against future concurrent
// callers rather than enabling parallelism. Events are published after
// the lock is released so subscribers may call back into the
// coordinator.
type Coordinator struct {
	mu sync.Mutex

	cfg     *config.Configuration
	caches  map[types.CacheType]types.Component
	enabled map[types.CacheType]bool
	limits  map[types.CacheType]int64

	// Coordinator-level statistics fed by Notify* calls.
	hits           map[types.CacheType]int64
	misses         map[types.CacheType]int64
	recentAccesses map[types.CacheType][]string

	usagePatterns      map[types.CacheType]float64
	evictionStrategies map[types.CacheType]string

	adaptiveEnabled    bool
	sysMonEnabled      bool
	predictiveEnabled  bool
	compressionEnabled bool
	emergencyEnabled   bool

	warningThreshold  float64
	criticalThreshold float64

	bus        *events.Bus
	prober     sysmem.Prober
	monitor    *sysmem.Monitor
	strategies *strategy.Registry
	logger     *zap.Logger

	// timerActive drops overlapping periodic handler firings instead of
	// queueing them, so slow eviction work cannot pile up timer ticks.
	timerActive atomic.Bool

	running       atomic.Bool
	stopCh        chan struct{}
	wg            sync.WaitGroup
	cleanupTicker *time.Ticker
	sysmemTicker  *time.Ticker
}

// New constructs a coordinator. Callers share one instance across the
// process and inject it into collaborators; there is no hidden global.
func New(opts Options) *Coordinator {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewDefault()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bus := opts.Bus
	if bus == nil {
		bus = events.NewBus(logger)
	}
	prober := opts.Prober
	if prober == nil {
		prober = sysmem.NewSystemProber()
	}
	strategies := opts.Strategies
	if strategies == nil {
		strategies = strategy.NewRegistry()
	}

	c := &Coordinator{
		cfg:                cfg,
		caches:             make(map[types.CacheType]types.Component),
		enabled:            make(map[types.CacheType]bool),
		limits:             make(map[types.CacheType]int64),
		hits:               make(map[types.CacheType]int64),
		misses:             make(map[types.CacheType]int64),
		recentAccesses:     make(map[types.CacheType][]string),
		usagePatterns:      make(map[types.CacheType]float64),
		evictionStrategies: make(map[types.CacheType]string),
		adaptiveEnabled:    true,
		sysMonEnabled:      cfg.Features.SystemMemoryMonitoring,
		predictiveEnabled:  cfg.Features.PredictiveEviction,
		compressionEnabled: cfg.Features.MemoryCompression,
		emergencyEnabled:   cfg.Features.EmergencyEviction,
		warningThreshold:   cfg.Pressure.WarningThreshold,
		criticalThreshold:  cfg.Pressure.CriticalThreshold,
		bus:                bus,
		prober:             prober,
		monitor:            sysmem.NewMonitor(prober, sysmem.DefaultMonitorConfig(), logger),
		strategies:         strategies,
		logger:             logger.Named("coordinator"),
	}
	c.initDefaultLimitsLocked()
	return c
}

// initDefaultLimitsLocked seeds per-type limits and enablement from the
// configuration. Must be called with the lock held (or before sharing).
func (c *Coordinator) initDefaultLimitsLocked() {
	for _, t := range types.AllCacheTypes {
		c.limits[t] = c.cfg.LimitFor(t)
		c.enabled[t] = true
	}
}

// SetGlobalConfig replaces the configuration snapshot, re-initializes
// per-type default limits, and restarts the cleanup timer at the new
// interval.
func (c *Coordinator) SetGlobalConfig(cfg *config.Configuration) {
	c.mu.Lock()
	c.cfg = cfg
	c.initDefaultLimitsLocked()
	c.warningThreshold = cfg.Pressure.WarningThreshold
	c.criticalThreshold = cfg.Pressure.CriticalThreshold

	// Push new defaults to already-registered components.
	for t, comp := range c.caches {
		if limit := c.limits[t]; limit > 0 {
			comp.SetMaxMemoryLimit(limit)
		}
	}

	if c.cleanupTicker != nil {
		c.cleanupTicker.Reset(cfg.Cache.CleanupInterval)
	}
	if c.sysmemTicker != nil {
		c.sysmemTicker.Reset(cfg.SystemMem.CheckInterval)
	}
	c.mu.Unlock()

	c.bus.Publish(events.TopicConfigChanged, nil)
}

// GlobalConfig returns a copy of the current configuration snapshot.
func (c *Coordinator) GlobalConfig() config.Configuration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.cfg
}

// RegisterCache associates a cache component with a type. A nil
// component is refused with a warning; no error is raised. The
// configured default limit for the type, if nonzero, is applied to the
// component immediately.
func (c *Coordinator) RegisterCache(t types.CacheType, comp types.Component) {
	if comp == nil {
		c.logger.Warn("refusing to register nil cache component",
			zap.Stringer("cache_type", t))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.caches[t] = comp
	if limit := c.limits[t]; limit > 0 {
		comp.SetMaxMemoryLimit(limit)
	}

	c.logger.Debug("registered cache", zap.Stringer("cache_type", t))
}

// UnregisterCache disassociates a cache component and drops its
// coordinator-level statistics.
func (c *Coordinator) UnregisterCache(t types.CacheType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.caches, t)
	delete(c.enabled, t)
	delete(c.hits, t)
	delete(c.misses, t)
	delete(c.recentAccesses, t)
}

// IsCacheRegistered reports whether a component is registered for t.
func (c *Coordinator) IsCacheRegistered(t types.CacheType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.caches[t]
	return ok
}

// SetCacheLimit sets the memory ceiling for one cache type and pushes
// it to the registered component, if any.
func (c *Coordinator) SetCacheLimit(t types.CacheType, limit int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCacheLimitLocked(t, limit)
}

func (c *Coordinator) setCacheLimitLocked(t types.CacheType, limit int64) {
	c.limits[t] = limit
	if comp, ok := c.caches[t]; ok {
		comp.SetMaxMemoryLimit(limit)
	}
}

// CacheLimit returns the memory ceiling for one cache type.
func (c *Coordinator) CacheLimit(t types.CacheType) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limits[t]
}

// ClearCache clears one cache and resets its hit/miss counters.
func (c *Coordinator) ClearCache(t types.CacheType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if comp, ok := c.caches[t]; ok {
		comp.Clear()
		comp.ResetStatistics()
		c.hits[t] = 0
		c.misses[t] = 0
		delete(c.recentAccesses, t)
	}
}

// ClearAllCaches clears every registered cache and resets statistics.
func (c *Coordinator) ClearAllCaches() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, comp := range c.caches {
		comp.Clear()
		comp.ResetStatistics()
	}
	c.hits = make(map[types.CacheType]int64)
	c.misses = make(map[types.CacheType]int64)
	c.recentAccesses = make(map[types.CacheType][]string)
}

// EnableCache toggles whether a cache type participates in aggregate
// accounting and eviction. Disabled caches are skipped by all summation
// and eviction loops.
func (c *Coordinator) EnableCache(t types.CacheType, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled[t] = enabled
	if comp, ok := c.caches[t]; ok {
		comp.SetEnabled(enabled)
	}
}

// IsCacheEnabled reports whether a cache type is enabled. Unknown types
// default to enabled.
func (c *Coordinator) IsCacheEnabled(t types.CacheType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isEnabledLocked(t)
}

func (c *Coordinator) isEnabledLocked(t types.CacheType) bool {
	enabled, ok := c.enabled[t]
	if !ok {
		return true
	}
	return enabled
}

// SetEvictionStrategy names the eviction strategy for a cache type.
func (c *Coordinator) SetEvictionStrategy(t types.CacheType, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictionStrategies[t] = name
}

// EvictionStrategy returns the strategy name for a cache type,
// defaulting to "LRU".
func (c *Coordinator) EvictionStrategy(t types.CacheType) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if name, ok := c.evictionStrategies[t]; ok {
		return name
	}
	return "LRU"
}

// EnableAdaptiveManagement toggles adaptive memory redistribution.
func (c *Coordinator) EnableAdaptiveManagement(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adaptiveEnabled = enabled
}

// IsAdaptiveManagementEnabled reports the adaptive management toggle.
func (c *Coordinator) IsAdaptiveManagementEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.adaptiveEnabled
}

// EnableSystemMemoryMonitoring toggles the system-memory check.
func (c *Coordinator) EnableSystemMemoryMonitoring(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sysMonEnabled = enabled
}

// IsSystemMemoryMonitoringEnabled reports the system-memory toggle.
func (c *Coordinator) IsSystemMemoryMonitoringEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sysMonEnabled
}

// EnablePredictiveEviction toggles strategy consultation on eviction.
func (c *Coordinator) EnablePredictiveEviction(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.predictiveEnabled = enabled
}

// IsPredictiveEvictionEnabled reports the predictive-eviction toggle.
func (c *Coordinator) IsPredictiveEvictionEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.predictiveEnabled
}

// EnableMemoryCompression toggles the experimental compression pass.
func (c *Coordinator) EnableMemoryCompression(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compressionEnabled = enabled
}

// IsMemoryCompressionEnabled reports the compression toggle.
func (c *Coordinator) IsMemoryCompressionEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compressionEnabled
}

// EnableEmergencyEviction toggles eviction under system-wide pressure.
func (c *Coordinator) EnableEmergencyEviction(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emergencyEnabled = enabled
}

// IsEmergencyEvictionEnabled reports the emergency-eviction toggle.
func (c *Coordinator) IsEmergencyEvictionEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.emergencyEnabled
}

// SetMemoryPressureThresholds sets the warning and critical thresholds
// as fractions (0.0 to 1.0).
func (c *Coordinator) SetMemoryPressureThresholds(warning, critical float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warningThreshold = warning
	c.criticalThreshold = critical
}

// MemoryPressureThresholds returns the warning and critical thresholds.
func (c *Coordinator) MemoryPressureThresholds() (warning, critical float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.warningThreshold, c.criticalThreshold
}

// Start launches the periodic timers: cleanup, memory-pressure check,
// statistics update, and system-memory check. It returns an error if
// the coordinator is already running.
func (c *Coordinator) Start(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errAlreadyStarted
	}

	c.mu.Lock()
	c.stopCh = make(chan struct{})
	cleanupInterval := c.cfg.Cache.CleanupInterval
	sysmemInterval := c.cfg.SystemMem.CheckInterval
	pressureInterval := c.cfg.Pressure.CheckInterval
	statsInterval := c.cfg.Monitoring.StatsInterval
	c.cleanupTicker = time.NewTicker(cleanupInterval)
	c.sysmemTicker = time.NewTicker(sysmemInterval)
	c.mu.Unlock()

	c.logger.Info("starting cache coordinator",
		zap.Duration("cleanup_interval", cleanupInterval),
		zap.Duration("system_memory_interval", sysmemInterval))

	c.wg.Add(1)
	go c.run(ctx, pressureInterval, statsInterval)

	return nil
}

// run drives the four periodic checks until Stop or context cancel.
func (c *Coordinator) run(ctx context.Context, pressureInterval, statsInterval time.Duration) {
	defer c.wg.Done()

	pressureTicker := time.NewTicker(pressureInterval)
	defer pressureTicker.Stop()
	statsTicker := time.NewTicker(statsInterval)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-c.cleanupTicker.C:
			c.tick("cleanup", c.PerformPeriodicCleanup)
		case <-pressureTicker.C:
			c.tick("memory_pressure", c.HandleMemoryPressure)
		case <-statsTicker.C:
			c.tick("stats_update", c.UpdateCacheStatistics)
		case <-c.sysmemTicker.C:
			c.tick("system_memory", c.HandleSystemMemoryPressure)
		}
	}
}

// tick runs one periodic handler under the single-flight guard. A
// firing that overlaps an active handler is dropped, not queued; the
// check recurs on the next tick anyway.
func (c *Coordinator) tick(name string, handler func()) {
	if !c.timerActive.CompareAndSwap(false, true) {
		c.logger.Debug("timer callback already active, skipping",
			zap.String("handler", name))
		return
	}
	defer c.timerActive.Store(false)

	start := time.Now()
	handler()
	c.logger.Debug("periodic handler finished",
		zap.String("handler", name),
		zap.Duration("elapsed", time.Since(start)))
}

// Stop stops all timers and waits for the run loop to exit. It is
// idempotent and safe to call during application teardown.
func (c *Coordinator) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}

	c.mu.Lock()
	close(c.stopCh)
	c.cleanupTicker.Stop()
	c.sysmemTicker.Stop()
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Info("cache coordinator stopped")
}

// StopAllTimers is the shutdown primitive used during application
// teardown so no timer fires into a partially-destroyed object graph.
func (c *Coordinator) StopAllTimers() {
	c.Stop()
}

// PerformPeriodicCleanup runs one cleanup pass: pressure handling and,
// when enabled, adaptive redistribution.
func (c *Coordinator) PerformPeriodicCleanup() {
	c.mu.Lock()
	pressureEviction := c.cfg.Features.MemoryPressureEviction
	adaptive := c.adaptiveEnabled && c.cfg.Features.AdaptiveManagement
	c.mu.Unlock()

	if pressureEviction {
		c.HandleMemoryPressure()
	}

	if adaptive {
		c.AnalyzeUsagePatterns()
		c.OptimizeCacheDistribution()
	}
}
