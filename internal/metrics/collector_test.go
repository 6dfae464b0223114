package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readium/cachecoord/internal/events"
	"github.com/readium/cachecoord/pkg/types"
)

func TestCollector_StatsEvents(t *testing.T) {
	bus := events.NewBus(nil)
	c := NewCollector()
	c.Attach(bus)

	bus.Publish(events.TopicStatsUpdated, map[string]interface{}{
		"cache_type":   int(types.PdfRenderCache),
		"memory_usage": int64(1024),
		"max_memory":   int64(4096),
		"entry_count":  3,
		"hit_ratio":    0.75,
		"total_hits":   int64(9),
		"total_misses": int64(3),
	})

	label := types.PdfRenderCache.String()
	assert.Equal(t, 1024.0, testutil.ToFloat64(c.memoryUsage.WithLabelValues(label)))
	assert.Equal(t, 4096.0, testutil.ToFloat64(c.memoryLimit.WithLabelValues(label)))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.entryCount.WithLabelValues(label)))
	assert.Equal(t, 0.75, testutil.ToFloat64(c.hitRatio.WithLabelValues(label)))
	assert.Equal(t, 9.0, testutil.ToFloat64(c.hitsTotal.WithLabelValues(label)))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.missesTotal.WithLabelValues(label)))
}

func TestCollector_GlobalStats(t *testing.T) {
	bus := events.NewBus(nil)
	c := NewCollector()
	c.Attach(bus)

	bus.Publish(events.TopicGlobalStatsUpdated, map[string]interface{}{
		"total_memory": int64(2048),
		"hit_ratio":    0.6,
	})

	assert.Equal(t, 2048.0, testutil.ToFloat64(c.totalMemory))
	assert.Equal(t, 0.6, testutil.ToFloat64(c.globalRatio))
}

func TestCollector_EvictionEvents(t *testing.T) {
	bus := events.NewBus(nil)
	c := NewCollector()
	c.Attach(bus)

	for i := 0; i < 2; i++ {
		bus.Publish(events.TopicEvictionRequested, map[string]interface{}{
			"cache_type":    int(types.ThumbnailCache),
			"bytes_to_free": int64(500),
		})
	}

	label := types.ThumbnailCache.String()
	assert.Equal(t, 2.0, testutil.ToFloat64(c.evictions.WithLabelValues(label)))
	assert.Equal(t, 1000.0, testutil.ToFloat64(c.evictedBytes.WithLabelValues(label)))
}

func TestCollector_PressureCounters(t *testing.T) {
	bus := events.NewBus(nil)
	c := NewCollector()
	c.Attach(bus)

	bus.Publish(events.TopicMemoryPressureWarning, nil)
	bus.Publish(events.TopicMemoryPressureWarning, nil)
	bus.Publish(events.TopicMemoryPressureCritical, nil)
	bus.Publish(events.TopicMemoryLimitExceeded, nil)
	bus.Publish(events.TopicSystemMemoryPressure, nil)
	bus.Publish(events.TopicEmergencyEviction, nil)
	bus.Publish(events.TopicConfigChanged, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.pressureEvents.WithLabelValues("warning")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pressureEvents.WithLabelValues("critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.limitExceeded))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.systemPressure))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.emergencyPasses))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.configReloads))
}

func TestCollector_IgnoresMalformedPayloads(t *testing.T) {
	bus := events.NewBus(nil)
	c := NewCollector()
	c.Attach(bus)

	// Must not panic on missing or mistyped keys.
	bus.Publish(events.TopicStatsUpdated, map[string]interface{}{"cache_type": "not-an-int"})
	bus.Publish(events.TopicStatsUpdated, map[string]interface{}{"cache_type": 99})
	bus.Publish(events.TopicEvictionRequested, nil)
}

func TestCollector_Detach(t *testing.T) {
	bus := events.NewBus(nil)
	c := NewCollector()
	c.Attach(bus)
	c.Detach()

	bus.Publish(events.TopicMemoryLimitExceeded, nil)
	assert.Zero(t, testutil.ToFloat64(c.limitExceeded))
	assert.Zero(t, bus.SubscriberCount(events.TopicMemoryLimitExceeded))
}

// fakeSource provides fixed coordinator stats for the debug endpoints.
type fakeSource struct{}

func (fakeSource) AllCacheStats() map[types.CacheType]types.CacheStats {
	return map[types.CacheType]types.CacheStats{
		types.PageTextCache: {MemoryUsage: 100, MaxMemoryLimit: 200, EntryCount: 2, HitRatio: 0.5},
	}
}
func (fakeSource) TotalMemoryUsage() int64         { return 100 }
func (fakeSource) TotalMemoryLimit() int64         { return 512 }
func (fakeSource) GlobalMemoryUsageRatio() float64 { return 0.195 }
func (fakeSource) GlobalHitRatio() float64         { return 0.5 }

func TestServer_Endpoints(t *testing.T) {
	collector := NewCollector()
	srv := NewServer(DefaultServerConfig(), collector, fakeSource{}, nil)

	tests := []struct {
		path string
		want int
	}{
		{"/metrics", http.StatusOK},
		{"/health", http.StatusOK},
		{"/debug/caches", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			srv.httpServer.Handler.ServeHTTP(rec, req)
			require.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestServer_DebugCachesBody(t *testing.T) {
	collector := NewCollector()
	srv := NewServer(DefaultServerConfig(), collector, fakeSource{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/debug/caches", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), `"page_text"`)
	assert.Contains(t, rec.Body.String(), `"total_limit":512`)
}
