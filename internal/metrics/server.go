package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/readium/cachecoord/pkg/types"
)

// StatsSource is the view of the coordinator the debug endpoints need.
type StatsSource interface {
	AllCacheStats() map[types.CacheType]types.CacheStats
	TotalMemoryUsage() int64
	TotalMemoryLimit() int64
	GlobalMemoryUsageRatio() float64
	GlobalHitRatio() float64
}

// ServerConfig configures the monitoring HTTP server.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns stock timeouts on the default port.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:         9090,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Server serves the Prometheus scrape endpoint plus health and debug
// views of cache state.
type Server struct {
	httpServer *http.Server
	source     StatsSource
	logger     *zap.Logger
}

// NewServer wires the routes for the collector and stats source.
func NewServer(config ServerConfig, collector *Collector, source StatsSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{source: source, logger: logger.Named("metrics")}

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/debug/caches", s.handleCaches).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("monitoring server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("monitoring server failed", zap.Error(err))
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleCaches(w http.ResponseWriter, r *http.Request) {
	stats := s.source.AllCacheStats()
	perCache := make(map[string]types.CacheStats, len(stats))
	for t, st := range stats {
		perCache[t.String()] = st
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"caches":           perCache,
		"total_memory":     s.source.TotalMemoryUsage(),
		"total_limit":      s.source.TotalMemoryLimit(),
		"usage_ratio":      s.source.GlobalMemoryUsageRatio(),
		"global_hit_ratio": s.source.GlobalHitRatio(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
