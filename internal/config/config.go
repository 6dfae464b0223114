package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/readium/cachecoord/pkg/types"
)

// Configuration represents the complete coordinator configuration
type Configuration struct {
	Global     GlobalConfig     `yaml:"global"`
	Cache      CacheConfig      `yaml:"cache"`
	Pressure   PressureConfig   `yaml:"pressure"`
	SystemMem  SystemMemConfig  `yaml:"system_memory"`
	Features   FeatureConfig    `yaml:"features"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// GlobalConfig represents global settings
type GlobalConfig struct {
	LogLevel    string `yaml:"log_level"`
	MetricsPort int    `yaml:"metrics_port"`
}

// CacheConfig represents the aggregate memory budget and per-type limits
type CacheConfig struct {
	TotalMemoryLimit     int64         `yaml:"total_memory_limit"`
	SearchResultLimit    int64         `yaml:"search_result_limit"`
	PageTextLimit        int64         `yaml:"page_text_limit"`
	SearchHighlightLimit int64         `yaml:"search_highlight_limit"`
	PdfRenderLimit       int64         `yaml:"pdf_render_limit"`
	ThumbnailLimit       int64         `yaml:"thumbnail_limit"`
	CleanupInterval      time.Duration `yaml:"cleanup_interval"`
}

// PressureConfig represents cache-level memory pressure settings.
// Threshold is a percentage (0-100); the warning and critical
// thresholds are fractions (0.0-1.0).
type PressureConfig struct {
	Threshold         int           `yaml:"threshold"`
	WarningThreshold  float64       `yaml:"warning_threshold"`
	CriticalThreshold float64       `yaml:"critical_threshold"`
	CheckInterval     time.Duration `yaml:"check_interval"`
}

// SystemMemConfig represents system-wide memory monitoring settings
type SystemMemConfig struct {
	CheckInterval     time.Duration `yaml:"check_interval"`
	PressureThreshold float64       `yaml:"pressure_threshold"`
}

// FeatureConfig represents feature toggles
type FeatureConfig struct {
	LRUEviction            bool `yaml:"lru_eviction"`
	MemoryPressureEviction bool `yaml:"memory_pressure_eviction"`
	AdaptiveManagement     bool `yaml:"adaptive_management"`
	SystemMemoryMonitoring bool `yaml:"system_memory_monitoring"`
	PredictiveEviction     bool `yaml:"predictive_eviction"`
	MemoryCompression      bool `yaml:"memory_compression"`
	EmergencyEviction      bool `yaml:"emergency_eviction"`
}

// MonitoringConfig represents stats reporting settings
type MonitoringConfig struct {
	Enabled       bool          `yaml:"enabled"`
	StatsInterval time.Duration `yaml:"stats_interval"`
}

const mb = int64(1024 * 1024)

// NewDefault returns a configuration with the stock defaults
func NewDefault() *Configuration {
	return &Configuration{
		Global: GlobalConfig{
			LogLevel:    "INFO",
			MetricsPort: 8080,
		},
		Cache: CacheConfig{
			TotalMemoryLimit:     512 * mb,
			SearchResultLimit:    100 * mb,
			PageTextLimit:        50 * mb,
			SearchHighlightLimit: 25 * mb,
			PdfRenderLimit:       256 * mb,
			ThumbnailLimit:       81 * mb,
			CleanupInterval:      30 * time.Second,
		},
		Pressure: PressureConfig{
			Threshold:         85,
			WarningThreshold:  0.75,
			CriticalThreshold: 0.90,
			CheckInterval:     5 * time.Second,
		},
		SystemMem: SystemMemConfig{
			CheckInterval:     10 * time.Second,
			PressureThreshold: 0.85,
		},
		Features: FeatureConfig{
			LRUEviction:            true,
			MemoryPressureEviction: true,
			AdaptiveManagement:     true,
			SystemMemoryMonitoring: true,
			PredictiveEviction:     true,
			MemoryCompression:      false,
			EmergencyEviction:      true,
		},
		Monitoring: MonitoringConfig{
			Enabled:       true,
			StatsInterval: 10 * time.Second,
		},
	}
}

// LimitFor returns the configured default memory limit for a cache type
func (c *Configuration) LimitFor(t types.CacheType) int64 {
	switch t {
	case types.SearchResultCache:
		return c.Cache.SearchResultLimit
	case types.PageTextCache:
		return c.Cache.PageTextLimit
	case types.SearchHighlightCache:
		return c.Cache.SearchHighlightLimit
	case types.PdfRenderCache:
		return c.Cache.PdfRenderLimit
	case types.ThumbnailCache:
		return c.Cache.ThumbnailLimit
	default:
		return 0
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("CACHECOORD_LOG_LEVEL"); val != "" {
		c.Global.LogLevel = val
	}
	if val := os.Getenv("CACHECOORD_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Global.MetricsPort = port
		}
	}
	if val := os.Getenv("CACHECOORD_TOTAL_MEMORY_LIMIT"); val != "" {
		if limit, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.Cache.TotalMemoryLimit = limit
		}
	}
	if val := os.Getenv("CACHECOORD_CLEANUP_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Cache.CleanupInterval = d
		}
	}
	if val := os.Getenv("CACHECOORD_PRESSURE_THRESHOLD"); val != "" {
		if threshold, err := strconv.Atoi(val); err == nil {
			c.Pressure.Threshold = threshold
		}
	}
	if val := os.Getenv("CACHECOORD_SYSMEM_CHECK_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.SystemMem.CheckInterval = d
		}
	}
	if val := os.Getenv("CACHECOORD_ADAPTIVE_MANAGEMENT"); val != "" {
		c.Features.AdaptiveManagement = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("CACHECOORD_EMERGENCY_EVICTION"); val != "" {
		c.Features.EmergencyEviction = strings.ToLower(val) == "true"
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Configuration) Validate() error {
	if c.Cache.TotalMemoryLimit < 0 {
		return fmt.Errorf("total_memory_limit must not be negative")
	}

	if c.Cache.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup_interval must be greater than 0")
	}

	if c.Pressure.Threshold < 0 || c.Pressure.Threshold > 100 {
		return fmt.Errorf("pressure threshold must be between 0 and 100")
	}

	if c.Pressure.WarningThreshold < 0 || c.Pressure.WarningThreshold > 1 {
		return fmt.Errorf("warning_threshold must be between 0.0 and 1.0")
	}

	if c.Pressure.CriticalThreshold < 0 || c.Pressure.CriticalThreshold > 1 {
		return fmt.Errorf("critical_threshold must be between 0.0 and 1.0")
	}

	if c.Pressure.WarningThreshold > c.Pressure.CriticalThreshold {
		return fmt.Errorf("warning_threshold cannot exceed critical_threshold")
	}

	if c.SystemMem.PressureThreshold < 0 || c.SystemMem.PressureThreshold > 1 {
		return fmt.Errorf("system memory pressure_threshold must be between 0.0 and 1.0")
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	logLevelValid := false
	for _, level := range validLogLevels {
		if c.Global.LogLevel == level {
			logLevelValid = true
			break
		}
	}
	if !logLevelValid {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.Global.LogLevel, strings.Join(validLogLevels, ", "))
	}

	return nil
}
