package sysmem

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// MonitorConfig configures memory sampling behavior
type MonitorConfig struct {
	// AlertThreshold is the percentage of resident-memory growth over
	// the baseline that triggers a growth alert.
	AlertThreshold float64

	// MaxSamples is the number of samples to keep in history.
	MaxSamples int
}

// DefaultMonitorConfig returns sensible defaults
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		AlertThreshold: 20.0,
		MaxSamples:     100,
	}
}

// Sample is one point-in-time memory reading.
type Sample struct {
	Timestamp       time.Time
	ProcessResident int64
	TotalPhysical   int64
	Pressure        float64
}

// Monitor tracks process memory over time using a Prober. It keeps a
// bounded sample history and alerts when resident memory grows past the
// configured threshold relative to the first successful sample.
type Monitor struct {
	prober Prober
	config MonitorConfig
	logger *zap.Logger

	mu          sync.RWMutex
	samples     []Sample
	baselineSet bool
	baseline    Sample
	current     Sample
	alertCount  int
}

// NewMonitor creates a monitor over the given prober.
func NewMonitor(prober Prober, config MonitorConfig, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxSamples <= 0 {
		config.MaxSamples = DefaultMonitorConfig().MaxSamples
	}
	return &Monitor{
		prober:  prober,
		config:  config,
		logger:  logger.Named("sysmem"),
		samples: make([]Sample, 0, config.MaxSamples),
	}
}

// Sample probes memory once, records the reading, and returns it.
// Failed probes (-1 readings) are recorded but never set the baseline
// and never trigger growth alerts.
func (m *Monitor) Sample() Sample {
	sample := Sample{
		Timestamp:       time.Now(),
		ProcessResident: m.prober.ProcessResident(),
		TotalPhysical:   m.prober.TotalPhysical(),
	}
	if sample.ProcessResident > 0 && sample.TotalPhysical > 0 {
		sample.Pressure = float64(sample.ProcessResident) / float64(sample.TotalPhysical)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.baselineSet && sample.ProcessResident > 0 {
		m.baseline = sample
		m.baselineSet = true
	}

	m.current = sample
	m.samples = append(m.samples, sample)
	if len(m.samples) > m.config.MaxSamples {
		m.samples = m.samples[1:]
	}

	m.checkGrowthLocked(sample)
	return sample
}

// checkGrowthLocked alerts on resident-memory growth beyond the
// threshold. Must be called with the lock held.
func (m *Monitor) checkGrowthLocked(sample Sample) {
	if !m.baselineSet || sample.ProcessResident <= 0 || m.baseline.ProcessResident <= 0 {
		return
	}

	growthPct := (float64(sample.ProcessResident) - float64(m.baseline.ProcessResident)) /
		float64(m.baseline.ProcessResident) * 100
	if growthPct > m.config.AlertThreshold {
		m.alertCount++
		m.logger.Warn("resident memory growth",
			zap.Float64("growth_pct", growthPct),
			zap.Int64("baseline", m.baseline.ProcessResident),
			zap.Int64("current", sample.ProcessResident))
	}
}

// Current returns the most recent sample.
func (m *Monitor) Current() Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Samples returns a copy of the sample history.
func (m *Monitor) Samples() []Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	samples := make([]Sample, len(m.samples))
	copy(samples, m.samples)
	return samples
}

// GrowthSinceBaseline returns the percentage growth of resident memory
// since the baseline sample, or 0 when no baseline exists.
func (m *Monitor) GrowthSinceBaseline() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.baselineSet || m.baseline.ProcessResident <= 0 || m.current.ProcessResident <= 0 {
		return 0
	}
	return (float64(m.current.ProcessResident) - float64(m.baseline.ProcessResident)) /
		float64(m.baseline.ProcessResident) * 100
}

// AlertCount returns the number of growth alerts raised so far.
func (m *Monitor) AlertCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.alertCount
}

// ResetBaseline resets the baseline to the current sample.
func (m *Monitor) ResetBaseline() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.baseline = m.current
	m.baselineSet = m.current.ProcessResident > 0
}
