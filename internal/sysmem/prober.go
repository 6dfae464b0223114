// Package sysmem provides platform-specific probes of process resident
// memory and total physical memory, plus a sampling monitor that tracks
// memory growth over time.
package sysmem

// Prober reports process and system memory. Implementations return -1
// on probe failure, never 0, so callers can distinguish "could not
// measure" from a true zero reading.
type Prober interface {
	// ProcessResident returns the current resident set size of this
	// process in bytes, or -1 if the probe failed.
	ProcessResident() int64

	// TotalPhysical returns the total physical memory of the machine in
	// bytes, or -1 if the probe failed.
	TotalPhysical() int64
}

// Pressure computes the system-wide memory pressure ratio for a prober.
// It returns 0.0 when either probe fails, so a failed probe never
// triggers pressure handling.
func Pressure(p Prober) float64 {
	usage := p.ProcessResident()
	total := p.TotalPhysical()
	if usage > 0 && total > 0 {
		return float64(usage) / float64(total)
	}
	return 0.0
}

// SystemProber probes the operating system this process runs on. The
// implementation is selected at build time per platform.
type SystemProber struct{}

// NewSystemProber returns a prober for the current platform.
func NewSystemProber() *SystemProber {
	return &SystemProber{}
}
