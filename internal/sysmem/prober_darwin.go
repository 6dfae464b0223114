//go:build darwin

package sysmem

import (
	"golang.org/x/sys/unix"
)

// ProcessResident reports the resident set size via getrusage. Darwin
// reports ru_maxrss in bytes and tracks the high-water mark, which is
// the closest portable reading available without mach task_info.
func (p *SystemProber) ProcessResident() int64 {
	var usage unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &usage); err != nil {
		return -1
	}
	if usage.Maxrss <= 0 {
		return -1
	}
	return usage.Maxrss
}

// TotalPhysical reads hw.memsize via sysctl.
func (p *SystemProber) TotalPhysical() int64 {
	memsize, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return -1
	}
	return int64(memsize)
}
