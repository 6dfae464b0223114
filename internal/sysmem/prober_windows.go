//go:build windows

package sysmem

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// ProcessResident reads the working set size of the current process.
func (p *SystemProber) ProcessResident() int64 {
	var counters windows.PROCESS_MEMORY_COUNTERS
	err := windows.GetProcessMemoryInfo(windows.CurrentProcess(), &counters,
		uint32(unsafe.Sizeof(counters)))
	if err != nil {
		return -1
	}
	return int64(counters.WorkingSetSize)
}

// TotalPhysical reads total physical memory via GlobalMemoryStatusEx.
func (p *SystemProber) TotalPhysical() int64 {
	var status windows.MemoryStatusEx
	status.Length = uint32(unsafe.Sizeof(status))
	if err := windows.GlobalMemoryStatusEx(&status); err != nil {
		return -1
	}
	return int64(status.TotalPhys)
}
