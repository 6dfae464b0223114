//go:build linux

package sysmem

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

// ProcessResident reads VmRSS from /proc/self/status.
func (p *SystemProber) ProcessResident() int64 {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		return -1
	}
	defer f.Close()
	return parseKBField(f, "VmRSS:")
}

// TotalPhysical reads MemTotal from /proc/meminfo.
func (p *SystemProber) TotalPhysical() int64 {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return -1
	}
	defer f.Close()
	return parseKBField(f, "MemTotal:")
}

// parseKBField scans proc-style "Key:  value kB" lines and returns the
// value of the named field in bytes, or -1 if the field is missing or
// malformed.
func parseKBField(r io.Reader, field string) int64 {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, field) {
			continue
		}
		parts := strings.Fields(line[len(field):])
		if len(parts) == 0 {
			return -1
		}
		kb, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return -1
		}
		return kb * 1024
	}
	return -1
}
