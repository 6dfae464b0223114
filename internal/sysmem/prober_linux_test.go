//go:build linux

package sysmem

import (
	"strings"
	"testing"
)

const statusSample = `Name:	viewer
VmPeak:	  204800 kB
VmRSS:	  102400 kB
VmData:	   51200 kB
Threads:	12
`

func TestParseKBField(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
		want  int64
	}{
		{"vmrss present", statusSample, "VmRSS:", 102400 * 1024},
		{"first matching field wins", statusSample, "VmPeak:", 204800 * 1024},
		{"field missing", statusSample, "MemTotal:", -1},
		{"empty input", "", "VmRSS:", -1},
		{"malformed value", "VmRSS:\tlots kB\n", "VmRSS:", -1},
		{"value without unit", "MemTotal: 8192\n", "MemTotal:", 8192 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseKBField(strings.NewReader(tt.input), tt.field); got != tt.want {
				t.Errorf("parseKBField(%q) = %d, want %d", tt.field, got, tt.want)
			}
		})
	}
}

func TestSystemProber_Linux(t *testing.T) {
	p := NewSystemProber()

	// Both procfs files exist on any Linux test machine; a failed read
	// must still return the -1 sentinel rather than 0.
	if rss := p.ProcessResident(); rss == 0 {
		t.Error("ProcessResident returned 0; want a reading or -1")
	}
	if total := p.TotalPhysical(); total <= 0 {
		t.Errorf("TotalPhysical = %d; want positive on Linux", total)
	}
}
