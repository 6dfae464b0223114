package strategy

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/readium/cachecoord/pkg/types"
)

func TestLFUStrategy_ShouldCache(t *testing.T) {
	s := NewLFUStrategy()

	tests := []struct {
		name string
		size int64
		want bool
	}{
		{"below minimum", 512, false},
		{"at minimum", 1024, true},
		{"typical", 64 * 1024, true},
		{"at maximum", 100 * 1024 * 1024, true},
		{"above maximum", 200 * 1024 * 1024, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.ShouldCache("key", tt.size); got != tt.want {
				t.Errorf("ShouldCache(%d) = %v, want %v", tt.size, got, tt.want)
			}
		})
	}
}

func TestLFUStrategy_SelectEvictionCandidate(t *testing.T) {
	s := NewLFUStrategy()
	now := time.Now()

	entries := []types.CacheEntryMetadata{
		{Key: "hot", AccessCount: 50, LastAccessedAt: now},
		{Key: "cold", AccessCount: 1, LastAccessedAt: now.Add(-48 * time.Hour)},
		{Key: "warm", AccessCount: 10, LastAccessedAt: now.Add(-2 * time.Hour)},
	}

	if got := s.SelectEvictionCandidate(entries, 4096); got != "cold" {
		t.Errorf("candidate = %q, want %q", got, "cold")
	}
}

func TestLFUStrategy_SelectEvictionCandidate_Empty(t *testing.T) {
	s := NewLFUStrategy()
	if got := s.SelectEvictionCandidate(nil, 4096); got != "" {
		t.Errorf("candidate for empty entries = %q, want empty", got)
	}
}

func TestLFUStrategy_RecencyBoostBreaksTies(t *testing.T) {
	s := NewLFUStrategy()
	now := time.Now()

	// Same access count; the stale entry loses its recency boost.
	entries := []types.CacheEntryMetadata{
		{Key: "recent", AccessCount: 5, LastAccessedAt: now},
		{Key: "stale", AccessCount: 5, LastAccessedAt: now.Add(-24 * time.Hour)},
	}

	if got := s.SelectEvictionCandidate(entries, 0); got != "stale" {
		t.Errorf("candidate = %q, want %q", got, "stale")
	}
}

func TestLFUStrategy_PersistLoadRoundTrip(t *testing.T) {
	s := NewLFUStrategy()
	path := filepath.Join(t.TempDir(), "strategy.json")

	entries := []types.CacheEntryMetadata{
		{Key: "page:1", Size: 4096, AccessCount: 12, Priority: 3},
		{Key: "page:2", Size: 8192, AccessCount: 2},
	}

	if err := s.Persist(path, entries); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	loaded, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d entries, want 2", len(loaded))
	}
	if loaded[0].Key != "page:1" || loaded[0].AccessCount != 12 || loaded[0].Priority != 3 {
		t.Errorf("entry not preserved: %+v", loaded[0])
	}
}

func TestLFUStrategy_LoadMissingFile(t *testing.T) {
	s := NewLFUStrategy()
	if _, err := s.Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing state file")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	s := NewLFUStrategy()

	r.Register(s)
	if got := len(r.Strategies()); got != 1 {
		t.Fatalf("registered strategies = %d, want 1", got)
	}

	r.NotifyPreEvict(types.ThumbnailCache, 1024)
	r.NotifyPostEvict(types.ThumbnailCache, 1024)
	if s.Evictions() != 1 {
		t.Errorf("evictions = %d, want 1", s.Evictions())
	}

	r.Unregister(s.Name())
	if got := len(r.Strategies()); got != 0 {
		t.Errorf("strategies after unregister = %d, want 0", got)
	}
}

func TestRegistry_ReplaceSameName(t *testing.T) {
	r := NewRegistry()
	r.Register(NewLFUStrategy())
	r.Register(NewLFUStrategy())

	if got := len(r.Strategies()); got != 1 {
		t.Errorf("same-name registration should replace, got %d strategies", got)
	}
}
