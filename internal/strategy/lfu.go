package strategy

import (
	"encoding/json"
	"os"
	"sync/atomic"
	"time"

	"github.com/readium/cachecoord/pkg/errors"
	"github.com/readium/cachecoord/pkg/types"
)

// LFUStrategy is a least-frequently-used cache strategy with a recency
// boost. It can persist entry metadata between runs so access frequency
// survives restarts.
type LFUStrategy struct {
	// MinSizeToCache and MaxSizeToCache bound the entry sizes the
	// strategy considers worth caching.
	MinSizeToCache int64
	MaxSizeToCache int64

	// PriorityBoostForRecent is the score boost given to entries
	// accessed within the last hour; it decays by PriorityDecayRate per
	// hour since last access.
	PriorityBoostForRecent int
	PriorityDecayRate      int

	evictions atomic.Int64
}

// NewLFUStrategy returns an LFU strategy with stock tunables.
func NewLFUStrategy() *LFUStrategy {
	return &LFUStrategy{
		MinSizeToCache:         1024,
		MaxSizeToCache:         100 * 1024 * 1024,
		PriorityBoostForRecent: 10,
		PriorityDecayRate:      1,
	}
}

// Name implements Strategy.
func (s *LFUStrategy) Name() string { return "lfu-optimized" }

// ShouldCache accepts entries within the configured size range.
func (s *LFUStrategy) ShouldCache(key string, size int64) bool {
	return size >= s.MinSizeToCache && size <= s.MaxSizeToCache
}

// SelectEvictionCandidate picks the entry with the lowest LFU score.
func (s *LFUStrategy) SelectEvictionCandidate(entries []types.CacheEntryMetadata, newEntrySize int64) string {
	if len(entries) == 0 {
		return ""
	}

	candidate := entries[0].Key
	lowest := s.score(entries[0])
	for _, entry := range entries[1:] {
		if sc := s.score(entry); sc < lowest {
			lowest = sc
			candidate = entry.Key
		}
	}
	return candidate
}

// PreEvict implements Strategy.
func (s *LFUStrategy) PreEvict(cacheType types.CacheType, bytesToFree int64) {
	s.evictions.Add(1)
}

// PostEvict implements Strategy.
func (s *LFUStrategy) PostEvict(cacheType types.CacheType, bytesToFree int64) {}

// Evictions returns the number of eviction passes observed.
func (s *LFUStrategy) Evictions() int64 {
	return s.evictions.Load()
}

// score computes the LFU priority: access frequency dominates, with a
// decaying boost for recently-accessed entries plus any caller-set
// priority. Lower scores evict first.
func (s *LFUStrategy) score(entry types.CacheEntryMetadata) int64 {
	base := entry.AccessCount * 10

	hoursSinceAccess := int64(time.Since(entry.LastAccessedAt).Hours())
	boost := int64(s.PriorityBoostForRecent) - hoursSinceAccess*int64(s.PriorityDecayRate)
	if boost < 0 {
		boost = 0
	}

	return base + boost + int64(entry.Priority)
}

// persistedState is the on-disk format for strategy persistence.
type persistedState struct {
	Version  string                     `json:"version"`
	Strategy string                     `json:"strategy"`
	Entries  []types.CacheEntryMetadata `json:"entries"`
	SavedAt  time.Time                  `json:"saved_at"`
}

// Persist writes entry metadata to path as JSON.
func (s *LFUStrategy) Persist(path string, entries []types.CacheEntryMetadata) error {
	state := persistedState{
		Version:  "1.0",
		Strategy: s.Name(),
		Entries:  entries,
		SavedAt:  time.Now(),
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.NewError(errors.ErrCodeStrategyPersist, "failed to encode strategy state").
			WithCause(err).WithContext("path", path)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.NewError(errors.ErrCodeStrategyPersist, "failed to write strategy state").
			WithCause(err).WithContext("path", path)
	}
	return nil
}

// Load reads entry metadata previously written by Persist.
func (s *LFUStrategy) Load(path string) ([]types.CacheEntryMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeStrategyLoad, "failed to read strategy state").
			WithCause(err).WithContext("path", path)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.NewError(errors.ErrCodeStrategyLoad, "failed to decode strategy state").
			WithCause(err).WithContext("path", path)
	}
	return state.Entries, nil
}
