// Package strategy defines the cache-strategy extension point. A
// strategy can observe evictions and suggest eviction candidates; the
// coordinator treats suggestions as advisory and only logs and
// publishes them.
package strategy

import (
	"sync"

	"github.com/readium/cachecoord/pkg/types"
)

// Strategy is the contract a pluggable cache strategy implements.
type Strategy interface {
	// Name identifies the strategy in logs and events.
	Name() string

	// ShouldCache decides whether an item is worth caching at all.
	ShouldCache(key string, size int64) bool

	// SelectEvictionCandidate picks the key the strategy would evict to
	// make room for an entry of newEntrySize. Returns "" when it has no
	// opinion. The suggestion is advisory.
	SelectEvictionCandidate(entries []types.CacheEntryMetadata, newEntrySize int64) string

	// PreEvict is invoked before the coordinator asks a cache to evict.
	PreEvict(cacheType types.CacheType, bytesToFree int64)

	// PostEvict is invoked after the eviction command was issued.
	PostEvict(cacheType types.CacheType, bytesToFree int64)
}

// Registry holds the strategies registered for eviction hooks. The
// coordinator consults every registered strategy around each per-cache
// eviction.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register adds a strategy under its name, replacing any previous
// strategy with the same name.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

// Unregister removes a strategy by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.strategies, name)
}

// Strategies returns a snapshot of the registered strategies.
func (r *Registry) Strategies() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Strategy, 0, len(r.strategies))
	for _, s := range r.strategies {
		out = append(out, s)
	}
	return out
}

// NotifyPreEvict invokes PreEvict on every registered strategy.
func (r *Registry) NotifyPreEvict(cacheType types.CacheType, bytesToFree int64) {
	for _, s := range r.Strategies() {
		s.PreEvict(cacheType, bytesToFree)
	}
}

// NotifyPostEvict invokes PostEvict on every registered strategy.
func (r *Registry) NotifyPostEvict(cacheType types.CacheType, bytesToFree int64) {
	for _, s := range r.Strategies() {
		s.PostEvict(cacheType, bytesToFree)
	}
}
