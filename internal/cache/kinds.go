package cache

import (
	"time"

	"github.com/readium/cachecoord/pkg/types"
)

const mb = int64(1024 * 1024)

// Per-kind constructors with the stock limits for each cache type.
// Callers that want different limits can use New directly; the
// coordinator also overrides limits on registration.

// NewSearchResultCache caches search query results. Results go stale as
// the document or query context changes, so entries expire.
func NewSearchResultCache() *LRUCache {
	return New(types.SearchResultCache, Config{
		MaxMemory:  100 * mb,
		MaxEntries: 10000,
		TTL:        5 * time.Minute,
	})
}

// NewPageTextCache caches extracted page text. Extraction is expensive
// and text never changes for a loaded document, so entries do not expire.
func NewPageTextCache() *LRUCache {
	return New(types.PageTextCache, Config{
		MaxMemory:  50 * mb,
		MaxEntries: 50000,
	})
}

// NewSearchHighlightCache caches computed highlight geometry.
func NewSearchHighlightCache() *LRUCache {
	return New(types.SearchHighlightCache, Config{
		MaxMemory:  25 * mb,
		MaxEntries: 20000,
		TTL:        5 * time.Minute,
	})
}

// NewRenderCache caches rendered page images, the largest consumer.
func NewRenderCache() *LRUCache {
	return New(types.PdfRenderCache, Config{
		MaxMemory:  256 * mb,
		MaxEntries: 2000,
	})
}

// NewThumbnailCache caches page thumbnails.
func NewThumbnailCache() *LRUCache {
	return New(types.ThumbnailCache, Config{
		MaxMemory:  81 * mb,
		MaxEntries: 10000,
	})
}
