/*
Package types provides the core type definitions shared across the cache
coordination system.

It defines the closed CacheType enumeration for the five caches a
document viewer maintains (search results, extracted page text, search
highlights, rendered pages, thumbnails), the Component capability
contract cache implementations satisfy to be coordinated, the CacheStats
value computed on demand from live component state, and the static
eviction-priority ordering used to rank caches under memory pressure.

The priority ordering is a pure function of CacheType and is total:

	search_result > page_text > pdf_render > search_highlight > thumbnail

Lower-priority caches are drained first when memory must be reclaimed.
*/
package types
