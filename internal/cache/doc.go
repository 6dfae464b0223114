/*
Package cache provides byte-accounted LRU cache components for the five
cache kinds a document viewer maintains.

Each cache satisfies the types.Component capability contract and can be
registered with the coordinator, which reads its usage statistics and
issues limit, clear and eviction commands. The caches themselves own
their contents and eviction order; the coordinator only decides how
much each one may hold.
*/
package cache
