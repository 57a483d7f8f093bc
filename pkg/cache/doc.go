// Package cache implements the per-site in-memory entity cache
// sitting between pkg/dbaccess and pkg/storage. Each SiteCache maps
// EntityId to a ref-counted handle: a fetch pulls through the backend
// on miss, materializes exactly once, and hands out an EntityRef that
// the caller must Release. An entity is only evictable once its ref
// count drops to zero, and only deletable from the backend once the
// cache has let go of it entirely — the cache, not the backend, is the
// source of truth for "is this entity in use right now".
package cache
