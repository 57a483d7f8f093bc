package cache

import (
	"fmt"
	"sync"

	"github.com/mutgos/mutgos/pkg/entity"
	"github.com/mutgos/mutgos/pkg/types"
)

// Backend is the subset of pkg/storage.Store a SiteCache pulls through
// on a miss. Kept narrow so tests can supply a fake without pulling in
// bbolt.
type Backend interface {
	GetEntity(id types.Id) (entity.Entity, error)
}

type cacheEntry struct {
	ent      entity.Entity
	refCount int
}

// EntityRef is a ref-counted handle into a SiteCache's live table. The
// caller must call Release exactly once when done with it; the
// underlying entity remains valid until then.
type EntityRef struct {
	Entity entity.Entity

	cache *SiteCache
	id    types.EntityId
}

// Release decrements the ref count backing this handle. A caller that
// forgets to Release pins the entity in the cache indefinitely, which
// is the same failure mode as holding a mutex too long.
func (r *EntityRef) Release() {
	if r == nil || r.cache == nil {
		return
	}
	r.cache.release(r.id)
}

// SiteCache is the live entity table for one site. Every lookup for
// that site goes through it; two calls to GetEntityRef for the same id
// always return handles to the same *entity.Entity instance (spec
// invariant: a given Id maps to at most one Entity at any moment
// across all caches).
type SiteCache struct {
	site    types.SiteId
	backend Backend

	mu            sync.Mutex
	entries       map[types.EntityId]*cacheEntry
	deletePending bool
}

func NewSiteCache(site types.SiteId, backend Backend) *SiteCache {
	return &SiteCache{
		site:    site,
		backend: backend,
		entries: make(map[types.EntityId]*cacheEntry),
	}
}

// GetEntityRef fetches id from the live table, or pulls it through the
// backend on a miss and stores the result before returning a ref.
// Returns types.ErrBadId if id does not belong to this cache's site or
// is otherwise malformed, types.ErrNotFound if set_delete_pending has
// been called (site is being torn down) or the backend has nothing for
// id, and whatever error the backend surfaces otherwise.
func (c *SiteCache) GetEntityRef(id types.Id) (*EntityRef, error) {
	if !id.Valid() || id.Site != c.site {
		return nil, fmt.Errorf("cache: %w: %s", types.ErrBadId, id)
	}

	c.mu.Lock()
	if c.deletePending {
		c.mu.Unlock()
		return nil, fmt.Errorf("cache: %w: site %d is delete-pending", types.ErrNotFound, c.site)
	}
	if e, ok := c.entries[id.Entity]; ok {
		e.refCount++
		c.mu.Unlock()
		return &EntityRef{Entity: e.ent, cache: c, id: id.Entity}, nil
	}
	c.mu.Unlock()

	ent, err := c.backend.GetEntity(id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another goroutine may have pulled the same id through while this
	// one held no lock; the first to land wins so identity is preserved.
	if e, ok := c.entries[id.Entity]; ok {
		e.refCount++
		return &EntityRef{Entity: e.ent, cache: c, id: id.Entity}, nil
	}
	c.entries[id.Entity] = &cacheEntry{ent: ent, refCount: 1}
	return &EntityRef{Entity: ent, cache: c, id: id.Entity}, nil
}

func (c *SiteCache) release(id types.EntityId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return
	}
	if e.refCount > 0 {
		e.refCount--
	}
}

// RefCount reports the current ref count for id, or 0 if it is not
// resident.
func (c *SiteCache) RefCount(id types.EntityId) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		return e.refCount
	}
	return 0
}

// DeleteEntityCache removes id from the live table if nothing holds an
// outstanding EntityRef to it (ref count 0 — unlike the Arc-counted
// original, this map entry carries no baseline ref of its own). Returns
// types.ErrEntityInUse if anything still references it, which the
// Update Manager treats as a signal to requeue with backoff.
func (c *SiteCache) DeleteEntityCache(id types.EntityId) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return nil
	}
	if e.refCount > 0 {
		return fmt.Errorf("cache: %w: entity %d", types.ErrEntityInUse, id)
	}
	delete(c.entries, id)
	return nil
}

// SetDeletePending marks this cache as being torn down: future
// GetEntityRef calls refuse with types.ErrNotFound. This is how site
// deletion cascades safely — nothing new can be pulled in while the
// Update Manager drains what is already resident.
func (c *SiteCache) SetDeletePending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletePending = true
}

// DeletePending reports whether SetDeletePending has been called.
func (c *SiteCache) DeletePending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deletePending
}

// IsAnythingReferenced reports whether any resident entity has a
// nonzero ref count. The Update Manager polls this after
// SetDeletePending to decide when it is safe to drop the cache and
// call backend.DeleteSite.
func (c *SiteCache) IsAnythingReferenced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.refCount > 0 {
			return true
		}
	}
	return false
}

// DirtyEntities returns every resident entity with at least one dirty
// field, for the Update Manager's periodic flush scan.
func (c *SiteCache) DirtyEntities() []entity.Entity {
	c.mu.Lock()
	ents := make([]entity.Entity, 0, len(c.entries))
	for _, e := range c.entries {
		ents = append(ents, e.ent)
	}
	c.mu.Unlock()

	out := make([]entity.Entity, 0, len(ents))
	for _, e := range ents {
		if e.IsDirty() {
			out = append(out, e)
		}
	}
	return out
}

// CountByType returns the number of resident entities of each type,
// consulted by pkg/metrics.Collector via pkg/dbaccess.
func (c *SiteCache) CountByType() map[types.EntityType]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[types.EntityType]int)
	for _, e := range c.entries {
		out[e.ent.Type()]++
	}
	return out
}

// ResidentCount returns the number of entities currently in the live
// table, regardless of ref count.
func (c *SiteCache) ResidentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Site returns the SiteId this cache serves.
func (c *SiteCache) Site() types.SiteId {
	return c.site
}

// TotalRefCount sums the ref counts of every resident entity, consulted
// by pkg/metrics.Collector via pkg/dbaccess as the per-site
// CacheRefsTotal gauge.
func (c *SiteCache) TotalRefCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, e := range c.entries {
		total += e.refCount
	}
	return total
}

// Put inserts an already-materialized entity directly into the live
// table, skipping a redundant backend round-trip. Used by
// pkg/dbaccess right after storage.Store.NewEntity returns a freshly
// constructed entity it already holds.
func (c *SiteCache) Put(e entity.Entity) *EntityRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := e.Id().Entity
	if existing, ok := c.entries[id]; ok {
		existing.refCount++
		return &EntityRef{Entity: existing.ent, cache: c, id: id}
	}
	c.entries[id] = &cacheEntry{ent: e, refCount: 1}
	return &EntityRef{Entity: e, cache: c, id: id}
}

// Peek returns the resident entity for id without affecting its ref
// count, or ok=false if it is not currently resident. Used for reads
// that want the freshest in-memory state (e.g. metadata lookups) but
// must not pin the entity.
func (c *SiteCache) Peek(id types.EntityId) (entity.Entity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		return e.ent, true
	}
	return nil, false
}
