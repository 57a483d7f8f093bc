package dbaccess

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mutgos/mutgos/pkg/cache"
	"github.com/mutgos/mutgos/pkg/entity"
	"github.com/mutgos/mutgos/pkg/events"
	"github.com/mutgos/mutgos/pkg/storage"
	"github.com/mutgos/mutgos/pkg/types"
)

// RenameTracker is the Update Manager's in-flight rename bookkeeping,
// consulted by Find/FindProgramReg so an uncommitted rename is visible
// before the backend re-indexes it. Defined here rather than imported
// from pkg/updatemgr so the dependency runs one way: updatemgr imports
// dbaccess, never the reverse. updatemgr.NewManagerWithInterval wires
// the concrete *updatemgr.Manager in via SetRenameTracker.
type RenameTracker interface {
	PendingPlayerName(id types.Id) (string, bool)
	PendingPlayerIds(site types.SiteId) []types.Id
	PendingRegName(program types.Id) (string, bool)
	PendingRegIds(site types.SiteId) []types.Id
}

// DbAccess is the Database Access façade (spec §4.D). Construct with
// New, call Startup once the backend is ready, Shutdown on the way
// down.
type DbAccess struct {
	store  storage.Store
	broker *events.Broker
	logger zerolog.Logger

	mu        sync.RWMutex
	caches    map[types.SiteId]*cache.SiteCache
	siteNames map[types.SiteId]string

	tracker    RenameTracker
	timeJumpFn func(backwards bool)
}

func New(store storage.Store, broker *events.Broker, logger zerolog.Logger) *DbAccess {
	return &DbAccess{
		store:     store,
		broker:    broker,
		logger:    logger,
		caches:    make(map[types.SiteId]*cache.SiteCache),
		siteNames: make(map[types.SiteId]string),
	}
}

// SetRenameTracker wires the Update Manager in after both it and this
// façade have been constructed.
func (d *DbAccess) SetRenameTracker(t RenameTracker) {
	d.tracker = t
}

// Startup loads every existing site's cache and starts the event
// broker. Must be called once before any other method.
func (d *DbAccess) Startup() error {
	ids, err := d.store.GetSiteIds()
	if err != nil {
		return fmt.Errorf("dbaccess startup: %w", err)
	}

	d.mu.Lock()
	for _, id := range ids {
		d.caches[id] = cache.NewSiteCache(id, d.store)
		name, err := d.store.GetSiteName(id)
		if err != nil {
			d.mu.Unlock()
			return fmt.Errorf("dbaccess startup: site %d: %w", id, err)
		}
		d.siteNames[id] = name
	}
	d.mu.Unlock()

	d.broker.Start()
	return nil
}

func (d *DbAccess) Shutdown() error {
	d.broker.Stop()
	return d.store.Shutdown()
}

func (d *DbAccess) siteCache(site types.SiteId) (*cache.SiteCache, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.caches[site]
	if !ok {
		return nil, fmt.Errorf("dbaccess: %w: site %d", types.ErrBadSiteId, site)
	}
	return c, nil
}

// GetEntity returns a ref-counted handle to id, pulling through the
// backend on a cache miss.
func (d *DbAccess) GetEntity(id types.Id) (*cache.EntityRef, error) {
	c, err := d.siteCache(id.Site)
	if err != nil {
		return nil, err
	}
	return c.GetEntityRef(id)
}

func (d *DbAccess) EntityExists(id types.Id) (bool, error) {
	if c, err := d.siteCache(id.Site); err == nil {
		if _, ok := c.Peek(id.Entity); ok {
			return true, nil
		}
	}
	return d.store.EntityExists(id)
}

// GetEntityMetadata favors the resident in-memory copy so a caller
// sees a rename that has not yet been flushed.
func (d *DbAccess) GetEntityMetadata(id types.Id) (storage.EntityMetadata, error) {
	if c, err := d.siteCache(id.Site); err == nil {
		if e, ok := c.Peek(id.Entity); ok {
			return storage.EntityMetadata{Id: e.Id(), Type: e.Type(), Name: e.Name()}, nil
		}
	}
	return d.store.GetEntityMetadata(id)
}

// CreateEntity allocates an id from the backend, persists the
// constructed entity, adopts it directly into the site cache, and
// notifies entity_created listeners.
func (d *DbAccess) CreateEntity(site types.SiteId, t types.EntityType, owner types.Id, name string, construct func(id types.Id) entity.Entity) (*cache.EntityRef, error) {
	c, err := d.siteCache(site)
	if err != nil {
		return nil, err
	}
	e, err := d.store.NewEntity(site, t, owner, name, construct)
	if err != nil {
		return nil, err
	}
	ref := c.Put(e)
	d.broker.Publish(events.Event{Type: events.EventEntityCreated, Id: e.Id(), EntType: e.Type()})
	return ref, nil
}

// DeleteEntity marks id (and everything transitively contained by or
// attached to it) deleted, evicting what it can from the cache
// immediately. Returns types.ErrOkDelayed if any discovered entity is
// still referenced — the Update Manager's deletion queue drains those.
func (d *DbAccess) DeleteEntity(id types.Id) error {
	c, err := d.siteCache(id.Site)
	if err != nil {
		return err
	}

	visited := make(map[types.Id]bool)
	queue := []types.Id{id}
	delayed := false

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true

		children, err := d.store.FindContainedBy(cur.Site, cur)
		if err != nil {
			return err
		}
		queue = append(queue, children...)

		if err := d.internalDeleteOne(c, cur); err != nil {
			if errors.Is(err, types.ErrEntityInUse) {
				delayed = true
				continue
			}
			return err
		}
	}

	if delayed {
		return types.ErrOkDelayed
	}
	return nil
}

// internalDeleteOne is InternalDeleteEntity in spec terms: it is also
// what pkg/updatemgr's deletion-queue drain retries on ErrEntityInUse.
func (d *DbAccess) internalDeleteOne(c *cache.SiteCache, id types.Id) error {
	entType, err := d.store.GetEntityType(id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil // already gone, nothing to do
		}
		return err
	}

	if e, ok := c.Peek(id.Entity); ok {
		e.SetDeleted(true)
	}
	if err := c.DeleteEntityCache(id.Entity); err != nil {
		return err
	}
	if err := d.store.DeleteEntity(id, false); err != nil {
		return err
	}
	d.broker.Publish(events.Event{Type: events.EventEntityDeleted, Id: id, EntType: entType})
	return nil
}

// RetryDeleteEntity is internalDeleteOne exposed for the Update
// Manager's deletion-queue drain.
func (d *DbAccess) RetryDeleteEntity(id types.Id) error {
	c, err := d.siteCache(id.Site)
	if err != nil {
		return err
	}
	return d.internalDeleteOne(c, id)
}

func (d *DbAccess) SaveEntity(e entity.Entity) error {
	return d.store.SaveEntity(e)
}

// Find applies the backend's substring/exact name match, then folds in
// the Update Manager's in-flight player-rename table so a rename is
// visible in search results before it has been flushed to the backend.
func (d *DbAccess) Find(params storage.FindParams) ([]types.Id, error) {
	ids, err := d.store.Find(params)
	if err != nil {
		return nil, err
	}
	if d.tracker == nil {
		return ids, nil
	}
	if params.Type != types.EntityTypeInvalid && params.Type != types.EntityTypePlayer && params.Type != types.EntityTypeGuest {
		return ids, nil
	}
	return d.reconcilePendingPlayerNames(params, ids), nil
}

func nameMatches(params storage.FindParams, candidate string) bool {
	if params.Name == "" {
		return true
	}
	lowered := strings.ToLower(candidate)
	needle := strings.ToLower(params.Name)
	if params.Exact {
		return lowered == needle
	}
	return strings.Contains(lowered, needle)
}

func (d *DbAccess) reconcilePendingPlayerNames(params storage.FindParams, ids []types.Id) []types.Id {
	seen := make(map[types.Id]bool, len(ids))
	out := ids[:0]

	for _, id := range ids {
		seen[id] = true
		if renamed, ok := d.tracker.PendingPlayerName(id); ok {
			if nameMatches(params, renamed) {
				out = append(out, id)
			}
			continue
		}
		out = append(out, id)
	}

	for _, id := range d.tracker.PendingPlayerIds(params.Site) {
		if seen[id] {
			continue
		}
		if renamed, ok := d.tracker.PendingPlayerName(id); ok && nameMatches(params, renamed) {
			out = append(out, id)
		}
	}
	return out
}

// FindProgramReg consults in-flight registration renames before
// falling back to the backend's index.
func (d *DbAccess) FindProgramReg(site types.SiteId, regName string) (types.Id, bool, error) {
	if d.tracker != nil {
		for _, id := range d.tracker.PendingRegIds(site) {
			if name, ok := d.tracker.PendingRegName(id); ok && strings.EqualFold(name, regName) {
				return id, true, nil
			}
		}
	}
	return d.store.FindProgramReg(site, regName)
}

func (d *DbAccess) SetProgramReg(site types.SiteId, regName string, program types.Id) error {
	return d.store.SetProgramReg(site, regName, program)
}

func (d *DbAccess) DeleteProgramReg(site types.SiteId, regName string) error {
	return d.store.DeleteProgramReg(site, regName)
}

// NewSite enforces name uniqueness across the site-info cache before
// delegating to the backend.
func (d *DbAccess) NewSite(name, description string) (types.SiteId, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.siteNames {
		if strings.EqualFold(existing, name) {
			return 0, fmt.Errorf("dbaccess: %w: site name %q already in use", types.ErrBadName, name)
		}
	}
	id, err := d.store.NewSite(name, description)
	if err != nil {
		return 0, err
	}
	d.caches[id] = cache.NewSiteCache(id, d.store)
	d.siteNames[id] = name
	return id, nil
}

// BeginSiteDelete marks the site's cache delete-pending: no further
// entity can be pulled through from the backend for it. The Update
// Manager polls SiteDeleteReady and eventually calls FinishSiteDelete.
func (d *DbAccess) BeginSiteDelete(site types.SiteId) error {
	c, err := d.siteCache(site)
	if err != nil {
		return err
	}
	c.SetDeletePending()
	return nil
}

func (d *DbAccess) SiteDeleteReady(site types.SiteId) (bool, error) {
	c, err := d.siteCache(site)
	if err != nil {
		return false, err
	}
	return !c.IsAnythingReferenced(), nil
}

// FinishSiteDelete drops the in-memory cache and tells the backend to
// remove the site entirely.
func (d *DbAccess) FinishSiteDelete(site types.SiteId) error {
	d.mu.Lock()
	delete(d.caches, site)
	delete(d.siteNames, site)
	d.mu.Unlock()

	if err := d.store.DeleteSite(site); err != nil {
		return err
	}
	d.broker.Publish(events.Event{Type: events.EventSiteDeleted, Id: types.Id{Site: site}})
	return nil
}

func (d *DbAccess) GetSiteIds() []types.SiteId {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]types.SiteId, 0, len(d.caches))
	for id := range d.caches {
		out = append(out, id)
	}
	return out
}

func (d *DbAccess) GetSiteName(site types.SiteId) (string, error) {
	d.mu.RLock()
	name, ok := d.siteNames[site]
	d.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("dbaccess: %w: site %d", types.ErrBadSiteId, site)
	}
	return name, nil
}

func (d *DbAccess) GetSiteDescription(site types.SiteId) (string, error) {
	return d.store.GetSiteDescription(site)
}

// SetSiteName enforces the same name-uniqueness check as NewSite.
func (d *DbAccess) SetSiteName(site types.SiteId, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for other, existing := range d.siteNames {
		if other != site && strings.EqualFold(existing, name) {
			return fmt.Errorf("dbaccess: %w: site name %q already in use", types.ErrBadName, name)
		}
	}
	if err := d.store.SetSiteName(site, name); err != nil {
		return err
	}
	d.siteNames[site] = name
	return nil
}

func (d *DbAccess) SetSiteDescription(site types.SiteId, description string) error {
	return d.store.SetSiteDescription(site, description)
}

// OsTimeHasJumped forwards the signal to the Update Manager so
// time-keyed queues can reschedule. Stored as a callback rather than a
// second interface to keep wiring simple — updatemgr.NewManagerWithInterval
// sets it via SetTimeJumpHandler when it constructs the Manager.
func (d *DbAccess) OsTimeHasJumped(backwards bool) {
	if d.timeJumpFn != nil {
		d.timeJumpFn(backwards)
	}
}

// SetTimeJumpHandler registers the callback OsTimeHasJumped invokes.
func (d *DbAccess) SetTimeJumpHandler(fn func(backwards bool)) {
	d.timeJumpFn = fn
}

// Resolve satisfies pkg/permission.Resolver: a momentary read-only
// lookup that does not hand the caller a pinned EntityRef. Safe because
// permission evaluation only reads entity fields synchronously during
// one Decide call, never retains the pointer past it.
func (d *DbAccess) Resolve(id types.Id) (entity.Entity, bool) {
	ref, err := d.GetEntity(id)
	if err != nil {
		return nil, false
	}
	defer ref.Release()
	return ref.Entity, true
}

// --- pkg/metrics.SiteInventory ---

func (d *DbAccess) SiteIds() []types.SiteId {
	return d.GetSiteIds()
}

func (d *DbAccess) CountEntitiesByType(site types.SiteId) map[types.EntityType]int {
	c, err := d.siteCache(site)
	if err != nil {
		return nil
	}
	return c.CountByType()
}

func (d *DbAccess) CacheRefCount(site types.SiteId) int {
	c, err := d.siteCache(site)
	if err != nil {
		return 0
	}
	return c.TotalRefCount()
}

// --- consulted by pkg/updatemgr's periodic flush scan ---

func (d *DbAccess) DirtyEntities(site types.SiteId) []entity.Entity {
	c, err := d.siteCache(site)
	if err != nil {
		return nil
	}
	return c.DirtyEntities()
}
