package dbaccess

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mutgos/mutgos/pkg/entity"
	"github.com/mutgos/mutgos/pkg/events"
	"github.com/mutgos/mutgos/pkg/storage"
	"github.com/mutgos/mutgos/pkg/types"
)

// memStore is a minimal in-memory storage.Store fake, enough to drive
// dbaccess's behavior without bbolt.
type memStore struct {
	mu       sync.Mutex
	nextSite types.SiteId
	nextId   map[types.SiteId]uint32
	entities map[types.Id]entity.Entity
	siteName map[types.SiteId]string
	siteDesc map[types.SiteId]string
	progReg  map[types.SiteId]map[string]types.Id
}

func newMemStore() *memStore {
	return &memStore{
		nextId:   make(map[types.SiteId]uint32),
		entities: make(map[types.Id]entity.Entity),
		siteName: make(map[types.SiteId]string),
		siteDesc: make(map[types.SiteId]string),
		progReg:  make(map[types.SiteId]map[string]types.Id),
	}
}

func (m *memStore) Init() error     { return nil }
func (m *memStore) Shutdown() error { return nil }

func (m *memStore) NewEntity(site types.SiteId, t types.EntityType, owner types.Id, name string, construct func(id types.Id) entity.Entity) (entity.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextId[site]++
	id := types.Id{Site: site, Entity: types.EntityId(m.nextId[site])}
	e := construct(id)
	m.entities[id] = e
	e.ClearDirty()
	return e, nil
}

func (m *memStore) GetEntity(id types.Id) (entity.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return e, nil
}

func (m *memStore) EntityExists(id types.Id) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entities[id]
	return ok, nil
}

func (m *memStore) GetEntityType(id types.Id) (types.EntityType, error) {
	e, err := m.GetEntity(id)
	if err != nil {
		return types.EntityTypeInvalid, err
	}
	return e.Type(), nil
}

func (m *memStore) GetEntityMetadata(id types.Id) (storage.EntityMetadata, error) {
	e, err := m.GetEntity(id)
	if err != nil {
		return storage.EntityMetadata{}, err
	}
	return storage.EntityMetadata{Id: e.Id(), Type: e.Type(), Name: e.Name()}, nil
}

func (m *memStore) SaveEntity(e entity.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[e.Id()] = e
	e.ClearDirty()
	return nil
}

func (m *memStore) DeleteEntity(id types.Id, inUse bool) error {
	if inUse {
		return types.ErrEntityInUse
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entities, id)
	return nil
}

func (m *memStore) Find(params storage.FindParams) ([]types.Id, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Id
	needle := strings.ToLower(params.Name)
	for id, e := range m.entities {
		if id.Site != params.Site {
			continue
		}
		if params.Type != types.EntityTypeInvalid && e.Type() != params.Type {
			continue
		}
		if params.Name != "" {
			name := strings.ToLower(e.Name())
			if params.Exact {
				if name != needle {
					continue
				}
			} else if !strings.Contains(name, needle) {
				continue
			}
		}
		out = append(out, id)
	}
	return out, nil
}

func (m *memStore) FindContainedBy(site types.SiteId, target types.Id) ([]types.Id, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	type hasContainedBy interface{ ContainedBy() types.Id }
	var out []types.Id
	for id, e := range m.entities {
		if id.Site != site {
			continue
		}
		if cb, ok := e.(hasContainedBy); ok && cb.ContainedBy() == target {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *memStore) FindProgramReg(site types.SiteId, regName string) (types.Id, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.progReg[site]
	if !ok {
		return types.Id{}, false, nil
	}
	id, ok := reg[regName]
	return id, ok, nil
}

func (m *memStore) SetProgramReg(site types.SiteId, regName string, program types.Id) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.progReg[site] == nil {
		m.progReg[site] = make(map[string]types.Id)
	}
	m.progReg[site][regName] = program
	return nil
}

func (m *memStore) DeleteProgramReg(site types.SiteId, regName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.progReg[site], regName)
	return nil
}

func (m *memStore) NewSite(name, description string) (types.SiteId, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSite++
	id := m.nextSite
	m.siteName[id] = name
	m.siteDesc[id] = description
	return id, nil
}

func (m *memStore) DeleteSite(site types.SiteId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.siteName, site)
	delete(m.siteDesc, site)
	return nil
}

func (m *memStore) GetSiteIds() ([]types.SiteId, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.SiteId
	for id := range m.siteName {
		out = append(out, id)
	}
	return out, nil
}

func (m *memStore) GetSiteName(site types.SiteId) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.siteName[site], nil
}

func (m *memStore) GetSiteDescription(site types.SiteId) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.siteDesc[site], nil
}

func (m *memStore) SetSiteName(site types.SiteId, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.siteName[site] = name
	return nil
}

func (m *memStore) SetSiteDescription(site types.SiteId, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.siteDesc[site] = description
	return nil
}

func newTestDbAccess(t *testing.T) (*DbAccess, *memStore, types.SiteId) {
	t.Helper()
	store := newMemStore()
	broker := events.NewBroker()
	d := New(store, broker, zerolog.Nop())
	site, err := d.NewSite("testrealm", "a test realm")
	if err != nil {
		t.Fatalf("NewSite() error = %v", err)
	}
	if err := d.Startup(); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}
	t.Cleanup(func() { _ = d.Shutdown() })
	return d, store, site
}

func TestCreateAndGetEntity(t *testing.T) {
	d, _, site := newTestDbAccess(t)
	owner := types.Id{Site: site, Entity: 1}

	ref, err := d.CreateEntity(site, types.EntityTypeThing, owner, "rock", func(id types.Id) entity.Entity {
		return entity.NewThing(id, owner, "rock", owner)
	})
	if err != nil {
		t.Fatalf("CreateEntity() error = %v", err)
	}
	defer ref.Release()

	got, err := d.GetEntity(ref.Entity.Id())
	if err != nil {
		t.Fatalf("GetEntity() error = %v", err)
	}
	defer got.Release()

	if got.Entity != ref.Entity {
		t.Error("expected the same Entity instance from GetEntity as CreateEntity returned")
	}
}

func TestDeleteEntity_CascadesThroughContainment(t *testing.T) {
	d, _, site := newTestDbAccess(t)
	owner := types.Id{Site: site, Entity: 1}

	parentRef, err := d.CreateEntity(site, types.EntityTypeRoom, owner, "hall", func(id types.Id) entity.Entity {
		return entity.NewRoom(id, owner, "hall", owner)
	})
	if err != nil {
		t.Fatalf("CreateEntity(parent) error = %v", err)
	}
	parentId := parentRef.Entity.Id()
	parentRef.Release()

	childRef, err := d.CreateEntity(site, types.EntityTypeRoom, owner, "closet", func(id types.Id) entity.Entity {
		return entity.NewRoom(id, owner, "closet", parentId)
	})
	if err != nil {
		t.Fatalf("CreateEntity(child) error = %v", err)
	}
	childId := childRef.Entity.Id()
	childRef.Release()

	if err := d.DeleteEntity(parentId); err != nil {
		t.Fatalf("DeleteEntity() error = %v", err)
	}

	if _, err := d.GetEntity(parentId); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected parent gone, got err=%v", err)
	}
	if _, err := d.GetEntity(childId); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected child cascaded away, got err=%v", err)
	}
}

func TestDeleteEntity_DelayedWhenReferenced(t *testing.T) {
	d, _, site := newTestDbAccess(t)
	owner := types.Id{Site: site, Entity: 1}

	ref, err := d.CreateEntity(site, types.EntityTypeThing, owner, "rock", func(id types.Id) entity.Entity {
		return entity.NewThing(id, owner, "rock", owner)
	})
	if err != nil {
		t.Fatalf("CreateEntity() error = %v", err)
	}
	// Hold a second reference so the cache can't evict on delete.
	pinned, err := d.GetEntity(ref.Entity.Id())
	if err != nil {
		t.Fatalf("GetEntity() error = %v", err)
	}
	ref.Release()

	if err := d.DeleteEntity(pinned.Entity.Id()); !errors.Is(err, types.ErrOkDelayed) {
		t.Errorf("expected ErrOkDelayed, got %v", err)
	}
	if !pinned.Entity.Deleted() {
		t.Error("expected entity marked deleted even though still referenced")
	}

	pinned.Release()
	if err := d.RetryDeleteEntity(pinned.Entity.Id()); err != nil {
		t.Errorf("RetryDeleteEntity() after release, error = %v", err)
	}
}

func TestNewSite_RejectsDuplicateName(t *testing.T) {
	d, _, _ := newTestDbAccess(t)
	if _, err := d.NewSite("testrealm", "dup"); !errors.Is(err, types.ErrBadName) {
		t.Errorf("expected ErrBadName, got %v", err)
	}
}

type fakeTracker struct {
	playerNames map[types.Id]string
}

func (f *fakeTracker) PendingPlayerName(id types.Id) (string, bool) {
	name, ok := f.playerNames[id]
	return name, ok
}

func (f *fakeTracker) PendingPlayerIds(site types.SiteId) []types.Id {
	var out []types.Id
	for id := range f.playerNames {
		if id.Site == site {
			out = append(out, id)
		}
	}
	return out
}

func (f *fakeTracker) PendingRegName(types.Id) (string, bool) { return "", false }
func (f *fakeTracker) PendingRegIds(types.SiteId) []types.Id  { return nil }

func TestFind_ReconcilesPendingPlayerRename(t *testing.T) {
	d, _, site := newTestDbAccess(t)
	owner := types.Id{Site: site, Entity: 1}

	ref, err := d.CreateEntity(site, types.EntityTypePlayer, owner, "oldname", func(id types.Id) entity.Entity {
		return entity.NewPlayer(id, owner, "oldname", owner)
	})
	if err != nil {
		t.Fatalf("CreateEntity() error = %v", err)
	}
	playerId := ref.Entity.Id()
	ref.Release()

	tracker := &fakeTracker{playerNames: map[types.Id]string{playerId: "newname"}}
	d.SetRenameTracker(tracker)

	// Backend still has "oldname": a search for "newname" should find it
	// via the tracker; a search for "oldname" should no longer.
	ids, err := d.Find(storage.FindParams{Site: site, Type: types.EntityTypePlayer, Name: "newname", Exact: true})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != playerId {
		t.Errorf("Find(newname) = %v, want [%v]", ids, playerId)
	}

	ids, err = d.Find(storage.FindParams{Site: site, Type: types.EntityTypePlayer, Name: "oldname", Exact: true})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Find(oldname) = %v, want none", ids)
	}
}
