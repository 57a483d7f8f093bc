package storage

import (
	"github.com/mutgos/mutgos/pkg/entity"
	"github.com/mutgos/mutgos/pkg/types"
)

// EntityMetadata is the summary get_entity_metadata returns: id, type
// and name. BoltStore builds it by decoding the full entity blob.
type EntityMetadata struct {
	Id   types.Id
	Type types.EntityType
	Name string
}

// FindParams is the closed set of parameter combinations find() accepts
// (spec §4.B).
type FindParams struct {
	Site  types.SiteId
	Type  types.EntityType // EntityTypeInvalid means "any"
	Owner types.Id         // InvalidId means "any"
	Name  string           // empty means "any"
	Exact bool
}

// Store is the Storage Backend contract. The core invokes only this
// surface; pkg/cache and pkg/dbaccess are the only callers.
type Store interface {
	Init() error
	Shutdown() error

	// NewEntity allocates an id (recycled pool first, then next_id),
	// persists the entity with that id, and returns it.
	NewEntity(site types.SiteId, t types.EntityType, owner types.Id, name string, construct func(id types.Id) entity.Entity) (entity.Entity, error)

	GetEntity(id types.Id) (entity.Entity, error)
	EntityExists(id types.Id) (bool, error)
	GetEntityType(id types.Id) (types.EntityType, error)
	GetEntityMetadata(id types.Id) (EntityMetadata, error)

	// SaveEntity overwrites the stored record with e's current
	// serialization and clears e's dirty state.
	SaveEntity(e entity.Entity) error

	// DeleteEntity removes the record and recycles its id. Refuses with
	// ErrEntityInUse if inUse reports the entity is still cache-pinned.
	DeleteEntity(id types.Id, inUse bool) error

	Find(params FindParams) ([]types.Id, error)

	// FindContainedBy returns every entity in site whose ContainedBy()
	// equals target — Regions/Rooms nested under it and Commands/Exits
	// attached to it. pkg/dbaccess walks this to cascade a delete.
	FindContainedBy(site types.SiteId, target types.Id) ([]types.Id, error)

	FindProgramReg(site types.SiteId, regName string) (types.Id, bool, error)
	SetProgramReg(site types.SiteId, regName string, program types.Id) error
	DeleteProgramReg(site types.SiteId, regName string) error

	NewSite(name, description string) (types.SiteId, error)
	DeleteSite(site types.SiteId) error
	GetSiteIds() ([]types.SiteId, error)
	GetSiteName(site types.SiteId) (string, error)
	GetSiteDescription(site types.SiteId) (string, error)
	SetSiteName(site types.SiteId, name string) error
	SetSiteDescription(site types.SiteId, description string) error
}
