package entity

import (
	"github.com/mutgos/mutgos/pkg/types"
)

// propertyBase is embedded by every PropertyEntity variant (Room,
// Region, Program): a PropertyDirectory plus the accessors that keep it
// behind the entity's own writer lock for mutation, reader lock for
// read-then-use sequences.
type propertyBase struct {
	properties *PropertyDirectory
}

func newPropertyBase() propertyBase {
	return propertyBase{properties: newPropertyDirectory()}
}

func (p *propertyBase) Properties() *PropertyDirectory {
	return p.properties
}

// SetProperty writes a property value. The dirty bit recorded is the
// generic FieldPropertiesApplication tag — the Update Manager re-saves
// the whole property directory blob on any property change, it does not
// track per-key deltas.
func (p *propertyBase) SetProperty(h *header, application, key string, owner types.Id, value any) {
	w := h.LockWrite()
	defer w.Release()
	p.properties.Set(application, key, owner, value)
	h.markDirtyLocked(types.FieldPropertiesApplication)
	h.touchLocked()
}

func (p *propertyBase) clonePropertyBase() propertyBase {
	return propertyBase{properties: p.properties.clone()}
}

// containerBase is embedded by every ContainerPropertyEntity variant
// (Region, Room): propertyBase plus containment bookkeeping.
type containerBase struct {
	propertyBase
	containedBy     types.Id
	linkedPrograms  idSet
	registrations   *RegistrationDirectory
}

func newContainerBase(containedBy types.Id) containerBase {
	return containerBase{
		propertyBase: newPropertyBase(),
		containedBy:  containedBy,
	}
}

func (c *containerBase) ContainedBy() types.Id {
	return c.containedBy
}

// SetContainedBy moves the entity into a new container. A no-op move
// (same container) succeeds without emitting reference deltas, matching
// spec §8 property 7 ("moving to current container is a no-op").
func (c *containerBase) SetContainedBy(h *header, newContainer types.Id) bool {
	if !newContainer.Valid() {
		return false
	}
	w := h.LockWrite()
	defer w.Release()
	if c.containedBy == newContainer {
		return true
	}
	old := c.containedBy
	c.containedBy = newContainer
	h.markDirtyLocked(types.FieldContainedBy)
	h.recordRefDeltaLocked(old, types.FieldContainedBy, -1)
	h.recordRefDeltaLocked(newContainer, types.FieldContainedBy, +1)
	h.touchLocked()
	return true
}

func (c *containerBase) LinkedPrograms() []types.Id {
	return c.linkedPrograms.snapshot()
}

func (c *containerBase) LinkProgram(h *header, program types.Id) bool {
	w := h.LockWrite()
	defer w.Release()
	if !c.linkedPrograms.add(program) {
		return false
	}
	h.markDirtyLocked(types.FieldLinkedPrograms)
	h.recordRefDeltaLocked(program, types.FieldLinkedPrograms, +1)
	h.touchLocked()
	return true
}

func (c *containerBase) UnlinkProgram(h *header, program types.Id) bool {
	w := h.LockWrite()
	defer w.Release()
	if !c.linkedPrograms.remove(program) {
		return false
	}
	h.markDirtyLocked(types.FieldLinkedPrograms)
	h.recordRefDeltaLocked(program, types.FieldLinkedPrograms, -1)
	h.touchLocked()
	return true
}

// Registrations returns the container's registration directory,
// creating it lazily (it is an Option<RegistrationDirectory> in spec
// §3.3 — absent until first use).
func (c *containerBase) Registrations() *RegistrationDirectory {
	if c.registrations == nil {
		c.registrations = newRegistrationDirectory()
	}
	return c.registrations
}

func (c *containerBase) cloneContainerBase() containerBase {
	out := containerBase{
		propertyBase: c.clonePropertyBase(),
		containedBy:  c.containedBy,
		linkedPrograms: c.linkedPrograms.clone(),
	}
	if c.registrations != nil {
		out.registrations = c.registrations.clone()
	}
	return out
}

// Region is an isolated area of rooms; its own ContainedBy typically
// points at a parent Region or is invalid for a top-level region.
type Region struct {
	header
	containerBase
}

func NewRegion(id, owner types.Id, name string, containedBy types.Id) *Region {
	return &Region{
		header:        newHeader(id, types.EntityTypeRegion, owner, name),
		containerBase: newContainerBase(containedBy),
	}
}

func (r *Region) Clone(newId types.Id, version, instance uint32) Entity {
	out := &Region{}
	r.cloneHeaderInto(&out.header, newId, version, instance)
	r.mu.RLock()
	out.containerBase = r.cloneContainerBase()
	r.mu.RUnlock()
	out.markDirtyLocked(types.FieldContainedBy)
	out.markDirtyLocked(types.FieldLinkedPrograms)
	out.markDirtyLocked(types.FieldPropertiesApplication)
	return out
}

// Room is the ordinary "place" entity players and things occupy.
type Room struct {
	header
	containerBase
}

func NewRoom(id, owner types.Id, name string, containedBy types.Id) *Room {
	return &Room{
		header:        newHeader(id, types.EntityTypeRoom, owner, name),
		containerBase: newContainerBase(containedBy),
	}
}

func (r *Room) Clone(newId types.Id, version, instance uint32) Entity {
	out := &Room{}
	r.cloneHeaderInto(&out.header, newId, version, instance)
	r.mu.RLock()
	out.containerBase = r.cloneContainerBase()
	r.mu.RUnlock()
	out.markDirtyLocked(types.FieldContainedBy)
	out.markDirtyLocked(types.FieldLinkedPrograms)
	out.markDirtyLocked(types.FieldPropertiesApplication)
	return out
}
