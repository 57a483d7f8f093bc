package entity

import (
	"sort"

	"github.com/mutgos/mutgos/pkg/types"
)

// idSet is a small sorted-set-of-Id helper shared by Group/Capability
// (members, disabled) and ActionEntity (targets).
type idSet struct {
	ids []types.Id
}

func (s *idSet) has(id types.Id) bool {
	i := sort.Search(len(s.ids), func(i int) bool { return !s.ids[i].Less(id) })
	return i < len(s.ids) && s.ids[i] == id
}

func (s *idSet) add(id types.Id) bool {
	i := sort.Search(len(s.ids), func(i int) bool { return !s.ids[i].Less(id) })
	if i < len(s.ids) && s.ids[i] == id {
		return false
	}
	s.ids = append(s.ids, types.Id{})
	copy(s.ids[i+1:], s.ids[i:])
	s.ids[i] = id
	return true
}

func (s *idSet) remove(id types.Id) bool {
	i := sort.Search(len(s.ids), func(i int) bool { return !s.ids[i].Less(id) })
	if i >= len(s.ids) || s.ids[i] != id {
		return false
	}
	s.ids = append(s.ids[:i], s.ids[i+1:]...)
	return true
}

func (s *idSet) snapshot() []types.Id {
	return append([]types.Id(nil), s.ids...)
}

func (s *idSet) clone() idSet {
	return idSet{ids: append([]types.Id(nil), s.ids...)}
}

// Group is a named collection of members with a disabled subset, used
// directly for ordinary groups and, via Capability, for per-site unique
// capability names consulted by the security evaluator.
type Group struct {
	header
	members  idSet
	disabled idSet
}

// NewGroup constructs a Group header in memory; callers obtain the id
// from the storage backend first (pkg/dbaccess does this).
func NewGroup(id types.Id, owner types.Id, name string) *Group {
	return &Group{header: newHeader(id, types.EntityTypeGroup, owner, name)}
}

// Members returns a snapshot of the member set.
func (g *Group) Members() []types.Id {
	h := g.LockRead()
	defer h.Release()
	return g.members.snapshot()
}

// AddMember adds id to the member set if not already present.
func (g *Group) AddMember(id types.Id) bool {
	if !id.Valid() {
		return false
	}
	w := g.LockWrite()
	defer w.Release()
	if !g.members.add(id) {
		return false
	}
	g.markDirtyLocked(types.FieldGroupMembers)
	g.recordRefDeltaLocked(id, types.FieldGroupMembers, +1)
	g.touchLocked()
	return true
}

// RemoveMember removes id from both the member and disabled sets.
func (g *Group) RemoveMember(id types.Id) bool {
	w := g.LockWrite()
	defer w.Release()
	removed := g.members.remove(id)
	g.disabled.remove(id)
	if removed {
		g.markDirtyLocked(types.FieldGroupMembers)
		g.recordRefDeltaLocked(id, types.FieldGroupMembers, -1)
		g.touchLocked()
	}
	return removed
}

// Disabled returns a snapshot of the disabled subset.
func (g *Group) Disabled() []types.Id {
	h := g.LockRead()
	defer h.Release()
	return g.disabled.snapshot()
}

// SetDisabled marks id disabled within the group; it must already be a
// member, per §3.3's "disabled ⊆ members" invariant.
func (g *Group) SetDisabled(id types.Id, disabled bool) bool {
	w := g.LockWrite()
	defer w.Release()
	if !g.members.has(id) {
		return false
	}
	changed := false
	if disabled {
		changed = g.disabled.add(id)
	} else {
		changed = g.disabled.remove(id)
	}
	if changed {
		g.markDirtyLocked(types.FieldGroupDisabled)
		g.touchLocked()
	}
	return true
}

// IsActiveMember reports membership that is not disabled — the form the
// security evaluator actually consults.
func (g *Group) IsActiveMember(id types.Id) bool {
	h := g.LockRead()
	defer h.Release()
	return g.members.has(id) && !g.disabled.has(id)
}

func (g *Group) Clone(newId types.Id, version, instance uint32) Entity {
	g.mu.RLock()
	membersCopy := g.members.clone()
	disabledCopy := g.disabled.clone()
	g.mu.RUnlock()

	out := &Group{}
	g.cloneHeaderInto(&out.header, newId, version, instance)
	out.members = membersCopy
	out.disabled = disabledCopy
	out.markDirtyLocked(types.FieldGroupMembers)
	out.markDirtyLocked(types.FieldGroupDisabled)
	return out
}

// Capability is a Group whose Name is unique within its site (enforced
// by pkg/dbaccess at creation/rename time, not by this type) and which
// the security evaluator consults directly alongside plain Groups.
type Capability struct {
	Group
}

func NewCapability(id types.Id, owner types.Id, name string) *Capability {
	c := &Capability{}
	c.header = newHeader(id, types.EntityTypeCapability, owner, name)
	return c
}

func (c *Capability) Clone(newId types.Id, version, instance uint32) Entity {
	cloned := c.Group.Clone(newId, version, instance).(*Group)
	return &Capability{Group: *cloned}
}
