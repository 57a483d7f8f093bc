package entity

import (
	"github.com/mutgos/mutgos/pkg/types"
)

// Thing is an ordinary object: it has a home location it returns to and
// an optional lock gating who may pick it up or use it.
type Thing struct {
	header
	home types.Id
	lock types.Lock
}

func NewThing(id, owner types.Id, name string, home types.Id) *Thing {
	return &Thing{
		header: newHeader(id, types.EntityTypeThing, owner, name),
		home:   home,
	}
}

func (t *Thing) Home() types.Id {
	h := t.LockRead()
	defer h.Release()
	return t.home
}

func (t *Thing) SetHome(newHome types.Id) bool {
	if !newHome.Valid() {
		return false
	}
	w := t.LockWrite()
	defer w.Release()
	if t.home == newHome {
		return true
	}
	old := t.home
	t.home = newHome
	t.markDirtyLocked(types.FieldThingHome)
	t.recordRefDeltaLocked(old, types.FieldThingHome, -1)
	t.recordRefDeltaLocked(newHome, types.FieldThingHome, +1)
	t.touchLocked()
	return true
}

func (t *Thing) Lock() types.Lock {
	h := t.LockRead()
	defer h.Release()
	return t.lock
}

func (t *Thing) SetLock(l types.Lock) bool {
	w := t.LockWrite()
	defer w.Release()
	t.lock = l
	t.markDirtyLocked(types.FieldThingLock)
	t.touchLocked()
	return true
}

func (t *Thing) cloneThingFields() (home types.Id, lock types.Lock) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.home, t.lock
}

func (t *Thing) Clone(newId types.Id, version, instance uint32) Entity {
	home, lock := t.cloneThingFields()
	out := &Thing{}
	t.cloneHeaderInto(&out.header, newId, version, instance)
	out.home = home
	out.lock = lock
	out.markDirtyLocked(types.FieldThingHome)
	out.markDirtyLocked(types.FieldThingLock)
	return out
}
