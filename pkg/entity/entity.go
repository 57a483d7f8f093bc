package entity

import (
	"sort"

	"github.com/mutgos/mutgos/pkg/types"
)

// Entity is the common surface every variant satisfies. Variant-specific
// fields are reached by type-switching on the concrete struct (Group,
// Player, Room, ...), matching the closed EntityType set — there is no
// runtime polymorphism beyond this interface.
type Entity interface {
	Id() types.Id
	Type() types.EntityType
	Version() uint32
	Instance() uint32

	Owner() types.Id
	SetOwner(types.Id) bool

	Name() string
	SetName(string) bool

	Security() types.Security
	SetSecurity(types.Security) bool

	CreatedAt() types.TimeStamp
	LastUpdatedAt() types.TimeStamp

	Deleted() bool
	SetDeleted(bool)

	Dirty() []types.EntityField
	IsDirty() bool
	ClearDirty()
	TakeReferenceDeltas() []RefDelta

	LockWrite() *WriterLockToken
	LockRead() *ReaderLockToken

	// Clone produces a new entity of the same variant with a new id,
	// the given version/instance, and all fields deep-copied and marked
	// dirty so the first flush re-persists them.
	Clone(newId types.Id, version, instance uint32) Entity
}

// DefaultNameLimit is not read anywhere in this module: SetName checks
// names against EntityNameLimit (limits.go), which SetLimits sets from
// pkg/config's db.limits.entity_name knob.
var DefaultNameLimit = 255

// MultiLockTarget pairs an entity with the lock mode a multi-lock
// acquisition wants for it.
type MultiLockTarget struct {
	Entity Entity
	Write  bool
}

// MultiLockHandle is returned by MultiLock; ReleaseAll releases every
// writer token, then every reader token, each group in reverse order of
// acquisition.
type MultiLockHandle struct {
	writers []*WriterLockToken
	readers []*ReaderLockToken
}

// ReleaseAll releases every lock acquired by MultiLock.
func (m *MultiLockHandle) ReleaseAll() {
	for i := len(m.writers) - 1; i >= 0; i-- {
		m.writers[i].Release()
	}
	for i := len(m.readers) - 1; i >= 0; i-- {
		m.readers[i].Release()
	}
}

// MultiLock acquires a fixed set of entity locks atomically, sorting by
// Id first so two callers racing over overlapping sets always acquire
// in the same global order — eliminating the lock-order inversion the
// original's ad hoc MultiLock construction was prone to.
//
// Acquisition is not truly atomic (Go has no multi-mutex TryLock-all
// primitive that blocks); instead it acquires in sorted order and, since
// every caller sorts the same way, two overlapping sets can only block
// each other, never deadlock on each other.
func MultiLock(targets []MultiLockTarget) *MultiLockHandle {
	sorted := append([]MultiLockTarget(nil), targets...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Entity.Id().Less(sorted[j].Entity.Id())
	})

	h := &MultiLockHandle{}
	for _, t := range sorted {
		if t.Write {
			h.writers = append(h.writers, t.Entity.LockWrite())
		} else {
			h.readers = append(h.readers, t.Entity.LockRead())
		}
	}
	return h
}
