package entity

import (
	"sync"
	"time"

	"github.com/mutgos/mutgos/pkg/types"
)

// RefDelta is an append-only record of a reference-field change,
// consumed by the Update Manager to fold into the inbound-reference
// index: (target, field, +1) when the field started pointing at target,
// (target, field, -1) when it stopped.
type RefDelta struct {
	Target types.Id
	Field  types.EntityField
	Delta  int8
}

// header is embedded by every entity variant. It is never constructed
// directly by callers outside this package.
type header struct {
	mu sync.RWMutex
	// generation increments on every LockWrite acquisition so a writer
	// token can detect release-after-supersede; LockRead leaves it as is.
	generation uint64

	id            types.Id
	entityType    types.EntityType
	version       uint32
	instance      uint32
	owner         types.Id
	name          string
	security      types.Security
	createdAt     types.TimeStamp
	lastUpdatedAt types.TimeStamp
	deletedFlag   bool

	dirty      map[types.EntityField]bool
	refDeltas  []RefDelta
}

func newHeader(id types.Id, t types.EntityType, owner types.Id, name string) header {
	now := time.Now()
	return header{
		id:            id,
		entityType:    t,
		version:       1,
		instance:      1,
		owner:         owner,
		name:          name,
		createdAt:     now,
		lastUpdatedAt: now,
		dirty:         make(map[types.EntityField]bool),
	}
}

// WriterLockToken is returned by LockWrite. Release must be called
// exactly once.
type WriterLockToken struct {
	h          *header
	generation uint64
	released   bool
}

// Release unlocks the writer lock. Panics if called twice, or if the
// token's acquisition has since been superseded (which cannot happen
// under correct use, but guards against token misuse/double-free bugs).
func (t *WriterLockToken) Release() {
	if t.released {
		panic("entity: WriterLockToken released twice")
	}
	if t.generation != t.h.generation {
		panic("entity: WriterLockToken released after its acquisition was superseded")
	}
	t.released = true
	t.h.mu.Unlock()
}

// ReaderLockToken is returned by LockRead. Release must be called
// exactly once.
type ReaderLockToken struct {
	h        *header
	released bool
}

func (t *ReaderLockToken) Release() {
	if t.released {
		panic("entity: ReaderLockToken released twice")
	}
	t.released = true
	t.h.mu.RUnlock()
}

// LockWrite acquires the exclusive writer lock and returns a token. It
// blocks if any reader or writer already holds the lock, and deadlocks
// on same-goroutine reentry (see package doc).
func (h *header) LockWrite() *WriterLockToken {
	h.mu.Lock()
	h.generation++
	return &WriterLockToken{h: h, generation: h.generation}
}

// LockRead acquires a shared reader lock.
func (h *header) LockRead() *ReaderLockToken {
	h.mu.RLock()
	return &ReaderLockToken{h: h}
}

// --- header-level getters/setters, called under an already-held lock or
// acquiring their own for single-field access. ---

func (h *header) Id() types.Id                { return h.id }
func (h *header) Type() types.EntityType      { return h.entityType }
func (h *header) Version() uint32             { h.mu.RLock(); defer h.mu.RUnlock(); return h.version }
func (h *header) Instance() uint32            { h.mu.RLock(); defer h.mu.RUnlock(); return h.instance }

func (h *header) Owner() types.Id {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.owner
}

// SetOwner updates the owner field. Callers are responsible for running
// this past the security evaluator first; the header enforces only that
// the new owner is a valid (non-zero) id.
func (h *header) SetOwner(newOwner types.Id) bool {
	if !newOwner.Valid() {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	old := h.owner
	if old == newOwner {
		return true
	}
	h.owner = newOwner
	h.markDirtyLocked(types.FieldOwner)
	h.recordRefDeltaLocked(old, types.FieldOwner, -1)
	h.recordRefDeltaLocked(newOwner, types.FieldOwner, +1)
	h.touchLocked()
	return true
}

func (h *header) Name() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.name
}

// SetName normalizes and validates before mutating; on failure the
// prior name is preserved and false is returned. Uses the package-wide
// EntityNameLimit (set once at startup from pkg/config's
// db.limits.entity_name).
func (h *header) SetName(raw string) bool {
	normalized, err := types.NormalizeName(raw, EntityNameLimit)
	if err != nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.name == normalized {
		return true
	}
	h.name = normalized
	h.markDirtyLocked(types.FieldName)
	h.touchLocked()
	return true
}

func (h *header) Security() types.Security {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.security.Clone()
}

func (h *header) SetSecurity(s types.Security) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.security = s.Clone()
	h.markDirtyLocked(types.FieldSecurity)
	h.touchLocked()
	return true
}

func (h *header) CreatedAt() types.TimeStamp {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.createdAt
}

func (h *header) LastUpdatedAt() types.TimeStamp {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastUpdatedAt
}

func (h *header) Deleted() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.deletedFlag
}

// SetDeleted flips the pending-delete flag. It never fails.
func (h *header) SetDeleted(deleted bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.deletedFlag == deleted {
		return
	}
	h.deletedFlag = deleted
	h.markDirtyLocked(types.FieldDeletedFlag)
	h.touchLocked()
}

// Dirty returns the set of dirty field tags. Safe to call concurrently
// with setters; the Update Manager calls this right before Flush.
func (h *header) Dirty() []types.EntityField {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]types.EntityField, 0, len(h.dirty))
	for f := range h.dirty {
		out = append(out, f)
	}
	return out
}

func (h *header) IsDirty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.dirty) > 0
}

// ClearDirty resets the dirty set, called by the Update Manager after a
// successful backend save.
func (h *header) ClearDirty() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dirty = make(map[types.EntityField]bool)
}

// TakeReferenceDeltas drains and returns the accumulated reference
// deltas. Idempotent folding into the inbound-reference index is the
// Update Manager's job; this just hands over the append-only log.
func (h *header) TakeReferenceDeltas() []RefDelta {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.refDeltas
	h.refDeltas = nil
	return out
}

// --- internal helpers; caller must already hold h.mu for writing ---

func (h *header) markDirtyLocked(f types.EntityField) {
	if h.dirty == nil {
		h.dirty = make(map[types.EntityField]bool)
	}
	h.dirty[f] = true
}

func (h *header) recordRefDeltaLocked(target types.Id, f types.EntityField, delta int8) {
	if !target.Valid() {
		return
	}
	h.refDeltas = append(h.refDeltas, RefDelta{Target: target, Field: f, Delta: delta})
}

func (h *header) touchLocked() {
	h.lastUpdatedAt = time.Now()
}

func (h *header) cloneHeaderInto(dst *header, newId types.Id, version, instance uint32) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	now := time.Now()
	dst.id = newId
	dst.entityType = h.entityType
	dst.version = version
	dst.instance = instance
	dst.owner = h.owner
	dst.name = h.name
	dst.security = h.security.Clone()
	dst.createdAt = now
	dst.lastUpdatedAt = now
	dst.deletedFlag = false
	dst.dirty = map[types.EntityField]bool{
		types.FieldName:     true,
		types.FieldOwner:     true,
		types.FieldSecurity:  true,
	}
}
