/*
Package entity implements the tagged entity object graph: the shared
header every variant carries, the per-variant extra fields, per-entity
reader/writer locking, per-field dirty tracking, and reference-delta
emission.

# Architecture

Every entity is a header (id, type, owner, name, security, timestamps,
deleted flag) plus variant-specific fields. The variant tag is fixed at
construction; there is no dynamic_cast-style polymorphism — callers that
need variant fields type-switch on the concrete struct, matching the
closed EntityType set in pkg/types.

	┌────────────────────────────────────────────────────────┐
	│                      Entity                             │
	│  ┌────────────────────────────────────────────────┐    │
	│  │ header (embedded)                               │    │
	│  │   id, type, version, instance, owner, name,     │    │
	│  │   security, createdAt, lastUpdatedAt, deleted    │    │
	│  │   sync.RWMutex + dirty bitset + ref deltas       │    │
	│  └────────────────────────────────────────────────┘    │
	│  variant-specific fields (Group.members, Player.home…) │
	└────────────────────────────────────────────────────────┘

Every setter acquires the header's writer lock, mutates the field,
flips its dirty bit, records a reference delta if the field holds an Id,
stamps lastUpdatedAt, and releases — all before returning. Getters take
the reader lock across the whole read.

# Locking

LockWrite/LockRead return a token that must be released exactly once;
Release panics on double-release, and a writer token's Release also
panics if its acquisition was superseded (tracked via a per-entity
generation counter that only LockWrite advances).
True same-goroutine reentrancy is not detected — Go has no portable way
to read goroutine identity — and instead deadlocks the way a bare
sync.RWMutex would; that is a documented property of the token, not an
oversight.

MultiLock sorts the requested ids (types.Id.Less) before acquiring so
two callers racing to lock the same set of entities always take them in
the same order, eliminating lock-order inversion by construction.
*/
package entity
