package permission

import (
	"github.com/mutgos/mutgos/pkg/types"
)

// hasContainedBy is satisfied by Region/Room (containerBase) and
// Command/Exit (actionBase) — mirrors the interface pkg/storage uses
// for the reverse-containment scan. Only these variants carry a true
// containment relationship in this entity model.
type hasContainedBy interface {
	ContainedBy() types.Id
}

// hasHome is satisfied by Player/Guest and Thing (and its Puppet/Vehicle
// variants). This distilled entity model has no persisted "current
// room" for movable entities — movement is left to the soft-code
// interpreter this core does not own, the same scope line
// pkg/entity/property.go draws for property trees — so Home stands in
// for "where the requester currently is" when computing locality.
// Because a Thing's Home is where it returns to rather than a live
// container, inventory containment (spec's "requester's inventory"
// clause) is not checkable against this model and never contributes a
// true result; includeInventory is kept in IsLocal's signature to match
// the spec's parameter shape for when item containment is added.
type hasHome interface {
	Home() types.Id
}

// requesterRoom resolves the requester's own room via ContainedBy (if
// the requester is itself somehow a container) or, the common case,
// Home.
func requesterRoom(r Resolver, requester types.Id) (types.Id, bool) {
	e, ok := r.Resolve(requester)
	if !ok {
		return types.Id{}, false
	}
	if cb, ok := e.(hasContainedBy); ok {
		return cb.ContainedBy(), true
	}
	if h, ok := e.(hasHome); ok {
		return h.Home(), true
	}
	return types.Id{}, false
}

// containerOf resolves target's own ContainedBy for Region/Room
// targets. Command/Exit also carry ContainedBy but must go through
// actionContainer instead, since only that path applies §4.F's
// attached-to-another-player restriction — callers dispatch on
// target's type before calling this (see resolveContainer).
func containerOf(r Resolver, target types.Id) (types.Id, bool) {
	e, ok := r.Resolve(target)
	if !ok {
		return types.Id{}, false
	}
	cb, ok := e.(hasContainedBy)
	if !ok {
		return types.Id{}, false
	}
	return cb.ContainedBy(), true
}

// resolveContainer dispatches target to actionContainer when it is a
// Command/Exit (so the player-attachment restriction actually runs)
// and to containerOf otherwise. Resolving target's type up front is
// required because containerBase (Region/Room) and actionBase
// (Command/Exit) both implement hasContainedBy, so a plain type
// assertion can't tell them apart.
func resolveContainer(ctx Context, r Resolver, target types.Id) (types.Id, bool) {
	e, ok := r.Resolve(target)
	if !ok {
		return types.Id{}, false
	}
	switch e.Type() {
	case types.EntityTypeCommand, types.EntityTypeExit:
		return actionContainer(ctx, r, target)
	default:
		return containerOf(r, target)
	}
}

// actionContainer resolves target to the entity its action is attached
// to when target is a Command/Exit, applying §4.F's restriction that an
// action attached to another player/puppet/guest is never local unless
// the requester IS that player. Returns ok=false when target is not an
// action or the restriction blocks it.
func actionContainer(ctx Context, r Resolver, target types.Id) (types.Id, bool) {
	e, ok := r.Resolve(target)
	if !ok {
		return types.Id{}, false
	}
	action, ok := e.(hasContainedBy)
	if !ok {
		return types.Id{}, false
	}
	containerId := action.ContainedBy()
	container, ok := r.Resolve(containerId)
	if !ok {
		return types.Id{}, false
	}
	switch container.Type() {
	case types.EntityTypePlayer, types.EntityTypePuppet, types.EntityTypeGuest:
		if ctx.Requester != containerId {
			return types.Id{}, false
		}
	}
	return containerId, true
}

// IsLocal reports whether target is "local" to the requester (spec
// §4.F): the requester's own room (or an action attached to it),
// something in the same room, or something inside a Region ancestor of
// the requester's room. Actions attached to a different
// player/puppet/guest are never local. See hasHome's doc for why the
// inventory clause is currently a documented no-op.
func IsLocal(ctx Context, target types.Id, includeInventory bool, r Resolver) bool {
	_ = includeInventory // reserved: see hasHome doc

	sourceRoom, ok := requesterRoom(r, ctx.Requester)
	if !ok {
		return false
	}

	if target == sourceRoom {
		return true
	}

	targetRoom, ok := resolveContainer(ctx, r, target)
	if !ok {
		return false
	}

	// targetRoom == ctx.Requester covers a Command/Exit attached
	// directly to the requester's own entity (§4.F's exception to the
	// attached-to-another-player restriction) rather than to a room.
	if targetRoom == sourceRoom || targetRoom == ctx.Requester {
		return true
	}

	// Walk Region ancestry above the requester's room looking for target.
	cur := sourceRoom
	for {
		if cur == target {
			return true
		}
		parent, ok := containerOf(r, cur)
		if !ok || !parent.Valid() || parent == cur {
			return false
		}
		cur = parent
	}
}
