package permission

import (
	"testing"

	"github.com/mutgos/mutgos/pkg/entity"
	"github.com/mutgos/mutgos/pkg/types"
)

type fakeResolver struct {
	entities map[types.Id]entity.Entity
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{entities: make(map[types.Id]entity.Entity)}
}

func (f *fakeResolver) add(e entity.Entity) {
	f.entities[e.Id()] = e
}

func (f *fakeResolver) Resolve(id types.Id) (entity.Entity, bool) {
	e, ok := f.entities[id]
	return e, ok
}

const site types.SiteId = 1

func id(n uint32) types.Id {
	return types.Id{Site: site, Entity: types.EntityId(n)}
}

func TestDecide_OwnerAlwaysAllowed(t *testing.T) {
	r := newFakeResolver()
	owner := id(1)
	thing := entity.NewThing(id(2), owner, "rock", owner)

	ctx := Context{Requester: owner, RunAsRequester: true}
	allow, violation := DecideTarget(ctx, types.FlagWrite, thing, r)
	if !allow || violation != nil {
		t.Fatalf("owner should always be allowed, got allow=%v violation=%v", allow, violation)
	}
}

func TestDecide_OtherFlagGrantsEveryone(t *testing.T) {
	r := newFakeResolver()
	owner := id(1)
	stranger := id(99)
	thing := entity.NewThing(id(2), owner, "rock", owner)
	sec := thing.Security()
	sec.OtherFlags = sec.OtherFlags.With(types.FlagRead)
	thing.SetSecurity(sec)

	ctx := Context{Requester: stranger, RunAsRequester: true}
	allow, _ := DecideTarget(ctx, types.FlagRead, thing, r)
	if !allow {
		t.Error("expected other_flags[read] to allow a stranger")
	}

	allow, violation := DecideTarget(ctx, types.FlagWrite, thing, r)
	if allow || violation == nil {
		t.Errorf("expected write denied for a stranger with no write grant, allow=%v", allow)
	}
}

func TestDecide_BasicFlagShortCircuits(t *testing.T) {
	r := newFakeResolver()
	owner := id(1)
	stranger := id(99)
	thing := entity.NewThing(id(2), owner, "rock", owner)
	sec := thing.Security()
	sec.OtherFlags = sec.OtherFlags.With(types.FlagBasic)
	thing.SetSecurity(sec)

	ctx := Context{Requester: stranger, RunAsRequester: true}
	allow, _ := DecideTarget(ctx, types.FlagChown, thing, r)
	if !allow {
		t.Error("expected basic flag to short-circuit and allow any operation")
	}
}

func TestDecide_AdminGroupMembershipOneLevel(t *testing.T) {
	r := newFakeResolver()
	owner := id(1)
	admin := id(2)
	group := entity.NewGroup(id(3), owner, "admins")
	group.AddMember(admin)
	r.add(group)

	thing := entity.NewThing(id(4), owner, "rock", owner)
	sec := thing.Security()
	sec.AdminIds = []types.Id{group.Id()}
	thing.SetSecurity(sec)

	ctx := Context{Requester: admin, RunAsRequester: true}
	allow, _ := DecideTarget(ctx, types.FlagWrite, thing, r)
	if !allow {
		t.Error("expected admin group member to be allowed")
	}

	group.SetDisabled(admin, true)
	allow, violation := DecideTarget(ctx, types.FlagWrite, thing, r)
	if allow || violation == nil {
		t.Error("expected disabled member to no longer be admin")
	}
}

func TestDecide_ListIdsGateOnOp(t *testing.T) {
	r := newFakeResolver()
	owner := id(1)
	lister := id(2)
	thing := entity.NewThing(id(3), owner, "rock", owner)
	sec := thing.Security()
	sec.ListIds = []types.Id{lister}
	sec.ListFlags = sec.ListFlags.With(types.FlagRead)
	thing.SetSecurity(sec)

	ctx := Context{Requester: lister, RunAsRequester: true}
	allow, _ := DecideTarget(ctx, types.FlagRead, thing, r)
	if !allow {
		t.Error("expected list_ids member to be allowed for a list_flags op")
	}

	allow, violation := DecideTarget(ctx, types.FlagWrite, thing, r)
	if allow || violation == nil {
		t.Error("expected list_ids membership to not grant an op outside list_flags")
	}
}

func TestDecide_ProgramNotRunningAsRequesterUsesProgramOnly(t *testing.T) {
	r := newFakeResolver()
	owner := id(1)
	requester := id(2)
	program := id(3)
	thing := entity.NewThing(id(4), owner, "rock", owner)
	sec := thing.Security()
	sec.AdminIds = []types.Id{requester}
	thing.SetSecurity(sec)

	// Requester is admin, but the program is running under its own
	// authority (not the requester's) — requester's admin grant must not
	// apply.
	ctx := Context{Requester: requester, Program: program, RunAsRequester: false}
	allow, violation := DecideTarget(ctx, types.FlagWrite, thing, r)
	if allow || violation == nil {
		t.Error("expected program-only context to ignore requester's admin grant")
	}
}

func TestDecide_Deny(t *testing.T) {
	r := newFakeResolver()
	owner := id(1)
	stranger := id(2)
	thing := entity.NewThing(id(3), owner, "rock", owner)

	ctx := Context{Requester: stranger, RunAsRequester: true}
	allow, violation := DecideTarget(ctx, types.FlagWrite, thing, r)
	if allow || violation == nil {
		t.Fatal("expected deny with no grant at all")
	}
	if violation.Target != thing.Id() {
		t.Errorf("Violation.Target = %v, want %v", violation.Target, thing.Id())
	}
}

func TestIsLocal_OwnRoom(t *testing.T) {
	r := newFakeResolver()
	owner := id(1)
	room := entity.NewRoom(id(2), owner, "hall", types.Id{})
	r.add(room)
	requester := entity.NewPlayer(id(3), owner, "alice", room.Id())
	r.add(requester)

	ctx := Context{Requester: requester.Id()}
	if !IsLocal(ctx, room.Id(), true, r) {
		t.Error("expected the requester's own room to be local")
	}
}

func TestIsLocal_SameRoomExit(t *testing.T) {
	r := newFakeResolver()
	owner := id(1)
	room := entity.NewRoom(id(2), owner, "hall", types.Id{})
	r.add(room)
	requester := entity.NewPlayer(id(3), owner, "alice", room.Id())
	r.add(requester)

	exit := entity.NewExit(id(4), owner, "north", room.Id())
	r.add(exit)

	ctx := Context{Requester: requester.Id()}
	if !IsLocal(ctx, exit.Id(), true, r) {
		t.Error("expected an exit attached to the requester's own room to be local")
	}
}

func TestIsLocal_RegionAncestor(t *testing.T) {
	r := newFakeResolver()
	owner := id(1)
	region := entity.NewRegion(id(2), owner, "zone", types.Id{})
	r.add(region)
	room := entity.NewRoom(id(3), owner, "hall", region.Id())
	r.add(room)
	requester := entity.NewPlayer(id(4), owner, "alice", room.Id())
	r.add(requester)

	ctx := Context{Requester: requester.Id()}
	if !IsLocal(ctx, region.Id(), true, r) {
		t.Error("expected a Region ancestor of the requester's room to be local")
	}
}

func TestIsLocal_OtherPlayerNeverLocal(t *testing.T) {
	r := newFakeResolver()
	owner := id(1)
	room := entity.NewRoom(id(2), owner, "hall", types.Id{})
	r.add(room)
	requester := entity.NewPlayer(id(3), owner, "alice", room.Id())
	r.add(requester)
	otherPlayer := entity.NewPlayer(id(4), owner, "bob", room.Id())
	r.add(otherPlayer)

	ctx := Context{Requester: requester.Id()}
	if IsLocal(ctx, otherPlayer.Id(), true, r) {
		t.Error("expected another player to never be local")
	}
}

// TestIsLocal_ExitAttachedToAnotherPlayerNeverLocal matches spec.md §8
// invariant 8: an action (Command/Exit) attached to a different
// player/puppet/guest is never local, even when the requester shares
// the attached player's room. Regression test for actionContainer
// being unreachable: containerOf alone can't tell a Command/Exit's
// ContainedBy apart from a Region/Room's, since both implement
// hasContainedBy.
func TestIsLocal_ExitAttachedToAnotherPlayerNeverLocal(t *testing.T) {
	r := newFakeResolver()
	owner := id(1)
	room := entity.NewRoom(id(2), owner, "hall", types.Id{})
	r.add(room)
	requester := entity.NewPlayer(id(3), owner, "alice", room.Id())
	r.add(requester)
	otherPlayer := entity.NewPlayer(id(4), owner, "bob", room.Id())
	r.add(otherPlayer)
	exit := entity.NewExit(id(5), owner, "peek", otherPlayer.Id())
	r.add(exit)

	ctx := Context{Requester: requester.Id()}
	if IsLocal(ctx, exit.Id(), true, r) {
		t.Error("expected an exit attached to another player to never be local")
	}
}

// TestIsLocal_ExitAttachedToRequesterIsLocal matches the exception in
// spec.md §8 invariant 8: an action attached to the requester's own
// entity IS local.
func TestIsLocal_ExitAttachedToRequesterIsLocal(t *testing.T) {
	r := newFakeResolver()
	owner := id(1)
	room := entity.NewRoom(id(2), owner, "hall", types.Id{})
	r.add(room)
	requester := entity.NewPlayer(id(3), owner, "alice", room.Id())
	r.add(requester)
	exit := entity.NewExit(id(4), owner, "self-command", requester.Id())
	r.add(exit)

	ctx := Context{Requester: requester.Id()}
	if !IsLocal(ctx, exit.Id(), true, r) {
		t.Error("expected an exit attached to the requester's own entity to be local")
	}
}
