package entity

import (
	"strings"

	"github.com/mutgos/mutgos/pkg/types"
)

// actionBase is embedded by every ActionEntity variant (Command, Exit):
// the set of entities the action applies to, an optional gating lock,
// the three player-facing message strings, the container the action is
// found within, and its command-word list kept in both original and
// lowercase-normalized form.
//
// The lowercase shadow list (commandsLower) exists purely so command
// matching is case-insensitive without re-normalizing on every match;
// HasActionCommandLower is the only primitive callers outside this
// package should use to test a typed command against it (see
// original_source/ parser dispatch, which matches this same way).
type actionBase struct {
	targets       idSet
	lock          types.Lock
	lockSet       bool
	successMsg    string
	failMsg       string
	roomMsg       string
	containedBy   types.Id
	commands      []string
	commandsLower []string
}

func newActionBase(containedBy types.Id) actionBase {
	return actionBase{containedBy: containedBy}
}

func (a *actionBase) Targets() []types.Id {
	return a.targets.snapshot()
}

func (a *actionBase) AddTarget(h *header, target types.Id) bool {
	w := h.LockWrite()
	defer w.Release()
	if !a.targets.add(target) {
		return false
	}
	h.markDirtyLocked(types.FieldActionTargets)
	h.recordRefDeltaLocked(target, types.FieldActionTargets, +1)
	h.touchLocked()
	return true
}

func (a *actionBase) RemoveTarget(h *header, target types.Id) bool {
	w := h.LockWrite()
	defer w.Release()
	if !a.targets.remove(target) {
		return false
	}
	h.markDirtyLocked(types.FieldActionTargets)
	h.recordRefDeltaLocked(target, types.FieldActionTargets, -1)
	h.touchLocked()
	return true
}

// Lock returns the gating lock and whether one is set at all (it is
// Option<Lock> in spec §3.3 — unset means "no additional gate beyond
// normal security").
func (a *actionBase) Lock() (types.Lock, bool) {
	return a.lock, a.lockSet
}

func (a *actionBase) SetLock(h *header, l types.Lock) {
	w := h.LockWrite()
	defer w.Release()
	a.lock = l
	a.lockSet = true
	h.markDirtyLocked(types.FieldActionLock)
	h.touchLocked()
}

func (a *actionBase) ClearLock(h *header) {
	w := h.LockWrite()
	defer w.Release()
	a.lock = types.Lock{}
	a.lockSet = false
	h.markDirtyLocked(types.FieldActionLock)
	h.touchLocked()
}

func (a *actionBase) SuccessMsg() string { return a.successMsg }
func (a *actionBase) FailMsg() string    { return a.failMsg }
func (a *actionBase) RoomMsg() string    { return a.roomMsg }

func (a *actionBase) SetSuccessMsg(h *header, msg string) {
	w := h.LockWrite()
	defer w.Release()
	a.successMsg = msg
	h.markDirtyLocked(types.FieldActionSuccessMsg)
	h.touchLocked()
}

func (a *actionBase) SetFailMsg(h *header, msg string) {
	w := h.LockWrite()
	defer w.Release()
	a.failMsg = msg
	h.markDirtyLocked(types.FieldActionFailMsg)
	h.touchLocked()
}

func (a *actionBase) SetRoomMsg(h *header, msg string) {
	w := h.LockWrite()
	defer w.Release()
	a.roomMsg = msg
	h.markDirtyLocked(types.FieldActionRoomMsg)
	h.touchLocked()
}

func (a *actionBase) ContainedBy() types.Id {
	return a.containedBy
}

func (a *actionBase) SetContainedBy(h *header, newContainer types.Id) bool {
	if !newContainer.Valid() {
		return false
	}
	w := h.LockWrite()
	defer w.Release()
	if a.containedBy == newContainer {
		return true
	}
	old := a.containedBy
	a.containedBy = newContainer
	h.markDirtyLocked(types.FieldActionContainedBy)
	h.recordRefDeltaLocked(old, types.FieldActionContainedBy, -1)
	h.recordRefDeltaLocked(newContainer, types.FieldActionContainedBy, +1)
	h.touchLocked()
	return true
}

func (a *actionBase) Commands() []string {
	return append([]string(nil), a.commands...)
}

// SetCommands replaces the command-word list and rebuilds the lowercase
// shadow list used by HasActionCommandLower.
func (a *actionBase) SetCommands(h *header, commands []string) {
	w := h.LockWrite()
	defer w.Release()
	a.commands = append([]string(nil), commands...)
	a.commandsLower = make([]string, len(commands))
	for i, c := range commands {
		a.commandsLower[i] = strings.ToLower(c)
	}
	h.markDirtyLocked(types.FieldActionCommands)
	h.touchLocked()
}

// HasActionCommandLower reports whether lowered (already
// strings.ToLower'd by the caller) matches one of the action's command
// words. This is the sole match primitive the dispatcher uses; it never
// re-derives case-folding itself.
func (a *actionBase) HasActionCommandLower(lowered string) bool {
	for _, c := range a.commandsLower {
		if c == lowered {
			return true
		}
	}
	return false
}

func (a *actionBase) cloneActionBase() actionBase {
	return actionBase{
		targets:       a.targets.clone(),
		lock:          a.lock,
		lockSet:       a.lockSet,
		successMsg:    a.successMsg,
		failMsg:       a.failMsg,
		roomMsg:       a.roomMsg,
		containedBy:   a.containedBy,
		commands:      append([]string(nil), a.commands...),
		commandsLower: append([]string(nil), a.commandsLower...),
	}
}

// Command is a verb recognized only within its container (spec §3.3).
type Command struct {
	header
	actionBase
}

func NewCommand(id, owner types.Id, name string, containedBy types.Id) *Command {
	return &Command{
		header:     newHeader(id, types.EntityTypeCommand, owner, name),
		actionBase: newActionBase(containedBy),
	}
}

func (c *Command) Clone(newId types.Id, version, instance uint32) Entity {
	out := &Command{}
	c.cloneHeaderInto(&out.header, newId, version, instance)
	c.mu.RLock()
	out.actionBase = c.cloneActionBase()
	c.mu.RUnlock()
	out.markDirtyLocked(types.FieldActionTargets)
	out.markDirtyLocked(types.FieldActionCommands)
	out.markDirtyLocked(types.FieldActionContainedBy)
	out.markDirtyLocked(types.FieldActionLock)
	out.markDirtyLocked(types.FieldActionSuccessMsg)
	out.markDirtyLocked(types.FieldActionFailMsg)
	out.markDirtyLocked(types.FieldActionRoomMsg)
	return out
}

// Exit is a Command that also moves its user to a target room, with its
// own arrival messages shown on the far side.
type Exit struct {
	header
	actionBase
	arriveMsg     string
	arriveRoomMsg string
}

func NewExit(id, owner types.Id, name string, containedBy types.Id) *Exit {
	return &Exit{
		header:     newHeader(id, types.EntityTypeExit, owner, name),
		actionBase: newActionBase(containedBy),
	}
}

func (e *Exit) ArriveMsg() string     { return e.arriveMsg }
func (e *Exit) ArriveRoomMsg() string { return e.arriveRoomMsg }

func (e *Exit) SetArriveMsg(msg string) {
	w := e.LockWrite()
	defer w.Release()
	e.arriveMsg = msg
	e.markDirtyLocked(types.FieldExitArriveMsg)
	e.touchLocked()
}

func (e *Exit) SetArriveRoomMsg(msg string) {
	w := e.LockWrite()
	defer w.Release()
	e.arriveRoomMsg = msg
	e.markDirtyLocked(types.FieldExitArriveRoomMsg)
	e.touchLocked()
}

func (e *Exit) Clone(newId types.Id, version, instance uint32) Entity {
	out := &Exit{}
	e.cloneHeaderInto(&out.header, newId, version, instance)
	e.mu.RLock()
	out.actionBase = e.cloneActionBase()
	out.arriveMsg = e.arriveMsg
	out.arriveRoomMsg = e.arriveRoomMsg
	e.mu.RUnlock()
	out.markDirtyLocked(types.FieldActionTargets)
	out.markDirtyLocked(types.FieldActionCommands)
	out.markDirtyLocked(types.FieldActionContainedBy)
	out.markDirtyLocked(types.FieldActionLock)
	out.markDirtyLocked(types.FieldActionSuccessMsg)
	out.markDirtyLocked(types.FieldActionFailMsg)
	out.markDirtyLocked(types.FieldActionRoomMsg)
	out.markDirtyLocked(types.FieldExitArriveMsg)
	out.markDirtyLocked(types.FieldExitArriveRoomMsg)
	return out
}
