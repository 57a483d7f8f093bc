package entity

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mutgos/mutgos/pkg/types"
)

// wireHeader mirrors header's persisted fields; every variant's wire
// struct embeds it. Dirty bits and reference deltas are runtime-only
// and never serialized.
type wireHeader struct {
	Id            types.Id        `json:"id"`
	Type          types.EntityType `json:"type"`
	Version       uint32          `json:"version"`
	Instance      uint32          `json:"instance"`
	Owner         types.Id        `json:"owner"`
	Name          string          `json:"name"`
	Security      types.Security  `json:"security"`
	CreatedAt     types.TimeStamp `json:"created_at"`
	LastUpdatedAt types.TimeStamp `json:"last_updated_at"`
	Deleted       bool            `json:"deleted"`
}

func toWireHeader(h *header) wireHeader {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return wireHeader{
		Id: h.id, Type: h.entityType, Version: h.version, Instance: h.instance,
		Owner: h.owner, Name: h.name, Security: h.security.Clone(),
		CreatedAt: h.createdAt, LastUpdatedAt: h.lastUpdatedAt, Deleted: h.deletedFlag,
	}
}

func (w wireHeader) intoHeader() header {
	return header{
		id: w.Id, entityType: w.Type, version: w.Version, instance: w.Instance,
		owner: w.Owner, name: w.Name, security: w.Security.Clone(),
		createdAt: w.CreatedAt, lastUpdatedAt: w.LastUpdatedAt, deletedFlag: w.Deleted,
		dirty: make(map[types.EntityField]bool),
	}
}

type wireApplication struct {
	Owner    types.Id       `json:"owner"`
	Security types.Security `json:"security"`
	Values   map[string]any `json:"values"`
}

func toWireProperties(p *PropertyDirectory) map[string]wireApplication {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]wireApplication, len(p.applications))
	for name, app := range p.applications {
		out[name] = wireApplication{Owner: app.Owner, Security: app.Security.Clone(), Values: app.Values}
	}
	return out
}

func fromWireProperties(w map[string]wireApplication) *PropertyDirectory {
	d := newPropertyDirectory()
	for name, app := range w {
		values := app.Values
		if values == nil {
			values = make(map[string]any)
		}
		d.applications[name] = &PropertyApplication{Owner: app.Owner, Security: app.Security, Values: values}
	}
	return d
}

func toWireRegistrations(r *RegistrationDirectory) map[string]types.Id {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]types.Id, len(r.byName))
	for k, v := range r.byName {
		out[k] = v
	}
	return out
}

func fromWireRegistrations(w map[string]types.Id) *RegistrationDirectory {
	if w == nil {
		return nil
	}
	r := newRegistrationDirectory()
	for k, v := range w {
		r.byName[k] = v
	}
	return r
}

type groupWire struct {
	wireHeader
	Members  []types.Id `json:"members"`
	Disabled []types.Id `json:"disabled"`
}

type containerWire struct {
	wireHeader
	ContainedBy    types.Id                   `json:"contained_by"`
	LinkedPrograms []types.Id                 `json:"linked_programs"`
	Registrations  map[string]types.Id        `json:"registrations,omitempty"`
	Properties     map[string]wireApplication `json:"properties,omitempty"`
}

type playerWire struct {
	wireHeader
	EncryptedPassword []byte          `json:"encrypted_password,omitempty"`
	DisplayName       string          `json:"display_name"`
	Home              types.Id        `json:"home"`
	LastConnect       types.TimeStamp `json:"last_connect"`
}

type thingWire struct {
	wireHeader
	Home types.Id   `json:"home"`
	Lock types.Lock `json:"lock"`
}

type puppetWire struct {
	thingWire
	PuppetDisplayName string `json:"puppet_display_name"`
}

type vehicleWire struct {
	thingWire
	Interior   types.Id `json:"interior"`
	Controller types.Id `json:"controller"`
}

type actionWire struct {
	wireHeader
	Targets     []types.Id `json:"targets"`
	Lock        types.Lock `json:"lock"`
	LockSet     bool       `json:"lock_set"`
	SuccessMsg  string     `json:"success_msg"`
	FailMsg     string     `json:"fail_msg"`
	RoomMsg     string     `json:"room_msg"`
	ContainedBy types.Id   `json:"contained_by"`
	Commands    []string   `json:"commands"`
}

type exitWire struct {
	actionWire
	ArriveMsg     string `json:"arrive_msg"`
	ArriveRoomMsg string `json:"arrive_room_msg"`
}

type programWire struct {
	wireHeader
	Source     string                     `json:"source"`
	RegName    string                     `json:"reg_name"`
	Properties map[string]wireApplication `json:"properties,omitempty"`
}

// MarshalEntity serializes any concrete variant to its wire form. This
// is the only place that knows about the per-variant wire structs; the
// storage backend treats the result as an opaque blob.
func MarshalEntity(e Entity) ([]byte, error) {
	switch v := e.(type) {
	case *Capability:
		return json.Marshal(groupWire{wireHeader: toWireHeader(&v.header), Members: v.members.snapshot(), Disabled: v.disabled.snapshot()})
	case *Group:
		return json.Marshal(groupWire{wireHeader: toWireHeader(&v.header), Members: v.members.snapshot(), Disabled: v.disabled.snapshot()})
	case *Region:
		return json.Marshal(containerWire{
			wireHeader: toWireHeader(&v.header), ContainedBy: v.containedBy,
			LinkedPrograms: v.linkedPrograms.snapshot(), Registrations: toWireRegistrations(v.registrations),
			Properties: toWireProperties(v.properties),
		})
	case *Room:
		return json.Marshal(containerWire{
			wireHeader: toWireHeader(&v.header), ContainedBy: v.containedBy,
			LinkedPrograms: v.linkedPrograms.snapshot(), Registrations: toWireRegistrations(v.registrations),
			Properties: toWireProperties(v.properties),
		})
	case *Guest:
		return json.Marshal(playerWire{
			wireHeader: toWireHeader(&v.header), EncryptedPassword: v.encryptedPassword,
			DisplayName: v.displayName, Home: v.home, LastConnect: v.lastConnect,
		})
	case *Player:
		return json.Marshal(playerWire{
			wireHeader: toWireHeader(&v.header), EncryptedPassword: v.encryptedPassword,
			DisplayName: v.displayName, Home: v.home, LastConnect: v.lastConnect,
		})
	case *Puppet:
		return json.Marshal(puppetWire{
			thingWire:         thingWire{wireHeader: toWireHeader(&v.header), Home: v.home, Lock: v.lock},
			PuppetDisplayName: v.puppetDisplayName,
		})
	case *Vehicle:
		return json.Marshal(vehicleWire{
			thingWire:  thingWire{wireHeader: toWireHeader(&v.header), Home: v.home, Lock: v.lock},
			Interior:   v.interior, Controller: v.controller,
		})
	case *Thing:
		return json.Marshal(thingWire{wireHeader: toWireHeader(&v.header), Home: v.home, Lock: v.lock})
	case *Exit:
		return json.Marshal(exitWire{
			actionWire:    toActionWire(v.header, v.actionBase),
			ArriveMsg:     v.arriveMsg,
			ArriveRoomMsg: v.arriveRoomMsg,
		})
	case *Command:
		return json.Marshal(toActionWire(v.header, v.actionBase))
	case *Program:
		return json.Marshal(programWire{
			wireHeader: toWireHeader(&v.header), Source: v.source, RegName: v.regName,
			Properties: toWireProperties(v.properties),
		})
	default:
		return nil, fmt.Errorf("%w: unsupported entity go type %T", types.ErrBadEntityType, e)
	}
}

func toActionWire(h header, a actionBase) actionWire {
	return actionWire{
		wireHeader: toWireHeader(&h), Targets: a.targets.snapshot(), Lock: a.lock, LockSet: a.lockSet,
		SuccessMsg: a.successMsg, FailMsg: a.failMsg, RoomMsg: a.roomMsg,
		ContainedBy: a.containedBy, Commands: append([]string(nil), a.commands...),
	}
}

func fromActionWire(w actionWire) (header, actionBase) {
	h := w.wireHeader.intoHeader()
	a := actionBase{lock: w.Lock, lockSet: w.LockSet, successMsg: w.SuccessMsg, failMsg: w.FailMsg,
		roomMsg: w.RoomMsg, containedBy: w.ContainedBy, commands: w.Commands}
	for _, t := range w.Targets {
		a.targets.add(t)
	}
	for _, c := range w.Commands {
		a.commandsLower = append(a.commandsLower, strings.ToLower(c))
	}
	return h, a
}

// UnmarshalEntity decodes a blob written by MarshalEntity back into the
// concrete variant its embedded type tag names. An unrecognized tag is
// a hard decode failure — there is no "unknown variant" fallback.
func UnmarshalEntity(data []byte) (Entity, error) {
	var probe struct {
		Type types.EntityType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrBadEntityType, err)
	}
	switch probe.Type {
	case types.EntityTypeGroup:
		var w groupWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		g := &Group{header: w.wireHeader.intoHeader()}
		for _, m := range w.Members {
			g.members.add(m)
		}
		for _, d := range w.Disabled {
			g.disabled.add(d)
		}
		return g, nil
	case types.EntityTypeCapability:
		var w groupWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		c := &Capability{Group: Group{header: w.wireHeader.intoHeader()}}
		for _, m := range w.Members {
			c.members.add(m)
		}
		for _, d := range w.Disabled {
			c.disabled.add(d)
		}
		return c, nil
	case types.EntityTypeRegion, types.EntityTypeRoom:
		var w containerWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		cb := containerBase{
			propertyBase:   propertyBase{properties: fromWireProperties(w.Properties)},
			containedBy:    w.ContainedBy,
			registrations:  fromWireRegistrations(w.Registrations),
		}
		for _, id := range w.LinkedPrograms {
			cb.linkedPrograms.add(id)
		}
		if probe.Type == types.EntityTypeRegion {
			return &Region{header: w.wireHeader.intoHeader(), containerBase: cb}, nil
		}
		return &Room{header: w.wireHeader.intoHeader(), containerBase: cb}, nil
	case types.EntityTypePlayer:
		var w playerWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return &Player{header: w.wireHeader.intoHeader(), encryptedPassword: w.EncryptedPassword,
			displayName: w.DisplayName, home: w.Home, lastConnect: w.LastConnect}, nil
	case types.EntityTypeGuest:
		var w playerWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return &Guest{Player: Player{header: w.wireHeader.intoHeader(), encryptedPassword: w.EncryptedPassword,
			displayName: w.DisplayName, home: w.Home, lastConnect: w.LastConnect}}, nil
	case types.EntityTypeThing:
		var w thingWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return &Thing{header: w.wireHeader.intoHeader(), home: w.Home, lock: w.Lock}, nil
	case types.EntityTypePuppet:
		var w puppetWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return &Puppet{Thing: Thing{header: w.wireHeader.intoHeader(), home: w.Home, lock: w.Lock},
			puppetDisplayName: w.PuppetDisplayName}, nil
	case types.EntityTypeVehicle:
		var w vehicleWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return &Vehicle{Thing: Thing{header: w.wireHeader.intoHeader(), home: w.Home, lock: w.Lock},
			interior: w.Interior, controller: w.Controller}, nil
	case types.EntityTypeCommand:
		var w actionWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		h, a := fromActionWire(w)
		return &Command{header: h, actionBase: a}, nil
	case types.EntityTypeExit:
		var w exitWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		h, a := fromActionWire(w.actionWire)
		return &Exit{header: h, actionBase: a, arriveMsg: w.ArriveMsg, arriveRoomMsg: w.ArriveRoomMsg}, nil
	case types.EntityTypeProgram:
		var w programWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return &Program{header: w.wireHeader.intoHeader(), propertyBase: propertyBase{properties: fromWireProperties(w.Properties)},
			source: w.Source, regName: w.RegName}, nil
	default:
		return nil, fmt.Errorf("%w: tag %d", types.ErrBadEntityType, probe.Type)
	}
}
