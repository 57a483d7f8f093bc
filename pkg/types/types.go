// Package types holds the value types shared across every MUTGOS
// component: identifiers, the entity type tag, field tags used for dirty
// tracking and reference deltas, security descriptors, lock expressions,
// and the error taxonomy returned across the Database Access façade.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SiteId identifies an independent entity-id namespace. Zero is invalid.
type SiteId uint16

// EntityId identifies an entity within a site. Zero is invalid.
type EntityId uint32

// Id is a fully-qualified entity reference. The zero value (0,0) is the
// explicit default/invalid id.
type Id struct {
	Site   SiteId
	Entity EntityId
}

// Valid reports whether both halves of the id are non-zero.
func (i Id) Valid() bool {
	return i.Site != 0 && i.Entity != 0
}

// Less orders ids first by site, then by entity. Used to sort a
// multi-lock acquisition set so locks are always taken in the same
// global order.
func (i Id) Less(other Id) bool {
	if i.Site != other.Site {
		return i.Site < other.Site
	}
	return i.Entity < other.Entity
}

func (i Id) String() string {
	return fmt.Sprintf("#%d:%d", i.Site, i.Entity)
}

// InvalidId is the explicit default/invalid value.
var InvalidId = Id{}

// idWire is the §6.1 wire shape for Id: {"siteId":<uint>,"entityId":<uint>}.
type idWire struct {
	SiteId   SiteId   `json:"siteId"`
	EntityId EntityId `json:"entityId"`
}

func (i Id) MarshalJSON() ([]byte, error) {
	return json.Marshal(idWire{SiteId: i.Site, EntityId: i.Entity})
}

func (i *Id) UnmarshalJSON(data []byte) error {
	var w idWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	i.Site = w.SiteId
	i.Entity = w.EntityId
	return nil
}

// EntityType is the closed set of entity variants. The tag is fixed at
// creation and never changes.
type EntityType uint8

const (
	EntityTypeInvalid EntityType = iota
	EntityTypeGroup
	EntityTypeCapability
	EntityTypeRegion
	EntityTypeRoom
	EntityTypePlayer
	EntityTypeGuest
	EntityTypeThing
	EntityTypePuppet
	EntityTypeVehicle
	EntityTypeCommand
	EntityTypeExit
	EntityTypeProgram
)

func (t EntityType) String() string {
	switch t {
	case EntityTypeGroup:
		return "group"
	case EntityTypeCapability:
		return "capability"
	case EntityTypeRegion:
		return "region"
	case EntityTypeRoom:
		return "room"
	case EntityTypePlayer:
		return "player"
	case EntityTypeGuest:
		return "guest"
	case EntityTypeThing:
		return "thing"
	case EntityTypePuppet:
		return "puppet"
	case EntityTypeVehicle:
		return "vehicle"
	case EntityTypeCommand:
		return "command"
	case EntityTypeExit:
		return "exit"
	case EntityTypeProgram:
		return "program"
	default:
		return "invalid"
	}
}

// IsContainerProperty reports whether the variant embeds
// ContainerPropertyEntity (§3.3) and therefore participates in the
// contained-by/linked-program reverse index.
func (t EntityType) IsContainerProperty() bool {
	switch t {
	case EntityTypeRegion, EntityTypeRoom:
		return true
	default:
		return false
	}
}

// IsAction reports whether the variant embeds ActionEntity.
func (t EntityType) IsAction() bool {
	switch t {
	case EntityTypeCommand, EntityTypeExit:
		return true
	default:
		return false
	}
}

// EntityField tags every mutable field that participates in dirty
// tracking. Fields that hold an Id additionally participate in the
// inbound-reference index maintained by the Update Manager.
type EntityField uint16

const (
	FieldName EntityField = iota
	FieldOwner
	FieldSecurity
	FieldDeletedFlag

	FieldGroupMembers
	FieldGroupDisabled

	FieldPropertiesApplication

	FieldContainedBy
	FieldLinkedPrograms
	FieldRegistrations

	FieldPlayerPassword
	FieldPlayerDisplayName
	FieldPlayerHome
	FieldPlayerLastConnect

	FieldThingHome
	FieldThingLock

	FieldPuppetDisplayName

	FieldVehicleInterior
	FieldVehicleController

	FieldActionTargets
	FieldActionLock
	FieldActionSuccessMsg
	FieldActionFailMsg
	FieldActionRoomMsg
	FieldActionContainedBy
	FieldActionCommands

	FieldExitArriveMsg
	FieldExitArriveRoomMsg

	FieldProgramSource
	FieldProgramRegName

	fieldCount
)

// IsReference reports whether this field holds one or more Ids and
// therefore must emit reference deltas when changed.
func (f EntityField) IsReference() bool {
	switch f {
	case FieldOwner, FieldGroupMembers, FieldGroupDisabled, FieldContainedBy,
		FieldLinkedPrograms, FieldPlayerHome, FieldThingHome, FieldVehicleInterior,
		FieldVehicleController, FieldActionTargets, FieldActionContainedBy:
		return true
	default:
		return false
	}
}

// TimeStamp is kept as a distinct name (rather than a bare time.Time)
// so every package that touches entity timestamps documents intent.
type TimeStamp = time.Time

// Error taxonomy (spec §7). Recoverable conditions surface through these
// sentinels; wrap with fmt.Errorf("...: %w") at each layer and compare
// with errors.Is.
var (
	ErrOkDelayed         = fmt.Errorf("operation accepted, completion delayed")
	ErrBadId             = fmt.Errorf("bad id")
	ErrBadEntityId       = fmt.Errorf("bad entity id")
	ErrBadSiteId         = fmt.Errorf("bad site id")
	ErrBadOwner          = fmt.Errorf("bad owner")
	ErrBadName           = fmt.Errorf("bad name")
	ErrBadEntityType     = fmt.Errorf("bad entity type")
	ErrEntityInUse       = fmt.Errorf("entity in use")
	ErrSecurityViolation = fmt.Errorf("security violation")
	ErrImpossible        = fmt.Errorf("impossible operation")
	ErrNotFound          = fmt.Errorf("not found")
)

// NormalizeName trims surrounding whitespace and validates the result is
// non-empty UTF-8 within limit code points. Returns the trimmed name.
func NormalizeName(raw string, limit int) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty name", ErrBadName)
	}
	if strings.ToValidUTF8(trimmed, "�") != trimmed {
		return "", fmt.Errorf("%w: invalid utf-8", ErrBadName)
	}
	if limit > 0 && runeCount(trimmed) > limit {
		return "", fmt.Errorf("%w: name exceeds %d code points", ErrBadName, limit)
	}
	return trimmed, nil
}

func runeCount(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
