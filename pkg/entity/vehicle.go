package entity

import (
	"github.com/mutgos/mutgos/pkg/types"
)

// Vehicle is a Thing with an interior room occupants sit inside and a
// controller who may drive it.
type Vehicle struct {
	Thing
	interior   types.Id
	controller types.Id
}

func NewVehicle(id, owner types.Id, name string, home, interior types.Id) *Vehicle {
	v := &Vehicle{}
	v.header = newHeader(id, types.EntityTypeVehicle, owner, name)
	v.home = home
	v.interior = interior
	return v
}

func (v *Vehicle) Interior() types.Id {
	h := v.LockRead()
	defer h.Release()
	return v.interior
}

func (v *Vehicle) SetInterior(newInterior types.Id) bool {
	if !newInterior.Valid() {
		return false
	}
	w := v.LockWrite()
	defer w.Release()
	if v.interior == newInterior {
		return true
	}
	old := v.interior
	v.interior = newInterior
	v.markDirtyLocked(types.FieldVehicleInterior)
	v.recordRefDeltaLocked(old, types.FieldVehicleInterior, -1)
	v.recordRefDeltaLocked(newInterior, types.FieldVehicleInterior, +1)
	v.touchLocked()
	return true
}

func (v *Vehicle) Controller() types.Id {
	h := v.LockRead()
	defer h.Release()
	return v.controller
}

// SetController assigns the driver. Passing InvalidId clears it (no one
// is driving).
func (v *Vehicle) SetController(newController types.Id) bool {
	w := v.LockWrite()
	defer w.Release()
	if v.controller == newController {
		return true
	}
	old := v.controller
	v.controller = newController
	v.markDirtyLocked(types.FieldVehicleController)
	v.recordRefDeltaLocked(old, types.FieldVehicleController, -1)
	v.recordRefDeltaLocked(newController, types.FieldVehicleController, +1)
	v.touchLocked()
	return true
}

func (v *Vehicle) Clone(newId types.Id, version, instance uint32) Entity {
	cloned := v.Thing.Clone(newId, version, instance).(*Thing)
	v.mu.RLock()
	interior, controller := v.interior, v.controller
	v.mu.RUnlock()
	out := &Vehicle{Thing: *cloned, interior: interior, controller: controller}
	out.markDirtyLocked(types.FieldVehicleInterior)
	out.markDirtyLocked(types.FieldVehicleController)
	return out
}
