package entity

import (
	"github.com/mutgos/mutgos/pkg/types"
)

// Program is a PropertyEntity carrying a soft-code source body and a
// registration name unique within its site (enforced by pkg/dbaccess,
// not here).
type Program struct {
	header
	propertyBase
	source  string
	regName string
}

func NewProgram(id, owner types.Id, name string) *Program {
	return &Program{
		header:       newHeader(id, types.EntityTypeProgram, owner, name),
		propertyBase: newPropertyBase(),
	}
}

func (p *Program) Source() string {
	h := p.LockRead()
	defer h.Release()
	return p.source
}

func (p *Program) SetSource(source string) bool {
	w := p.LockWrite()
	defer w.Release()
	p.source = source
	p.markDirtyLocked(types.FieldProgramSource)
	p.touchLocked()
	return true
}

func (p *Program) RegistrationName() string {
	h := p.LockRead()
	defer h.Release()
	return p.regName
}

// SetRegistrationName records the program's own registration name.
// Site-wide uniqueness is the Database Access façade's job; this only
// stores the value and marks it dirty.
func (p *Program) SetRegistrationName(name string) bool {
	w := p.LockWrite()
	defer w.Release()
	p.regName = name
	p.markDirtyLocked(types.FieldProgramRegName)
	p.touchLocked()
	return true
}

func (p *Program) Clone(newId types.Id, version, instance uint32) Entity {
	out := &Program{}
	p.cloneHeaderInto(&out.header, newId, version, instance)
	p.mu.RLock()
	out.propertyBase = p.clonePropertyBase()
	out.source = p.source
	out.regName = p.regName
	p.mu.RUnlock()
	out.markDirtyLocked(types.FieldPropertiesApplication)
	out.markDirtyLocked(types.FieldProgramSource)
	out.markDirtyLocked(types.FieldProgramRegName)
	return out
}
