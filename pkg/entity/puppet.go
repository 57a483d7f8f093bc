package entity

import (
	"github.com/mutgos/mutgos/pkg/types"
)

// Puppet is a Thing a player can possess and speak/act through; it
// carries its own display name shown in room messages in place of the
// underlying Thing's name (spec §13 open-question decision: the same
// display-name-fallback-to-name rule Player uses applies here too).
type Puppet struct {
	Thing
	puppetDisplayName string
}

func NewPuppet(id, owner types.Id, name string, home types.Id) *Puppet {
	p := &Puppet{}
	p.header = newHeader(id, types.EntityTypePuppet, owner, name)
	p.home = home
	return p
}

func (p *Puppet) DisplayName() string {
	h := p.LockRead()
	defer h.Release()
	if p.puppetDisplayName != "" {
		return p.puppetDisplayName
	}
	return p.name
}

func (p *Puppet) SetDisplayName(raw string) bool {
	normalized, err := types.NormalizeName(raw, PlayerPuppetNameLimit)
	if err != nil {
		return false
	}
	w := p.LockWrite()
	defer w.Release()
	if p.puppetDisplayName == normalized {
		return true
	}
	p.puppetDisplayName = normalized
	p.markDirtyLocked(types.FieldPuppetDisplayName)
	p.touchLocked()
	return true
}

func (p *Puppet) Clone(newId types.Id, version, instance uint32) Entity {
	cloned := p.Thing.Clone(newId, version, instance).(*Thing)
	p.mu.RLock()
	displayName := p.puppetDisplayName
	p.mu.RUnlock()
	out := &Puppet{Thing: *cloned, puppetDisplayName: displayName}
	out.markDirtyLocked(types.FieldPuppetDisplayName)
	return out
}
