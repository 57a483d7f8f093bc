package entity

import (
	"github.com/mutgos/mutgos/pkg/types"
)

// Guest is a Player whose credentials can never be set or checked: guest
// accounts authenticate by a different path entirely (session layer
// assigns them directly), so SetPassword/CheckPassword always fail
// rather than silently no-op, per spec §3.3.
type Guest struct {
	Player
}

func NewGuest(id, owner types.Id, name string, home types.Id) *Guest {
	g := &Guest{}
	g.header = newHeader(id, types.EntityTypeGuest, owner, name)
	g.home = home
	return g
}

func (g *Guest) SetPassword(encrypted []byte) bool {
	return false
}

func (g *Guest) CheckPassword(candidatePlaintext []byte, dec PasswordDecryptor) bool {
	return false
}

func (g *Guest) Clone(newId types.Id, version, instance uint32) Entity {
	cloned := g.Player.Clone(newId, version, instance).(*Player)
	return &Guest{Player: *cloned}
}
