package entity

import (
	"github.com/mutgos/mutgos/pkg/types"
)

// Player is a connected user's persistent identity: credentials, the
// display form used in room messages, and the room it reconnects into.
type Player struct {
	header
	encryptedPassword []byte
	displayName       string
	home              types.Id
	lastConnect       types.TimeStamp
}

func NewPlayer(id, owner types.Id, name string, home types.Id) *Player {
	return &Player{
		header: newHeader(id, types.EntityTypePlayer, owner, name),
		home:   home,
	}
}

// EncryptedPassword returns the stored ciphertext blob (pkg/security's
// AES-256-GCM encrypt of the plaintext, never the plaintext itself).
func (p *Player) EncryptedPassword() []byte {
	h := p.LockRead()
	defer h.Release()
	return append([]byte(nil), p.encryptedPassword...)
}

// SetPassword stores a pre-encrypted password blob. Callers encrypt with
// pkg/security before calling this; the header never sees plaintext.
// Guest overrides this to always fail (spec §3.3).
func (p *Player) SetPassword(encrypted []byte) bool {
	w := p.LockWrite()
	defer w.Release()
	p.encryptedPassword = append([]byte(nil), encrypted...)
	p.markDirtyLocked(types.FieldPlayerPassword)
	p.touchLocked()
	return true
}

// PasswordDecryptor reverses the encryption pkg/security applies to
// stored passwords. Accepting it as a parameter (rather than importing
// pkg/security here) keeps the dependency direction pkg/security ->
// nothing, pkg/entity -> nothing: the caller (session/login layer)
// supplies its already-constructed pkg/security.PasswordManager.
type PasswordDecryptor interface {
	Decrypt(ciphertext []byte) ([]byte, error)
}

// CheckPassword decrypts the stored blob with dec and compares it
// byte-for-byte against candidatePlaintext. AES-GCM ciphertexts are
// nonce-randomized, so comparing two independently-encrypted blobs
// would almost never match even for identical plaintext — the
// comparison has to happen on the decrypted side. Guest overrides this
// to always fail.
func (p *Player) CheckPassword(candidatePlaintext []byte, dec PasswordDecryptor) bool {
	h := p.LockRead()
	stored := append([]byte(nil), p.encryptedPassword...)
	h.Release()

	if len(stored) == 0 {
		return false
	}
	plain, err := dec.Decrypt(stored)
	if err != nil {
		return false
	}
	if len(plain) != len(candidatePlaintext) {
		return false
	}
	for i := range plain {
		if plain[i] != candidatePlaintext[i] {
			return false
		}
	}
	return true
}

func (p *Player) DisplayName() string {
	h := p.LockRead()
	defer h.Release()
	if p.displayName != "" {
		return p.displayName
	}
	return p.name
}

func (p *Player) SetDisplayName(raw string) bool {
	normalized, err := types.NormalizeName(raw, PlayerPuppetNameLimit)
	if err != nil {
		return false
	}
	w := p.LockWrite()
	defer w.Release()
	if p.displayName == normalized {
		return true
	}
	p.displayName = normalized
	p.markDirtyLocked(types.FieldPlayerDisplayName)
	p.touchLocked()
	return true
}

func (p *Player) Home() types.Id {
	h := p.LockRead()
	defer h.Release()
	return p.home
}

func (p *Player) SetHome(newHome types.Id) bool {
	if !newHome.Valid() {
		return false
	}
	w := p.LockWrite()
	defer w.Release()
	if p.home == newHome {
		return true
	}
	old := p.home
	p.home = newHome
	p.markDirtyLocked(types.FieldPlayerHome)
	p.recordRefDeltaLocked(old, types.FieldPlayerHome, -1)
	p.recordRefDeltaLocked(newHome, types.FieldPlayerHome, +1)
	p.touchLocked()
	return true
}

func (p *Player) LastConnect() types.TimeStamp {
	h := p.LockRead()
	defer h.Release()
	return p.lastConnect
}

// TouchLastConnect records a successful login. Called by the session
// layer on authentication, never by the security evaluator.
func (p *Player) TouchLastConnect(at types.TimeStamp) {
	w := p.LockWrite()
	defer w.Release()
	p.lastConnect = at
	p.markDirtyLocked(types.FieldPlayerLastConnect)
	p.touchLocked()
}

func (p *Player) clonePlayerFields() (encrypted []byte, displayName string, home types.Id, lastConnect types.TimeStamp) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]byte(nil), p.encryptedPassword...), p.displayName, p.home, p.lastConnect
}

func (p *Player) Clone(newId types.Id, version, instance uint32) Entity {
	encrypted, displayName, home, lastConnect := p.clonePlayerFields()
	out := &Player{}
	p.cloneHeaderInto(&out.header, newId, version, instance)
	out.encryptedPassword = encrypted
	out.displayName = displayName
	out.home = home
	out.lastConnect = lastConnect
	out.markDirtyLocked(types.FieldPlayerPassword)
	out.markDirtyLocked(types.FieldPlayerDisplayName)
	out.markDirtyLocked(types.FieldPlayerHome)
	out.markDirtyLocked(types.FieldPlayerLastConnect)
	return out
}
