package entity

import (
	"fmt"

	"github.com/mutgos/mutgos/pkg/types"
)

// fakeDecryptor is a stand-in for pkg/security.PasswordManager: it
// "encrypts" by reversing the byte slice with a counter prefix so
// repeated calls on the same plaintext never produce equal ciphertext,
// mirroring AES-GCM's nonce randomization.
type fakeDecryptor struct {
	calls int
}

func fakeEncrypt(plaintext []byte, salt int) []byte {
	out := make([]byte, len(plaintext)+1)
	out[0] = byte(salt)
	copy(out[1:], plaintext)
	return out
}

func (f *fakeDecryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	f.calls++
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("empty ciphertext")
	}
	return ciphertext[1:], nil
}

type failingDecryptor struct{}

func (failingDecryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	return nil, fmt.Errorf("decrypt failed")
}

func testPlayer() *Player {
	return NewPlayer(types.Id{Site: 1, Entity: 10}, types.Id{Site: 1, Entity: 1}, "wizard", types.Id{Site: 1, Entity: 2})
}

func ExamplePlayer_CheckPassword() {
	p := testPlayer()
	dec := &fakeDecryptor{}

	a := fakeEncrypt([]byte("hunter2"), 1)
	b := fakeEncrypt([]byte("hunter2"), 2)
	fmt.Println(string(a) == string(b))

	p.SetPassword(a)
	fmt.Println(p.CheckPassword([]byte("hunter2"), dec))
	fmt.Println(p.CheckPassword([]byte("wrong"), dec))

	// Output:
	// false
	// true
	// false
}

func ExamplePlayer_CheckPassword_noPasswordSet() {
	p := testPlayer()
	dec := &fakeDecryptor{}
	fmt.Println(p.CheckPassword([]byte("anything"), dec))
	// Output:
	// false
}

func ExamplePlayer_CheckPassword_decryptFails() {
	p := testPlayer()
	p.SetPassword([]byte{0x01, 0x02, 0x03})
	fmt.Println(p.CheckPassword([]byte("anything"), failingDecryptor{}))
	// Output:
	// false
}

func ExampleGuest_CheckPassword() {
	g := NewGuest(types.Id{Site: 1, Entity: 11}, types.Id{Site: 1, Entity: 1}, "guest1", types.Id{Site: 1, Entity: 2})
	dec := &fakeDecryptor{}

	fmt.Println(g.SetPassword(fakeEncrypt([]byte("hunter2"), 1)))
	fmt.Println(g.CheckPassword([]byte("hunter2"), dec))

	// Output:
	// false
	// false
}

func ExamplePlayer_SetDisplayName() {
	p := testPlayer()
	fmt.Println(p.DisplayName())
	p.SetDisplayName("The Wizard")
	fmt.Println(p.DisplayName())
	// Output:
	// wizard
	// The Wizard
}

func ExamplePlayer_SetHome() {
	p := testPlayer()
	newHome := types.Id{Site: 1, Entity: 3}
	fmt.Println(p.SetHome(newHome))
	fmt.Println(p.Home() == newHome)
	fmt.Println(p.SetHome(types.InvalidId))
	// Output:
	// true
	// true
	// false
}

func ExamplePlayer_Clone() {
	p := testPlayer()
	p.SetPassword(fakeEncrypt([]byte("hunter2"), 1))
	p.SetDisplayName("The Wizard")

	cloned := p.Clone(types.Id{Site: 1, Entity: 20}, 1, 1).(*Player)
	fmt.Println(cloned.DisplayName())
	fmt.Println(string(cloned.EncryptedPassword()) == string(p.EncryptedPassword()))
	// Output:
	// The Wizard
	// true
}
