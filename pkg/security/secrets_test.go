package security

import (
	"bytes"
	"testing"
)

func TestNewPasswordManager(t *testing.T) {
	tests := []struct {
		name    string
		key     []byte
		wantErr bool
	}{
		{
			name:    "valid 32-byte key",
			key:     make([]byte, 32),
			wantErr: false,
		},
		{
			name:    "invalid short key",
			key:     make([]byte, 16),
			wantErr: true,
		},
		{
			name:    "invalid long key",
			key:     make([]byte, 64),
			wantErr: true,
		},
		{
			name:    "empty key",
			key:     []byte{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm, err := NewPasswordManager(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewPasswordManager() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && pm == nil {
				t.Error("NewPasswordManager() returned nil without error")
			}
		})
	}
}

func TestDeriveKeyFromPassphrase(t *testing.T) {
	key := DeriveKeyFromPassphrase("correct-horse-battery-staple")
	if len(key) != 32 {
		t.Errorf("DeriveKeyFromPassphrase() returned key of length %d, want 32", len(key))
	}

	key2 := DeriveKeyFromPassphrase("correct-horse-battery-staple")
	if !bytes.Equal(key, key2) {
		t.Error("DeriveKeyFromPassphrase() should be deterministic")
	}

	different := DeriveKeyFromPassphrase("correct-horse-battery-staple-2")
	if bytes.Equal(key, different) {
		t.Error("different passphrases should produce different keys")
	}
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	key := DeriveKeyFromPassphrase("test-encryption-key")

	pm, err := NewPasswordManager(key)
	if err != nil {
		t.Fatalf("Failed to create PasswordManager: %v", err)
	}

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{
			name:      "simple password",
			plaintext: []byte("hunter2"),
		},
		{
			name:      "long passphrase",
			plaintext: []byte("correct horse battery staple, with spaces and punctuation!"),
		},
		{
			name:      "binary-ish data",
			plaintext: []byte{0x00, 0x01, 0x02, 0xFF, 0xFE, 0xFD},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := pm.Encrypt(tt.plaintext)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}

			if bytes.Equal(ciphertext, tt.plaintext) {
				t.Error("ciphertext should not equal plaintext")
			}

			decrypted, err := pm.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}

			if !bytes.Equal(decrypted, tt.plaintext) {
				t.Errorf("decrypted data does not match original.\nGot:  %v\nWant: %v", decrypted, tt.plaintext)
			}
		})
	}
}

func TestEncryptTwiceProducesDifferentCiphertext(t *testing.T) {
	pm, _ := NewPasswordManager(make([]byte, 32))

	plaintext := []byte("same-password")
	a, err := pm.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	b, err := pm.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if bytes.Equal(a, b) {
		t.Error("two encryptions of the same plaintext should not produce identical ciphertext (nonce reuse)")
	}

	da, err := pm.Decrypt(a)
	if err != nil || !bytes.Equal(da, plaintext) {
		t.Error("first ciphertext should still decrypt to the original plaintext")
	}
	db, err := pm.Decrypt(b)
	if err != nil || !bytes.Equal(db, plaintext) {
		t.Error("second ciphertext should still decrypt to the original plaintext")
	}
}

func TestEncrypt_Errors(t *testing.T) {
	pm, _ := NewPasswordManager(make([]byte, 32))

	tests := []struct {
		name      string
		plaintext []byte
		wantErr   bool
	}{
		{
			name:      "empty data",
			plaintext: []byte{},
			wantErr:   true,
		},
		{
			name:      "nil data",
			plaintext: nil,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pm.Encrypt(tt.plaintext)
			if (err != nil) != tt.wantErr {
				t.Errorf("Encrypt() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecrypt_Errors(t *testing.T) {
	pm, _ := NewPasswordManager(make([]byte, 32))

	tests := []struct {
		name       string
		ciphertext []byte
		wantErr    bool
	}{
		{
			name:       "empty data",
			ciphertext: []byte{},
			wantErr:    true,
		},
		{
			name:       "nil data",
			ciphertext: nil,
			wantErr:    true,
		},
		{
			name:       "too short data",
			ciphertext: []byte{0x01, 0x02},
			wantErr:    true,
		},
		{
			name:       "corrupted data",
			ciphertext: bytes.Repeat([]byte("x"), 100),
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pm.Decrypt(tt.ciphertext)
			if (err != nil) != tt.wantErr {
				t.Errorf("Decrypt() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	key1 := DeriveKeyFromPassphrase("key-one")
	key2 := DeriveKeyFromPassphrase("key-two")

	pm1, _ := NewPasswordManager(key1)
	pm2, _ := NewPasswordManager(key2)

	plaintext := []byte("secret password")

	ciphertext, err := pm1.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	_, err = pm2.Decrypt(ciphertext)
	if err == nil {
		t.Error("Decrypt() should fail with wrong key")
	}
}
