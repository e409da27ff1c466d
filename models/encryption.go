package models

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"

	"github.com/rohanthewiz/serr"
)

// encryptionKey holds the AES-256 key for encrypting the session token before
// it is persisted in client_state. Must be exactly 32 bytes. Optional — when
// unset the token is stored in the clear (acceptable for dev setups).
var encryptionKey []byte

// InitEncryption installs the token-at-rest encryption key.
// The key must persist across restarts or previously stored tokens become
// unreadable, which is why it comes from configuration rather than being
// generated.
func InitEncryption(key string) error {
	if key == "" {
		encryptionKey = nil
		return nil
	}
	if len(key) != 32 {
		return serr.New("encryption key must be exactly 32 characters for AES-256")
	}
	encryptionKey = []byte(key)
	return nil
}

// IsEncryptionEnabled returns true if a key has been installed.
func IsEncryptionEnabled() bool {
	return len(encryptionKey) == 32
}

// ResetEncryption clears the key. Intended for test isolation only.
func ResetEncryption() {
	encryptionKey = nil
}

// Encrypt encrypts plaintext with AES-256-GCM. Returns the base64-encoded
// ciphertext and IV for storage in VARCHAR columns.
func Encrypt(plaintext string) (ciphertext, iv string, err error) {
	if !IsEncryptionEnabled() {
		return "", "", serr.New("encryption key not initialized")
	}

	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return "", "", serr.Wrap(err, "failed to create cipher")
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", "", serr.Wrap(err, "failed to create GCM")
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", "", serr.Wrap(err, "failed to generate nonce")
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(sealed),
		base64.StdEncoding.EncodeToString(nonce), nil
}

// Decrypt reverses Encrypt given the stored ciphertext and IV.
func Decrypt(ciphertext, iv string) (string, error) {
	if !IsEncryptionEnabled() {
		return "", serr.New("encryption key not initialized")
	}

	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", serr.Wrap(err, "failed to decode ciphertext")
	}
	nonce, err := base64.StdEncoding.DecodeString(iv)
	if err != nil {
		return "", serr.Wrap(err, "failed to decode iv")
	}

	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return "", serr.Wrap(err, "failed to create cipher")
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", serr.Wrap(err, "failed to create GCM")
	}

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", serr.Wrap(err, "failed to decrypt")
	}

	return string(plaintext), nil
}
