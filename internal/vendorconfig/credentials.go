package vendorconfig

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingKey    = errors.New("credential encryption key is not set")
	ErrInvalidKey    = errors.New("credential encryption key must be 32 bytes (64 hex or 44 base64 chars)")
	ErrNotEncrypted  = errors.New("ciphertext is not in iv:tag:data format")
	ErrDecryptFailed = errors.New("credential decryption failed")
)

// Keyring seals and opens credential blobs with AES-256-GCM. The wire
// format is iv:tag:ciphertext, all hex, matching what operators paste into
// the admin configuration screens.
type Keyring struct {
	key []byte
}

// NewKeyring parses a 32-byte key given as 64 hex chars or 44 base64 chars.
func NewKeyring(encoded string) (*Keyring, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrMissingKey
	}

	var key []byte
	var err error
	switch len(encoded) {
	case 64:
		key, err = hex.DecodeString(encoded)
	case 44:
		key, err = base64.StdEncoding.DecodeString(encoded)
	default:
		return nil, ErrInvalidKey
	}
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidKey
	}
	return &Keyring{key: key}, nil
}

// Seal encrypts a plaintext credential blob.
func (k *Keyring) Seal(plaintext string) (string, error) {
	gcm, err := k.aead()
	if err != nil {
		return "", err
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	// gcm.Seal appends the auth tag; split it back out for the wire format.
	tagStart := len(sealed) - gcm.Overhead()
	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(iv),
		hex.EncodeToString(sealed[tagStart:]),
		hex.EncodeToString(sealed[:tagStart]),
	), nil
}

// Open decrypts a sealed credential blob.
func (k *Keyring) Open(ciphertext string) (string, error) {
	parts := strings.Split(strings.TrimSpace(ciphertext), ":")
	if len(parts) != 3 {
		return "", ErrNotEncrypted
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", ErrNotEncrypted
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", ErrNotEncrypted
	}
	data, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrNotEncrypted
	}

	gcm, err := k.aead()
	if err != nil {
		return "", err
	}
	if len(iv) != gcm.NonceSize() {
		return "", ErrNotEncrypted
	}

	plaintext, err := gcm.Open(nil, iv, append(data, tag...), nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}

func (k *Keyring) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(k.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
