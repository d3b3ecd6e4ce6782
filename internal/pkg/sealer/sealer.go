// Package sealer encrypts small secrets at rest with XChaCha20-Poly1305.
// The AEAD key is derived from a configured passphrase with HKDF-SHA256.
package sealer

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Sealer errors.
var (
	ErrEmptyKey   = errors.New("encryption key is empty")
	ErrCiphertext = errors.New("ciphertext is malformed or was sealed with another key")
)

const hkdfInfo = "wagerbot wallet secret v1"

// Sealer seals and opens secrets bound to an associated-data label,
// usually the owning record's key.
type Sealer struct {
	aead cipher.AEAD
}

// New derives an AEAD key from passphrase.
func New(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, ErrEmptyKey
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(passphrase), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext. The output is nonce || ciphertext.
func (s *Sealer) Seal(plaintext []byte, label string) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, []byte(label)), nil
}

// Open decrypts a value produced by Seal with the same label.
func (s *Sealer) Open(sealed []byte, label string) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(sealed) < ns+s.aead.Overhead() {
		return nil, ErrCiphertext
	}
	plain, err := s.aead.Open(nil, sealed[:ns], sealed[ns:], []byte(label))
	if err != nil {
		return nil, ErrCiphertext
	}
	return plain, nil
}
