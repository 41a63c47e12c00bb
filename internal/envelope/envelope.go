// Package envelope implements authenticated encryption of credential payloads
// under a master key held outside the document store.
//
// Sealed payloads are laid out as nonce (24 bytes) || ciphertext || tag (16 bytes),
// using XChaCha20-Poly1305. The data key is derived from the master key with
// HKDF-SHA256 so the raw master key never keys the AEAD directly.
package envelope

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/ericfisherdev/keypass/internal/domain/port/driven"
)

// Sentinel errors returned by this package.
var (
	// ErrKeyMissing indicates the secret holder has no master key. The user
	// must run initialization before any crypto operation.
	ErrKeyMissing = errors.New("master key not found: run `keypass init`")

	// ErrInvalidKey indicates the stored master key is not valid key material.
	ErrInvalidKey = errors.New("master key is malformed")

	// ErrAuthentication indicates the integrity tag did not verify: the payload
	// was tampered with, corrupted, or sealed under a different key.
	ErrAuthentication = errors.New("ciphertext failed authentication")

	// ErrFormat indicates the payload is structurally invalid.
	ErrFormat = errors.New("ciphertext is malformed")
)

// KeySize is the size in bytes of master key material.
const KeySize = 32

const dataKeyInfo = "keypass/credential/v1"

// Compile-time interface satisfaction check.
var _ driven.Cipher = (*Cipher)(nil)

// KeySource is the read side of a secret holder.
type KeySource interface {
	Get(service, account string) (string, error)
}

// Cipher seals and opens credential payloads under one derived data key.
type Cipher struct {
	aead cipher.AEAD
}

// GenerateKey returns fresh master key material from crypto/rand, encoded as
// URL-safe base64 so it can be stored as text.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("generate master key: %w", err)
	}
	return base64.URLEncoding.EncodeToString(key), nil
}

// Load reads the master key for (service, account) from src and builds a Cipher.
// Returns ErrKeyMissing when src holds no key.
func Load(src KeySource, service, account string) (*Cipher, error) {
	encoded, err := src.Get(service, account)
	if err != nil {
		return nil, fmt.Errorf("read master key: %w", err)
	}
	if encoded == "" {
		return nil, ErrKeyMissing
	}
	return New(encoded)
}

// New builds a Cipher from text-encoded master key material.
func New(masterKey string) (*Cipher, error) {
	if masterKey == "" {
		return nil, ErrKeyMissing
	}
	raw, err := base64.URLEncoding.DecodeString(masterKey)
	if err != nil || len(raw) != KeySize {
		return nil, ErrInvalidKey
	}

	dataKey := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, raw, nil, []byte(dataKeyInfo)), dataKey); err != nil {
		return nil, fmt.Errorf("derive data key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(dataKey)
	if err != nil {
		return nil, fmt.Errorf("chacha20poly1305.NewX: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends to nonce, producing: nonce || ciphertext || tag.
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a payload produced by Encrypt. It returns ErrFormat if the
// payload is too short to hold a nonce and tag, and ErrAuthentication if the
// tag does not verify. No plaintext is returned on failure.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(ciphertext) < nonceSize+c.aead.Overhead() {
		return nil, ErrFormat
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
