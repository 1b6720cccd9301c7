package cryptoutils

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const (
	// KeySize is the size in bytes of all symmetric keys used by this package.
	KeySize = 32

	// SaltSize is the size in bytes of the per-account key derivation salt.
	SaltSize = 16
)

// AEADKey is implemented by all 256-bit symmetric key types in this package.
// Cipher operations accept any of them; the distinct named types exist so
// call sites cannot confuse a master key with a share key.
type AEADKey interface {
	Bytes() []byte
}

// MasterKey is the long-lived symmetric key derived from the owner's
// password. It is held in process memory only and never serialized.
type MasterKey [KeySize]byte

// NewMasterKey creates a master key from raw bytes with length validation.
func NewMasterKey(b []byte) (MasterKey, error) {
	if len(b) != KeySize {
		return MasterKey{}, fmt.Errorf("invalid master key length: must be %d bytes, got %d", KeySize, len(b))
	}

	var k MasterKey
	copy(k[:], b)
	return k, nil
}

// Bytes returns the raw key material.
func (k MasterKey) Bytes() []byte {
	return k[:]
}

// ShareKey is a short-lived symmetric key unique to one sharing session.
// It travels to guests as a base64 URL fragment and back to the owner via
// a recovery token; it is never persisted in raw form.
type ShareKey [KeySize]byte

// NewShareKey creates a share key from raw bytes with length validation.
func NewShareKey(b []byte) (ShareKey, error) {
	if len(b) != KeySize {
		return ShareKey{}, fmt.Errorf("invalid share key length: must be %d bytes, got %d", KeySize, len(b))
	}

	var k ShareKey
	copy(k[:], b)
	return k, nil
}

// GenerateShareKey creates a fresh random share key.
func GenerateShareKey() (ShareKey, error) {
	var k ShareKey
	if _, err := io.ReadFull(rand.Reader, k[:]); err != nil {
		return ShareKey{}, fmt.Errorf("failed to generate share key: %w", err)
	}
	return k, nil
}

// ShareKeyFromFragment imports a share key from its base64 URL-fragment form.
func ShareKeyFromFragment(fragment string) (ShareKey, error) {
	raw, err := base64.StdEncoding.DecodeString(fragment)
	if err != nil {
		return ShareKey{}, fmt.Errorf("invalid share key fragment: %w", err)
	}
	return NewShareKey(raw)
}

// Fragment returns the base64 form of the key for embedding in a URL fragment.
func (k ShareKey) Fragment() string {
	return base64.StdEncoding.EncodeToString(k[:])
}

// Bytes returns the raw key material.
func (k ShareKey) Bytes() []byte {
	return k[:]
}

// Salt is the per-account random salt for master key derivation.
type Salt [SaltSize]byte

// NewSalt creates a salt from raw bytes with length validation.
func NewSalt(b []byte) (Salt, error) {
	if len(b) != SaltSize {
		return Salt{}, errors.New("invalid salt length: must be 16 bytes")
	}

	var s Salt
	copy(s[:], b)
	return s, nil
}

// GenerateSalt creates a fresh random salt for a new account.
func GenerateSalt() (Salt, error) {
	var s Salt
	if _, err := io.ReadFull(rand.Reader, s[:]); err != nil {
		return Salt{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	return s, nil
}

// Bytes returns the raw salt.
func (s Salt) Bytes() []byte {
	return s[:]
}
