package cryptoutils

import (
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2Iterations is the fixed iteration count for master key derivation.
// Changing it invalidates every key derived with the previous value, so it
// is part of the wire-compatibility contract.
const PBKDF2Iterations = 600000

// DeriveMasterKey derives the account master key from the owner's password
// and the per-account salt using PBKDF2-SHA256.
//
// The derivation is deterministic for identical (password, salt) pairs, and
// different salts yield unrelated keys even for identical passwords. It never
// substitutes a default key: an empty password is rejected outright.
func DeriveMasterKey(password string, salt Salt) (MasterKey, error) {
	if password == "" {
		return MasterKey{}, errors.New("password must not be empty")
	}

	raw := pbkdf2.Key([]byte(password), salt.Bytes(), PBKDF2Iterations, KeySize, sha256.New)
	return NewMasterKey(raw)
}
