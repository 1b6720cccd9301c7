// Package envelope implements key wrapping: encrypting one symmetric key
// under another. It is deliberately a separate layer from cryptoutils so
// that "encrypting a key" and "encrypting arbitrary data" stay distinct at
// call sites, and a raw key is never treated as ordinary payload data.
//
// A wrapped share key is called a recovery token. It is stored alongside a
// sharing session so the owner can regain the share key later with the
// master key alone; a token produced under one master key must fail to
// unwrap under any other.
package envelope

import (
	"encoding/base64"
	"fmt"

	"github.com/matrousse/record-sharing-backend/cryptoutils"
)

// RecoveryToken is a share key encrypted under the owner's master key, in
// the standard encrypted wire format. An empty token marks a
// burn-after-reading session whose key was intentionally never wrapped.
type RecoveryToken string

// String returns the token's wire form.
func (t RecoveryToken) String() string {
	return string(t)
}

// IsZero reports whether no recovery token was issued for a session.
func (t RecoveryToken) IsZero() bool {
	return t == ""
}

// wrappedKey is the plaintext structure inside a recovery token.
type wrappedKey struct {
	Key string `json:"key"`
}

// Wrap encrypts the raw share key under the wrapping master key.
func Wrap(shareKey cryptoutils.ShareKey, master cryptoutils.MasterKey) (RecoveryToken, error) {
	wire, err := cryptoutils.Encrypt(wrappedKey{
		Key: base64.StdEncoding.EncodeToString(shareKey.Bytes()),
	}, master)
	if err != nil {
		return "", fmt.Errorf("failed to wrap share key: %w", err)
	}

	return RecoveryToken(wire), nil
}

// Unwrap decrypts a recovery token with the master key and re-imports the
// embedded key material into a usable share key. It fails for tokens
// produced under a different master key and for tokens whose embedded
// material is not a valid 256-bit key.
func Unwrap(token RecoveryToken, master cryptoutils.MasterKey) (cryptoutils.ShareKey, error) {
	var wrapped wrappedKey
	if err := cryptoutils.Decrypt(string(token), master, &wrapped); err != nil {
		return cryptoutils.ShareKey{}, fmt.Errorf("failed to unwrap recovery token: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(wrapped.Key)
	if err != nil {
		return cryptoutils.ShareKey{}, fmt.Errorf("invalid key material in recovery token: %w", err)
	}

	return cryptoutils.NewShareKey(raw)
}
