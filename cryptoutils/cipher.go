package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// WireSeparator splits the base64 IV from the base64 ciphertext in the
// encrypted wire string.
const WireSeparator = ":"

// gcmNonceSize is the standard 12-byte nonce for AES-GCM.
const gcmNonceSize = 12

var (
	// ErrInvalidFormat is returned when an encrypted wire string cannot be
	// parsed: missing separator, missing half, or invalid base64. The data
	// was never handed to the cipher.
	ErrInvalidFormat = errors.New("malformed encrypted data")

	// ErrDecryptionFailed is returned when the GCM authentication check
	// fails: wrong key, corrupted data, or tampering. Distinguishable from
	// ErrInvalidFormat so callers can tell "can't parse" from "can't trust".
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Encrypt serializes the value to JSON and encrypts it with AES-256-GCM
// under the given key. A fresh random 12-byte IV is generated on every call;
// there is no way to supply one from outside.
//
// The result is an ASCII wire string: base64(iv) ":" base64(ciphertext||tag).
func Encrypt(value any, key AEADKey) (string, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to serialize payload: %w", err)
	}

	aesGCM, err := newGCM(key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	ciphertext := aesGCM.Seal(nil, iv, plaintext, nil)

	return base64.StdEncoding.EncodeToString(iv) + WireSeparator + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt parses an encrypted wire string, authenticates and decrypts it
// with the given key, and unmarshals the plaintext JSON into out.
//
// Returns an error wrapping ErrInvalidFormat when the wire string cannot be
// parsed, and one wrapping ErrDecryptionFailed when the authentication check
// fails. No partial plaintext is ever returned.
func Decrypt(wire string, key AEADKey, out any) error {
	ivPart, ctPart, found := strings.Cut(wire, WireSeparator)
	if !found || ivPart == "" || ctPart == "" {
		return fmt.Errorf("%w: missing separator or part", ErrInvalidFormat)
	}

	iv, err := base64.StdEncoding.DecodeString(ivPart)
	if err != nil {
		return fmt.Errorf("%w: invalid IV encoding: %v", ErrInvalidFormat, err)
	}
	if len(iv) != gcmNonceSize {
		return fmt.Errorf("%w: IV must be %d bytes", ErrInvalidFormat, gcmNonceSize)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ctPart)
	if err != nil {
		return fmt.Errorf("%w: invalid ciphertext encoding: %v", ErrInvalidFormat, err)
	}

	aesGCM, err := newGCM(key)
	if err != nil {
		return err
	}

	plaintext, err := aesGCM.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("%w: authentication check failed", ErrDecryptionFailed)
	}

	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("failed to decode decrypted payload: %w", err)
	}

	return nil
}

func newGCM(key AEADKey) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return aesGCM, nil
}
