// Package cryptoutils provides the symmetric cryptography primitives for the
// record sharing system: master key derivation and authenticated encryption
// of structured payloads.
//
// Key derivation uses PBKDF2 with SHA-256 at a fixed 600,000 iterations,
// producing a 256-bit master key from the owner's password and a 16-byte
// per-account salt. The master key only ever lives in process memory.
//
// Payload encryption uses AES-256-GCM with a fresh random 12-byte IV per
// call. Values are serialized to JSON before encryption and the result is
// encoded as an ASCII wire string:
//
//	base64(iv) ":" base64(ciphertext||tag)
//
// # Error taxonomy
//
// Decryption distinguishes two failure kinds:
//
//   - ErrInvalidFormat - the wire string cannot be parsed (missing separator,
//     missing half, invalid base64)
//   - ErrDecryptionFailed - the authentication tag check failed (wrong key,
//     corrupted data, or tampering)
//
// Callers match with errors.Is. No partial or best-effort plaintext is ever
// returned.
//
// # Key types
//
// MasterKey and ShareKey are distinct fixed-size types even though both are
// 256-bit AES keys. The separation keeps "the owner's password-derived key"
// and "a per-session random key" from being interchangeable at call sites.
package cryptoutils
