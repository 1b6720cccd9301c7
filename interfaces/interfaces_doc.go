// Package interfaces defines the shared data model, typed errors, and the
// storage contract of the record sharing system.
//
// # Data model
//
// Student is the owner's aggregate record; JournalEntry its plaintext note
// items; GradeItem a single graded exercise. ShareSession and GuestNote are
// the stored, ciphertext-only forms of a sharing session and a guest
// contribution.
//
// # Key domains
//
// The system spans three independent key domains:
//
//   - the owner's master key, which encrypts the owner's records and every
//     recovery token the owner creates
//   - a per-session share key, which encrypts one session's snapshot and its
//     guest notes
//   - none at all on the server, which stores only ciphertext
//
// # Error taxonomy
//
// ErrSessionNotFound, ErrSessionExpired, ErrCorruptedPayload, and
// ErrUnauthorized are the user-facing typed failures of the sharing flow.
// None of them is transient and none is retried automatically. The
// primitive-level errors (malformed wire data, failed authentication) live
// in the cryptoutils package.
//
// # Storage contract
//
// SessionStore is the single mutable shared resource. Guest notes are
// append-only; the owner's encrypted record blob is an upsert with
// last-writer-wins semantics.
package interfaces
