// Package sharing implements the secure sharing protocol: creating and
// opening scoped snapshots of student records, guest note contribution, and
// owner-side recovery of guest notes.
//
// # Protocol
//
// Create mints a fresh random share key per session, encrypts a tagged
// snapshot of the selected students under it, and wraps the share key under
// the owner's master key into a recovery token stored with the session. The
// raw share key goes only into the URL fragment handed to the guest
// out-of-band; the storage layer never sees a key capable of decrypting the
// session.
//
// Open is the guest side: fetch the session, import the fragment, decrypt
// the snapshot, and fold in previously contributed notes. Contribute
// encrypts new guest notes under the same share key.
//
// RecoverGuestNotes is the owner side: unwrap each session's recovery token
// with the master key, decrypt the notes, and group the recovered journal
// entries by student. MergeEntries folds them into live records with
// first-seen-wins deduplication by entry id, so repeating a merge never
// duplicates or reorders entries.
//
// # Session states
//
//	Created -> Open(0..n) -> Expired | Deleted
//
// There is no transition back from Expired or Deleted. Expiry only blocks
// opening; owner-side recovery of an expired session's notes still works.
//
// # Failure policy
//
// Open is all-or-nothing: primitive decryption errors propagate to the
// caller. Recovery is best-effort per note: one corrupt note is skipped and
// reported while the rest of the batch proceeds.
package sharing
