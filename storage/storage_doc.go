// Package storage implements the session store backends behind the
// interfaces.SessionStore contract.
//
// Four backends are provided:
//
//   - MemoryStore - in-process maps, for tests and development mode
//   - FileStore - JSON documents on the local file system
//   - BadgerStore - embedded Badger key-value database with secondary
//     indexes for note lookups
//   - S3Store - Amazon S3 or compatible object storage
//
// StoreFactory builds any of them from a location URI (memory://, file://,
// badger://, s3://).
//
// Every backend stores only what it is handed: session blobs, recovery
// tokens, and note contents arrive as ciphertext, and no backend holds key
// material of any kind. Ownership of sessions is enforced at this layer;
// DeleteSession with a mismatched owner returns interfaces.ErrUnauthorized.
package storage
