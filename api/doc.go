// Package api provides the HTTP surface of the session store and the
// matching client.
//
// The server exposes an interfaces.SessionStore over REST. It is a
// blind store: session blobs, recovery tokens, and note contents are
// ciphertext on arrival, and the share keys needed to read them only
// ever exist in client URL fragments, which browsers do not transmit.
//
// Server wraps the listener with readiness endpoints (livez, readyz,
// drain, undrain) for rolling deployments; Handler carries the store
// endpoints; Client implements interfaces.SessionStore over the same
// wire format, so the sharing layer is agnostic to whether its store is
// local or remote.
package api
