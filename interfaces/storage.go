package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrSessionNotFound is returned when the requested sharing session
	// does not exist in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session is past its TTL and can
	// no longer be opened.
	ErrSessionExpired = errors.New("session expired")

	// ErrCorruptedPayload is returned when a session blob decrypted
	// successfully but its content-level shape or type tag is not one of
	// the recognized variants.
	ErrCorruptedPayload = errors.New("corrupted share payload")

	// ErrUnauthorized is returned when an ownership check fails at the
	// storage boundary, e.g. deleting another owner's session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRecordNotFound is returned when no encrypted student record blob
	// exists for the given owner.
	ErrRecordNotFound = errors.New("record not found")

	// ErrInvalidLocationURI is returned when a store location URI is
	// malformed or uses an unsupported scheme.
	ErrInvalidLocationURI = errors.New("invalid store location URI")
)

// SessionStore is the storage collaborator for sessions, guest notes, and
// the owner's encrypted student record. Implementations only ever see
// ciphertext for sensitive fields; possession of the store grants no
// ability to decrypt anything in it.
type SessionStore interface {
	// GetSession fetches a session by id. Returns ErrSessionNotFound if
	// absent. Expiry is not checked here; that is the caller's concern.
	GetSession(ctx context.Context, id SessionID) (*ShareSession, error)

	// InsertSession persists a new session and returns its id. When the
	// session carries no id, the store assigns a fresh one.
	InsertSession(ctx context.Context, session *ShareSession) (SessionID, error)

	// DeleteSession removes a session. It enforces ownership: a mismatched
	// ownerID yields ErrUnauthorized and leaves the session in place.
	DeleteSession(ctx context.Context, id SessionID, ownerID string) error

	// ListGuestNotesBySession returns all notes contributed under one session.
	ListGuestNotesBySession(ctx context.Context, id SessionID) ([]GuestNote, error)

	// ListGuestNotesByStudents returns all notes attached to any of the
	// given student ids, across sessions.
	ListGuestNotesByStudents(ctx context.Context, studentIDs []string) ([]GuestNote, error)

	// InsertGuestNote appends a guest note. Each note is an independent
	// insert keyed by a fresh id; there is no read-modify-write cycle.
	InsertGuestNote(ctx context.Context, note *GuestNote) error

	// UpsertStudentBlob stores the owner's encrypted student record,
	// replacing any previous value. Last writer wins; no concurrency token
	// is maintained.
	UpsertStudentBlob(ctx context.Context, ownerID string, encryptedBlob string) error

	// FetchStudentBlob returns the owner's encrypted student record, or
	// ErrRecordNotFound if none was stored.
	FetchStudentBlob(ctx context.Context, ownerID string) (string, error)
}

// StoreLocation represents a validated URI for a session store backend.
type StoreLocation struct {
	Raw    string
	Scheme string
	Host   string
	Path   string
	Query  url.Values
	User   *url.Userinfo
}

// NewStoreLocation parses and validates a store location URI.
// Supported schemes: memory://, file://, badger://, s3://
func NewStoreLocation(uri string) (StoreLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StoreLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch parsed.Scheme {
	case "memory", "file", "badger", "s3":
		// Valid scheme
	default:
		return StoreLocation{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	return StoreLocation{
		Raw:    uri,
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		User:   parsed.User,
	}, nil
}

// String returns the original URI string.
func (loc StoreLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc StoreLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}
