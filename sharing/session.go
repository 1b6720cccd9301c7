package sharing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/matrousse/record-sharing-backend/cryptoutils"
	"github.com/matrousse/record-sharing-backend/envelope"
	"github.com/matrousse/record-sharing-backend/interfaces"
)

// Recognized payload type tags. A decrypted blob carrying any other tag is
// rejected as corrupted.
const (
	PayloadTypeStudentShare = "student_share"
	PayloadTypeParentShare  = "parent_share"
)

// payloadSource marks blobs produced by this system.
const payloadSource = "matrousse"

// sharePayload is the tagged plaintext structure inside a session blob.
// Decoding into it is the closed-variant check: Type must be one of the
// recognized tags and Data.Students must be present.
type sharePayload struct {
	Type          string    `json:"type"`
	Data          shareData `json:"data"`
	Source        string    `json:"source"`
	Timestamp     int64     `json:"timestamp"`
	RecipientName string    `json:"recipientName"`
}

type shareData struct {
	Students []interfaces.Student `json:"students"`
}

// CreateOptions configures a new sharing session.
type CreateOptions struct {
	// Type is the payload type tag; defaults to PayloadTypeStudentShare.
	Type string

	// RecipientName identifies the guest the link is meant for.
	RecipientName string

	// OwnerID is the account creating the share.
	OwnerID string

	// TTL is the session's time to live; once past, the session can no
	// longer be opened.
	TTL time.Duration
}

// OpenedShare is a decrypted sharing session as seen by a guest.
type OpenedShare struct {
	Students      []interfaces.Student
	RecipientName string
	ShareKey      cryptoutils.ShareKey

	// OriginalEntryIDs holds the ids of every journal entry present right
	// after loading, so callers can tell entries added later in the guest
	// session apart from the snapshot's own.
	OriginalEntryIDs map[string]struct{}
}

// Manager implements the sharing session lifecycle and guest note recovery
// on top of a session store. The store only ever receives ciphertext; all
// keys stay inside the manager's callers.
type Manager struct {
	store interfaces.SessionStore
	log   *slog.Logger
	now   func() time.Time
}

// NewManager creates a sharing manager backed by the given store.
func NewManager(store interfaces.SessionStore, log *slog.Logger) *Manager {
	return &Manager{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Create mints a fresh share key, encrypts a snapshot of the given students
// under it, and persists the session. The returned share key is for the
// caller to embed in a URL fragment; it is never sent to the store.
//
// When master is non-nil the share key is additionally wrapped under it into
// a recovery token stored with the session, so the owner can recover guest
// notes later. A nil master produces a session with no recovery token:
// burn-after-reading, deliberately irrecoverable by the owner.
func (m *Manager) Create(ctx context.Context, students []interfaces.Student, master *cryptoutils.MasterKey, opts CreateOptions) (interfaces.SessionID, cryptoutils.ShareKey, error) {
	shareType := opts.Type
	if shareType == "" {
		shareType = PayloadTypeStudentShare
	}
	if shareType != PayloadTypeStudentShare && shareType != PayloadTypeParentShare {
		return "", cryptoutils.ShareKey{}, fmt.Errorf("unknown share payload type: %q", shareType)
	}

	shareKey, err := cryptoutils.GenerateShareKey()
	if err != nil {
		return "", cryptoutils.ShareKey{}, err
	}

	now := m.now()
	payload := sharePayload{
		Type:          shareType,
		Data:          shareData{Students: students},
		Source:        payloadSource,
		Timestamp:     now.UnixMilli(),
		RecipientName: opts.RecipientName,
	}

	encryptedBlob, err := cryptoutils.Encrypt(payload, shareKey)
	if err != nil {
		return "", cryptoutils.ShareKey{}, fmt.Errorf("failed to encrypt share payload: %w", err)
	}

	var token envelope.RecoveryToken
	if master != nil {
		token, err = envelope.Wrap(shareKey, *master)
		if err != nil {
			return "", cryptoutils.ShareKey{}, err
		}
	}

	session := &interfaces.ShareSession{
		EncryptedBlob: encryptedBlob,
		RecoveryToken: token,
		RecipientName: opts.RecipientName,
		OwnerID:       opts.OwnerID,
		ExpiresAt:     now.Add(opts.TTL),
		CreatedAt:     now,
	}

	id, err := m.store.InsertSession(ctx, session)
	if err != nil {
		return "", cryptoutils.ShareKey{}, fmt.Errorf("failed to persist session: %w", err)
	}

	m.log.Info("Created sharing session",
		slog.String("sessionID", id.String()),
		slog.String("type", shareType),
		slog.Bool("recoverable", !token.IsZero()),
		slog.Time("expiresAt", session.ExpiresAt))

	return id, shareKey, nil
}

// Open loads a sharing session as a guest holding the URL fragment.
//
// It fails with interfaces.ErrSessionNotFound or interfaces.ErrSessionExpired
// for missing or stale sessions, lets primitive decryption errors propagate
// untouched (a share link is all-or-nothing), and fails with
// interfaces.ErrCorruptedPayload when the blob decrypts to something other
// than a recognized tagged payload with a student list.
//
// The session's guest notes are decrypted with the same share key and folded
// into the snapshot; a note that cannot be decrypted is skipped, never
// failing the whole open.
func (m *Manager) Open(ctx context.Context, id interfaces.SessionID, fragment string) (*OpenedShare, error) {
	session, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.Expired(m.now()) {
		return nil, fmt.Errorf("%w: session %s", interfaces.ErrSessionExpired, id)
	}

	shareKey, err := cryptoutils.ShareKeyFromFragment(fragment)
	if err != nil {
		return nil, err
	}

	var payload sharePayload
	if err := cryptoutils.Decrypt(session.EncryptedBlob, shareKey, &payload); err != nil {
		return nil, err
	}

	if payload.Type != PayloadTypeStudentShare && payload.Type != PayloadTypeParentShare {
		return nil, fmt.Errorf("%w: unrecognized payload type %q", interfaces.ErrCorruptedPayload, payload.Type)
	}
	if payload.Data.Students == nil {
		return nil, fmt.Errorf("%w: missing student list", interfaces.ErrCorruptedPayload)
	}

	students := payload.Data.Students

	notes, err := m.store.ListGuestNotesBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list guest notes: %w", err)
	}

	for _, note := range notes {
		var content string
		if err := cryptoutils.Decrypt(note.EncryptedContent, shareKey, &content); err != nil {
			m.log.Warn("Skipping undecryptable guest note",
				slog.String("noteID", note.ID),
				slog.String("sessionID", id.String()),
				"err", err)
			continue
		}

		for i := range students {
			if students[i].ID != note.StudentID {
				continue
			}
			students[i].JournalEntries = MergeEntries(students[i].JournalEntries, []interfaces.JournalEntry{noteEntry(note, content)})
			break
		}
	}

	return &OpenedShare{
		Students:         students,
		RecipientName:    payload.RecipientName,
		ShareKey:         shareKey,
		OriginalEntryIDs: EntryIDSet(students),
	}, nil
}

// Contribute encrypts a guest's note content under the session's share key
// and appends it as a guest note. Each contribution is an independent insert
// keyed by a fresh id, so no read-modify-write protection is needed.
func (m *Manager) Contribute(ctx context.Context, sessionID interfaces.SessionID, studentID, content string, shareKey cryptoutils.ShareKey, authorName string) (*interfaces.GuestNote, error) {
	encryptedContent, err := cryptoutils.Encrypt(content, shareKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt note content: %w", err)
	}

	note := &interfaces.GuestNote{
		ID:               uuid.NewString(),
		SessionID:        sessionID,
		StudentID:        studentID,
		EncryptedContent: encryptedContent,
		AuthorName:       authorName,
		CreatedAt:        m.now(),
	}

	if err := m.store.InsertGuestNote(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to persist guest note: %w", err)
	}

	return note, nil
}

// Delete removes a session. Ownership is enforced by the store.
func (m *Manager) Delete(ctx context.Context, id interfaces.SessionID, ownerID string) error {
	return m.store.DeleteSession(ctx, id, ownerID)
}

// noteEntry converts a guest note plus its decrypted content into a journal
// entry. The note's own id becomes the entry id, which is what makes merges
// idempotent across open and recovery flows.
func noteEntry(note interfaces.GuestNote, content string) interfaces.JournalEntry {
	ts := note.CreatedAt.Format(time.RFC3339)
	return interfaces.JournalEntry{
		ID:        note.ID,
		Content:   content,
		Date:      ts,
		UpdatedAt: ts,
	}
}

// EntryIDSet collects the ids of every journal entry across the given
// student records.
func EntryIDSet(students []interfaces.Student) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, s := range students {
		for _, e := range s.JournalEntries {
			ids[e.ID] = struct{}{}
		}
	}
	return ids
}
