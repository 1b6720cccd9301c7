package sharing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/matrousse/record-sharing-backend/cryptoutils"
	"github.com/matrousse/record-sharing-backend/envelope"
	"github.com/matrousse/record-sharing-backend/interfaces"
	"golang.org/x/sync/singleflight"
)

// NoteWithSession pairs a guest note with its session's recovery token,
// which is all the owner needs to regain the note's share key.
type NoteWithSession struct {
	Note          interfaces.GuestNote
	RecoveryToken interfaces.RecoveryToken
}

// NoteFailure reports one guest note that could not be recovered. A failed
// note never aborts the batch it belongs to.
type NoteFailure struct {
	NoteID    string
	SessionID interfaces.SessionID
	Err       error
}

func (f NoteFailure) Error() string {
	return fmt.Sprintf("guest note %s (session %s): %v", f.NoteID, f.SessionID, f.Err)
}

// shareKeyCache memoizes unwrapped share keys per recovery token. Unwrapping
// is comparatively expensive and many notes usually belong to one session,
// so concurrent requesters for the same token await a single in-flight
// unwrap instead of repeating it.
type shareKeyCache struct {
	mu    sync.RWMutex
	keys  map[interfaces.RecoveryToken]cryptoutils.ShareKey
	group singleflight.Group
}

func newShareKeyCache() *shareKeyCache {
	return &shareKeyCache{keys: make(map[interfaces.RecoveryToken]cryptoutils.ShareKey)}
}

func (c *shareKeyCache) get(token interfaces.RecoveryToken, master cryptoutils.MasterKey) (cryptoutils.ShareKey, error) {
	c.mu.RLock()
	key, ok := c.keys[token]
	c.mu.RUnlock()
	if ok {
		return key, nil
	}

	v, err, _ := c.group.Do(token.String(), func() (any, error) {
		key, err := envelope.Unwrap(token, master)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.keys[token] = key
		c.mu.Unlock()

		return key, nil
	})
	if err != nil {
		return cryptoutils.ShareKey{}, err
	}

	return v.(cryptoutils.ShareKey), nil
}

// RecoverGuestNotes unwraps each note's recovery token with the master key,
// decrypts the note content, and returns the recovered journal entries
// grouped by student id.
//
// Notes are processed concurrently; per-token unwraps are deduplicated by a
// single-flight cache. The failure policy is skip-and-report: a note whose
// token belongs to a different master key or whose ciphertext is corrupted
// appears in the returned failure list while the rest of the batch proceeds.
// Notes from burn-after-reading sessions (no recovery token) are skipped
// silently, as no key for them is recoverable by design.
func (m *Manager) RecoverGuestNotes(ctx context.Context, notes []NoteWithSession, master cryptoutils.MasterKey) (map[string][]interfaces.JournalEntry, []NoteFailure) {
	cache := newShareKeyCache()

	type outcome struct {
		studentID string
		entry     interfaces.JournalEntry
		failure   *NoteFailure
	}

	outcomes := make([]outcome, len(notes))

	var wg sync.WaitGroup
	for i, ns := range notes {
		if ns.RecoveryToken.IsZero() {
			continue
		}

		wg.Add(1)
		go func(i int, ns NoteWithSession) {
			defer wg.Done()

			shareKey, err := cache.get(ns.RecoveryToken, master)
			if err != nil {
				outcomes[i] = outcome{failure: &NoteFailure{NoteID: ns.Note.ID, SessionID: ns.Note.SessionID, Err: err}}
				return
			}

			var content string
			if err := cryptoutils.Decrypt(ns.Note.EncryptedContent, shareKey, &content); err != nil {
				outcomes[i] = outcome{failure: &NoteFailure{NoteID: ns.Note.ID, SessionID: ns.Note.SessionID, Err: err}}
				return
			}

			outcomes[i] = outcome{studentID: ns.Note.StudentID, entry: noteEntry(ns.Note, content)}
		}(i, ns)
	}
	wg.Wait()

	recovered := make(map[string][]interfaces.JournalEntry)
	var failures []NoteFailure

	for _, o := range outcomes {
		switch {
		case o.failure != nil:
			m.log.Warn("Skipping unrecoverable guest note",
				slog.String("noteID", o.failure.NoteID),
				slog.String("sessionID", o.failure.SessionID.String()),
				"err", o.failure.Err)
			failures = append(failures, *o.failure)
		case o.studentID != "":
			recovered[o.studentID] = append(recovered[o.studentID], o.entry)
		}
	}

	// Concurrent recovery gives no ordering; make the per-student lists
	// deterministic before anyone merges them.
	for _, entries := range recovered {
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].Date != entries[j].Date {
				return entries[i].Date < entries[j].Date
			}
			return entries[i].ID < entries[j].ID
		})
	}

	return recovered, failures
}

// MergeEntries combines existing and recovered journal entries,
// deduplicated by entry id with the first occurrence kept. Running the same
// merge twice yields the same set in the same order.
func MergeEntries(existing, recovered []interfaces.JournalEntry) []interfaces.JournalEntry {
	out := make([]interfaces.JournalEntry, 0, len(existing)+len(recovered))
	seen := make(map[string]struct{}, len(existing)+len(recovered))

	for _, entry := range existing {
		if _, ok := seen[entry.ID]; ok {
			continue
		}
		seen[entry.ID] = struct{}{}
		out = append(out, entry)
	}

	for _, entry := range recovered {
		if _, ok := seen[entry.ID]; ok {
			continue
		}
		seen[entry.ID] = struct{}{}
		out = append(out, entry)
	}

	return out
}

// EnrichStudents returns a deep copy of the given students with all
// recoverable guest notes folded into their journals. It is the owner-side
// view used before snapshotting a new share, so the snapshot contains
// everything the owner currently sees.
func (m *Manager) EnrichStudents(ctx context.Context, students []interfaces.Student, master cryptoutils.MasterKey) ([]interfaces.Student, error) {
	enriched := interfaces.CloneStudents(students)

	studentIDs := make([]string, len(enriched))
	for i, s := range enriched {
		studentIDs[i] = s.ID
	}

	notes, err := m.store.ListGuestNotesByStudents(ctx, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list guest notes: %w", err)
	}
	if len(notes) == 0 {
		return enriched, nil
	}

	// One session usually covers many notes; fetch each session once.
	sessions := make(map[interfaces.SessionID]*interfaces.ShareSession)
	withSessions := make([]NoteWithSession, 0, len(notes))
	for _, note := range notes {
		session, ok := sessions[note.SessionID]
		if !ok {
			session, err = m.store.GetSession(ctx, note.SessionID)
			if err != nil {
				m.log.Warn("Skipping guest note with unresolvable session",
					slog.String("noteID", note.ID),
					slog.String("sessionID", note.SessionID.String()),
					"err", err)
				sessions[note.SessionID] = nil
				continue
			}
			sessions[note.SessionID] = session
		}
		if session == nil {
			continue
		}

		withSessions = append(withSessions, NoteWithSession{Note: note, RecoveryToken: session.RecoveryToken})
	}

	recovered, failures := m.RecoverGuestNotes(ctx, withSessions, master)
	if len(failures) > 0 {
		m.log.Warn("Some guest notes could not be recovered", slog.Int("failed", len(failures)))
	}

	for i := range enriched {
		if entries, ok := recovered[enriched[i].ID]; ok {
			enriched[i].JournalEntries = MergeEntries(enriched[i].JournalEntries, entries)
		}
	}

	return enriched, nil
}
