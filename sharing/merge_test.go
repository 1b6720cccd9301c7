package sharing

import (
	"context"
	"testing"
	"time"

	"github.com/matrousse/record-sharing-backend/cryptoutils"
	"github.com/matrousse/record-sharing-backend/interfaces"
	"github.com/stretchr/testify/require"
)

func TestMergeEntriesFirstSeenWins(t *testing.T) {
	existing := []interfaces.JournalEntry{
		{ID: "a", Content: "original a"},
		{ID: "b", Content: "original b"},
	}
	recovered := []interfaces.JournalEntry{
		{ID: "b", Content: "recovered b, must not replace"},
		{ID: "c", Content: "recovered c"},
	}

	merged := MergeEntries(existing, recovered)
	require.Len(t, merged, 3)
	require.Equal(t, "a", merged[0].ID)
	require.Equal(t, "b", merged[1].ID)
	require.Equal(t, "original b", merged[1].Content)
	require.Equal(t, "c", merged[2].ID)
}

func TestMergeEntriesIdempotent(t *testing.T) {
	existing := []interfaces.JournalEntry{{ID: "a", Content: "a"}}
	recovered := []interfaces.JournalEntry{{ID: "b", Content: "b"}, {ID: "c", Content: "c"}}

	once := MergeEntries(existing, recovered)
	twice := MergeEntries(once, recovered)

	require.Equal(t, once, twice)
}

func contributeNotes(t *testing.T, mgr *Manager, sessionID interfaces.SessionID, shareKey cryptoutils.ShareKey, studentID string, contents ...string) []*interfaces.GuestNote {
	t.Helper()
	out := make([]*interfaces.GuestNote, 0, len(contents))
	for _, content := range contents {
		note, err := mgr.Contribute(context.Background(), sessionID, studentID, content, shareKey, "Mme Dupont")
		require.NoError(t, err)
		out = append(out, note)
	}
	return out
}

func notesWithSessions(t *testing.T, store interfaces.SessionStore, studentIDs ...string) []NoteWithSession {
	t.Helper()
	ctx := context.Background()

	notes, err := store.ListGuestNotesByStudents(ctx, studentIDs)
	require.NoError(t, err)

	out := make([]NoteWithSession, 0, len(notes))
	for _, note := range notes {
		session, err := store.GetSession(ctx, note.SessionID)
		require.NoError(t, err)
		out = append(out, NoteWithSession{Note: note, RecoveryToken: session.RecoveryToken})
	}
	return out
}

func TestRecoverGuestNotes(t *testing.T) {
	mgr, store := testManager(t)
	master := testMasterKey(t)
	ctx := context.Background()

	id, shareKey, err := mgr.Create(ctx, testStudents(), &master, CreateOptions{
		OwnerID: "owner-1",
		TTL:     time.Hour,
	})
	require.NoError(t, err)

	contributeNotes(t, mgr, id, shareKey, "student-1", "première note", "deuxième note")
	contributeNotes(t, mgr, id, shareKey, "student-2", "note pour Tom")

	recovered, failures := mgr.RecoverGuestNotes(ctx, notesWithSessions(t, store, "student-1", "student-2"), master)
	require.Empty(t, failures)
	require.Len(t, recovered["student-1"], 2)
	require.Len(t, recovered["student-2"], 1)
	require.Equal(t, "note pour Tom", recovered["student-2"][0].Content)
}

func TestRecoverGuestNotesWrongMasterKey(t *testing.T) {
	mgr, store := testManager(t)
	master := testMasterKey(t)
	ctx := context.Background()

	id, shareKey, err := mgr.Create(ctx, testStudents(), &master, CreateOptions{
		OwnerID: "owner-1",
		TTL:     time.Hour,
	})
	require.NoError(t, err)
	contributeNotes(t, mgr, id, shareKey, "student-1", "note")

	salt, err := cryptoutils.NewSalt([]byte("other-salt-16byt"))
	require.NoError(t, err)
	otherMaster, err := cryptoutils.DeriveMasterKey("other password", salt)
	require.NoError(t, err)

	// Tokens from a different master key must fail to unwrap, and the
	// failure is reported, not thrown.
	recovered, failures := mgr.RecoverGuestNotes(ctx, notesWithSessions(t, store, "student-1"), otherMaster)
	require.Empty(t, recovered)
	require.Len(t, failures, 1)
	require.ErrorIs(t, failures[0].Err, cryptoutils.ErrDecryptionFailed)
}

func TestRecoverGuestNotesPartialFailure(t *testing.T) {
	mgr, store := testManager(t)
	master := testMasterKey(t)
	ctx := context.Background()

	id, shareKey, err := mgr.Create(ctx, testStudents(), &master, CreateOptions{
		OwnerID: "owner-1",
		TTL:     time.Hour,
	})
	require.NoError(t, err)

	contributeNotes(t, mgr, id, shareKey, "student-1", "lisible une", "lisible deux", "lisible trois")

	// Corrupt exactly one note's ciphertext in place.
	foreignKey, err := cryptoutils.GenerateShareKey()
	require.NoError(t, err)
	corrupt, err := cryptoutils.Encrypt("corrompue", foreignKey)
	require.NoError(t, err)
	require.NoError(t, store.InsertGuestNote(ctx, &interfaces.GuestNote{
		ID:               "corrupt-note",
		SessionID:        id,
		StudentID:        "student-1",
		EncryptedContent: corrupt,
		AuthorName:       "Mme Dupont",
		CreatedAt:        time.Now(),
	}))

	recovered, failures := mgr.RecoverGuestNotes(ctx, notesWithSessions(t, store, "student-1"), master)
	require.Len(t, recovered["student-1"], 3)
	require.Len(t, failures, 1)
	require.Equal(t, "corrupt-note", failures[0].NoteID)
}

func TestRecoverGuestNotesBurnAfterReading(t *testing.T) {
	mgr, store := testManager(t)
	master := testMasterKey(t)
	ctx := context.Background()

	// No master key at creation: no recovery token is minted.
	id, shareKey, err := mgr.Create(ctx, testStudents(), nil, CreateOptions{
		OwnerID: "owner-1",
		TTL:     time.Hour,
	})
	require.NoError(t, err)

	session, err := store.GetSession(ctx, id)
	require.NoError(t, err)
	require.True(t, session.RecoveryToken.IsZero())

	contributeNotes(t, mgr, id, shareKey, "student-1", "perdue pour toujours")

	// Notes under a token-less session are skipped without error.
	recovered, failures := mgr.RecoverGuestNotes(ctx, notesWithSessions(t, store, "student-1"), master)
	require.Empty(t, recovered)
	require.Empty(t, failures)
}

func TestRecoverGuestNotesSharedKeyCache(t *testing.T) {
	mgr, store := testManager(t)
	master := testMasterKey(t)
	ctx := context.Background()

	id, shareKey, err := mgr.Create(ctx, testStudents(), &master, CreateOptions{
		OwnerID: "owner-1",
		TTL:     time.Hour,
	})
	require.NoError(t, err)

	// Many notes under one session: all concurrent recoveries share a
	// single unwrap via the per-token cache.
	contents := make([]string, 32)
	for i := range contents {
		contents[i] = "note"
	}
	contributeNotes(t, mgr, id, shareKey, "student-1", contents...)

	recovered, failures := mgr.RecoverGuestNotes(ctx, notesWithSessions(t, store, "student-1"), master)
	require.Empty(t, failures)
	require.Len(t, recovered["student-1"], 32)
}

func TestEnrichStudents(t *testing.T) {
	mgr, _ := testManager(t)
	master := testMasterKey(t)
	ctx := context.Background()

	students := testStudents()
	id, shareKey, err := mgr.Create(ctx, students, &master, CreateOptions{
		OwnerID: "owner-1",
		TTL:     time.Hour,
	})
	require.NoError(t, err)

	notes := contributeNotes(t, mgr, id, shareKey, "student-1", "note du parent")

	enriched, err := mgr.EnrichStudents(ctx, students, master)
	require.NoError(t, err)

	require.Len(t, enriched[0].JournalEntries, 2)
	require.Equal(t, "entry-1", enriched[0].JournalEntries[0].ID)
	require.Equal(t, notes[0].ID, enriched[0].JournalEntries[1].ID)

	// The input was deep-copied, not mutated.
	require.Len(t, students[0].JournalEntries, 1)

	// Enriching twice is idempotent.
	again, err := mgr.EnrichStudents(ctx, enriched, master)
	require.NoError(t, err)
	require.Equal(t, enriched[0].JournalEntries, again[0].JournalEntries)
}
