package sharing

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/matrousse/record-sharing-backend/cryptoutils"
	"github.com/matrousse/record-sharing-backend/interfaces"
	"github.com/matrousse/record-sharing-backend/storage"
	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T) (*Manager, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore(slog.Default())
	return NewManager(store, slog.Default()), store
}

func testMasterKey(t *testing.T) cryptoutils.MasterKey {
	t.Helper()
	salt, err := cryptoutils.NewSalt([]byte("sharing-test-abc"))
	require.NoError(t, err)
	master, err := cryptoutils.DeriveMasterKey("owner password", salt)
	require.NoError(t, err)
	return master
}

func testStudents() []interfaces.Student {
	return []interfaces.Student{
		{
			ID:         "student-1",
			FirstName:  "Léa",
			LastName:   "Moreau",
			GradeLevel: "CE2",
			JournalEntries: []interfaces.JournalEntry{
				{ID: "entry-1", Content: "Bonne participation", Date: "2024-03-01T10:00:00Z", UpdatedAt: "2024-03-01T10:00:00Z"},
			},
		},
		{
			ID:         "student-2",
			FirstName:  "Tom",
			LastName:   "Bernard",
			GradeLevel: "CE2",
		},
	}
}

func TestCreateAndOpenRoundTrip(t *testing.T) {
	mgr, _ := testManager(t)
	master := testMasterKey(t)
	ctx := context.Background()

	id, shareKey, err := mgr.Create(ctx, testStudents(), &master, CreateOptions{
		RecipientName: "Mme Dupont",
		OwnerID:       "owner-1",
		TTL:           72 * time.Hour,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	opened, err := mgr.Open(ctx, id, shareKey.Fragment())
	require.NoError(t, err)
	require.Equal(t, "Mme Dupont", opened.RecipientName)
	require.Equal(t, shareKey, opened.ShareKey)
	require.Len(t, opened.Students, 2)
	require.Equal(t, "Léa", opened.Students[0].FirstName)

	// The snapshot's own entries are the original set.
	require.Len(t, opened.OriginalEntryIDs, 1)
	require.Contains(t, opened.OriginalEntryIDs, "entry-1")
}

func TestCreateNeverSendsKeyMaterialToStore(t *testing.T) {
	mgr, store := testManager(t)
	master := testMasterKey(t)
	ctx := context.Background()

	id, shareKey, err := mgr.Create(ctx, testStudents(), &master, CreateOptions{
		RecipientName: "Mme Dupont",
		OwnerID:       "owner-1",
		TTL:           time.Hour,
	})
	require.NoError(t, err)

	session, err := store.GetSession(ctx, id)
	require.NoError(t, err)

	// The stored blob and token must not contain the raw key in any form.
	require.NotContains(t, session.EncryptedBlob, shareKey.Fragment())
	require.NotContains(t, session.RecoveryToken.String(), shareKey.Fragment())
}

func TestOpenNotFound(t *testing.T) {
	mgr, _ := testManager(t)

	key, err := cryptoutils.GenerateShareKey()
	require.NoError(t, err)

	_, err = mgr.Open(context.Background(), "no-such-session", key.Fragment())
	require.ErrorIs(t, err, interfaces.ErrSessionNotFound)
}

func TestOpenExpiredSession(t *testing.T) {
	mgr, _ := testManager(t)
	master := testMasterKey(t)
	ctx := context.Background()

	id, shareKey, err := mgr.Create(ctx, testStudents(), &master, CreateOptions{
		RecipientName: "Mme Dupont",
		OwnerID:       "owner-1",
		TTL:           time.Hour,
	})
	require.NoError(t, err)

	// One second past expiry; the valid fragment must not matter.
	mgr.now = func() time.Time { return time.Now().Add(time.Hour + time.Second) }

	_, err = mgr.Open(ctx, id, shareKey.Fragment())
	require.ErrorIs(t, err, interfaces.ErrSessionExpired)
}

func TestOpenWrongFragment(t *testing.T) {
	mgr, _ := testManager(t)
	master := testMasterKey(t)
	ctx := context.Background()

	id, _, err := mgr.Create(ctx, testStudents(), &master, CreateOptions{
		RecipientName: "Mme Dupont",
		OwnerID:       "owner-1",
		TTL:           time.Hour,
	})
	require.NoError(t, err)

	otherKey, err := cryptoutils.GenerateShareKey()
	require.NoError(t, err)

	_, err = mgr.Open(ctx, id, otherKey.Fragment())
	require.ErrorIs(t, err, cryptoutils.ErrDecryptionFailed)
}

func TestOpenRejectsUnknownPayloadType(t *testing.T) {
	mgr, store := testManager(t)
	ctx := context.Background()

	shareKey, err := cryptoutils.GenerateShareKey()
	require.NoError(t, err)

	// A blob that decrypts fine but carries a tag outside the closed set.
	blob, err := cryptoutils.Encrypt(sharePayload{
		Type: "grade_export",
		Data: shareData{Students: []interfaces.Student{}},
	}, shareKey)
	require.NoError(t, err)

	id, err := store.InsertSession(ctx, &interfaces.ShareSession{
		EncryptedBlob: blob,
		OwnerID:       "owner-1",
		ExpiresAt:     time.Now().Add(time.Hour),
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)

	_, err = mgr.Open(ctx, id, shareKey.Fragment())
	require.ErrorIs(t, err, interfaces.ErrCorruptedPayload)
}

func TestOpenRejectsMissingStudentList(t *testing.T) {
	mgr, store := testManager(t)
	ctx := context.Background()

	shareKey, err := cryptoutils.GenerateShareKey()
	require.NoError(t, err)

	blob, err := cryptoutils.Encrypt(map[string]any{
		"type": PayloadTypeStudentShare,
		"data": map[string]any{},
	}, shareKey)
	require.NoError(t, err)

	id, err := store.InsertSession(ctx, &interfaces.ShareSession{
		EncryptedBlob: blob,
		OwnerID:       "owner-1",
		ExpiresAt:     time.Now().Add(time.Hour),
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)

	_, err = mgr.Open(ctx, id, shareKey.Fragment())
	require.ErrorIs(t, err, interfaces.ErrCorruptedPayload)
}

func TestContributeAndReopen(t *testing.T) {
	mgr, _ := testManager(t)
	master := testMasterKey(t)
	ctx := context.Background()

	id, shareKey, err := mgr.Create(ctx, testStudents(), &master, CreateOptions{
		RecipientName: "Mme Dupont",
		OwnerID:       "owner-1",
		TTL:           time.Hour,
	})
	require.NoError(t, err)

	note, err := mgr.Contribute(ctx, id, "student-2", "Tom a bien progressé en lecture.", shareKey, "Mme Dupont")
	require.NoError(t, err)
	require.NotEmpty(t, note.ID)

	opened, err := mgr.Open(ctx, id, shareKey.Fragment())
	require.NoError(t, err)

	var tom *interfaces.Student
	for i := range opened.Students {
		if opened.Students[i].ID == "student-2" {
			tom = &opened.Students[i]
		}
	}
	require.NotNil(t, tom)
	require.Len(t, tom.JournalEntries, 1)
	require.Equal(t, note.ID, tom.JournalEntries[0].ID)
	require.Equal(t, "Tom a bien progressé en lecture.", tom.JournalEntries[0].Content)

	// Entries present at load time count as original.
	require.Contains(t, opened.OriginalEntryIDs, note.ID)
}

func TestOpenSkipsUndecryptableNote(t *testing.T) {
	mgr, store := testManager(t)
	master := testMasterKey(t)
	ctx := context.Background()

	id, shareKey, err := mgr.Create(ctx, testStudents(), &master, CreateOptions{
		RecipientName: "Mme Dupont",
		OwnerID:       "owner-1",
		TTL:           time.Hour,
	})
	require.NoError(t, err)

	_, err = mgr.Contribute(ctx, id, "student-1", "Note lisible", shareKey, "Mme Dupont")
	require.NoError(t, err)

	// A note encrypted under a foreign key slipped into the session.
	foreignKey, err := cryptoutils.GenerateShareKey()
	require.NoError(t, err)
	corrupt, err := cryptoutils.Encrypt("illisible", foreignKey)
	require.NoError(t, err)
	require.NoError(t, store.InsertGuestNote(ctx, &interfaces.GuestNote{
		ID:               "corrupt-note",
		SessionID:        id,
		StudentID:        "student-1",
		EncryptedContent: corrupt,
		AuthorName:       "Mme Dupont",
		CreatedAt:        time.Now(),
	}))

	opened, err := mgr.Open(ctx, id, shareKey.Fragment())
	require.NoError(t, err)

	// The readable note made it in, the corrupt one was skipped.
	require.Len(t, opened.Students[0].JournalEntries, 2)
	for _, entry := range opened.Students[0].JournalEntries {
		require.NotEqual(t, "corrupt-note", entry.ID)
	}
}

func TestDeleteSession(t *testing.T) {
	mgr, _ := testManager(t)
	master := testMasterKey(t)
	ctx := context.Background()

	id, _, err := mgr.Create(ctx, testStudents(), &master, CreateOptions{
		OwnerID: "owner-1",
		TTL:     time.Hour,
	})
	require.NoError(t, err)

	require.ErrorIs(t, mgr.Delete(ctx, id, "intruder"), interfaces.ErrUnauthorized)
	require.NoError(t, mgr.Delete(ctx, id, "owner-1"))
}

func TestCreateRejectsUnknownType(t *testing.T) {
	mgr, _ := testManager(t)
	master := testMasterKey(t)

	_, _, err := mgr.Create(context.Background(), testStudents(), &master, CreateOptions{
		Type:    "grade_export",
		OwnerID: "owner-1",
		TTL:     time.Hour,
	})
	require.Error(t, err)
}
