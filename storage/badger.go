package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/matrousse/record-sharing-backend/interfaces"
)

// BadgerStore implements a session store on an embedded Badger key-value
// database. Notes carry secondary index keys so lookups by session or
// student do not scan the whole keyspace.
//
// Key layout:
//
//	session:<sessionID>                      -> session JSON
//	note:<noteID>                            -> note JSON
//	idx:note-session:<sessionID>:<noteID>    -> noteID
//	idx:note-student:<studentID>:<noteID>    -> noteID
//	record:<ownerID>                         -> encrypted record blob
type BadgerStore struct {
	db  *badger.DB
	log *slog.Logger
}

// NewBadgerStore opens (or creates) a Badger database at the given path.
func NewBadgerStore(path string, log *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &BadgerStore{db: db, log: log}, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func sessionKey(id interfaces.SessionID) []byte {
	return []byte("session:" + id.String())
}

func noteKey(noteID string) []byte {
	return []byte("note:" + noteID)
}

func noteSessionIndexKey(sessionID interfaces.SessionID, noteID string) []byte {
	return []byte("idx:note-session:" + sessionID.String() + ":" + noteID)
}

func noteStudentIndexKey(studentID, noteID string) []byte {
	return []byte("idx:note-student:" + studentID + ":" + noteID)
}

func recordKey(ownerID string) []byte {
	return []byte("record:" + ownerID)
}

// GetSession fetches a session by id.
func (s *BadgerStore) GetSession(ctx context.Context, id interfaces.SessionID) (*interfaces.ShareSession, error) {
	var session interfaces.ShareSession

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	return &session, nil
}

// InsertSession persists a new session, assigning an id if none is set.
func (s *BadgerStore) InsertSession(ctx context.Context, session *interfaces.ShareSession) (interfaces.SessionID, error) {
	if session.ID == "" {
		session.ID = interfaces.NewSessionID()
	}

	data, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(session.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write session: %w", err)
	}

	return session.ID, nil
}

// DeleteSession removes a session after verifying ownership.
func (s *BadgerStore) DeleteSession(ctx context.Context, id interfaces.SessionID, ownerID string) error {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if session.OwnerID != ownerID {
		return fmt.Errorf("%w: session %s is not owned by %s", interfaces.ErrUnauthorized, id, ownerID)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// notesByIndex walks an index prefix and loads the referenced notes.
func (s *BadgerStore) notesByIndex(prefix []byte) ([]interfaces.GuestNote, error) {
	var out []interfaces.GuestNote

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			noteID := key[strings.LastIndex(key, ":")+1:]

			item, err := txn.Get(noteKey(noteID))
			if errors.Is(err, badger.ErrKeyNotFound) {
				s.log.Warn("Dangling note index entry", slog.String("key", key))
				continue
			}
			if err != nil {
				return err
			}

			var note interfaces.GuestNote
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &note)
			}); err != nil {
				return err
			}
			out = append(out, note)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	return out, nil
}

// ListGuestNotesBySession returns all notes contributed under one session.
func (s *BadgerStore) ListGuestNotesBySession(ctx context.Context, id interfaces.SessionID) ([]interfaces.GuestNote, error) {
	return s.notesByIndex([]byte("idx:note-session:" + id.String() + ":"))
}

// ListGuestNotesByStudents returns all notes attached to any of the given
// student ids.
func (s *BadgerStore) ListGuestNotesByStudents(ctx context.Context, studentIDs []string) ([]interfaces.GuestNote, error) {
	var out []interfaces.GuestNote
	for _, studentID := range studentIDs {
		notes, err := s.notesByIndex([]byte("idx:note-student:" + studentID + ":"))
		if err != nil {
			return nil, err
		}
		out = append(out, notes...)
	}
	return out, nil
}

// InsertGuestNote writes a note and its index entries in one transaction.
func (s *BadgerStore) InsertGuestNote(ctx context.Context, note *interfaces.GuestNote) error {
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to encode note: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(noteKey(note.ID), data); err != nil {
			return err
		}
		if err := txn.Set(noteSessionIndexKey(note.SessionID, note.ID), []byte(note.ID)); err != nil {
			return err
		}
		return txn.Set(noteStudentIndexKey(note.StudentID, note.ID), []byte(note.ID))
	})
	if err != nil {
		return fmt.Errorf("failed to write note: %w", err)
	}
	return nil
}

// UpsertStudentBlob writes the owner's encrypted record, last writer wins.
func (s *BadgerStore) UpsertStudentBlob(ctx context.Context, ownerID string, encryptedBlob string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(ownerID), []byte(encryptedBlob))
	})
	if err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// FetchStudentBlob reads the owner's encrypted record.
func (s *BadgerStore) FetchStudentBlob(ctx context.Context, ownerID string) (string, error) {
	var blob []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(ownerID))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: owner %s", interfaces.ErrRecordNotFound, ownerID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read record: %w", err)
	}

	return string(blob), nil
}
