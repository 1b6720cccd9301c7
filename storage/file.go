package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/matrousse/record-sharing-backend/interfaces"
)

// FileStore implements a session store on the local file system. Sessions,
// guest notes, and encrypted records live as JSON documents in separate
// subdirectories. Every sensitive field inside those documents is
// ciphertext produced upstream.
type FileStore struct {
	baseDir string
	log     *slog.Logger
}

const (
	fileSessionsDir = "sessions"
	fileNotesDir    = "notes"
	fileRecordsDir  = "records"
)

// NewFileStore creates a file-backed session store rooted at baseDir,
// creating the directory layout if needed.
func NewFileStore(baseDir string, log *slog.Logger) (*FileStore, error) {
	for _, sub := range []string{fileSessionsDir, fileNotesDir, fileRecordsDir} {
		if err := os.MkdirAll(filepath.Join(baseDir, sub), 0700); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", sub, err)
		}
	}

	return &FileStore{baseDir: baseDir, log: log}, nil
}

func (s *FileStore) sessionPath(id interfaces.SessionID) string {
	return filepath.Join(s.baseDir, fileSessionsDir, id.String()+".json")
}

func (s *FileStore) notePath(noteID string) string {
	return filepath.Join(s.baseDir, fileNotesDir, noteID+".json")
}

func (s *FileStore) recordPath(ownerID string) string {
	return filepath.Join(s.baseDir, fileRecordsDir, ownerID+".json")
}

// GetSession fetches a session document by id.
func (s *FileStore) GetSession(ctx context.Context, id interfaces.SessionID) (*interfaces.ShareSession, error) {
	data, err := os.ReadFile(s.sessionPath(id))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session interfaces.ShareSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session document: %w", err)
	}
	return &session, nil
}

// InsertSession writes a session document, assigning an id if none is set.
func (s *FileStore) InsertSession(ctx context.Context, session *interfaces.ShareSession) (interfaces.SessionID, error) {
	if session.ID == "" {
		session.ID = interfaces.NewSessionID()
	}

	data, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}

	if err := os.WriteFile(s.sessionPath(session.ID), data, 0600); err != nil {
		return "", fmt.Errorf("failed to write session: %w", err)
	}

	s.log.Debug("Stored session document",
		slog.String("sessionID", session.ID.String()))

	return session.ID, nil
}

// DeleteSession removes a session document after verifying ownership.
func (s *FileStore) DeleteSession(ctx context.Context, id interfaces.SessionID, ownerID string) error {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if session.OwnerID != ownerID {
		return fmt.Errorf("%w: session %s is not owned by %s", interfaces.ErrUnauthorized, id, ownerID)
	}

	if err := os.Remove(s.sessionPath(id)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// listNotes scans every note document and keeps those the filter accepts.
// A directory scan per query is acceptable at this backend's scale.
func (s *FileStore) listNotes(filter func(interfaces.GuestNote) bool) ([]interfaces.GuestNote, error) {
	dir := filepath.Join(s.baseDir, fileNotesDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes directory: %w", err)
	}

	var out []interfaces.GuestNote
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read note document: %w", err)
		}

		var note interfaces.GuestNote
		if err := json.Unmarshal(data, &note); err != nil {
			s.log.Warn("Skipping undecodable note document",
				slog.String("file", entry.Name()), "err", err)
			continue
		}

		if filter(note) {
			out = append(out, note)
		}
	}
	return out, nil
}

// ListGuestNotesBySession returns all notes contributed under one session.
func (s *FileStore) ListGuestNotesBySession(ctx context.Context, id interfaces.SessionID) ([]interfaces.GuestNote, error) {
	return s.listNotes(func(note interfaces.GuestNote) bool {
		return note.SessionID == id
	})
}

// ListGuestNotesByStudents returns all notes attached to any of the given
// student ids.
func (s *FileStore) ListGuestNotesByStudents(ctx context.Context, studentIDs []string) ([]interfaces.GuestNote, error) {
	wanted := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = struct{}{}
	}

	return s.listNotes(func(note interfaces.GuestNote) bool {
		_, ok := wanted[note.StudentID]
		return ok
	})
}

// InsertGuestNote writes a note document.
func (s *FileStore) InsertGuestNote(ctx context.Context, note *interfaces.GuestNote) error {
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to encode note: %w", err)
	}

	if err := os.WriteFile(s.notePath(note.ID), data, 0600); err != nil {
		return fmt.Errorf("failed to write note: %w", err)
	}
	return nil
}

// UpsertStudentBlob writes the owner's encrypted record, last writer wins.
func (s *FileStore) UpsertStudentBlob(ctx context.Context, ownerID string, encryptedBlob string) error {
	if err := os.WriteFile(s.recordPath(ownerID), []byte(encryptedBlob), 0600); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// FetchStudentBlob reads the owner's encrypted record.
func (s *FileStore) FetchStudentBlob(ctx context.Context, ownerID string) (string, error) {
	data, err := os.ReadFile(s.recordPath(ownerID))
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: owner %s", interfaces.ErrRecordNotFound, ownerID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read record: %w", err)
	}
	return string(data), nil
}
