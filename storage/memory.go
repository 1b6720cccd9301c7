package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/matrousse/record-sharing-backend/interfaces"
)

// MemoryStore implements an in-process session store. It backs tests and
// development mode; nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[interfaces.SessionID]interfaces.ShareSession
	notes    []interfaces.GuestNote
	records  map[string]string
	log      *slog.Logger
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore(log *slog.Logger) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[interfaces.SessionID]interfaces.ShareSession),
		records:  make(map[string]string),
		log:      log,
	}
}

// GetSession fetches a session by id.
func (s *MemoryStore) GetSession(ctx context.Context, id interfaces.SessionID) (*interfaces.ShareSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrSessionNotFound, id)
	}

	copied := session
	return &copied, nil
}

// InsertSession persists a new session, assigning an id if none is set.
func (s *MemoryStore) InsertSession(ctx context.Context, session *interfaces.ShareSession) (interfaces.SessionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ID == "" {
		session.ID = interfaces.NewSessionID()
	}
	s.sessions[session.ID] = *session

	return session.ID, nil
}

// DeleteSession removes a session after verifying ownership.
func (s *MemoryStore) DeleteSession(ctx context.Context, id interfaces.SessionID, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrSessionNotFound, id)
	}
	if session.OwnerID != ownerID {
		return fmt.Errorf("%w: session %s is not owned by %s", interfaces.ErrUnauthorized, id, ownerID)
	}

	delete(s.sessions, id)
	return nil
}

// ListGuestNotesBySession returns all notes contributed under one session.
func (s *MemoryStore) ListGuestNotesBySession(ctx context.Context, id interfaces.SessionID) ([]interfaces.GuestNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []interfaces.GuestNote
	for _, note := range s.notes {
		if note.SessionID == id {
			out = append(out, note)
		}
	}
	return out, nil
}

// ListGuestNotesByStudents returns all notes attached to any of the given
// student ids.
func (s *MemoryStore) ListGuestNotesByStudents(ctx context.Context, studentIDs []string) ([]interfaces.GuestNote, error) {
	wanted := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []interfaces.GuestNote
	for _, note := range s.notes {
		if _, ok := wanted[note.StudentID]; ok {
			out = append(out, note)
		}
	}
	return out, nil
}

// InsertGuestNote appends a guest note.
func (s *MemoryStore) InsertGuestNote(ctx context.Context, note *interfaces.GuestNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notes = append(s.notes, *note)
	return nil
}

// UpsertStudentBlob stores the owner's encrypted record, last writer wins.
func (s *MemoryStore) UpsertStudentBlob(ctx context.Context, ownerID string, encryptedBlob string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[ownerID] = encryptedBlob
	return nil
}

// FetchStudentBlob returns the owner's encrypted record.
func (s *MemoryStore) FetchStudentBlob(ctx context.Context, ownerID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.records[ownerID]
	if !ok {
		return "", fmt.Errorf("%w: owner %s", interfaces.ErrRecordNotFound, ownerID)
	}
	return blob, nil
}
