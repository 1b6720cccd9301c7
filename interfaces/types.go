package interfaces

import (
	"time"

	"github.com/google/uuid"
	"github.com/matrousse/record-sharing-backend/envelope"
)

type RecoveryToken = envelope.RecoveryToken

// SessionID uniquely identifies a sharing session.
type SessionID string

// NewSessionID generates a fresh random session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// String returns the id as a string.
func (id SessionID) String() string {
	return string(id)
}

// ShareSession is the stored form of one sharing session. Every sensitive
// field is ciphertext; the store never holds a key capable of decrypting
// EncryptedBlob or the session's guest notes.
type ShareSession struct {
	ID            SessionID     `json:"id"`
	EncryptedBlob string        `json:"encrypted_blob"`
	RecoveryToken RecoveryToken `json:"owner_recovery_token,omitempty"`
	RecipientName string        `json:"recipient_name"`
	OwnerID       string        `json:"owner_id"`
	ExpiresAt     time.Time     `json:"expires_at"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Expired reports whether the session is past its TTL at the given instant.
// An expired session can no longer be opened; owner-side recovery of its
// guest notes still works.
func (s *ShareSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// GuestNote is a journal note contributed by a guest, encrypted under the
// session's share key. The author name is stored in plaintext by design:
// it is non-sensitive and identifies the contributor to the owner.
type GuestNote struct {
	ID               string    `json:"id"`
	SessionID        SessionID `json:"session_id"`
	StudentID        string    `json:"student_id"`
	EncryptedContent string    `json:"encrypted_content"`
	AuthorName       string    `json:"author_name"`
	CreatedAt        time.Time `json:"created_at"`
}

// JournalEntry is one plaintext journal item inside a student record.
// Entry ids are generated client-side at creation time and serve as the
// sole deduplication key across owner and guest-contributed notes.
type JournalEntry struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Date      string `json:"date"`
	UpdatedAt string `json:"updatedAt"`
}

// Contact is a guardian or relative attached to a student record.
type Contact struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Relationship string `json:"relationship"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
}

// GradeItem is a single graded exercise. Value is the achieved score out of
// Base, and Weight is its share in the weighted mean.
type GradeItem struct {
	ID      string  `json:"id"`
	Value   float64 `json:"value"`
	Base    float64 `json:"base"`
	Weight  float64 `json:"weight"`
	Date    string  `json:"date"`
	Type    string  `json:"type,omitempty"`
	Comment string  `json:"comment,omitempty"`
}

// Student is the owner's aggregate record for one student. It exists in
// plaintext only in memory; at rest it is always encrypted under the
// owner's master key.
type Student struct {
	ID             string                 `json:"id"`
	FirstName      string                 `json:"firstName"`
	LastName       string                 `json:"lastName"`
	GradeLevel     string                 `json:"grade"`
	Gender         string                 `json:"gender,omitempty"`
	BirthDate      string                 `json:"birthDate,omitempty"`
	GeneralInfo    string                 `json:"generalInfo,omitempty"`
	JournalEntries []JournalEntry         `json:"journalEntries,omitempty"`
	Contacts       []Contact              `json:"contacts,omitempty"`
	Grades         map[string][]GradeItem `json:"grades,omitempty"`
}

// Clone returns a deep copy of the student record.
func (s Student) Clone() Student {
	out := s

	if s.JournalEntries != nil {
		out.JournalEntries = make([]JournalEntry, len(s.JournalEntries))
		copy(out.JournalEntries, s.JournalEntries)
	}

	if s.Contacts != nil {
		out.Contacts = make([]Contact, len(s.Contacts))
		copy(out.Contacts, s.Contacts)
	}

	if s.Grades != nil {
		out.Grades = make(map[string][]GradeItem, len(s.Grades))
		for competency, items := range s.Grades {
			copied := make([]GradeItem, len(items))
			copy(copied, items)
			out.Grades[competency] = copied
		}
	}

	return out
}

// CloneStudents deep-copies a list of student records.
func CloneStudents(students []Student) []Student {
	out := make([]Student, len(students))
	for i, s := range students {
		out[i] = s.Clone()
	}
	return out
}
