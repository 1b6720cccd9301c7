package api

import (
	"time"

	"github.com/matrousse/record-sharing-backend/interfaces"
)

// OwnerHeader carries the owner identifier on requests that are scoped
// to one owner. The storage API trusts the fronting proxy to have
// authenticated it; nothing in the payloads is readable without keys the
// server never sees.
const OwnerHeader = "X-Owner-Id"

// CreateSessionRequest is the body of POST /api/sessions. All sensitive
// fields arrive as ciphertext produced by the client; the owner comes
// from the OwnerHeader.
type CreateSessionRequest struct {
	EncryptedBlob string                   `json:"encrypted_blob"`
	RecoveryToken interfaces.RecoveryToken `json:"owner_recovery_token,omitempty"`
	RecipientName string                   `json:"recipient_name"`
	ExpiresAt     time.Time                `json:"expires_at"`
}

// CreateSessionResponse returns the id assigned to a new session.
type CreateSessionResponse struct {
	ID interfaces.SessionID `json:"id"`
}

// ContributeNoteRequest is the body of POST /api/sessions/{session_id}/notes.
type ContributeNoteRequest struct {
	StudentID        string `json:"student_id"`
	EncryptedContent string `json:"encrypted_content"`
	AuthorName       string `json:"author_name"`
}

// StudentBlobDocument is the body of PUT and the response of GET on
// /api/records/{owner_id}.
type StudentBlobDocument struct {
	EncryptedBlob string `json:"encrypted_blob"`
}
