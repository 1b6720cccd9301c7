package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/matrousse/record-sharing-backend/interfaces"
)

// Handler processes HTTP requests for the session store API. It is a
// thin layer over an interfaces.SessionStore: every payload it touches
// is ciphertext, and it holds no key material.
type Handler struct {
	store interfaces.SessionStore
	log   *slog.Logger
}

// NewHandler creates a handler serving the given store.
func NewHandler(store interfaces.SessionStore, log *slog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log,
	}
}

// RegisterRoutes configures the router with the store endpoints:
//   - POST   /api/sessions
//   - GET    /api/sessions/{session_id}
//   - DELETE /api/sessions/{session_id}
//   - GET    /api/sessions/{session_id}/notes
//   - POST   /api/sessions/{session_id}/notes
//   - GET    /api/notes?student=...
//   - GET    /api/records/{owner_id}
//   - PUT    /api/records/{owner_id}
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/sessions", h.HandleCreateSession)
	r.Get("/api/sessions/{session_id}", h.HandleGetSession)
	r.Delete("/api/sessions/{session_id}", h.HandleDeleteSession)
	r.Get("/api/sessions/{session_id}/notes", h.HandleListSessionNotes)
	r.Post("/api/sessions/{session_id}/notes", h.HandleContributeNote)
	r.Get("/api/notes", h.HandleListStudentNotes)
	r.Get("/api/records/{owner_id}", h.HandleFetchRecord)
	r.Put("/api/records/{owner_id}", h.HandleUpsertRecord)
}

// HandleCreateSession persists a new session blob and returns its id.
//
// Status codes:
//   - 201 Created: session stored
//   - 400 Bad Request: malformed body or missing fields
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("Invalid session body", "err", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.EncryptedBlob == "" {
		http.Error(w, "Missing encrypted blob", http.StatusBadRequest)
		return
	}
	if req.ExpiresAt.IsZero() {
		http.Error(w, "Missing expiry", http.StatusBadRequest)
		return
	}

	session := &interfaces.ShareSession{
		EncryptedBlob: req.EncryptedBlob,
		RecoveryToken: req.RecoveryToken,
		RecipientName: req.RecipientName,
		OwnerID:       r.Header.Get(OwnerHeader),
		ExpiresAt:     req.ExpiresAt,
		CreatedAt:     time.Now().UTC(),
	}

	id, err := h.store.InsertSession(r.Context(), session)
	if err != nil {
		h.log.Error("Failed to insert session", "err", err)
		http.Error(w, "Failed to store session", http.StatusInternalServerError)
		return
	}

	h.log.Info("Session created", "sessionID", id, "recipient", req.RecipientName)
	h.writeJSON(w, http.StatusCreated, CreateSessionResponse{ID: id})
}

// HandleGetSession returns one session document by id.
//
// Status codes:
//   - 200 OK: session returned
//   - 404 Not Found: no such session
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	id := interfaces.SessionID(chi.URLParam(r, "session_id"))

	session, err := h.store.GetSession(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, "Failed to get session", id, err)
		return
	}

	h.writeJSON(w, http.StatusOK, session)
}

// HandleDeleteSession revokes a session. The owner header must match the
// session's owner.
//
// Status codes:
//   - 204 No Content: session deleted
//   - 403 Forbidden: owner mismatch
//   - 404 Not Found: no such session
func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := interfaces.SessionID(chi.URLParam(r, "session_id"))
	ownerID := r.Header.Get(OwnerHeader)

	if err := h.store.DeleteSession(r.Context(), id, ownerID); err != nil {
		h.writeStoreError(w, "Failed to delete session", id, err)
		return
	}

	h.log.Info("Session deleted", "sessionID", id)
	w.WriteHeader(http.StatusNoContent)
}

// HandleListSessionNotes returns all guest notes contributed under one
// session.
func (h *Handler) HandleListSessionNotes(w http.ResponseWriter, r *http.Request) {
	id := interfaces.SessionID(chi.URLParam(r, "session_id"))

	// The session must exist; listing notes of a deleted session would
	// silently return an empty set otherwise.
	if _, err := h.store.GetSession(r.Context(), id); err != nil {
		h.writeStoreError(w, "Failed to get session", id, err)
		return
	}

	notes, err := h.store.ListGuestNotesBySession(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, "Failed to list notes", id, err)
		return
	}
	if notes == nil {
		notes = []interfaces.GuestNote{}
	}

	h.writeJSON(w, http.StatusOK, notes)
}

// HandleContributeNote appends a guest note to a session. The note
// content is ciphertext under the session's share key, which this server
// does not have.
//
// Status codes:
//   - 201 Created: note stored
//   - 400 Bad Request: malformed body or missing fields
//   - 404 Not Found: no such session
//   - 410 Gone: session past its TTL
func (h *Handler) HandleContributeNote(w http.ResponseWriter, r *http.Request) {
	id := interfaces.SessionID(chi.URLParam(r, "session_id"))

	var req ContributeNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("Invalid note body", "err", err, "sessionID", id)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.StudentID == "" || req.EncryptedContent == "" {
		http.Error(w, "Missing student id or content", http.StatusBadRequest)
		return
	}

	session, err := h.store.GetSession(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, "Failed to get session", id, err)
		return
	}
	if session.Expired(time.Now()) {
		http.Error(w, "Session expired", http.StatusGone)
		return
	}

	note := &interfaces.GuestNote{
		ID:               uuid.NewString(),
		SessionID:        id,
		StudentID:        req.StudentID,
		EncryptedContent: req.EncryptedContent,
		AuthorName:       req.AuthorName,
		CreatedAt:        time.Now().UTC(),
	}

	if err := h.store.InsertGuestNote(r.Context(), note); err != nil {
		h.writeStoreError(w, "Failed to insert note", id, err)
		return
	}

	h.log.Info("Guest note stored", "sessionID", id, "noteID", note.ID)
	h.writeJSON(w, http.StatusCreated, note)
}

// HandleListStudentNotes returns guest notes attached to any of the
// student ids given as repeated "student" query parameters.
func (h *Handler) HandleListStudentNotes(w http.ResponseWriter, r *http.Request) {
	studentIDs := r.URL.Query()["student"]
	if len(studentIDs) == 0 {
		http.Error(w, "Missing student query parameter", http.StatusBadRequest)
		return
	}

	notes, err := h.store.ListGuestNotesByStudents(r.Context(), studentIDs)
	if err != nil {
		h.log.Error("Failed to list notes by students", "err", err)
		http.Error(w, "Failed to list notes", http.StatusInternalServerError)
		return
	}
	if notes == nil {
		notes = []interfaces.GuestNote{}
	}

	h.writeJSON(w, http.StatusOK, notes)
}

// HandleFetchRecord returns the owner's encrypted student record blob.
//
// Status codes:
//   - 200 OK: blob returned
//   - 404 Not Found: no record stored for this owner
func (h *Handler) HandleFetchRecord(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "owner_id")

	blob, err := h.store.FetchStudentBlob(r.Context(), ownerID)
	if err != nil {
		if errors.Is(err, interfaces.ErrRecordNotFound) {
			http.Error(w, "Record not found", http.StatusNotFound)
			return
		}
		h.log.Error("Failed to fetch record", "err", err, "ownerID", ownerID)
		http.Error(w, "Failed to fetch record", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, StudentBlobDocument{EncryptedBlob: blob})
}

// HandleUpsertRecord replaces the owner's encrypted student record blob.
// Last writer wins.
//
// Status codes:
//   - 204 No Content: blob stored
//   - 400 Bad Request: malformed body or empty blob
func (h *Handler) HandleUpsertRecord(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "owner_id")

	var doc StudentBlobDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		h.log.Error("Invalid record body", "err", err, "ownerID", ownerID)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if doc.EncryptedBlob == "" {
		http.Error(w, "Missing encrypted blob", http.StatusBadRequest)
		return
	}

	if err := h.store.UpsertStudentBlob(r.Context(), ownerID, doc.EncryptedBlob); err != nil {
		h.log.Error("Failed to upsert record", "err", err, "ownerID", ownerID)
		http.Error(w, "Failed to store record", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

// writeStoreError maps storage sentinels to HTTP status codes.
func (h *Handler) writeStoreError(w http.ResponseWriter, msg string, id interfaces.SessionID, err error) {
	switch {
	case errors.Is(err, interfaces.ErrSessionNotFound):
		http.Error(w, "Session not found", http.StatusNotFound)
	case errors.Is(err, interfaces.ErrUnauthorized):
		http.Error(w, "Owner mismatch", http.StatusForbidden)
	default:
		h.log.Error(msg, "err", err, "sessionID", id)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}
