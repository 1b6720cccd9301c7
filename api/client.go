package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/matrousse/record-sharing-backend/interfaces"
)

// Client accesses a remote session store over the HTTP API. It
// implements interfaces.SessionStore, so the sharing layer works
// identically against a local backend and a remote server.
type Client struct {
	// ServerAddr is the base URL of the storage API server.
	ServerAddr string

	// OwnerID is sent in the owner header on owner-scoped requests.
	OwnerID string

	// HTTPClient is used for all requests; http.DefaultClient when nil.
	HTTPClient *http.Client
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("could not encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.ServerAddr+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.OwnerID != "" {
		req.Header.Set(OwnerHeader, c.OwnerID)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return 0, fmt.Errorf("could not request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return resp.StatusCode, fmt.Errorf("%s returned %d", path, resp.StatusCode)
		}
		return resp.StatusCode, fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, string(bodyBytes))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("could not parse %s response: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

// GetSession implements interfaces.SessionStore.
func (c *Client) GetSession(ctx context.Context, id interfaces.SessionID) (*interfaces.ShareSession, error) {
	var session interfaces.ShareSession
	status, err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(id.String()), nil, &session)
	if status == http.StatusNotFound {
		return nil, interfaces.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// InsertSession implements interfaces.SessionStore. The session's owner
// field is ignored; the server takes the owner from the header.
func (c *Client) InsertSession(ctx context.Context, session *interfaces.ShareSession) (interfaces.SessionID, error) {
	req := CreateSessionRequest{
		EncryptedBlob: session.EncryptedBlob,
		RecoveryToken: session.RecoveryToken,
		RecipientName: session.RecipientName,
		ExpiresAt:     session.ExpiresAt,
	}

	var resp CreateSessionResponse
	if _, err := c.do(ctx, http.MethodPost, "/api/sessions", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// DeleteSession implements interfaces.SessionStore.
func (c *Client) DeleteSession(ctx context.Context, id interfaces.SessionID, ownerID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.ServerAddr+"/api/sessions/"+url.PathEscape(id.String()), nil)
	if err != nil {
		return err
	}
	req.Header.Set(OwnerHeader, ownerID)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("could not request session delete: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return interfaces.ErrSessionNotFound
	case http.StatusForbidden:
		return interfaces.ErrUnauthorized
	default:
		return fmt.Errorf("session delete returned %d", resp.StatusCode)
	}
}

// ListGuestNotesBySession implements interfaces.SessionStore.
func (c *Client) ListGuestNotesBySession(ctx context.Context, id interfaces.SessionID) ([]interfaces.GuestNote, error) {
	var notes []interfaces.GuestNote
	status, err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(id.String())+"/notes", nil, &notes)
	if status == http.StatusNotFound {
		return nil, interfaces.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// ListGuestNotesByStudents implements interfaces.SessionStore.
func (c *Client) ListGuestNotesByStudents(ctx context.Context, studentIDs []string) ([]interfaces.GuestNote, error) {
	query := url.Values{}
	for _, id := range studentIDs {
		query.Add("student", id)
	}

	var notes []interfaces.GuestNote
	if _, err := c.do(ctx, http.MethodGet, "/api/notes?"+query.Encode(), nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// InsertGuestNote implements interfaces.SessionStore. The server assigns
// the note id and timestamp; they are copied back into the note.
func (c *Client) InsertGuestNote(ctx context.Context, note *interfaces.GuestNote) error {
	req := ContributeNoteRequest{
		StudentID:        note.StudentID,
		EncryptedContent: note.EncryptedContent,
		AuthorName:       note.AuthorName,
	}

	var stored interfaces.GuestNote
	status, err := c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(note.SessionID.String())+"/notes", req, &stored)
	switch status {
	case http.StatusNotFound:
		return interfaces.ErrSessionNotFound
	case http.StatusGone:
		return interfaces.ErrSessionExpired
	}
	if err != nil {
		return err
	}

	note.ID = stored.ID
	note.CreatedAt = stored.CreatedAt
	return nil
}

// UpsertStudentBlob implements interfaces.SessionStore.
func (c *Client) UpsertStudentBlob(ctx context.Context, ownerID string, encryptedBlob string) error {
	_, err := c.do(ctx, http.MethodPut, "/api/records/"+url.PathEscape(ownerID), StudentBlobDocument{EncryptedBlob: encryptedBlob}, nil)
	return err
}

// FetchStudentBlob implements interfaces.SessionStore.
func (c *Client) FetchStudentBlob(ctx context.Context, ownerID string) (string, error) {
	var doc StudentBlobDocument
	status, err := c.do(ctx, http.MethodGet, "/api/records/"+url.PathEscape(ownerID), nil, &doc)
	if status == http.StatusNotFound {
		return "", interfaces.ErrRecordNotFound
	}
	if err != nil {
		return "", err
	}
	return doc.EncryptedBlob, nil
}
