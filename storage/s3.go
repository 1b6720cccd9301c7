package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/matrousse/record-sharing-backend/interfaces"
)

// S3Store implements a session store on Amazon S3 or a compatible object
// store. Notes are written twice, under a by-session and a by-student
// prefix, so both listing shapes are single prefix scans.
//
// Object layout:
//
//	sessions/<sessionID>.json
//	notes/by-session/<sessionID>/<noteID>.json
//	notes/by-student/<studentID>/<noteID>.json
//	records/<ownerID>
type S3Store struct {
	client     *s3.S3
	bucketName string
	prefix     string
	log        *slog.Logger
}

// NewS3Store creates an S3-backed session store.
func NewS3Store(bucketName, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Store, error) {
	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Store{
		client:     s3.New(sess),
		bucketName: bucketName,
		prefix:     strings.TrimSuffix(prefix, "/"),
		log:        log,
	}, nil
}

func (s *S3Store) key(parts ...string) string {
	if s.prefix == "" {
		return path.Join(parts...)
	}
	return path.Join(append([]string{s.prefix}, parts...)...)
}

func (s *S3Store) getObject(ctx context.Context, key string) ([]byte, bool, error) {
	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "404") {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, true, nil
}

func (s *S3Store) putObject(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object to S3: %w", err)
	}
	return nil
}

// listObjects collects the bodies of every object under a prefix.
func (s *S3Store) listObjects(ctx context.Context, prefix string) ([][]byte, error) {
	var bodies [][]byte

	err := s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			data, found, err := s.getObject(ctx, aws.StringValue(obj.Key))
			if err != nil || !found {
				s.log.Warn("Failed to fetch listed object",
					slog.String("key", aws.StringValue(obj.Key)), "err", err)
				continue
			}
			bodies = append(bodies, data)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects in S3: %w", err)
	}

	return bodies, nil
}

// GetSession fetches a session by id.
func (s *S3Store) GetSession(ctx context.Context, id interfaces.SessionID) (*interfaces.ShareSession, error) {
	data, found, err := s.getObject(ctx, s.key("sessions", id.String()+".json"))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrSessionNotFound, id)
	}

	var session interfaces.ShareSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session document: %w", err)
	}
	return &session, nil
}

// InsertSession writes a session object, assigning an id if none is set.
func (s *S3Store) InsertSession(ctx context.Context, session *interfaces.ShareSession) (interfaces.SessionID, error) {
	if session.ID == "" {
		session.ID = interfaces.NewSessionID()
	}

	data, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}

	if err := s.putObject(ctx, s.key("sessions", session.ID.String()+".json"), data); err != nil {
		return "", err
	}

	s.log.Debug("Stored session in S3",
		slog.String("sessionID", session.ID.String()),
		slog.String("bucket", s.bucketName))

	return session.ID, nil
}

// DeleteSession removes a session object after verifying ownership.
func (s *S3Store) DeleteSession(ctx context.Context, id interfaces.SessionID, ownerID string) error {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if session.OwnerID != ownerID {
		return fmt.Errorf("%w: session %s is not owned by %s", interfaces.ErrUnauthorized, id, ownerID)
	}

	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(s.key("sessions", id.String()+".json")),
	})
	if err != nil {
		return fmt.Errorf("failed to delete session from S3: %w", err)
	}
	return nil
}

func decodeNotes(bodies [][]byte, log *slog.Logger) []interfaces.GuestNote {
	var out []interfaces.GuestNote
	for _, data := range bodies {
		var note interfaces.GuestNote
		if err := json.Unmarshal(data, &note); err != nil {
			log.Warn("Skipping undecodable note object", "err", err)
			continue
		}
		out = append(out, note)
	}
	return out
}

// ListGuestNotesBySession returns all notes contributed under one session.
func (s *S3Store) ListGuestNotesBySession(ctx context.Context, id interfaces.SessionID) ([]interfaces.GuestNote, error) {
	bodies, err := s.listObjects(ctx, s.key("notes", "by-session", id.String())+"/")
	if err != nil {
		return nil, err
	}
	return decodeNotes(bodies, s.log), nil
}

// ListGuestNotesByStudents returns all notes attached to any of the given
// student ids.
func (s *S3Store) ListGuestNotesByStudents(ctx context.Context, studentIDs []string) ([]interfaces.GuestNote, error) {
	var out []interfaces.GuestNote
	for _, studentID := range studentIDs {
		bodies, err := s.listObjects(ctx, s.key("notes", "by-student", studentID)+"/")
		if err != nil {
			return nil, err
		}
		out = append(out, decodeNotes(bodies, s.log)...)
	}
	return out, nil
}

// InsertGuestNote writes a note under both its session and student prefixes.
func (s *S3Store) InsertGuestNote(ctx context.Context, note *interfaces.GuestNote) error {
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to encode note: %w", err)
	}

	if err := s.putObject(ctx, s.key("notes", "by-session", note.SessionID.String(), note.ID+".json"), data); err != nil {
		return err
	}
	return s.putObject(ctx, s.key("notes", "by-student", note.StudentID, note.ID+".json"), data)
}

// UpsertStudentBlob writes the owner's encrypted record, last writer wins.
func (s *S3Store) UpsertStudentBlob(ctx context.Context, ownerID string, encryptedBlob string) error {
	return s.putObject(ctx, s.key("records", ownerID), []byte(encryptedBlob))
}

// FetchStudentBlob reads the owner's encrypted record.
func (s *S3Store) FetchStudentBlob(ctx context.Context, ownerID string) (string, error) {
	data, found, err := s.getObject(ctx, s.key("records", ownerID))
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: owner %s", interfaces.ErrRecordNotFound, ownerID)
	}
	return string(data), nil
}
