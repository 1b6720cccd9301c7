package storage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/matrousse/record-sharing-backend/interfaces"
)

// StoreFactory creates session stores from location URIs.
type StoreFactory struct {
	log *slog.Logger
}

// NewStoreFactory creates a factory that can build any supported backend.
func NewStoreFactory(log *slog.Logger) *StoreFactory {
	return &StoreFactory{log: log}
}

// StoreFor creates a session store from a location URI.
//
// Supported schemes:
//   - memory:// - In-process store, for tests and development
//   - file:///path - JSON documents on the local file system
//   - badger:///path - Embedded Badger key-value database
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=eu-west-3&endpoint=custom.s3.com
func (sf *StoreFactory) StoreFor(loc interfaces.StoreLocation) (interfaces.SessionStore, error) {
	switch loc.Scheme {
	case "memory":
		return NewMemoryStore(sf.log), nil
	case "file":
		return NewFileStore(locPath(loc), sf.log)
	case "badger":
		return NewBadgerStore(locPath(loc), sf.log)
	case "s3":
		return sf.createS3Store(loc)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", interfaces.ErrInvalidLocationURI, loc.Scheme)
	}
}

// locPath resolves the filesystem path of a file:// or badger:// URI,
// treating a host component as the first path segment so that relative
// paths like badger://data/sessions work.
func locPath(loc interfaces.StoreLocation) string {
	if loc.Host == "" {
		return loc.Path
	}
	return loc.Host + "/" + strings.TrimPrefix(loc.Path, "/")
}

func (sf *StoreFactory) createS3Store(loc interfaces.StoreLocation) (interfaces.SessionStore, error) {
	bucketName := loc.Host
	if bucketName == "" {
		return nil, fmt.Errorf("%w: missing bucket name", interfaces.ErrInvalidLocationURI)
	}

	prefix := strings.TrimPrefix(loc.Path, "/")

	region := loc.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}
	endpoint := loc.GetParam("endpoint")

	var accessKey, secretKey string
	if loc.User != nil {
		accessKey = loc.User.Username()
		secretKey, _ = loc.User.Password()
	} else {
		sf.log.Debug("No S3 credentials in URI, relying on environment or public bucket")
	}

	return NewS3Store(bucketName, prefix, region, endpoint, accessKey, secretKey, sf.log)
}
