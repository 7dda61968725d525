package storage

import (
	"context"
	"errors"
)

var (
	// ErrObjectExists is returned by Upload when the key is already taken.
	// Objects are never overwritten.
	ErrObjectExists = errors.New("storage object already exists")

	ErrSignedURLUnavailable = errors.New("signed url unavailable")
)

// Backend is the object store holding input and generated images.
type Backend interface {
	// Upload creates bucket/path. It must fail with ErrObjectExists rather
	// than replace an existing object.
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error
	Download(ctx context.Context, bucket, path string) ([]byte, error)
	Remove(ctx context.Context, bucket string, paths ...string) error
	BucketPublic(ctx context.Context, bucket string) (bool, error)
	// PublicURL may return "" when the backend cannot build one.
	PublicURL(bucket, path string) string
	SignedURL(ctx context.Context, bucket, path string, expirySeconds int) (string, error)
}
