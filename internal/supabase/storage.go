package supabase

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	storage_go "github.com/supabase-community/storage-go"

	"ai-image-editor-backend/internal/storage"
)

const cacheControl = "3600"

// StorageBackend implements storage.Backend on Supabase Storage.
type StorageBackend struct {
	client  *storage_go.Client
	baseURL string
}

func NewStorageBackend(supabaseURL, serviceRoleKey string) *StorageBackend {
	baseURL := strings.TrimRight(supabaseURL, "/")
	client := storage_go.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil)

	return &StorageBackend{
		client:  client,
		baseURL: baseURL,
	}
}

// The storage-go client takes no context; ctx is accepted to satisfy
// storage.Backend.

func (s *StorageBackend) Upload(_ context.Context, bucket, path string, data []byte, contentType string) error {
	upsert := false
	cc := cacheControl
	_, err := s.client.UploadFile(bucket, path, bytes.NewReader(data), storage_go.FileOptions{
		ContentType:  &contentType,
		CacheControl: &cc,
		Upsert:       &upsert,
	})
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%s/%s: %w", bucket, path, storage.ErrObjectExists)
		}
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

func (s *StorageBackend) Download(_ context.Context, bucket, path string) ([]byte, error) {
	data, err := s.client.DownloadFile(bucket, path)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	return data, nil
}

func (s *StorageBackend) Remove(_ context.Context, bucket string, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	if _, err := s.client.RemoveFile(bucket, paths); err != nil {
		return fmt.Errorf("failed to delete files: %w", err)
	}
	return nil
}

func (s *StorageBackend) BucketPublic(_ context.Context, bucket string) (bool, error) {
	b, err := s.client.GetBucket(bucket)
	if err != nil {
		return false, fmt.Errorf("failed to get bucket %s: %w", bucket, err)
	}
	return b.Public, nil
}

func (s *StorageBackend) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, bucket, path)
}

func (s *StorageBackend) SignedURL(_ context.Context, bucket, path string, expirySeconds int) (string, error) {
	resp, err := s.client.CreateSignedUrl(bucket, path, expirySeconds)
	if err != nil {
		return "", fmt.Errorf("failed to create signed url: %w", err)
	}
	signed := resp.SignedURL
	if strings.HasPrefix(signed, "/") {
		signed = s.baseURL + "/storage/v1" + signed
	}
	return signed, nil
}

func isDuplicate(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "409")
}

var _ storage.Backend = (*StorageBackend)(nil)
