// Package storagetest provides an in-memory storage.Backend for tests.
package storagetest

import (
	"context"
	"fmt"
	"sync"

	"ai-image-editor-backend/internal/storage"
)

type Object struct {
	Data        []byte
	ContentType string
}

type Memory struct {
	mu      sync.Mutex
	objects map[string]Object

	Public        map[string]bool
	VisibilityErr error
	UploadErr     error
	SignErr       error
	RemoveErr     error

	VisibilityCalls int
	SignCalls       int
	Removed         []string
}

func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string]Object),
		Public:  make(map[string]bool),
	}
}

func key(bucket, path string) string {
	return bucket + "/" + path
}

func (m *Memory) Upload(_ context.Context, bucket, path string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UploadErr != nil {
		return m.UploadErr
	}
	if _, ok := m.objects[key(bucket, path)]; ok {
		return fmt.Errorf("%s: %w", key(bucket, path), storage.ErrObjectExists)
	}
	m.objects[key(bucket, path)] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

func (m *Memory) Download(_ context.Context, bucket, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key(bucket, path)]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key(bucket, path))
	}
	return obj.Data, nil
}

func (m *Memory) Remove(_ context.Context, bucket string, paths ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	for _, p := range paths {
		delete(m.objects, key(bucket, p))
		m.Removed = append(m.Removed, key(bucket, p))
	}
	return nil
}

func (m *Memory) BucketPublic(_ context.Context, bucket string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.VisibilityCalls++
	if m.VisibilityErr != nil {
		return false, m.VisibilityErr
	}
	return m.Public[bucket], nil
}

func (m *Memory) PublicURL(bucket, path string) string {
	return "https://storage.test/object/public/" + bucket + "/" + path
}

func (m *Memory) SignedURL(_ context.Context, bucket, path string, expirySeconds int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SignCalls++
	if m.SignErr != nil {
		return "", m.SignErr
	}
	return fmt.Sprintf("https://storage.test/object/sign/%s/%s?expires=%d", bucket, path, expirySeconds), nil
}

// Object returns a stored object, if present.
func (m *Memory) Object(bucket, path string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key(bucket, path)]
	return obj, ok
}

// Put stores an object directly, bypassing the overwrite check.
func (m *Memory) Put(bucket, path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key(bucket, path)] = Object{Data: data}
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

var _ storage.Backend = (*Memory)(nil)
