package storage

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/nivaasi/backend/internal/application/photo"
)

var _ photo.ObjectStorage = (*MemoryObjectStorage)(nil)

// MemoryObjectStorage keeps objects in a map. Presigned URLs point at BaseURL
// and are never served; Put stands in for a client completing a presigned upload.
type MemoryObjectStorage struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string]memoryObject
	// FailDelete makes DeleteObject return this error
	FailDelete error
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryObjectStorage creates an empty store
func NewMemoryObjectStorage() *MemoryObjectStorage {
	return &MemoryObjectStorage{
		BaseURL: "https://storage.local",
		objects: make(map[string]memoryObject),
	}
}

func (s *MemoryObjectStorage) presign(op, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	expiresAt := time.Now().Add(expiresIn)
	q := url.Values{"expires": {expiresAt.UTC().Format(time.RFC3339)}}
	return s.BaseURL + "/" + op + "/" + storageKey + "?" + q.Encode(), expiresAt, nil
}

// GenerateUploadURL returns a fake presigned upload URL
func (s *MemoryObjectStorage) GenerateUploadURL(_ context.Context, storageKey, _ string,
	expiresIn time.Duration) (string, time.Time, error) {
	return s.presign("upload", storageKey, expiresIn)
}

// GenerateDownloadURL returns a fake presigned download URL
func (s *MemoryObjectStorage) GenerateDownloadURL(_ context.Context, storageKey string,
	expiresIn time.Duration) (string, time.Time, error) {
	return s.presign("download", storageKey, expiresIn)
}

// Upload stores a copy of data
func (s *MemoryObjectStorage) Upload(_ context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	s.Put(storageKey, data, contentType)
	return nil
}

// Put stores an object directly
func (s *MemoryObjectStorage) Put(storageKey string, data []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[storageKey] = memoryObject{data: append([]byte(nil), data...), contentType: contentType}
}

// DeleteObject removes storageKey
func (s *MemoryObjectStorage) DeleteObject(_ context.Context, storageKey string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	if s.FailDelete != nil {
		return s.FailDelete
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, storageKey)
	return nil
}

// ObjectExists reports whether storageKey is stored
func (s *MemoryObjectStorage) ObjectExists(_ context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errors.New("storage key is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[storageKey]
	return ok, nil
}

// Object returns a stored object's bytes and content type
func (s *MemoryObjectStorage) Object(storageKey string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[storageKey]
	return obj.data, obj.contentType, ok
}

// Len is the number of stored objects
func (s *MemoryObjectStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
