package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryObjectStorage(t *testing.T) {
	s := NewMemoryObjectStorage()
	ctx := context.Background()

	url, expiresAt, err := s.GenerateUploadURL(ctx, "tenants/a/photo.jpg", "image/jpeg", 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "https://storage.local/upload/tenants/a/photo.jpg?expires=")
	assert.True(t, expiresAt.After(time.Now()))

	exists, err := s.ObjectExists(ctx, "tenants/a/photo.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	data := []byte{0xff, 0xd8}
	require.NoError(t, s.Upload(ctx, "tenants/a/photo.jpg", data, "image/jpeg"))
	data[0] = 0
	got, contentType, ok := s.Object("tenants/a/photo.jpg")
	require.True(t, ok)
	assert.Equal(t, []byte{0xff, 0xd8}, got, "stored bytes are a copy")
	assert.Equal(t, "image/jpeg", contentType)

	require.NoError(t, s.DeleteObject(ctx, "tenants/a/photo.jpg"))
	assert.Equal(t, 0, s.Len())

	s.FailDelete = errors.New("boom")
	assert.EqualError(t, s.DeleteObject(ctx, "x"), "boom")
}

func TestMemoryObjectStorage_EmptyKey(t *testing.T) {
	s := NewMemoryObjectStorage()
	ctx := context.Background()

	_, _, err := s.GenerateUploadURL(ctx, "", "image/png", time.Minute)
	assert.ErrorContains(t, err, "storage key is required")
	_, _, err = s.GenerateDownloadURL(ctx, "", time.Minute)
	assert.ErrorContains(t, err, "storage key is required")
	assert.ErrorContains(t, s.Upload(ctx, "", nil, ""), "storage key is required")
	assert.ErrorContains(t, s.DeleteObject(ctx, ""), "storage key is required")
	_, err = s.ObjectExists(ctx, "")
	assert.ErrorContains(t, err, "storage key is required")
}
