package photo_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/application/photo"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"github.com/nivaasi/backend/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeTenants struct {
	mu     sync.Mutex
	photos map[uuid.UUID]string
	setErr error
}

func newFakeTenants(ids ...uuid.UUID) *fakeTenants {
	f := &fakeTenants{photos: map[uuid.UUID]string{}}
	for _, id := range ids {
		f.photos[id] = ""
	}
	return f
}

func (f *fakeTenants) tenant(id uuid.UUID) *tenant.Tenant {
	t := &tenant.Tenant{}
	t.ID = id
	t.Personal.PhotoURL = f.photos[id]
	return t
}

func (f *fakeTenants) GetTenant(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.photos[id]; !ok {
		return nil, shared.NewDomainError(shared.CodeNotFound, "tenant not found")
	}
	return f.tenant(id), nil
}

func (f *fakeTenants) SetTenantPhoto(_ context.Context, id uuid.UUID, ref string) (*tenant.Tenant, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return nil, "", f.setErr
	}
	previous, ok := f.photos[id]
	if !ok {
		return nil, "", shared.NewDomainError(shared.CodeNotFound, "tenant not found")
	}
	f.photos[id] = ref
	return f.tenant(id), previous, nil
}

func newService(t *testing.T, ids ...uuid.UUID) (*photo.Service, *fakeTenants, *storage.MemoryObjectStorage) {
	t.Helper()
	tenants := newFakeTenants(ids...)
	store := storage.NewMemoryObjectStorage()
	return photo.NewService(tenants, store, zap.NewNop()), tenants, store
}

func TestService_PresignedUploadFlow(t *testing.T) {
	id := uuid.New()
	svc, tenants, store := newService(t, id)
	ctx := context.Background()

	ticket, err := svc.InitiateUpload(ctx, id, "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ticket.StorageKey, "tenants/"+id.String()+"/photo-"))
	assert.True(t, strings.HasSuffix(ticket.StorageKey, ".png"))
	assert.Contains(t, ticket.UploadURL, ticket.StorageKey)

	_, err = svc.ConfirmUpload(ctx, id, ticket.StorageKey)
	assert.True(t, shared.HasCode(err, shared.CodeValidation), "object not uploaded yet")

	store.Put(ticket.StorageKey, []byte("png"), "image/png")
	updated, err := svc.ConfirmUpload(ctx, id, ticket.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, photo.RefScheme+ticket.StorageKey, updated.Personal.PhotoURL)
	assert.Equal(t, photo.RefScheme+ticket.StorageKey, tenants.photos[id])

	link, err := svc.Link(ctx, id)
	require.NoError(t, err)
	assert.True(t, link.Stored)
	assert.NotNil(t, link.ExpiresAt)
	assert.Contains(t, link.URL, "/download/"+ticket.StorageKey)
}

func TestService_ConfirmUpload_RejectsForeignKey(t *testing.T) {
	id, other := uuid.New(), uuid.New()
	svc, _, store := newService(t, id, other)
	key := "tenants/" + other.String() + "/photo-x.jpg"
	store.Put(key, []byte("x"), "image/jpeg")

	_, err := svc.ConfirmUpload(context.Background(), id, key)
	assert.True(t, shared.HasCode(err, shared.CodeValidation))
}

func TestService_InitiateUpload_Validation(t *testing.T) {
	id := uuid.New()
	svc, _, _ := newService(t, id)
	ctx := context.Background()

	_, err := svc.InitiateUpload(ctx, id, "application/pdf")
	assert.True(t, shared.HasCode(err, shared.CodeValidation))

	_, err = svc.InitiateUpload(ctx, uuid.New(), "image/jpeg")
	assert.True(t, shared.HasCode(err, shared.CodeNotFound))
}

func TestService_Upload_ReplacesPreviousObject(t *testing.T) {
	id := uuid.New()
	svc, tenants, store := newService(t, id)
	ctx := context.Background()

	first, err := svc.Upload(ctx, id, "image/jpeg", []byte{1})
	require.NoError(t, err)
	firstKey, ok := photo.StorageKey(first.Personal.PhotoURL)
	require.True(t, ok)

	second, err := svc.Upload(ctx, id, "IMAGE/JPEG", []byte{2})
	require.NoError(t, err)
	secondKey, _ := photo.StorageKey(second.Personal.PhotoURL)

	assert.NotEqual(t, firstKey, secondKey)
	assert.Equal(t, 1, store.Len())
	data, contentType, ok := store.Object(secondKey)
	require.True(t, ok)
	assert.Equal(t, []byte{2}, data)
	assert.Equal(t, "IMAGE/JPEG", contentType)
	assert.Equal(t, photo.RefScheme+secondKey, tenants.photos[id])
}

func TestService_Upload_Limits(t *testing.T) {
	id := uuid.New()
	svc, _, store := newService(t, id)
	svc.SetConfig(photo.Config{MaxBytes: 4})
	ctx := context.Background()
	assert.Equal(t, int64(4), svc.MaxBytes())

	_, err := svc.Upload(ctx, id, "image/jpeg", []byte{1, 2, 3, 4, 5})
	assert.True(t, shared.HasCode(err, shared.CodeValidation))
	_, err = svc.Upload(ctx, id, "image/jpeg", nil)
	assert.True(t, shared.HasCode(err, shared.CodeValidation))
	assert.Equal(t, 0, store.Len())
}

func TestService_Upload_AttachFailureRemovesObject(t *testing.T) {
	id := uuid.New()
	svc, tenants, store := newService(t, id)
	tenants.setErr = shared.NewDomainError(shared.CodeOptimisticLockFailed, "stale")

	_, err := svc.Upload(context.Background(), id, "image/webp", []byte{1})
	assert.True(t, shared.HasCode(err, shared.CodeOptimisticLockFailed))
	assert.Equal(t, 0, store.Len())
}

func TestService_Link(t *testing.T) {
	id := uuid.New()
	svc, tenants, _ := newService(t, id)
	ctx := context.Background()

	_, err := svc.Link(ctx, id)
	assert.True(t, shared.HasCode(err, shared.CodeNotFound))

	tenants.photos[id] = "https://cdn.example.com/asha.jpg"
	link, err := svc.Link(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, photo.Link{URL: "https://cdn.example.com/asha.jpg"}, link)
}

func TestService_Remove(t *testing.T) {
	id := uuid.New()
	core, logs := observer.New(zap.WarnLevel)
	tenants := newFakeTenants(id)
	store := storage.NewMemoryObjectStorage()
	svc := photo.NewService(tenants, store, zap.New(core))
	ctx := context.Background()

	_, err := svc.Upload(ctx, id, "image/jpeg", []byte{1})
	require.NoError(t, err)

	store.FailDelete = errors.New("bucket offline")
	require.NoError(t, svc.Remove(ctx, id), "a failed object delete is only logged")
	assert.Empty(t, tenants.photos[id])
	assert.Equal(t, 1, logs.FilterMessage("Failed to delete photo object").Len())

	store.FailDelete = nil
	require.NoError(t, svc.Remove(ctx, id), "removing a missing photo is a no-op")
}

func TestStorageKey(t *testing.T) {
	key, ok := photo.StorageKey("object://tenants/a/b.jpg")
	assert.True(t, ok)
	assert.Equal(t, "tenants/a/b.jpg", key)

	_, ok = photo.StorageKey("object://")
	assert.False(t, ok)
	_, ok = photo.StorageKey("https://cdn.example.com/a.jpg")
	assert.False(t, ok)
}
