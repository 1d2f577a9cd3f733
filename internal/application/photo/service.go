// Package photo manages tenant photos kept in object storage.
//
// A photo is either uploaded through the API or straight to the store with a
// presigned URL that the client confirms afterwards. The tenant record keeps an
// "object://<key>" reference; any other value is an external URL set by hand.
package photo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"go.uber.org/zap"
)

// RefScheme prefixes photo references that point into object storage
const RefScheme = "object://"

// allowedContentTypes maps accepted image types to the key extension
var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ObjectStorage is the object store the photos live in
type ObjectStorage interface {
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, storageKey string) error
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// Tenants reads tenants and swaps their photo reference under the tenant lock
type Tenants interface {
	GetTenant(ctx context.Context, tenantID uuid.UUID) (*tenant.Tenant, error)
	SetTenantPhoto(ctx context.Context, tenantID uuid.UUID, ref string) (*tenant.Tenant, string, error)
}

// Config holds presign lifetimes and the upload size cap
type Config struct {
	UploadURLExpiry   time.Duration
	DownloadURLExpiry time.Duration
	MaxBytes          int64
}

// DefaultConfig returns the default photo settings
func DefaultConfig() Config {
	return Config{
		UploadURLExpiry:   15 * time.Minute,
		DownloadURLExpiry: 15 * time.Minute,
		MaxBytes:          5 << 20,
	}
}

// UploadTicket is a presigned upload the client completes on its own
type UploadTicket struct {
	StorageKey string
	UploadURL  string
	ExpiresAt  time.Time
}

// Link is where a tenant's photo can be fetched.
// ExpiresAt is nil for external URLs.
type Link struct {
	URL       string
	ExpiresAt *time.Time
	Stored    bool
}

// Service handles tenant photo uploads and links
type Service struct {
	tenants Tenants
	storage ObjectStorage
	config  Config
	logger  *zap.Logger
}

// NewService creates a new photo Service
func NewService(tenants Tenants, storage ObjectStorage, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tenants: tenants,
		storage: storage,
		config:  DefaultConfig(),
		logger:  logger.Named("photo"),
	}
}

// SetConfig replaces the service configuration. Zero fields keep their defaults.
func (s *Service) SetConfig(cfg Config) {
	def := DefaultConfig()
	if cfg.UploadURLExpiry <= 0 {
		cfg.UploadURLExpiry = def.UploadURLExpiry
	}
	if cfg.DownloadURLExpiry <= 0 {
		cfg.DownloadURLExpiry = def.DownloadURLExpiry
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	s.config = cfg
}

// MaxBytes is the largest photo Upload accepts
func (s *Service) MaxBytes() int64 {
	return s.config.MaxBytes
}

// InitiateUpload reserves a storage key for the tenant and presigns a PUT to it.
// The photo is not attached until ConfirmUpload.
func (s *Service) InitiateUpload(ctx context.Context, tenantID uuid.UUID, contentType string) (*UploadTicket, error) {
	ext, err := extensionFor(contentType)
	if err != nil {
		return nil, err
	}
	if _, err := s.tenants.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	key := newStorageKey(tenantID, ext)
	url, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, contentType, s.config.UploadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign photo upload: %w", err)
	}

	s.logger.Debug("Photo upload initiated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("storage_key", key))
	return &UploadTicket{StorageKey: key, UploadURL: url, ExpiresAt: expiresAt}, nil
}

// ConfirmUpload attaches an uploaded object to the tenant and removes the
// object it replaces.
func (s *Service) ConfirmUpload(ctx context.Context, tenantID uuid.UUID, storageKey string) (*tenant.Tenant, error) {
	if !strings.HasPrefix(storageKey, keyPrefix(tenantID)) {
		return nil, shared.NewDomainError(shared.CodeValidation, "Storage key does not belong to this tenant")
	}
	exists, err := s.storage.ObjectExists(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("check photo object: %w", err)
	}
	if !exists {
		return nil, shared.NewDomainError(shared.CodeValidation, "Photo has not been uploaded")
	}
	return s.attach(ctx, tenantID, storageKey)
}

// Upload stores data as the tenant's photo and attaches it
func (s *Service) Upload(ctx context.Context, tenantID uuid.UUID, contentType string, data []byte) (*tenant.Tenant, error) {
	ext, err := extensionFor(contentType)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, shared.NewDomainError(shared.CodeValidation, "Photo is empty")
	}
	if int64(len(data)) > s.config.MaxBytes {
		return nil, shared.NewDomainError(shared.CodeValidation,
			fmt.Sprintf("Photo exceeds %d bytes", s.config.MaxBytes))
	}
	if _, err := s.tenants.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	key := newStorageKey(tenantID, ext)
	if err := s.storage.Upload(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}
	t, err := s.attach(ctx, tenantID, key)
	if err != nil {
		s.deleteObject(ctx, key)
		return nil, err
	}
	return t, nil
}

// Link resolves where the tenant's photo can be downloaded
func (s *Service) Link(ctx context.Context, tenantID uuid.UUID) (Link, error) {
	t, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return Link{}, err
	}
	ref := t.Personal.PhotoURL
	if ref == "" {
		return Link{}, shared.NewDomainError(shared.CodeNotFound, "Tenant has no photo")
	}
	key, stored := StorageKey(ref)
	if !stored {
		return Link{URL: ref}, nil
	}

	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, key, s.config.DownloadURLExpiry)
	if err != nil {
		return Link{}, fmt.Errorf("presign photo download: %w", err)
	}
	return Link{URL: url, ExpiresAt: &expiresAt, Stored: true}, nil
}

// Remove detaches the tenant's photo and deletes the stored object, if any
func (s *Service) Remove(ctx context.Context, tenantID uuid.UUID) error {
	_, previous, err := s.tenants.SetTenantPhoto(ctx, tenantID, "")
	if err != nil {
		return err
	}
	if key, ok := StorageKey(previous); ok {
		s.deleteObject(ctx, key)
	}
	return nil
}

func (s *Service) attach(ctx context.Context, tenantID uuid.UUID, key string) (*tenant.Tenant, error) {
	t, previous, err := s.tenants.SetTenantPhoto(ctx, tenantID, RefScheme+key)
	if err != nil {
		return nil, err
	}
	if old, ok := StorageKey(previous); ok && old != key {
		s.deleteObject(ctx, old)
	}
	s.logger.Info("Tenant photo attached",
		zap.String("tenant_id", tenantID.String()),
		zap.String("storage_key", key))
	return t, nil
}

// deleteObject removes an object that is no longer referenced. A failure only
// leaves an orphan behind, so it is logged and not returned.
func (s *Service) deleteObject(ctx context.Context, key string) {
	if err := s.storage.DeleteObject(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("Failed to delete photo object",
			zap.String("storage_key", key),
			zap.Error(err))
	}
}

// StorageKey extracts the object key from a stored photo reference
func StorageKey(ref string) (string, bool) {
	key, ok := strings.CutPrefix(ref, RefScheme)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

func extensionFor(contentType string) (string, error) {
	ext, ok := allowedContentTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", shared.NewDomainError(shared.CodeValidation,
			"Photo must be image/jpeg, image/png or image/webp")
	}
	return ext, nil
}

func keyPrefix(tenantID uuid.UUID) string {
	return "tenants/" + tenantID.String() + "/"
}

func newStorageKey(tenantID uuid.UUID, ext string) string {
	return keyPrefix(tenantID) + "photo-" + uuid.NewString() + ext
}
