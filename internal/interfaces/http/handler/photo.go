package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/application/photo"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"github.com/nivaasi/backend/internal/infrastructure/logger"
	"github.com/nivaasi/backend/internal/interfaces/http/dto"
)

// PhotoService is the photo surface the tenant photo endpoints need
type PhotoService interface {
	InitiateUpload(ctx context.Context, tenantID uuid.UUID, contentType string) (*photo.UploadTicket, error)
	ConfirmUpload(ctx context.Context, tenantID uuid.UUID, storageKey string) (*tenant.Tenant, error)
	Upload(ctx context.Context, tenantID uuid.UUID, contentType string, data []byte) (*tenant.Tenant, error)
	Link(ctx context.Context, tenantID uuid.UUID) (photo.Link, error)
	Remove(ctx context.Context, tenantID uuid.UUID) error
	MaxBytes() int64
}

// PhotoUploadURLRequest asks for a presigned upload
type PhotoUploadURLRequest struct {
	ContentType string `json:"content_type" binding:"required,oneof=image/jpeg image/png image/webp"`
}

// PhotoUploadURLResponse is a presigned upload the client PUTs the image to
type PhotoUploadURLResponse struct {
	StorageKey string    `json:"storage_key"`
	UploadURL  string    `json:"upload_url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ConfirmPhotoRequest attaches a completed presigned upload
type ConfirmPhotoRequest struct {
	StorageKey string `json:"storage_key" binding:"required,max=300"`
}

// PhotoLinkResponse tells the client where to fetch the photo
type PhotoLinkResponse struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Stored    bool       `json:"stored"`
}

// PhotoHandler serves tenant photos. A nil service means no object store is
// configured and every endpoint answers 503.
type PhotoHandler struct {
	BaseHandler
	service PhotoService
}

// NewPhotoHandler creates a new PhotoHandler
func NewPhotoHandler(service PhotoService) *PhotoHandler {
	return &PhotoHandler{service: service}
}

// Enabled reports whether photo storage is configured
func (h *PhotoHandler) Enabled() bool {
	return h.service != nil
}

// UploadURL presigns a direct upload to object storage.
// POST /tenants/:id/photo/upload-url
func (h *PhotoHandler) UploadURL(c *gin.Context) {
	id, ok := h.begin(c)
	if !ok {
		return
	}
	var req PhotoUploadURLRequest
	if !bindJSON(c, &req) {
		return
	}
	ticket, err := h.service.InitiateUpload(c.Request.Context(), id, req.ContentType)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, PhotoUploadURLResponse{
		StorageKey: ticket.StorageKey,
		UploadURL:  ticket.UploadURL,
		ExpiresAt:  ticket.ExpiresAt,
	})
}

// Confirm attaches a photo uploaded through a presigned URL.
// POST /tenants/:id/photo/confirm
func (h *PhotoHandler) Confirm(c *gin.Context) {
	id, ok := h.begin(c)
	if !ok {
		return
	}
	var req ConfirmPhotoRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.service.ConfirmUpload(c.Request.Context(), id, req.StorageKey)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTenantResponse(t))
}

// Upload stores the multipart "photo" file as the tenant's photo.
// PUT /tenants/:id/photo
func (h *PhotoHandler) Upload(c *gin.Context) {
	id, ok := h.begin(c)
	if !ok {
		return
	}
	file, err := c.FormFile("photo")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Photo exceeds maximum allowed size")
			return
		}
		h.BadRequest(c, "Multipart field 'photo' is required")
		return
	}
	if file.Size > h.service.MaxBytes() {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Photo exceeds maximum allowed size")
		return
	}

	f, err := file.Open()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	t, err := h.service.Upload(c.Request.Context(), id, contentType, data)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTenantResponse(t))
}

// Get returns a link to the tenant's photo.
// GET /tenants/:id/photo
func (h *PhotoHandler) Get(c *gin.Context) {
	id, ok := h.begin(c)
	if !ok {
		return
	}
	link, err := h.service.Link(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, PhotoLinkResponse{URL: link.URL, ExpiresAt: link.ExpiresAt, Stored: link.Stored})
}

// Delete detaches the tenant's photo.
// DELETE /tenants/:id/photo
func (h *PhotoHandler) Delete(c *gin.Context) {
	id, ok := h.begin(c)
	if !ok {
		return
	}
	if err := h.service.Remove(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *PhotoHandler) begin(c *gin.Context) (uuid.UUID, bool) {
	if h.service == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Photo storage is not configured")
		return uuid.Nil, false
	}
	id, ok := h.parseID(c)
	if ok {
		c.Request = c.Request.WithContext(logger.WithResidentID(c.Request.Context(), id.String()))
	}
	return id, ok
}
