package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	propertyapp "github.com/nivaasi/backend/internal/application/property"
	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/interfaces/http/dto"
)

// PropertyService is the application surface the property endpoints need
type PropertyService interface {
	Create(ctx context.Context, in propertyapp.CreatePropertyInput) (*property.Property, error)
	GetByID(ctx context.Context, id uuid.UUID) (*property.Property, error)
	List(ctx context.Context, filter shared.Filter) ([]property.Property, int64, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, name, address, contact string) (*property.Property, error)
	AddFloor(ctx context.Context, id uuid.UUID, name string) (*property.Property, error)
	AddRoom(ctx context.Context, id uuid.UUID, floorName, roomNumber string, capacity int) (*property.Property, error)
	AddBed(ctx context.Context, id uuid.UUID, floorName, roomNumber, bedID string) (*property.Property, error)
	BlockBed(ctx context.Context, id uuid.UUID, loc property.BedLocation) (*property.Property, error)
	UnblockBed(ctx context.Context, id uuid.UUID, loc property.BedLocation) (*property.Property, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PropertyHandler handles property and layout endpoints
type PropertyHandler struct {
	BaseHandler
	service PropertyService
}

// NewPropertyHandler creates a new PropertyHandler
func NewPropertyHandler(service PropertyService) *PropertyHandler {
	return &PropertyHandler{service: service}
}

// Create registers a property.
// POST /properties
func (h *PropertyHandler) Create(c *gin.Context) {
	var req CreatePropertyRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.service.Create(c.Request.Context(), propertyapp.CreatePropertyInput{
		Name:          req.Name,
		Address:       req.Address,
		ContactNumber: req.ContactNumber,
		Floors:        req.toFloors(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toPropertyResponse(p))
}

// List returns a page of properties.
// GET /properties
func (h *PropertyHandler) List(c *gin.Context) {
	req := dto.DefaultListRequest()
	if !bindQuery(c, &req) {
		return
	}

	items, total, err := h.service.List(c.Request.Context(), toFilter(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, toPropertyResponses(items), total, req.Page, req.PageSize)
}

// GetByID returns one property with its full layout.
// GET /properties/:id
func (h *PropertyHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	p, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPropertyResponse(p))
}

// Update replaces name, address and contact number.
// PUT /properties/:id
func (h *PropertyHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req UpdatePropertyRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.service.UpdateDetails(c.Request.Context(), id, req.Name, req.Address, req.ContactNumber)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPropertyResponse(p))
}

// Delete removes a property that has no residents.
// DELETE /properties/:id
func (h *PropertyHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddFloor appends a floor.
// POST /properties/:id/floors
func (h *PropertyHandler) AddFloor(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req AddFloorRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.service.AddFloor(c.Request.Context(), id, req.FloorName)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toPropertyResponse(p))
}

// AddRoom appends a room to the floor named in the path.
// POST /properties/:id/floors/:floor/rooms
func (h *PropertyHandler) AddRoom(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req AddRoomRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.service.AddRoom(c.Request.Context(), id, c.Param("floor"), req.RoomNumber, req.Capacity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toPropertyResponse(p))
}

// AddBed appends an Available bed to the room named in the path.
// POST /properties/:id/floors/:floor/rooms/:room/beds
func (h *PropertyHandler) AddBed(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req AddBedRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.service.AddBed(c.Request.Context(), id, c.Param("floor"), c.Param("room"), req.BedID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toPropertyResponse(p))
}

// BlockBed takes an Available bed out of service.
// POST /properties/:id/beds/block
func (h *PropertyHandler) BlockBed(c *gin.Context) {
	h.changeBed(c, h.service.BlockBed)
}

// UnblockBed returns a Blocked bed to service.
// POST /properties/:id/beds/unblock
func (h *PropertyHandler) UnblockBed(c *gin.Context) {
	h.changeBed(c, h.service.UnblockBed)
}

func (h *PropertyHandler) changeBed(c *gin.Context,
	fn func(context.Context, uuid.UUID, property.BedLocation) (*property.Property, error)) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req BedLocationRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := fn(c.Request.Context(), id, req.location())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPropertyResponse(p))
}

// Stats returns bed counts by status.
// GET /properties/:id/stats
func (h *PropertyHandler) Stats(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	p, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p.Stats())
}
