package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/application/tenancy"
	"github.com/nivaasi/backend/internal/domain/billing"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"github.com/nivaasi/backend/internal/infrastructure/logger"
	"github.com/nivaasi/backend/internal/interfaces/http/dto"
)

// TenancyService is the coordinator surface the tenant endpoints need
type TenancyService interface {
	MoveIn(ctx context.Context, cmd tenancy.MoveInCommand) (*tenant.Tenant, error)
	MoveOut(ctx context.Context, tenantID uuid.UUID) (*tenancy.MoveOutResult, error)
	GiveNotice(ctx context.Context, tenantID uuid.UUID, noticeDate time.Time) (*tenant.Tenant, error)
	Transfer(ctx context.Context, tenantID uuid.UUID, cmd tenancy.TransferCommand) (*tenant.Tenant, error)
	RecordPayment(ctx context.Context, tenantID uuid.UUID, cmd tenancy.PaymentCommand) (tenant.PaymentEntry, error)
	DeleteTenant(ctx context.Context, tenantID uuid.UUID) error
	GetTenant(ctx context.Context, tenantID uuid.UUID) (*tenant.Tenant, error)
	ListTenants(ctx context.Context, filter shared.Filter) ([]tenant.Tenant, int64, error)
	UpdateTenantDetails(ctx context.Context, tenantID uuid.UUID, personal tenant.PersonalDetails, appDownloaded *bool) (*tenant.Tenant, error)
	UnpaidTenants(ctx context.Context, asOf time.Time) ([]tenant.Tenant, error)
	Statement(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (*tenant.Tenant, billing.Statement, error)
}

// TenantHandler handles tenant lifecycle, payment and billing endpoints
type TenantHandler struct {
	BaseHandler
	service TenancyService
	now     func() time.Time
}

// NewTenantHandler creates a new TenantHandler
func NewTenantHandler(service TenancyService) *TenantHandler {
	return &TenantHandler{service: service, now: time.Now}
}

// SetClock overrides the clock that resolves an omitted as_of date
func (h *TenantHandler) SetClock(now func() time.Time) {
	h.now = now
}

// MoveIn creates a tenant on an Available bed.
// POST /tenants
func (h *TenantHandler) MoveIn(c *gin.Context) {
	var req MoveInRequest
	if !bindJSON(c, &req) {
		return
	}
	personal, err := req.PersonalDetailsRequest.toDomain()
	if err != nil {
		h.BadRequest(c, "Invalid date_of_birth")
		return
	}
	propertyID, err := uuid.Parse(req.PropertyID)
	if err != nil {
		h.BadRequest(c, "Invalid property_id")
		return
	}
	joinDate, err := parseDate(req.JoinDate)
	if err != nil {
		h.BadRequest(c, "Invalid join_date")
		return
	}

	t, err := h.service.MoveIn(c.Request.Context(), tenancy.MoveInCommand{
		Personal:        personal,
		PropertyID:      propertyID,
		Location:        bedLocation(req.FloorName, req.RoomNumber, req.BedID),
		JoinDate:        joinDate,
		RentAmount:      req.RentAmount,
		SecurityDeposit: req.SecurityDeposit,
		AppDownloaded:   req.AppDownloaded,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toTenantResponse(t))
}

// List returns a page of tenants filtered by status and property.
// GET /tenants
func (h *TenantHandler) List(c *gin.Context) {
	query := TenantListQuery{ListRequest: dto.DefaultListRequest()}
	if !bindQuery(c, &query) {
		return
	}
	filter := toFilter(query.ListRequest)
	if query.Status != "" {
		status := tenant.StayStatus(query.Status)
		if !status.IsValid() {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "status must be one of: Active, On Notice, Vacated")
			return
		}
		filter.Filters[tenant.FilterStatus] = status
	}
	if query.PropertyID != "" {
		filter.Filters[tenant.FilterPropertyID] = uuid.MustParse(query.PropertyID)
	}

	items, total, err := h.service.ListTenants(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, toTenantResponses(items), total, query.Page, query.PageSize)
}

// GetByID returns one tenant with its payment ledger.
// GET /tenants/:id
func (h *TenantHandler) GetByID(c *gin.Context) {
	id, ok := h.parseResident(c)
	if !ok {
		return
	}
	t, err := h.service.GetTenant(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTenantResponse(t))
}

// Update replaces personal details.
// PUT /tenants/:id
func (h *TenantHandler) Update(c *gin.Context) {
	id, ok := h.parseResident(c)
	if !ok {
		return
	}
	var req UpdateTenantRequest
	if !bindJSON(c, &req) {
		return
	}
	personal, err := req.PersonalDetailsRequest.toDomain()
	if err != nil {
		h.BadRequest(c, "Invalid date_of_birth")
		return
	}
	t, err := h.service.UpdateTenantDetails(c.Request.Context(), id, personal, req.AppDownloaded)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTenantResponse(t))
}

// Delete removes a tenant record and frees any bed it still holds.
// DELETE /tenants/:id
func (h *TenantHandler) Delete(c *gin.Context) {
	id, ok := h.parseResident(c)
	if !ok {
		return
	}
	if err := h.service.DeleteTenant(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// MoveOut vacates the tenant and releases its bed.
// POST /tenants/:id/move-out
func (h *TenantHandler) MoveOut(c *gin.Context) {
	id, ok := h.parseResident(c)
	if !ok {
		return
	}
	res, err := h.service.MoveOut(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MoveOutResponse{
		Tenant:      toTenantResponse(res.Tenant),
		BedReleased: res.BedReleased,
		Warning:     res.Warning,
	})
}

// GiveNotice puts an Active tenant on notice.
// POST /tenants/:id/notice
func (h *TenantHandler) GiveNotice(c *gin.Context) {
	id, ok := h.parseResident(c)
	if !ok {
		return
	}
	// the body is optional; without one the notice is dated today
	var req NoticeRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	date, err := parseDate(req.NoticeDate)
	if err != nil {
		h.BadRequest(c, "Invalid notice_date")
		return
	}
	t, err := h.service.GiveNotice(c.Request.Context(), id, date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTenantResponse(t))
}

// Transfer moves an Active tenant to another Available bed.
// POST /tenants/:id/transfer
func (h *TenantHandler) Transfer(c *gin.Context) {
	id, ok := h.parseResident(c)
	if !ok {
		return
	}
	var req TransferRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.service.Transfer(c.Request.Context(), id, tenancy.TransferCommand{
		PropertyID: uuid.MustParse(req.PropertyID),
		Location:   bedLocation(req.FloorName, req.RoomNumber, req.BedID),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTenantResponse(t))
}

// RecordPayment appends a payment to the tenant's ledger.
// POST /tenants/:id/payments
func (h *TenantHandler) RecordPayment(c *gin.Context) {
	id, ok := h.parseResident(c)
	if !ok {
		return
	}
	var req RecordPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		h.BadRequest(c, "Invalid date")
		return
	}
	entry, err := h.service.RecordPayment(c.Request.Context(), id, tenancy.PaymentCommand{
		Amount:  req.Amount,
		Date:    date,
		Mode:    tenant.PaymentMode(req.Mode),
		Status:  tenant.PaymentStatus(req.Status),
		Remarks: req.Remarks,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toPaymentResponse(entry))
}

// Billing returns the tenant's next due date and outstanding amount.
// GET /tenants/:id/billing
func (h *TenantHandler) Billing(c *gin.Context) {
	id, ok := h.parseResident(c)
	if !ok {
		return
	}
	asOf, ok := h.asOf(c)
	if !ok {
		return
	}
	t, stmt, err := h.service.Statement(c.Request.Context(), id, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toBillingResponse(t.ID, asOf, stmt))
}

// Unpaid lists Active tenants with rent outstanding.
// GET /tenants/unpaid
func (h *TenantHandler) Unpaid(c *gin.Context) {
	asOf, ok := h.asOf(c)
	if !ok {
		return
	}
	items, err := h.service.UnpaidTenants(c.Request.Context(), asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTenantResponses(items))
}

func (h *TenantHandler) asOf(c *gin.Context) (time.Time, bool) {
	var q AsOfQuery
	if !bindQuery(c, &q) {
		return time.Time{}, false
	}
	if q.AsOf == "" {
		now := h.now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), true
	}
	t, err := parseDate(q.AsOf)
	if err != nil {
		h.BadRequest(c, "Invalid as_of")
		return time.Time{}, false
	}
	return t, true
}

// parseResident reads :id and tags the request context so every log line below carries it
func (h *TenantHandler) parseResident(c *gin.Context) (uuid.UUID, bool) {
	id, ok := h.parseID(c)
	if !ok {
		return uuid.Nil, false
	}
	c.Request = c.Request.WithContext(logger.WithResidentID(c.Request.Context(), id.String()))
	return id, true
}
