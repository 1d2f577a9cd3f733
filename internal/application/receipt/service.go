// Package receipt issues printable receipts for collected tenant payments.
package receipt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrPDFUnavailable is returned for PDF requests when no PDF renderer is configured
var ErrPDFUnavailable = errors.New("pdf rendering is not configured")

// Format is the output format of a receipt
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// Receipt is everything printed on a payment receipt
type Receipt struct {
	Number   string
	IssuedAt time.Time

	TenantID   uuid.UUID
	TenantName string
	Mobile     string

	// Property fields are empty when the property has since been deleted
	PropertyName    string
	PropertyAddress string
	ContactNumber   string
	Location        property.BedLocation

	Payment    tenant.PaymentEntry
	RentAmount decimal.Decimal
}

// Document is a rendered receipt
type Document struct {
	ContentType string
	Filename    string
	Body        []byte
}

// Tenants reads the tenant that owns the payment
type Tenants interface {
	GetTenant(ctx context.Context, tenantID uuid.UUID) (*tenant.Tenant, error)
}

// Properties reads the property the tenant stays in
type Properties interface {
	FindByID(ctx context.Context, id uuid.UUID) (*property.Property, error)
}

// HTMLRenderer lays a receipt out as a standalone HTML document
type HTMLRenderer interface {
	RenderReceipt(ctx context.Context, r *Receipt) (string, error)
}

// PDFRenderer prints an HTML document to PDF
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html, title string) ([]byte, error)
}

// Service builds and renders payment receipts
type Service struct {
	tenants    Tenants
	properties Properties
	html       HTMLRenderer
	pdf        PDFRenderer
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a receipt Service. pdf may be nil, in which case only HTML is served.
func NewService(tenants Tenants, properties Properties, html HTMLRenderer, pdf PDFRenderer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tenants:    tenants,
		properties: properties,
		html:       html,
		pdf:        pdf,
		logger:     logger.Named("receipt"),
		now:        time.Now,
	}
}

// SetClock overrides the issue time source
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// PDFEnabled reports whether PDF receipts can be produced
func (s *Service) PDFEnabled() bool {
	return s.pdf != nil
}

// Build collects the receipt data for payment seq of a tenant.
// Pending payments have no receipt.
func (s *Service) Build(ctx context.Context, tenantID uuid.UUID, seq int) (*Receipt, error) {
	t, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var entry tenant.PaymentEntry
	found := false
	for _, e := range t.Payments {
		if e.Seq == seq {
			entry, found = e, true
			break
		}
	}
	if !found {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Payment not found").
			WithDetail("seq", seq)
	}
	if !entry.IsCollected() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Receipts are issued only for collected payments").
			WithDetail("status", string(entry.Status))
	}

	r := &Receipt{
		Number:     Number(tenantID, seq),
		IssuedAt:   s.now(),
		TenantID:   tenantID,
		TenantName: t.Personal.Name,
		Mobile:     t.Personal.Mobile,
		Location:   t.Stay.Location(),
		Payment:    entry,
		RentAmount: t.Stay.RentAmount,
	}

	p, err := s.properties.FindByID(ctx, t.Stay.PropertyID)
	switch {
	case err == nil:
		r.PropertyName = p.Name
		r.PropertyAddress = p.Address
		r.ContactNumber = p.ContactNumber
	case shared.IsNotFound(err):
		s.logger.Debug("Receipt property no longer exists",
			zap.String("property_id", t.Stay.PropertyID.String()))
	default:
		return nil, err
	}
	return r, nil
}

// Render builds the receipt and renders it in the requested format
func (s *Service) Render(ctx context.Context, tenantID uuid.UUID, seq int, format Format) (*Document, error) {
	if format == FormatPDF && s.pdf == nil {
		return nil, ErrPDFUnavailable
	}
	if format != FormatHTML && format != FormatPDF {
		return nil, shared.NewDomainError(shared.CodeValidation, "format must be html or pdf")
	}

	r, err := s.Build(ctx, tenantID, seq)
	if err != nil {
		return nil, err
	}
	html, err := s.html.RenderReceipt(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("render receipt %s: %w", r.Number, err)
	}
	filename := strings.ToLower(r.Number)

	if format == FormatHTML {
		return &Document{ContentType: "text/html; charset=utf-8", Filename: filename + ".html", Body: []byte(html)}, nil
	}

	start := time.Now()
	pdf, err := s.pdf.RenderPDF(ctx, html, "Receipt "+r.Number)
	if err != nil {
		return nil, fmt.Errorf("print receipt %s: %w", r.Number, err)
	}
	s.logger.Info("Receipt printed",
		zap.String("receipt", r.Number),
		zap.Int("bytes", len(pdf)),
		zap.Duration("duration", time.Since(start)))
	return &Document{ContentType: "application/pdf", Filename: filename + ".pdf", Body: pdf}, nil
}

// Number is the receipt number of a payment: stable for the same tenant and entry
func Number(tenantID uuid.UUID, seq int) string {
	short := strings.ToUpper(strings.ReplaceAll(tenantID.String(), "-", "")[:8])
	return fmt.Sprintf("NV-%s-%04d", short, seq)
}
