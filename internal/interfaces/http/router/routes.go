package router

import (
	"github.com/gin-gonic/gin"
	"github.com/nivaasi/backend/internal/interfaces/http/handler"
)

// Handlers are the endpoint sets served by the API
type Handlers struct {
	Property    *handler.PropertyHandler
	Tenant      *handler.TenantHandler
	Transaction *handler.TransactionHandler
	System      *handler.SystemHandler
	// Photo is optional; without it the photo routes are not mounted
	Photo   *handler.PhotoHandler
	Receipt *handler.ReceiptHandler
}

// Mount registers /health on the engine and every resource group under
// the router's API prefix, then finalizes the router.
func Mount(engine *gin.Engine, r *Router, h Handlers) {
	engine.GET("/health", h.System.Health)
	r.Register(
		PropertyRoutes(h.Property),
		TenantRoutes(h.Tenant),
		TransactionRoutes(h.Transaction),
		SystemRoutes(h.System),
	)
	if h.Photo != nil {
		r.Register(PhotoRoutes(h.Photo))
	}
	if h.Receipt != nil {
		r.Register(ReceiptRoutes(h.Receipt))
	}
	r.Setup()
}

// PropertyRoutes covers property CRUD, layout edits and bed blocking
func PropertyRoutes(h *handler.PropertyHandler) *DomainGroup {
	g := NewDomainGroup("property", "/properties")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/stats", h.Stats)

	g.POST("/:id/floors", h.AddFloor)
	g.POST("/:id/floors/:floor/rooms", h.AddRoom)
	g.POST("/:id/floors/:floor/rooms/:room/beds", h.AddBed)
	g.POST("/:id/beds/block", h.BlockBed)
	g.POST("/:id/beds/unblock", h.UnblockBed)
	return g
}

// TenantRoutes covers the tenancy lifecycle, the payment ledger and billing
func TenantRoutes(h *handler.TenantHandler) *DomainGroup {
	g := NewDomainGroup("tenant", "/tenants")
	g.POST("", h.MoveIn)
	g.GET("", h.List)
	g.GET("/unpaid", h.Unpaid)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)

	g.POST("/:id/move-out", h.MoveOut)
	g.POST("/:id/notice", h.GiveNotice)
	g.POST("/:id/transfer", h.Transfer)
	g.POST("/:id/payments", h.RecordPayment)
	g.GET("/:id/billing", h.Billing)
	return g
}

// PhotoRoute is the multipart upload route; it gets its own body limit
const PhotoRoute = "/tenants/:id/photo"

// PhotoRoutes covers tenant photo upload and retrieval
func PhotoRoutes(h *handler.PhotoHandler) *DomainGroup {
	g := NewDomainGroup("photo", "/tenants/:id/photo")
	g.PUT("", h.Upload)
	g.GET("", h.Get)
	g.DELETE("", h.Delete)
	g.POST("/upload-url", h.UploadURL)
	g.POST("/confirm", h.Confirm)
	return g
}

// ReceiptRoutes covers printable receipts of recorded payments
func ReceiptRoutes(h *handler.ReceiptHandler) *DomainGroup {
	g := NewDomainGroup("receipt", "/tenants/:id/payments")
	g.GET("/:seq/receipt", h.Get)
	return g
}

// TransactionRoutes covers the reporting transaction log
func TransactionRoutes(h *handler.TransactionHandler) *DomainGroup {
	g := NewDomainGroup("transaction", "/transactions")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/summary", h.Summary)
	g.GET("/:id", h.GetByID)
	g.PATCH("/:id/status", h.UpdateStatus)
	g.DELETE("/:id", h.Delete)
	return g
}

// SystemRoutes covers operational endpoints under the API prefix
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	g := NewDomainGroup("system", "/system")
	g.GET("/consistency", h.Consistency)
	return g
}
