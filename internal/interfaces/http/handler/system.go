package handler

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nivaasi/backend/internal/infrastructure/scheduler"
	"github.com/nivaasi/backend/internal/interfaces/http/dto"
	"github.com/nivaasi/backend/internal/interfaces/http/middleware"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConsistencyRunner runs the bed/tenant cross-check on demand
type ConsistencyRunner interface {
	RunNow(ctx context.Context) (scheduler.RunReport, error)
	LastReport() scheduler.RunReport
}

// SystemHandler serves health and operational endpoints
type SystemHandler struct {
	BaseHandler
	name        string
	version     string
	startTime   time.Time
	db          Pinger
	consistency ConsistencyRunner
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, db Pinger, consistency ConsistencyRunner) *SystemHandler {
	return &SystemHandler{
		name:        name,
		version:     version,
		startTime:   time.Now(),
		db:          db,
		consistency: consistency,
	}
}

// HealthResponse is the liveness and readiness payload
type HealthResponse struct {
	Status    string            `json:"status"`
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	GoVersion string            `json:"go_version"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks"`
}

// Health reports process uptime and database reachability. 503 when the database is down.
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    map[string]string{},
	}

	status := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			resp.Checks["database"] = "ok"
		}
	}

	c.JSON(status, dto.Response{Success: status == http.StatusOK, Data: resp})
}

// Consistency runs the cross-check now and returns its report.
// When a run is already in flight the previous report is returned with 409.
// GET /api/v1/system/consistency
func (h *SystemHandler) Consistency(c *gin.Context) {
	if h.consistency == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Consistency checking is not configured")
		return
	}

	report, err := h.consistency.RunNow(c.Request.Context())
	switch {
	case errors.Is(err, scheduler.ErrRunInProgress):
		c.JSON(http.StatusConflict, dto.Response{
			Success: false,
			Data:    h.consistency.LastReport(),
			Error: &dto.ErrorInfo{
				Code:      dto.ErrCodeConflict,
				Message:   "A consistency check is already running",
				RequestID: middleware.GetRequestID(c),
			},
		})
	case err != nil:
		h.HandleError(c, err)
	default:
		h.Success(c, report)
	}
}
