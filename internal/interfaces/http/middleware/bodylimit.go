package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nivaasi/backend/internal/interfaces/http/dto"
)

// BodyLimit rejects requests whose declared body exceeds maxBytes and caps
// streamed bodies at the same size.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return BodyLimitFor(maxBytes, nil)
}

// BodyLimitFor is BodyLimit with per-route limits keyed by route pattern
// (for example "/api/v1/tenants/:id/photo"). Unmatched routes use maxBytes.
func BodyLimitFor(maxBytes int64, routes map[string]int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := maxBytes
		if n, ok := routes[c.FullPath()]; ok {
			limit = n
		}

		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRequestTooLarge,
				"Request body exceeds maximum allowed size",
				GetRequestID(c),
			))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
