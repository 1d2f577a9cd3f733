package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// SkipPaths are not traced (health checks)
	SkipPaths []string
}

// Tracing wraps otelgin and tags the server span with request_id plus the
// property_id and resident_id path parameters when the route has them.
// Span names follow "METHOD /route/:pattern".
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	base := otelgin.Middleware(cfg.ServiceName, otelgin.WithFilter(func(r *http.Request) bool {
		return !skip[r.URL.Path]
	}))

	return base
}

// SpanAttributes enriches the active span. It must run after Tracing and RequestID
// and before the handlers so route params are resolved.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if id := GetRequestID(c); id != "" {
				span.SetAttributes(attribute.String("request_id", id))
			}
			if route := c.FullPath(); route != "" {
				if id := c.Param("id"); id != "" {
					span.SetAttributes(attribute.String(resourceAttr(route), id))
				}
			}
		}
		c.Next()
	}
}

func resourceAttr(route string) string {
	switch {
	case hasSegment(route, "properties"):
		return "property_id"
	case hasSegment(route, "tenants"):
		return "resident_id"
	case hasSegment(route, "transactions"):
		return "transaction_id"
	}
	return "resource_id"
}

func hasSegment(route, segment string) bool {
	return slices.Contains(strings.Split(route, "/"), segment)
}

// SpanErrorMarker marks the server span failed for 5xx responses.
// 4xx answers are the caller's problem and stay unset.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			msg := http.StatusText(status)
			if len(c.Errors) > 0 {
				msg = c.Errors.Last().Error()
			}
			span.SetStatus(codes.Error, msg)
		}
	}
}
