package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func httpEntries(recorded *observer.ObservedLogs) []observer.LoggedEntry {
	return recorded.FilterMessage("HTTP Request").All()
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		status int
		level  zapcore.Level
	}{
		{"ok is info", http.StatusOK, zapcore.InfoLevel},
		{"client error is warn", http.StatusConflict, zapcore.WarnLevel},
		{"server error is error", http.StatusInternalServerError, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			router := gin.New()
			router.Use(GinMiddleware(zap.New(core)))
			router.GET("/api/v1/properties/:id", func(c *gin.Context) {
				c.Status(tt.status)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/properties/abc?page=2", nil)
			router.ServeHTTP(w, req)

			entries := httpEntries(recorded)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0].Level)
			ctx := entries[0].ContextMap()
			assert.Equal(t, int64(tt.status), ctx["status"])
			assert.Equal(t, "/api/v1/properties/:id", ctx["route"])
			assert.Equal(t, "page=2", ctx["query"])
		})
	}
}

func TestGinMiddleware_PropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(GinRequestIDKey, "req-abc")
		c.Next()
	})
	router.Use(GinMiddleware(zap.New(core)))

	var fromRequestCtx string
	router.GET("/ping", func(c *gin.Context) {
		fromRequestCtx = GetRequestID(c.Request.Context())
		L(c.Request.Context()).Info("handler")
		c.Status(http.StatusNoContent)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, "req-abc", fromRequestCtx)
	handlerLogs := recorded.FilterMessage("handler").All()
	require.Len(t, handlerLogs, 1)
	assert.Equal(t, "req-abc", handlerLogs[0].ContextMap()["request_id"])
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.Len(t, recorded.FilterMessage("Panic recovered").All(), 1)
}

func TestGetGinLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, GetGinLogger(c))

	l := zap.NewExample()
	c.Set(ginLoggerKey, l)
	assert.Same(t, l, GetGinLogger(c))
}
