package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"marketguard/internal/logger"
	"marketguard/pkg/logging"
)

func newRouter(log logger.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RecoveryMiddleware(log))
	r.Use(LoggerMiddleware(log))
	r.Use(RequestIDMiddleware())
	return r
}

func TestRequestIDMiddleware(t *testing.T) {
	r := newRouter(logger.NopLogger())
	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = logging.GetRequestID(c.Request.Context())
		assert.Equal(t, seen, GetRequestID(c))
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	require.NoError(t, err)
	assert.Equal(t, w.Header().Get(RequestIDHeader), seen)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", seen)
}

func TestLoggerMiddleware_LogsRouteAndRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := newRouter(logger.FromZap(zap.New(core)))
	r.GET("/api/v1/jobs/:id/location", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/42/location?lat=1", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/v1/jobs/:id/location", fields["route"])
	assert.Equal(t, "/api/v1/jobs/42/location", fields["path"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := newRouter(logger.FromZap(zap.New(core)))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INTERNAL_ERROR", resp["error_code"])
	assert.NotContains(t, w.Body.String(), "stack_trace")
	assert.NotEmpty(t, logs.FilterMessage("Panic recovered").All())
}
