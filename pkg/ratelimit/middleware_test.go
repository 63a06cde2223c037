package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketguard/internal/config"
)

func TestFromConfig(t *testing.T) {
	got := FromConfig(config.RateLimitConfig{RPS: 5, CleanupInterval: 30})
	assert.Equal(t, 5.0, got.RPS)
	assert.Equal(t, DefaultConfig().Burst, got.Burst)
	assert.Equal(t, 30*time.Second, got.CleanupInterval)
	assert.Equal(t, DefaultConfig().MaxAge, got.MaxAge)
}

func TestIPLimiter_AllowPerKey(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewIPLimiter(Config{RPS: 1, Burst: 2, CleanupInterval: time.Minute, MaxAge: time.Minute})
	l.now = func() time.Time { return now }

	ok, remaining := l.Allow("a")
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
	ok, _ = l.Allow("a")
	assert.True(t, ok)
	ok, remaining = l.Allow("a")
	assert.False(t, ok)
	assert.Equal(t, 0, remaining)

	ok, _ = l.Allow("b")
	assert.True(t, ok, "buckets are per key")

	now = now.Add(time.Second)
	ok, _ = l.Allow("a")
	assert.True(t, ok, "bucket refills over time")
}

func TestIPLimiter_Cleanup(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewIPLimiter(Config{RPS: 1, Burst: 1, CleanupInterval: time.Minute, MaxAge: time.Minute})
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(50 * time.Second)
	l.Allow("fresh")
	now = now.Add(20 * time.Second)

	assert.Equal(t, 1, l.cleanup())
	assert.Equal(t, 1, l.Size())
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewIPLimiter(Config{RPS: 0.001, Burst: 1, CleanupInterval: time.Minute, MaxAge: time.Minute})
	r := gin.New()
	r.Use(l.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, other)
	assert.Equal(t, http.StatusOK, w.Code)
}
