package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	name string
	err  error
	wait time.Duration
}

func (s stubChecker) Name() string { return s.name }

func (s stubChecker) Check(ctx context.Context) error {
	if s.wait > 0 {
		select {
		case <-time.After(s.wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func TestCheckerRegistry_Status(t *testing.T) {
	tests := []struct {
		name     string
		critical []Checker
		optional []Checker
		want     Status
	}{
		{"no checkers", nil, nil, StatusHealthy},
		{"all healthy", []Checker{stubChecker{name: "postgresql"}}, []Checker{stubChecker{name: "redis"}}, StatusHealthy},
		{"optional down", []Checker{stubChecker{name: "postgresql"}}, []Checker{stubChecker{name: "redis", err: errors.New("refused")}}, StatusDegraded},
		{"critical down", []Checker{stubChecker{name: "postgresql", err: errors.New("refused")}}, []Checker{stubChecker{name: "redis", err: errors.New("refused")}}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCheckerRegistry()
			for _, c := range tt.critical {
				r.Register(c)
			}
			for _, c := range tt.optional {
				r.RegisterOptional(c)
			}

			h := r.Check(context.Background())
			assert.Equal(t, tt.want, h.Status)
			assert.Len(t, h.Checks, len(tt.critical)+len(tt.optional))
		})
	}
}

func TestCheckerRegistry_Timeout(t *testing.T) {
	r := NewCheckerRegistry()
	r.timeout = 20 * time.Millisecond
	r.Register(stubChecker{name: "slow", wait: time.Second})

	start := time.Now()
	h := r.Check(context.Background())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, StatusUnhealthy, h.Status)
	assert.Contains(t, h.Checks["slow"].Message, "deadline")
}

func TestCheckerRegistry_Handler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewCheckerRegistry()
	r.Register(stubChecker{name: "postgresql", err: errors.New("refused")})

	router := gin.New()
	router.GET("/health", r.Handler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var h Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
	assert.Equal(t, StatusUnhealthy, h.Status)
	assert.Equal(t, "refused", h.Checks["postgresql"].Message)
}

func TestKafkaChecker_NoBrokers(t *testing.T) {
	assert.Error(t, NewKafkaChecker(nil).Check(context.Background()))
}
