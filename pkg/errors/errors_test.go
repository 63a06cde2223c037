package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       *Error
		retryable bool
	}{
		{"validation is fatal", ErrValidation, false},
		{"not found is fatal", ErrNotFound, false},
		{"malformed identity is fatal", ErrMalformedIdentity, false},
		{"upstream is retryable", ErrUpstream, true},
		{"internal is retryable", ErrInternal, true},
		{"forced fatal", ErrUpstream.AsFatal(), false},
		{"forced retryable", ErrNotFound.AsRetryable(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.err.IsRetryable())
			assert.Equal(t, !tt.retryable, tt.err.IsFatal())
		})
	}
}

func TestWithCauseKeepsSentinelUntouched(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := ErrUpstream.WithCause(cause).WithDetail("provider", "nominatim")

	assert.ErrorIs(t, err, cause)
	assert.Nil(t, ErrUpstream.Cause)
	assert.Empty(t, ErrUpstream.Details)
	assert.Equal(t, http.StatusBadGateway, ToHTTPStatus(fmt.Errorf("geocode: %w", err)))
}

func TestToCloseCode(t *testing.T) {
	assert.Equal(t, CloseMalformedIdentity, ToCloseCode(ErrMalformedIdentity.WithDetail("kind", "admin")))
	assert.Equal(t, CloseIdentityNotFound, ToCloseCode(fmt.Errorf("lookup: %w", ErrNotFound)))
	assert.Equal(t, CloseInternalError, ToCloseCode(errors.New("boom")))
	assert.Equal(t, CloseInternalError, ToCloseCode(ErrServiceUnavailable))
}

func TestToErrorResponse(t *testing.T) {
	resp := ToErrorResponse(ErrValidation.WithDetail("field", "text"))
	assert.Equal(t, "VALIDATION_ERROR", resp["error_code"])
	assert.Equal(t, map[string]interface{}{"field": "text"}, resp["details"])

	resp = ToErrorResponse(errors.New("plain"))
	assert.Equal(t, "INTERNAL_ERROR", resp["error_code"])
}

func TestRecoverPanic(t *testing.T) {
	assert.NoError(t, RecoverPanic(nil))

	err := RecoverPanic("kaboom")
	var appErr *Error
	assert.ErrorAs(t, err, &appErr)
	assert.True(t, appErr.IsFatal())
	assert.Contains(t, appErr.Details["stack_trace"], "goroutine")

	resp := ToErrorResponse(err)
	_, hasDetails := resp["details"]
	assert.False(t, hasDetails)

	sentinel := errors.New("nil map write")
	assert.ErrorIs(t, RecoverPanic(sentinel), sentinel)
	assert.LessOrEqual(t, len(appErr.Details["stack_trace"].(string)), maxStackBytes)
}

func TestWithDetail_DoesNotMutateSentinel(t *testing.T) {
	_ = ErrValidation.WithDetail("field", "text")
	assert.Empty(t, ErrValidation.Details)
}
