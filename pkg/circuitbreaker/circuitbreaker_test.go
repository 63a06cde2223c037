package circuitbreaker

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errExpected = errors.New("expected miss")

func TestWrapper_TripsOnFailureRatio(t *testing.T) {
	cfg := DefaultConfig("test-trip")
	cfg.MinRequests = 2
	w := NewWrapper(cfg)
	ctx := context.Background()

	fail := func() (interface{}, error) { return nil, errors.New("upstream down") }
	_, _ = w.Execute(ctx, fail)
	assert.False(t, w.IsOpen())
	_, _ = w.Execute(ctx, fail)
	assert.True(t, w.IsOpen())

	_, err := w.Execute(ctx, func() (interface{}, error) { return "ok", nil })
	assert.True(t, IsBreakerError(err))
}

func TestWrapper_IsSuccessfulKeepsBreakerClosed(t *testing.T) {
	cfg := DefaultConfig("test-expected")
	cfg.MinRequests = 1
	cfg.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, errExpected) }
	w := NewWrapper(cfg)

	for i := 0; i < 5; i++ {
		_, err := w.Execute(context.Background(), func() (interface{}, error) { return nil, errExpected })
		assert.ErrorIs(t, err, errExpected)
	}
	assert.Equal(t, gobreaker.StateClosed, w.State())
}

func TestWrapper_CancelledContext(t *testing.T) {
	w := NewWrapper(DefaultConfig("test-ctx"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := w.Execute(ctx, func() (interface{}, error) {
		called = true
		return nil, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.Equal(t, uint32(0), w.Counts().Requests)
}

func TestWrapper_OnStateChange(t *testing.T) {
	var transitions []gobreaker.State
	cfg := DefaultConfig("test-hook")
	cfg.ReadyToTrip = func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 1 }
	cfg.OnStateChange = func(_ string, _, to gobreaker.State) { transitions = append(transitions, to) }
	w := NewWrapper(cfg)

	_, _ = w.Execute(context.Background(), func() (interface{}, error) { return nil, errors.New("x") })
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)
	assert.Equal(t, "test-hook", w.Name())
}
