package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"marketguard/pkg/logging"
)

func TestNewWithOptions(t *testing.T) {
	_, err := NewWithOptions(Options{Level: "debug", Format: "console"})
	require.NoError(t, err)

	_, err = NewWithOptions(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestCtxMethodsAddContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).(*SugaredLogger)
	log.SetServiceName("realtime-service")

	ctx := logging.WithIdentity(context.Background(), "user:7")
	log.InfowCtx(ctx, "session registered", "connection_id", "c-1")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "user:7", fields["identity"])
	assert.Equal(t, "realtime-service", fields["service_name"])
	assert.Equal(t, "c-1", fields["connection_id"])
}
