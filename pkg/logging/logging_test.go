package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetLogFields(ctx))

	ctx = WithServiceName(ctx, "realtime-service")
	ctx = WithIdentity(ctx, "pro:42")
	ctx = WithTraceID(ctx, "trace-1")

	assert.Equal(t, []interface{}{
		"trace_id", "trace-1",
		"identity", "pro:42",
		"service_name", "realtime-service",
	}, GetLogFields(ctx))
}

func TestEarlyLog(t *testing.T) {
	var out, errOut bytes.Buffer
	exitCode := -1
	l := &EarlyLog{out: &out, err: &errOut, exit: func(code int) { exitCode = code }}

	l.Info("starting %s", "svc")
	l.Warn("slow")
	l.Fatal("boom: %d", 7)

	assert.Equal(t, "INFO: starting svc\n", out.String())
	assert.Equal(t, "WARN: slow\nFATAL: boom: 7\n", errOut.String())
	assert.Equal(t, 1, exitCode)
}
