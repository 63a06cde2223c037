package tracing

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"marketguard/internal/config"
)

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		cfg  config.SamplerConfig
		want string
	}{
		{config.SamplerConfig{}, "AlwaysOnSampler"},
		{config.SamplerConfig{Type: "always_off"}, "AlwaysOffSampler"},
		{config.SamplerConfig{Type: "traceidratio", Param: 0.5}, "TraceIDRatioBased{0.5}"},
		{config.SamplerConfig{Type: "parentbased_always_on"}, "ParentBased{root:AlwaysOnSampler"},
	}
	for _, tt := range tests {
		t.Run(tt.cfg.Type, func(t *testing.T) {
			assert.Contains(t, createSampler(tt.cfg).Description(), tt.want)
		})
	}
}

func TestResolveServiceName(t *testing.T) {
	assert.Equal(t, "realtime-service", resolveServiceName(config.TracingConfig{ServiceName: "cfg"}, "realtime-service"))
	assert.Equal(t, "cfg", resolveServiceName(config.TracingConfig{ServiceName: "cfg"}, ""))
	assert.Equal(t, DefaultServiceName, resolveServiceName(config.TracingConfig{}, ""))
}

func TestInit_Disabled(t *testing.T) {
	tp, err := Init(config.TracingConfig{Enabled: false}, "")
	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestKafkaTraceContextRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	headers := InjectTraceContext(ctx, []kafka.Header{{Key: "type", Value: []byte("geocode_request")}})
	require.Len(t, headers, 2)
	assert.Equal(t, "type", headers[0].Key)
	assert.Equal(t, "traceparent", headers[1].Key)

	extracted := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), headers))
	assert.Equal(t, span.SpanContext().TraceID(), extracted.TraceID())
	assert.True(t, extracted.IsRemote())
}

func TestTraceRequest(t *testing.T) {
	assert.False(t, traceRequest(httptest.NewRequest("GET", "/health", nil)))
	assert.False(t, traceRequest(httptest.NewRequest("GET", "/metrics", nil)))
	assert.True(t, traceRequest(httptest.NewRequest("GET", "/api/v1/pros/nearby?lat=1&lon=2", nil)))
}
