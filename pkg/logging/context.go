package logging

import (
	"context"
)

type contextKey string

const (
	TraceIDKey      contextKey = "trace_id"
	RequestIDKey    contextKey = "request_id"
	MessageIDKey    contextKey = "message_id"
	IdentityKey     contextKey = "identity"
	ConnectionIDKey contextKey = "connection_id"
	ServiceNameKey  contextKey = "service_name"
)

// fieldOrder fixes the order in which context values are emitted.
var fieldOrder = []contextKey{
	TraceIDKey,
	RequestIDKey,
	MessageIDKey,
	IdentityKey,
	ConnectionIDKey,
	ServiceNameKey,
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return context.WithValue(ctx, MessageIDKey, messageID)
}

// WithIdentity tags the context with a "kind:id" identity key.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

func WithConnectionID(ctx context.Context, connectionID string) context.Context {
	return context.WithValue(ctx, ConnectionIDKey, connectionID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func get(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func GetTraceID(ctx context.Context) string      { return get(ctx, TraceIDKey) }
func GetRequestID(ctx context.Context) string    { return get(ctx, RequestIDKey) }
func GetMessageID(ctx context.Context) string    { return get(ctx, MessageIDKey) }
func GetIdentity(ctx context.Context) string     { return get(ctx, IdentityKey) }
func GetConnectionID(ctx context.Context) string { return get(ctx, ConnectionIDKey) }
func GetServiceName(ctx context.Context) string  { return get(ctx, ServiceNameKey) }

// GetLogFields returns the context values as zap key/value pairs.
func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 2*len(fieldOrder))
	for _, key := range fieldOrder {
		if v := get(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}
	return fields
}
