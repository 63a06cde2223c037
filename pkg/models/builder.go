package models

import (
	"context"
	"time"

	"github.com/google/uuid"

	"marketguard/pkg/logging"
)

// EnvelopeBuilder assembles an outgoing envelope. The zero ID and timestamp
// are filled at Build time so producers never publish an unaddressable
// message.
type EnvelopeBuilder struct {
	envelope MessageEnvelope
}

func NewMessageEnvelopeBuilder() *EnvelopeBuilder {
	return &EnvelopeBuilder{
		envelope: MessageEnvelope{Payload: map[string]interface{}{}},
	}
}

func (b *EnvelopeBuilder) WithID(id string) *EnvelopeBuilder {
	b.envelope.ID = id
	return b
}

func (b *EnvelopeBuilder) WithType(messageType string) *EnvelopeBuilder {
	b.envelope.Type = messageType
	return b
}

func (b *EnvelopeBuilder) WithSource(source string) *EnvelopeBuilder {
	b.envelope.Source = source
	return b
}

func (b *EnvelopeBuilder) WithTimestamp(ts time.Time) *EnvelopeBuilder {
	b.envelope.Timestamp = ts
	return b
}

// WithPayload replaces the payload. A nil map is kept empty instead.
func (b *EnvelopeBuilder) WithPayload(payload map[string]interface{}) *EnvelopeBuilder {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	b.envelope.Payload = payload
	return b
}

// WithContext copies the request's trace ID into the metadata so the
// consumer logs under the same trace.
func (b *EnvelopeBuilder) WithContext(ctx context.Context) *EnvelopeBuilder {
	if traceID := logging.GetTraceID(ctx); traceID != "" {
		b.envelope.Metadata.TraceID = traceID
	}
	return b
}

func (b *EnvelopeBuilder) Build() MessageEnvelope {
	env := b.envelope
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now().UTC()
	}
	return env
}
