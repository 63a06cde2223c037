package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketguard/internal/fanout"
	"marketguard/pkg/logging"
	"marketguard/pkg/models"
)

type capturingProducer struct {
	topic    string
	envelope models.MessageEnvelope
	calls    int
}

func (p *capturingProducer) Publish(_ context.Context, topic string, msg models.MessageEnvelope) error {
	p.calls++
	p.topic = topic
	p.envelope = msg
	return nil
}

func (p *capturingProducer) Close() error { return nil }

func TestKafkaViolationPublisher(t *testing.T) {
	producer := &capturingProducer{}
	publisher := NewViolationPublisher(producer, "contact_violations", "realtime-service")

	ctx := logging.WithTraceID(context.Background(), "trace-9")
	msg := &Message{
		ID:       "m1",
		Sender:   fanout.Identity{Kind: fanout.KindPro, ID: "p1"},
		Receiver: fanout.Identity{Kind: fanout.KindUser, ID: "u1"},
	}
	require.NoError(t, publisher.PublishViolation(ctx, msg))

	assert.Equal(t, 1, producer.calls)
	assert.Equal(t, "contact_violations", producer.topic)
	assert.Equal(t, models.TypeContactViolation, producer.envelope.Type)
	assert.Equal(t, "realtime-service", producer.envelope.Source)
	assert.Equal(t, "trace-9", producer.envelope.Metadata.TraceID)
	assert.Equal(t, "m1", producer.envelope.PayloadString("message_id"))
	require.NoError(t, models.ValidateMessageEnvelope(&producer.envelope))
}

func TestKafkaViolationPublisher_Disabled(t *testing.T) {
	assert.NoError(t, NewViolationPublisher(nil, "contact_violations", "x").PublishViolation(context.Background(), &Message{}))

	producer := &capturingProducer{}
	assert.NoError(t, NewViolationPublisher(producer, "", "x").PublishViolation(context.Background(), &Message{}))
	assert.Zero(t, producer.calls)
}
