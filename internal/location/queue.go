package location

import (
	"context"

	"marketguard/internal/broker"
	"marketguard/pkg/models"
)

// GeocodeQueue defers geocoding to the geocoding service.
type GeocodeQueue interface {
	Enqueue(ctx context.Context, req GeocodeRequest) error
}

type KafkaGeocodeQueue struct {
	producer broker.Producer
	topic    string
	source   string
}

func NewGeocodeQueue(producer broker.Producer, topic, source string) *KafkaGeocodeQueue {
	return &KafkaGeocodeQueue{
		producer: producer,
		topic:    topic,
		source:   source,
	}
}

func (q *KafkaGeocodeQueue) Enqueue(ctx context.Context, req GeocodeRequest) error {
	envelope := models.NewMessageEnvelopeBuilder().
		WithType(models.TypeGeocodeRequest).
		WithSource(q.source).
		WithContext(ctx).
		WithPayload(map[string]interface{}{
			"target":  req.Target,
			"id":      req.ID,
			"address": req.Address,
		}).
		Build()

	return q.producer.Publish(ctx, q.topic, envelope)
}

func parseGeocodeRequest(msg models.MessageEnvelope) GeocodeRequest {
	return GeocodeRequest{
		Target:  msg.PayloadString("target"),
		ID:      msg.PayloadString("id"),
		Address: msg.PayloadString("address"),
	}
}
