package broker

import (
	"context"

	"marketguard/pkg/models"
)

type Producer interface {
	Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

// HandlerFunc processes one envelope. Errors are retried unless they are
// fatal (see pkg/retry); exhausted messages go to the DLQ.
type HandlerFunc func(ctx context.Context, msg models.MessageEnvelope) error
