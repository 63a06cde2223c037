package fanout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"marketguard/internal/logger"
	"marketguard/pkg/metrics"
)

// DefaultRelayChannel is the Redis pub/sub channel shared by all instances.
const DefaultRelayChannel = "marketguard:fanout"

// RelayEnvelope is the wire form of an event crossing instances.
type RelayEnvelope struct {
	Origin string   `json:"origin"`
	Target Identity `json:"target"`
	Event  Event    `json:"event"`
}

type pubSubClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// RedisRelay delivers locally and republishes every event so sessions held
// by other instances receive it too. Envelopes published by this instance
// are ignored on receipt.
type RedisRelay struct {
	client  pubSubClient
	channel string
	origin  string
	local   *Hub
	logger  logger.Logger
}

func NewRedisRelay(client *redis.Client, channel string, local *Hub, log logger.Logger) *RedisRelay {
	return newRedisRelay(client, channel, local, log)
}

func newRedisRelay(client pubSubClient, channel string, local *Hub, log logger.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	if log == nil {
		log = logger.NopLogger()
	}
	return &RedisRelay{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		local:   local,
		logger:  log,
	}
}

// Send delivers to local sessions and publishes the event for the other
// instances. The returned count only covers local deliveries.
func (r *RedisRelay) Send(ctx context.Context, identity Identity, event Event) int {
	delivered := r.local.Send(ctx, identity, event)
	if err := r.publish(ctx, identity, event); err != nil {
		metrics.IncFanoutRelay("publish", "error")
		r.logger.WarnwCtx(ctx, "Failed to publish event to relay channel",
			"identity", identity.Key(),
			"event_type", event.Type,
			"channel", r.channel,
			"error", err,
		)
	} else {
		metrics.IncFanoutRelay("publish", "ok")
	}
	return delivered
}

func (r *RedisRelay) Broadcast(ctx context.Context, a, b Identity, event Event) int {
	delivered := r.Send(ctx, a, event)
	if b != a {
		delivered += r.Send(ctx, b, event)
	}
	return delivered
}

func (r *RedisRelay) publish(ctx context.Context, identity Identity, event Event) error {
	data, err := json.Marshal(RelayEnvelope{Origin: r.origin, Target: identity, Event: event})
	if err != nil {
		return fmt.Errorf("failed to marshal relay envelope: %w", err)
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Run subscribes to the relay channel and delivers received envelopes to
// local sessions until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	r.logger.Infow("Fanout relay subscribed", "channel", r.channel, "origin", r.origin)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("relay channel %s closed", r.channel)
			}
			r.handle(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) handle(ctx context.Context, payload string) {
	var env RelayEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		metrics.IncFanoutRelay("receive", "invalid")
		r.logger.Warnw("Discarding malformed relay envelope", "error", err)
		return
	}
	if env.Origin == r.origin {
		return
	}
	if err := env.Target.Validate(); err != nil {
		metrics.IncFanoutRelay("receive", "invalid")
		r.logger.Warnw("Discarding relay envelope with invalid target", "error", err)
		return
	}
	metrics.IncFanoutRelay("receive", "ok")
	r.local.Send(ctx, env.Target, env.Event)
}
