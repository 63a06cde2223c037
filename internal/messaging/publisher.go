package messaging

import (
	"context"
	"sort"

	"marketguard/internal/broker"
	"marketguard/pkg/models"
)

// ViolationPublisher reports messages that had contact details removed.
type ViolationPublisher interface {
	PublishViolation(ctx context.Context, msg *Message) error
}

type KafkaViolationPublisher struct {
	producer broker.Producer
	topic    string
	source   string
}

func NewViolationPublisher(producer broker.Producer, topic, source string) *KafkaViolationPublisher {
	return &KafkaViolationPublisher{
		producer: producer,
		topic:    topic,
		source:   source,
	}
}

func (p *KafkaViolationPublisher) PublishViolation(ctx context.Context, msg *Message) error {
	if p.producer == nil || p.topic == "" {
		return nil
	}

	envelope := models.NewMessageEnvelopeBuilder().
		WithType(models.TypeContactViolation).
		WithSource(p.source).
		WithContext(ctx).
		WithPayload(violationPayload(msg)).
		Build()

	return p.producer.Publish(ctx, p.topic, envelope)
}

// violationPayload carries rule names and categories only; the removed
// text stays in the messages table.
func violationPayload(msg *Message) map[string]interface{} {
	rules := map[string]struct{}{}
	categories := map[string]struct{}{}
	heuristic := false
	for _, f := range msg.Findings {
		rules[f.Rule] = struct{}{}
		categories[string(f.Category)] = struct{}{}
		heuristic = heuristic || f.Heuristic
	}

	return map[string]interface{}{
		"message_id":      msg.ID,
		"conversation_id": msg.ConversationID,
		"sender_kind":     string(msg.Sender.Kind),
		"sender_id":       msg.Sender.ID,
		"receiver_kind":   string(msg.Receiver.Kind),
		"receiver_id":     msg.Receiver.ID,
		"rules":           sortedKeys(rules),
		"categories":      sortedKeys(categories),
		"findings":        len(msg.Findings),
		"heuristic":       heuristic,
		"needs_review":    msg.NeedsReview,
		"detected_at":     msg.CreatedAt,
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
