package models

import "time"

// MessageEnvelope is the wire format of every Kafka message the services
// exchange.
type MessageEnvelope struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
	Metadata  Metadata               `json:"metadata"`
}

type Metadata struct {
	TraceID string `json:"trace_id,omitempty"`
	// Failure is filled in when the message is parked on the DLQ.
	Failure *FailureInfo `json:"failure,omitempty"`
}

type FailureInfo struct {
	Reason      string    `json:"reason"`
	SourceTopic string    `json:"source_topic"`
	FailedAt    time.Time `json:"failed_at"`
}

const (
	TypeContactViolation = "contact_violation"
	TypeGeocodeRequest   = "geocode_request"
)
