package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

var knownTypes = map[string]struct{}{
	TypeContactViolation: {},
	TypeGeocodeRequest:   {},
}

// ValidateMessageEnvelope rejects envelopes a consumer cannot route. The
// payload may be empty but not absent.
func ValidateMessageEnvelope(msg *MessageEnvelope) error {
	if msg == nil {
		return &ValidationError{Field: "envelope", Message: "message envelope cannot be nil"}
	}

	required := []struct {
		field string
		empty bool
	}{
		{"id", msg.ID == ""},
		{"type", msg.Type == ""},
		{"source", msg.Source == ""},
		{"timestamp", msg.Timestamp.IsZero()},
		{"payload", msg.Payload == nil},
	}
	for _, r := range required {
		if r.empty {
			return &ValidationError{Field: r.field, Message: "is required"}
		}
	}

	if _, ok := knownTypes[msg.Type]; !ok {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown message type %q", msg.Type)}
	}
	return nil
}

// PayloadString returns a string payload field, or "" when it is missing or
// not a string.
func (msg *MessageEnvelope) PayloadString(name string) string {
	s, _ := msg.Payload[name].(string)
	return s
}
