package messaging

import (
	"time"

	"marketguard/internal/fanout"
	"marketguard/internal/redact"
)

type SendMessageRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	SenderKind     string `json:"sender_kind" binding:"required"`
	SenderID       string `json:"sender_id" binding:"required"`
	ReceiverKind   string `json:"receiver_kind" binding:"required"`
	ReceiverID     string `json:"receiver_id" binding:"required"`
	Text           string `json:"text" binding:"required"`
}

// Message is the stored form. OriginalText never leaves the moderation
// endpoints.
type Message struct {
	ID                  string           `json:"id"`
	ConversationID      string           `json:"conversation_id"`
	Sender              fanout.Identity  `json:"sender"`
	Receiver            fanout.Identity  `json:"receiver"`
	OriginalText        string           `json:"original_text"`
	SanitizedText       string           `json:"sanitized_text"`
	ContainsContactInfo bool             `json:"contains_contact_info"`
	NeedsReview         bool             `json:"needs_review"`
	Findings            []redact.Finding `json:"findings"`
	CreatedAt           time.Time        `json:"created_at"`
}

// PublicMessage is what participants see.
type PublicMessage struct {
	ID                 string          `json:"id"`
	ConversationID     string          `json:"conversation_id"`
	Sender             fanout.Identity `json:"sender"`
	Receiver           fanout.Identity `json:"receiver"`
	Text               string          `json:"text"`
	ContactInfoRemoved bool            `json:"contact_info_removed"`
	CreatedAt          time.Time       `json:"created_at"`
}

func (m *Message) Public() PublicMessage {
	return PublicMessage{
		ID:                 m.ID,
		ConversationID:     m.ConversationID,
		Sender:             m.Sender,
		Receiver:           m.Receiver,
		Text:               m.SanitizedText,
		ContactInfoRemoved: m.ContainsContactInfo,
		CreatedAt:          m.CreatedAt,
	}
}

type NotificationRequest struct {
	RecipientKind string                 `json:"recipient_kind" binding:"required"`
	RecipientID   string                 `json:"recipient_id" binding:"required"`
	Title         string                 `json:"title" binding:"required"`
	Body          string                 `json:"body"`
	Data          map[string]interface{} `json:"data,omitempty"`
}

type NotificationPayload struct {
	Title string                 `json:"title"`
	Body  string                 `json:"body,omitempty"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

type NotificationResult struct {
	// Delivered counts live sessions on this instance that accepted the
	// event.
	Delivered int `json:"delivered"`
}
