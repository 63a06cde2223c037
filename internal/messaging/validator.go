package messaging

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"marketguard/internal/constants"
	"marketguard/internal/fanout"
	pkgerrors "marketguard/pkg/errors"
)

func parseIdentity(field, kind, id string) (fanout.Identity, error) {
	k, err := fanout.ParseKind(kind)
	if err != nil {
		return fanout.Identity{}, pkgerrors.ErrValidation.WithDetail("message", fmt.Sprintf("%s_kind: %v", field, err))
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fanout.Identity{}, pkgerrors.ErrValidation.WithDetail("message", fmt.Sprintf("%s_id must be a UUID", field))
	}
	return fanout.Identity{Kind: k, ID: parsed.String()}, nil
}

func validateSendRequest(req SendMessageRequest) (sender, receiver fanout.Identity, err error) {
	if _, err := uuid.Parse(req.ConversationID); err != nil {
		return sender, receiver, pkgerrors.ErrValidation.WithDetail("message", "conversation_id must be a UUID")
	}

	sender, err = parseIdentity("sender", req.SenderKind, req.SenderID)
	if err != nil {
		return sender, receiver, err
	}
	receiver, err = parseIdentity("receiver", req.ReceiverKind, req.ReceiverID)
	if err != nil {
		return sender, receiver, err
	}
	if sender == receiver {
		return sender, receiver, pkgerrors.ErrValidation.WithDetail("message", "sender and receiver must differ")
	}

	if strings.TrimSpace(req.Text) == "" {
		return sender, receiver, pkgerrors.ErrValidation.WithDetail("message", "text cannot be empty")
	}
	if !utf8.ValidString(req.Text) {
		return sender, receiver, pkgerrors.ErrValidation.WithDetail("message", "text must be valid UTF-8")
	}
	if n := utf8.RuneCountInString(req.Text); n > constants.MaxMessageLength {
		return sender, receiver, pkgerrors.ErrValidation.WithDetail("message",
			fmt.Sprintf("text is %d characters, the limit is %d", n, constants.MaxMessageLength))
	}

	return sender, receiver, nil
}

func validateNotification(req NotificationRequest) (fanout.Identity, error) {
	recipient, err := parseIdentity("recipient", req.RecipientKind, req.RecipientID)
	if err != nil {
		return recipient, err
	}
	if strings.TrimSpace(req.Title) == "" {
		return recipient, pkgerrors.ErrValidation.WithDetail("message", "title cannot be empty")
	}
	return recipient, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > constants.MaxLimit {
		return constants.DefaultLimit
	}
	return limit
}
