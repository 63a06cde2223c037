package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"

	"marketguard/internal/fanout"
	"marketguard/internal/logger"
	"marketguard/internal/redact"
	"marketguard/pkg/cel"
	pkgerrors "marketguard/pkg/errors"
	"marketguard/pkg/logging"
	"marketguard/pkg/metrics"
)

type Service interface {
	Send(ctx context.Context, req SendMessageRequest) (*Message, error)
	Conversation(ctx context.Context, conversationID string, limit int) ([]PublicMessage, error)
	FlaggedForReview(ctx context.Context, limit int) ([]Message, error)
	Notify(ctx context.Context, req NotificationRequest) (*NotificationResult, error)
}

type service struct {
	repo       Repository
	redactor   *redact.Redactor
	dispatcher fanout.Dispatcher
	policy     *cel.Policy
	violations ViolationPublisher
	logger     logger.Logger
	now        func() time.Time
}

type ServiceOption func(*service)

// WithReviewPolicy sets the expression that flags messages for manual
// review. Without it nothing is flagged.
func WithReviewPolicy(policy *cel.Policy) ServiceOption {
	return func(s *service) {
		s.policy = policy
	}
}

func WithViolationPublisher(p ViolationPublisher) ServiceOption {
	return func(s *service) {
		s.violations = p
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		s.now = now
	}
}

func NewService(repo Repository, redactor *redact.Redactor, dispatcher fanout.Dispatcher, log logger.Logger, opts ...ServiceOption) Service {
	s := &service{
		repo:       repo,
		redactor:   redactor,
		dispatcher: dispatcher,
		logger:     log,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Send stores a message with contact details masked and pushes the masked
// view to both participants. Push and publish failures never fail the send.
func (s *service) Send(ctx context.Context, req SendMessageRequest) (*Message, error) {
	start := time.Now()

	sender, receiver, err := validateSendRequest(req)
	if err != nil {
		metrics.ObserveMessageDuration(time.Since(start), "invalid")
		return nil, err
	}

	result := s.redactor.Redact(req.Text)
	msg := &Message{
		ID:                  uuid.New().String(),
		ConversationID:      req.ConversationID,
		Sender:              sender,
		Receiver:            receiver,
		OriginalText:        req.Text,
		SanitizedText:       result.SanitizedText,
		ContainsContactInfo: result.ContainsContactInfo,
		Findings:            result.Findings,
		CreatedAt:           s.now().UTC(),
	}
	ctx = logging.WithMessageID(ctx, msg.ID)

	metrics.IncRedactedMessage(msg.ContainsContactInfo)
	for _, f := range msg.Findings {
		metrics.IncRedactionFinding(f.Rule, string(f.Category), f.Heuristic)
	}

	msg.NeedsReview = s.review(ctx, msg)

	if err := s.repo.Save(ctx, msg); err != nil {
		metrics.ObserveMessageDuration(time.Since(start), "error")
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	delivered := s.dispatcher.Broadcast(ctx, sender, receiver, fanout.NewEvent(fanout.EventMessageCreated, msg.Public()))
	s.logger.DebugwCtx(ctx, "Message delivered",
		"conversation_id", msg.ConversationID,
		"sessions", delivered,
	)

	if msg.ContainsContactInfo {
		s.logger.InfowCtx(ctx, "Contact details removed from message",
			"conversation_id", msg.ConversationID,
			"sender", sender.Key(),
			"findings", len(msg.Findings),
			"needs_review", msg.NeedsReview,
		)
		s.publishViolation(ctx, msg)
	}

	metrics.ObserveMessageDuration(time.Since(start), "success")
	return msg, nil
}

func (s *service) review(ctx context.Context, msg *Message) bool {
	if s.policy == nil {
		return false
	}

	findings := make([]cel.FindingInput, len(msg.Findings))
	for i, f := range msg.Findings {
		findings[i] = cel.FindingInput{Rule: f.Rule, Category: string(f.Category), Heuristic: f.Heuristic}
	}

	flagged, err := s.policy.Evaluate(ctx, cel.ReviewInput{
		Findings:            findings,
		ContainsContactInfo: msg.ContainsContactInfo,
		SenderKind:          string(msg.Sender.Kind),
		ReceiverKind:        string(msg.Receiver.Kind),
		TextLength:          len([]rune(msg.OriginalText)),
	})
	if err != nil {
		// Fall back to flagging every redacted message.
		s.logger.WarnwCtx(ctx, "Review policy evaluation failed",
			"error", err,
			"expression", s.policy.Expression(),
		)
		metrics.IncReviewDecision("error")
		return msg.ContainsContactInfo
	}

	if flagged {
		metrics.IncReviewDecision("flagged")
	} else {
		metrics.IncReviewDecision("passed")
	}
	return flagged
}

func (s *service) publishViolation(ctx context.Context, msg *Message) {
	if s.violations == nil {
		return
	}
	if err := s.violations.PublishViolation(ctx, msg); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to publish contact violation",
			"error", err,
			"conversation_id", msg.ConversationID,
		)
	}
}

func (s *service) Conversation(ctx context.Context, conversationID string, limit int) ([]PublicMessage, error) {
	if _, err := uuid.Parse(conversationID); err != nil {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "conversation id must be a UUID")
	}

	messages, err := s.repo.ListConversation(ctx, conversationID, normalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	out := make([]PublicMessage, len(messages))
	for i := range messages {
		out[i] = messages[i].Public()
	}
	return out, nil
}

func (s *service) FlaggedForReview(ctx context.Context, limit int) ([]Message, error) {
	messages, err := s.repo.ListFlagged(ctx, normalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return messages, nil
}

func (s *service) Notify(ctx context.Context, req NotificationRequest) (*NotificationResult, error) {
	recipient, err := validateNotification(req)
	if err != nil {
		return nil, err
	}

	delivered := s.dispatcher.Send(ctx, recipient, fanout.NewEvent(fanout.EventNotification, NotificationPayload{
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	}))

	s.logger.DebugwCtx(ctx, "Notification pushed",
		"recipient", recipient.Key(),
		"sessions", delivered,
	)
	return &NotificationResult{Delivered: delivered}, nil
}
