package messaging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"marketguard/internal/fanout"
	"marketguard/internal/redact"
	pkgerrors "marketguard/pkg/errors"
	"marketguard/pkg/metrics"
)

type Repository interface {
	Save(ctx context.Context, msg *Message) error
	ListConversation(ctx context.Context, conversationID string, limit int) ([]Message, error)
	ListFlagged(ctx context.Context, limit int) ([]Message, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

const messageColumns = `id, conversation_id, sender_kind, sender_id, receiver_kind, receiver_id,
		original_text, sanitized_text, contains_contact_info, needs_review, findings, created_at`

func (r *PostgresRepository) Save(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	findings := msg.Findings
	if findings == nil {
		findings = []redact.Finding{}
	}
	findingsJSON, err := json.Marshal(findings)
	if err != nil {
		return fmt.Errorf("failed to marshal findings: %w", err)
	}

	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	start := time.Now()
	_, err = r.db.ExecContext(ctx, query,
		msg.ID, msg.ConversationID,
		string(msg.Sender.Kind), msg.Sender.ID,
		string(msg.Receiver.Kind), msg.Receiver.ID,
		msg.OriginalText, msg.SanitizedText,
		msg.ContainsContactInfo, msg.NeedsReview,
		findingsJSON, msg.CreatedAt,
	)
	observe("insert_message", start, err)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("message %s already exists", msg.ID))
		}
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

// ListConversation returns the latest messages of a conversation, oldest
// first.
func (r *PostgresRepository) ListConversation(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	query := `
		SELECT ` + messageColumns + ` FROM (
			SELECT ` + messageColumns + `
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) latest
		ORDER BY created_at ASC, id ASC
	`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, conversationID, limit)
	observe("list_conversation", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}
	defer rows.Close()

	return scanMessages(ctx, rows)
}

func (r *PostgresRepository) ListFlagged(ctx context.Context, limit int) ([]Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE needs_review
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, limit)
	observe("list_flagged", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list flagged messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(ctx, rows)
}

func scanMessages(ctx context.Context, rows *sql.Rows) ([]Message, error) {
	messages := []Message{}
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		var (
			msg                      Message
			senderKind, receiverKind string
			findingsJSON             []byte
		)
		if err := rows.Scan(
			&msg.ID, &msg.ConversationID,
			&senderKind, &msg.Sender.ID,
			&receiverKind, &msg.Receiver.ID,
			&msg.OriginalText, &msg.SanitizedText,
			&msg.ContainsContactInfo, &msg.NeedsReview,
			&findingsJSON, &msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Sender.Kind = fanout.Kind(senderKind)
		msg.Receiver.Kind = fanout.Kind(receiverKind)
		if err := json.Unmarshal(findingsJSON, &msg.Findings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal findings of message %s: %w", msg.ID, err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

func observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncDatabaseQuery("messaging", "postgres", operation, status)
	metrics.ObserveDatabaseQueryDuration("messaging", "postgres", operation, time.Since(start))
}
