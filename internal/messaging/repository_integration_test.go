//go:build integration

package messaging_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketguard/internal/fanout"
	"marketguard/internal/messaging"
	"marketguard/internal/redact"
	"marketguard/internal/testinfra"
	pkgerrors "marketguard/pkg/errors"
)

func newMessage(conversationID string, createdAt time.Time, text string, needsReview bool) *messaging.Message {
	res := redact.Redact(text)
	return &messaging.Message{
		ConversationID:      conversationID,
		Sender:              fanout.Identity{Kind: fanout.KindUser, ID: uuid.NewString()},
		Receiver:            fanout.Identity{Kind: fanout.KindPro, ID: uuid.NewString()},
		OriginalText:        text,
		SanitizedText:       res.SanitizedText,
		ContainsContactInfo: res.ContainsContactInfo,
		NeedsReview:         needsReview,
		Findings:            res.Findings,
		CreatedAt:           createdAt,
	}
}

func TestPostgresRepository_SaveAndListConversation(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Postgres: true})
	repo := messaging.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	conversation := uuid.NewString()
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, text := range []string{"hello", "mail jane@example.com", "see you", "ok"} {
		require.NoError(t, repo.Save(ctx, newMessage(conversation, base.Add(time.Duration(i)*time.Second), text, false)))
	}
	require.NoError(t, repo.Save(ctx, newMessage(uuid.NewString(), base, "other conversation", false)))

	latest, err := repo.ListConversation(ctx, conversation, 3)
	require.NoError(t, err)
	require.Len(t, latest, 3)
	assert.Equal(t, "mail jane@example.com", latest[0].OriginalText)
	assert.Equal(t, "mail [email removed]", latest[0].SanitizedText)
	assert.True(t, latest[0].ContainsContactInfo)
	require.Len(t, latest[0].Findings, 1)
	assert.Equal(t, redact.CategoryEmail, latest[0].Findings[0].Category)
	assert.Equal(t, "ok", latest[2].OriginalText)
	assert.Equal(t, fanout.KindUser, latest[0].Sender.Kind)

	empty, err := repo.ListConversation(ctx, uuid.NewString(), 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPostgresRepository_ListFlagged(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Postgres: true})
	repo := messaging.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, repo.Save(ctx, newMessage(uuid.NewString(), base, "hívj 06 30 12", true)))
	require.NoError(t, repo.Save(ctx, newMessage(uuid.NewString(), base.Add(time.Second), "thanks", false)))

	flagged, err := repo.ListFlagged(ctx, 10)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, "hívj 06 30 12", flagged[0].OriginalText)
	assert.True(t, flagged[0].Findings[0].Heuristic)
}

func TestPostgresRepository_DuplicateID(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Postgres: true})
	repo := messaging.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	msg := newMessage(uuid.NewString(), time.Now().UTC(), "hello", false)
	require.NoError(t, repo.Save(ctx, msg))

	err := repo.Save(ctx, msg)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}
