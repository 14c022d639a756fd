package repository

import (
	"context"
	"testing"
	"time"

	"buddysurf-chat/internal/domain"
	buddysurf_errors "buddysurf-chat/pkg/errors"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Conversation{},
		&domain.Participant{},
		&domain.Message{},
		&domain.Profile{},
	))
	return db
}

func seedConversation(t *testing.T, repo ConversationRepository, kind domain.ConversationKind, creator uuid.UUID, members ...uuid.UUID) domain.Conversation {
	t.Helper()
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	conv := domain.Conversation{
		ID:        uuid.New(),
		Kind:      kind,
		CreatedBy: creator,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(context.Background(), &conv, append([]uuid.UUID{creator}, members...)))
	return conv
}

func lastReadAt(t *testing.T, db *gorm.DB, conversationID, userID uuid.UUID) time.Time {
	t.Helper()
	var p domain.Participant
	require.NoError(t, db.
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&p).Error)
	return p.LastReadAt
}

func TestMarkReadKeepsLatestTimestamp(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)
	ctx := context.Background()

	userA, userB := uuid.New(), uuid.New()
	conv := seedConversation(t, repo, domain.ConversationDirect, userA, userB)

	t1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	require.NoError(t, repo.MarkRead(ctx, conv.ID, userA, t2))
	// The older timestamp arrives late; the marker must not move back.
	require.NoError(t, repo.MarkRead(ctx, conv.ID, userA, t1))

	assert.True(t, lastReadAt(t, db, conv.ID, userA).Equal(t2))
}

func TestMarkReadIdempotentAtSameTimestamp(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)
	ctx := context.Background()

	userA, userB := uuid.New(), uuid.New()
	conv := seedConversation(t, repo, domain.ConversationDirect, userA, userB)

	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkRead(ctx, conv.ID, userA, at))
	require.NoError(t, repo.MarkRead(ctx, conv.ID, userA, at))

	assert.True(t, lastReadAt(t, db, conv.ID, userA).Equal(at))
}

func TestMarkReadUnknownMembership(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)
	ctx := context.Background()

	userA, userB := uuid.New(), uuid.New()
	conv := seedConversation(t, repo, domain.ConversationDirect, userA, userB)

	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	err := repo.MarkRead(ctx, conv.ID, uuid.New(), at)
	assert.ErrorIs(t, err, buddysurf_errors.ErrNotFound)

	err = repo.MarkRead(ctx, uuid.New(), userA, at)
	assert.ErrorIs(t, err, buddysurf_errors.ErrNotFound)
}

func TestListForUserSummaries(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)
	messages := NewMessageRepository(db)
	ctx := context.Background()

	userA, userB := uuid.New(), uuid.New()
	convOld := seedConversation(t, repo, domain.ConversationDirect, userA, userB)
	convNew := seedConversation(t, repo, domain.ConversationGroup, userA, userB)

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	send := func(conv uuid.UUID, sender uuid.UUID, content string, at time.Time) {
		require.NoError(t, messages.Create(ctx, &domain.Message{
			ID:             uuid.New(),
			ConversationID: conv,
			SenderID:       sender,
			Content:        content,
			Kind:           domain.MessageText,
			CreatedAt:      at,
			UpdatedAt:      at,
		}))
	}
	send(convOld.ID, userB, "first", base)
	send(convOld.ID, userB, "second", base.Add(5*time.Minute))
	send(convOld.ID, userA, "reply", base.Add(6*time.Minute))

	// A has read up to just after the first message: one unread from B,
	// and A's own reply never counts.
	require.NoError(t, repo.MarkRead(ctx, convOld.ID, userA, base.Add(2*time.Minute)))
	require.NoError(t, repo.TouchUpdatedAt(ctx, convOld.ID, base.Add(6*time.Minute)))
	require.NoError(t, repo.TouchUpdatedAt(ctx, convNew.ID, base.Add(10*time.Minute)))

	summaries, err := repo.ListForUser(ctx, userA)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, convNew.ID, summaries[0].ID)
	assert.Nil(t, summaries[0].LastMessage)
	assert.Zero(t, summaries[0].UnreadCount)

	assert.Equal(t, convOld.ID, summaries[1].ID)
	require.NotNil(t, summaries[1].LastMessage)
	assert.Equal(t, "reply", *summaries[1].LastMessage)
	require.NotNil(t, summaries[1].LastMessageAt)
	assert.True(t, summaries[1].LastMessageAt.Equal(base.Add(6*time.Minute)))
	assert.Equal(t, int64(1), summaries[1].UnreadCount)
}

func TestListForUserNoConversations(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db)

	summaries, err := repo.ListForUser(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
