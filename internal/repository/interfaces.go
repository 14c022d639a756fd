package repository

import (
	"context"
	"time"

	"buddysurf-chat/internal/domain"

	"github.com/google/uuid"
)

// HistoryCursor marks the oldest message already held by the caller.
// A zero cursor means "from the end of history".
type HistoryCursor struct {
	Before   time.Time
	BeforeID uuid.UUID
}

func (c HistoryCursor) IsZero() bool {
	return c.Before.IsZero() && c.BeforeID == uuid.Nil
}

type ConversationRepository interface {
	// Create writes the conversation and all participant rows in a single
	// transaction: either everything exists afterwards or nothing does.
	Create(ctx context.Context, c *domain.Conversation, participantIDs []uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Conversation, error)
	// ListForUser returns every conversation the user participates in,
	// annotated with its last message, most recently active first.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error)
	GetDirect(ctx context.Context, userID1, userID2 uuid.UUID) (domain.Conversation, error)
	GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]domain.Participant, error)
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	// MarkRead advances last_read_at to at. The update is guarded so a
	// value already further forward is never moved backward.
	MarkRead(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error
	// TouchUpdatedAt bumps the inbox-ordering timestamp.
	TouchUpdatedAt(ctx context.Context, conversationID uuid.UUID, at time.Time) error
	// DeleteOrphaned removes conversations older than cutoff that have no
	// participant rows. Returns the number of rows deleted.
	DeleteOrphaned(ctx context.Context, cutoff time.Time) (int64, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *domain.Message) error
	// GetByID returns the full message with sender profile joined in.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Message, error)
	// History returns messages ascending by (created_at, id). A zero
	// cursor with limit 0 returns the whole conversation.
	History(ctx context.Context, conversationID uuid.UUID, before HistoryCursor, limit int) ([]domain.Message, error)
	CountSince(ctx context.Context, conversationID uuid.UUID, since time.Time, excludeSender uuid.UUID) (int64, error)
}

type NotificationRepository interface {
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	UpsertPushToken(ctx context.Context, t *domain.PushToken) error
}
