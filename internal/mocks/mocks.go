package mocks

import (
	"context"
	"time"

	"buddysurf-chat/internal/domain"
	"buddysurf-chat/internal/realtime"
	"buddysurf-chat/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) Create(ctx context.Context, c *domain.Conversation, participantIDs []uuid.UUID) error {
	args := m.Called(ctx, c, participantIDs)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) GetByID(ctx context.Context, id uuid.UUID) (domain.Conversation, error) {
	args := m.Called(ctx, id)
	var conv domain.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(domain.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	var list []domain.ConversationSummary
	if val := args.Get(0); val != nil {
		list = val.([]domain.ConversationSummary)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) GetDirect(ctx context.Context, userID1, userID2 uuid.UUID) (domain.Conversation, error) {
	args := m.Called(ctx, userID1, userID2)
	var conv domain.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(domain.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]domain.Participant, error) {
	args := m.Called(ctx, conversationID)
	var list []domain.Participant
	if val := args.Get(0); val != nil {
		list = val.([]domain.Participant)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) MarkRead(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, conversationID, userID, at)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) TouchUpdatedAt(ctx context.Context, conversationID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, conversationID, at)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) DeleteOrphaned(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageRepositoryMock) GetByID(ctx context.Context, id uuid.UUID) (domain.Message, error) {
	args := m.Called(ctx, id)
	var msg domain.Message
	if val := args.Get(0); val != nil {
		msg = val.(domain.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) History(ctx context.Context, conversationID uuid.UUID, before repository.HistoryCursor, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, conversationID, before, limit)
	var list []domain.Message
	if val := args.Get(0); val != nil {
		list = val.([]domain.Message)
	}
	return list, args.Error(1)
}

func (m *MessageRepositoryMock) CountSince(ctx context.Context, conversationID uuid.UUID, since time.Time, excludeSender uuid.UUID) (int64, error) {
	args := m.Called(ctx, conversationID, since, excludeSender)
	return args.Get(0).(int64), args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	args := m.Called(ctx, userID, limit)
	var list []domain.Notification
	if val := args.Get(0); val != nil {
		list = val.([]domain.Notification)
	}
	return list, args.Error(1)
}

func (m *NotificationRepositoryMock) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) UpsertPushToken(ctx context.Context, t *domain.PushToken) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, channel string, ev realtime.Event) error {
	args := m.Called(ctx, channel, ev)
	return args.Error(0)
}
