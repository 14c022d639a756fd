package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"buddysurf-chat/internal/domain"
	"buddysurf-chat/internal/realtime"
	"buddysurf-chat/internal/repository"
	buddysurf_errors "buddysurf-chat/pkg/errors"
	"buddysurf-chat/pkg/logger"

	"github.com/google/uuid"
)

// ChatService coordinates the conversation and message repositories with
// the realtime broker. It satisfies chat.Backend for the view model.
type ChatService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	broker        realtime.Publisher
	log           *logger.Logger
}

func NewChatService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	broker realtime.Publisher,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		broker:        broker,
		log:           log,
	}
}

// ListConversations returns the user's inbox, most recently active first.
func (s *ChatService) ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	summaries, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, backendErr(err)
	}
	return summaries, nil
}

// CreateConversation writes the conversation and its full participant
// set atomically. The creator is always in the set exactly once, no
// matter how the input spells it.
func (s *ChatService) CreateConversation(
	ctx context.Context,
	creatorID uuid.UUID,
	participantIDs []uuid.UUID,
	kind domain.ConversationKind,
	name *string,
	activityID *uuid.UUID,
) (domain.Conversation, error) {
	if !kind.Valid() {
		return domain.Conversation{}, buddysurf_errors.ErrInvalidInput
	}

	members := []uuid.UUID{creatorID}
	seen := map[uuid.UUID]struct{}{creatorID: {}}
	for _, id := range participantIDs {
		if _, dup := seen[id]; dup || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}

	if kind == domain.ConversationDirect && len(members) != 2 {
		return domain.Conversation{}, buddysurf_errors.ErrInvalidInput
	}

	now := time.Now()
	conv := domain.Conversation{
		ID:         uuid.New(),
		Kind:       kind,
		Name:       name,
		ActivityID: activityID,
		CreatedBy:  creatorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.conversations.Create(ctx, &conv, members); err != nil {
		return domain.Conversation{}, backendErr(err)
	}
	return s.Conversation(ctx, conv.ID)
}

// StartDirect returns the existing direct conversation between the two
// users, creating one when none exists.
func (s *ChatService) StartDirect(ctx context.Context, userID, otherID uuid.UUID) (domain.Conversation, error) {
	if userID == otherID || otherID == uuid.Nil {
		return domain.Conversation{}, buddysurf_errors.ErrInvalidInput
	}
	existing, err := s.conversations.GetDirect(ctx, userID, otherID)
	switch {
	case err == nil:
		return existing, nil
	case errors.Is(err, buddysurf_errors.ErrNotFound):
		return s.CreateConversation(ctx, userID, []uuid.UUID{otherID}, domain.ConversationDirect, nil, nil)
	default:
		return domain.Conversation{}, backendErr(err)
	}
}

func (s *ChatService) Conversation(ctx context.Context, conversationID uuid.UUID) (domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return domain.Conversation{}, backendErr(err)
	}
	return conv, nil
}

// EnsureParticipant gates conversation access for a user.
func (s *ChatService) EnsureParticipant(ctx context.Context, conversationID, userID uuid.UUID) error {
	ok, err := s.conversations.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return backendErr(err)
	}
	if !ok {
		return buddysurf_errors.ErrForbidden
	}
	return nil
}

// History returns the whole conversation ascending by creation time.
func (s *ChatService) History(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	msgs, err := s.messages.History(ctx, conversationID, repository.HistoryCursor{}, 0)
	if err != nil {
		return nil, backendErr(err)
	}
	return msgs, nil
}

// HistoryPage returns one page ending just before the cursor, for
// scroll-back through long conversations.
func (s *ChatService) HistoryPage(ctx context.Context, conversationID uuid.UUID, before repository.HistoryCursor, limit int) ([]domain.Message, error) {
	msgs, err := s.messages.History(ctx, conversationID, before, limit)
	if err != nil {
		return nil, backendErr(err)
	}
	return msgs, nil
}

// Send validates and stores the message, then bumps the conversation's
// inbox ordering and publishes the insert event. The message is durable
// once the insert commits; the two follow-ups are best effort and only
// logged on failure.
func (s *ChatService) Send(
	ctx context.Context,
	conversationID, senderID uuid.UUID,
	content string,
	kind domain.MessageKind,
	metadata json.RawMessage,
) (domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Message{}, buddysurf_errors.ErrInvalidContent
	}
	if kind == "" {
		kind = domain.MessageText
	}
	if !kind.Valid() {
		return domain.Message{}, buddysurf_errors.ErrInvalidInput
	}
	if err := s.EnsureParticipant(ctx, conversationID, senderID); err != nil {
		return domain.Message{}, err
	}

	now := time.Now()
	msg := domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Kind:           kind,
		Metadata:       metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.messages.Create(ctx, &msg); err != nil {
		return domain.Message{}, backendErr(err)
	}

	if err := s.conversations.TouchUpdatedAt(ctx, conversationID, now); err != nil {
		s.log.Warnf("conversation %s: updated_at bump failed after send: %v", conversationID, err)
	}
	if err := s.broker.Publish(ctx, realtime.ConversationChannel(conversationID), realtime.NewMessageInserted(conversationID, msg.ID)); err != nil {
		s.log.Warnf("conversation %s: publish of message %s failed: %v", conversationID, msg.ID, err)
	}
	return msg, nil
}

// MarkRead advances the participant's read marker; redundant and
// out-of-order calls settle on the latest timestamp.
func (s *ChatService) MarkRead(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error {
	if err := s.conversations.MarkRead(ctx, conversationID, userID, at); err != nil {
		return backendErr(err)
	}
	return nil
}

// backendErr keeps domain errors intact and folds everything else into
// the transport failure bucket.
func backendErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, buddysurf_errors.ErrNotFound),
		errors.Is(err, buddysurf_errors.ErrAlreadyExists),
		errors.Is(err, buddysurf_errors.ErrForbidden),
		errors.Is(err, buddysurf_errors.ErrInvalidInput),
		errors.Is(err, buddysurf_errors.ErrInvalidContent),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", buddysurf_errors.ErrBackendUnavailable, err)
	}
}
