package repository

import (
	"context"
	"errors"
	"time"

	"buddysurf-chat/internal/domain"
	buddysurf_errors "buddysurf-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &PostgresConversationRepository{db: db}
}

func (r *PostgresConversationRepository) Create(ctx context.Context, c *domain.Conversation, participantIDs []uuid.UUID) error {
	now := time.Now()
	participants := make([]domain.Participant, 0, len(participantIDs))
	for _, userID := range participantIDs {
		participants = append(participants, domain.Participant{
			ConversationID: c.ID,
			UserID:         userID,
			JoinedAt:       now,
			LastReadAt:     time.Unix(0, 0).UTC(),
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return buddysurf_errors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Conversation, error) {
	var c domain.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Conversation{}, buddysurf_errors.ErrNotFound
		}
		return domain.Conversation{}, err
	}
	return c, nil
}

func (r *PostgresConversationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	var conversations []domain.Conversation

	subQuery := r.db.Model(&domain.Participant{}).
		Select("conversation_id").
		Where("user_id = ?", userID)

	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id IN (?)", subQuery).
		Order("updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}
	if len(conversations) == 0 {
		return []domain.ConversationSummary{}, nil
	}

	ids := make([]uuid.UUID, len(conversations))
	for i, c := range conversations {
		ids[i] = c.ID
	}

	// Latest message per conversation, batched into one round trip.
	var lasts []domain.Message
	err = r.db.WithContext(ctx).Raw(`
		SELECT * FROM (
			SELECT *, ROW_NUMBER() OVER (PARTITION BY conversation_id ORDER BY created_at DESC, id DESC) AS rn
			FROM messages
			WHERE conversation_id IN ?
		) ranked WHERE rn = 1`, ids).Scan(&lasts).Error
	if err != nil {
		return nil, err
	}
	lastByConv := make(map[uuid.UUID]domain.Message, len(lasts))
	for _, m := range lasts {
		lastByConv[m.ConversationID] = m
	}

	type unreadRow struct {
		ConversationID uuid.UUID
		Unread         int64
	}
	var unreads []unreadRow
	err = r.db.WithContext(ctx).Raw(`
		SELECT m.conversation_id AS conversation_id, COUNT(*) AS unread
		FROM messages m
		JOIN conversation_participants p
			ON p.conversation_id = m.conversation_id AND p.user_id = ?
		WHERE m.conversation_id IN ? AND m.sender_id <> ? AND m.created_at > p.last_read_at
		GROUP BY m.conversation_id`, userID, ids, userID).Scan(&unreads).Error
	if err != nil {
		return nil, err
	}
	unreadByConv := make(map[uuid.UUID]int64, len(unreads))
	for _, row := range unreads {
		unreadByConv[row.ConversationID] = row.Unread
	}

	summaries := make([]domain.ConversationSummary, 0, len(conversations))
	for _, c := range conversations {
		summary := domain.ConversationSummary{Conversation: c}
		if last, ok := lastByConv[c.ID]; ok {
			summary.LastMessage = &last.Content
			summary.LastMessageAt = &last.CreatedAt
			summary.LastSenderID = &last.SenderID
		}
		summary.UnreadCount = unreadByConv[c.ID]
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (r *PostgresConversationRepository) GetDirect(ctx context.Context, userID1, userID2 uuid.UUID) (domain.Conversation, error) {
	var c domain.Conversation

	// Find the direct conversation where both users are participants
	subQuery := r.db.Model(&domain.Participant{}).
		Select("conversation_id").
		Where("user_id IN (?, ?)", userID1, userID2).
		Group("conversation_id").
		Having("COUNT(DISTINCT user_id) = 2")

	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id IN (?) AND type = ?", subQuery, domain.ConversationDirect).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Conversation{}, buddysurf_errors.ErrNotFound
		}
		return domain.Conversation{}, err
	}
	return c, nil
}

func (r *PostgresConversationRepository) GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]domain.Participant, error) {
	var participants []domain.Participant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *PostgresConversationRepository) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresConversationRepository) MarkRead(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("conversation_id = ? AND user_id = ? AND last_read_at < ?", conversationID, userID, at).
		Update("last_read_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Either the membership is missing or a concurrent advance
		// already moved the marker further forward.
		exists, err := r.IsParticipant(ctx, conversationID, userID)
		if err != nil {
			return err
		}
		if !exists {
			return buddysurf_errors.ErrNotFound
		}
	}
	return nil
}

func (r *PostgresConversationRepository) TouchUpdatedAt(ctx context.Context, conversationID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return buddysurf_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) DeleteOrphaned(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ? AND NOT EXISTS (SELECT 1 FROM conversation_participants p WHERE p.conversation_id = conversations.id)", cutoff).
		Delete(&domain.Conversation{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
