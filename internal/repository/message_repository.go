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

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *domain.Message) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return buddysurf_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Message, error) {
	var m domain.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Message{}, buddysurf_errors.ErrNotFound
		}
		return domain.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) History(ctx context.Context, conversationID uuid.UUID, before HistoryCursor, limit int) ([]domain.Message, error) {
	var messages []domain.Message

	q := r.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ?", conversationID)

	if before.IsZero() && limit <= 0 {
		err := q.Order("created_at ASC, id ASC").Find(&messages).Error
		if err != nil {
			return nil, err
		}
		return messages, nil
	}

	if !before.IsZero() {
		q = q.Where("(created_at, id) < (?, ?)", before.Before, before.BeforeID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	// Newest page first, then flipped so callers always see ascending order.
	err := q.Order("created_at DESC, id DESC").Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *PostgresMessageRepository) CountSince(ctx context.Context, conversationID uuid.UUID, since time.Time, excludeSender uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("conversation_id = ? AND created_at > ? AND sender_id != ?", conversationID, since, excludeSender).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
