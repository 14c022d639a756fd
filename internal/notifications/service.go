package notifications

import (
	"context"
	"time"

	"buddysurf-chat/internal/domain"
	"buddysurf-chat/internal/repository"
	buddysurf_errors "buddysurf-chat/pkg/errors"
	"buddysurf-chat/pkg/logger"

	"github.com/google/uuid"
)

// PageSize caps every notification fetch; older entries are simply not
// shown.
const PageSize = 50

type Service struct {
	repo repository.NotificationRepository
	log  *logger.Logger
}

func NewService(repo repository.NotificationRepository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// List returns the user's most recent notifications, newest first,
// capped at PageSize regardless of the requested limit.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > PageSize {
		limit = PageSize
	}
	return s.repo.ListForUser(ctx, userID, limit)
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.repo.MarkRead(ctx, notificationID, userID)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}

// RegisterPushToken upserts the device registration the push service
// delivers to. One row per (user, device); re-registration refreshes the
// token in place.
func (s *Service) RegisterPushToken(ctx context.Context, userID uuid.UUID, deviceID, token, platform string) error {
	if token == "" || deviceID == "" {
		return buddysurf_errors.ErrInvalidInput
	}
	now := time.Now()
	return s.repo.UpsertPushToken(ctx, &domain.PushToken{
		ID:        uuid.New(),
		UserID:    userID,
		DeviceID:  deviceID,
		Token:     token,
		Platform:  platform,
		CreatedAt: now,
		UpdatedAt: now,
	})
}
