package notifications

import (
	"context"
	"testing"

	"buddysurf-chat/internal/domain"
	"buddysurf-chat/internal/mocks"
	buddysurf_errors "buddysurf-chat/pkg/errors"
	"buddysurf-chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestListCapsPageSize(t *testing.T) {
	userID := uuid.New()
	repo := new(mocks.NotificationRepositoryMock)
	repo.On("ListForUser", mock.Anything, userID, PageSize).Return([]domain.Notification{}, nil)
	svc := NewService(repo, logger.NewNop())

	// An oversized request is clamped, and a zero request defaults.
	_, err := svc.List(context.Background(), userID, 500)
	require.NoError(t, err)
	_, err = svc.List(context.Background(), userID, 0)
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "ListForUser", 2)
}

func TestListHonorsSmallerLimit(t *testing.T) {
	userID := uuid.New()
	repo := new(mocks.NotificationRepositoryMock)
	repo.On("ListForUser", mock.Anything, userID, 10).Return([]domain.Notification{}, nil)
	svc := NewService(repo, logger.NewNop())

	_, err := svc.List(context.Background(), userID, 10)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestMarkReadScopedToOwner(t *testing.T) {
	userID, notifID := uuid.New(), uuid.New()
	repo := new(mocks.NotificationRepositoryMock)
	repo.On("MarkRead", mock.Anything, notifID, userID).Return(nil)
	svc := NewService(repo, logger.NewNop())

	require.NoError(t, svc.MarkRead(context.Background(), userID, notifID))
	repo.AssertExpectations(t)
}

func TestRegisterPushTokenValidatesInput(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	svc := NewService(repo, logger.NewNop())

	err := svc.RegisterPushToken(context.Background(), uuid.New(), "", "tok", "ios")
	assert.ErrorIs(t, err, buddysurf_errors.ErrInvalidInput)

	err = svc.RegisterPushToken(context.Background(), uuid.New(), "device-1", "", "ios")
	assert.ErrorIs(t, err, buddysurf_errors.ErrInvalidInput)

	repo.AssertNotCalled(t, "UpsertPushToken", mock.Anything, mock.Anything)
}

func TestRegisterPushTokenUpserts(t *testing.T) {
	userID := uuid.New()
	repo := new(mocks.NotificationRepositoryMock)
	repo.On("UpsertPushToken", mock.Anything, mock.MatchedBy(func(pt *domain.PushToken) bool {
		return pt.UserID == userID && pt.DeviceID == "device-1" && pt.Token == "tok" && pt.Platform == "android"
	})).Return(nil)
	svc := NewService(repo, logger.NewNop())

	require.NoError(t, svc.RegisterPushToken(context.Background(), userID, "device-1", "tok", "android"))
	repo.AssertExpectations(t)
}
