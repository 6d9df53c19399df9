package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/pkg/apperror"
	"github.com/secondhand/marketplace-backend/internal/repository"
)

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *mockNotificationRepo) List(ctx context.Context, userID int64, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit, offset, unreadOnly)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *mockNotificationRepo) MarkAsRead(ctx context.Context, id, userID int64) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *mockNotificationRepo) MarkAllAsRead(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func TestNotificationService_CreateNotificationPayload(t *testing.T) {
	repo := new(mockNotificationRepo)
	svc := NewNotificationService(repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*models.Notification")).Return(nil)

	n, err := svc.CreateNotification(ctx, testSellerID, models.EventOfferReceived, map[string]any{"offer_id": 100})
	require.NoError(t, err)
	assert.Equal(t, testSellerID, n.UserID)

	var payload struct {
		Event string         `json:"event"`
		Data  map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(n.Payload, &payload))
	assert.Equal(t, models.EventOfferReceived, payload.Event)
	assert.Equal(t, 100, payload.Data["offer_id"])
}

func TestNotificationService_ListNotifications(t *testing.T) {
	repo := new(mockNotificationRepo)
	svc := NewNotificationService(repo)
	ctx := context.Background()

	repo.On("List", ctx, testBuyerID, 20, 0, true).Return([]models.Notification{{ID: 1}}, nil)
	repo.On("CountUnread", ctx, testBuyerID).Return(3, nil)

	items, unread, err := svc.ListNotifications(ctx, testBuyerID, 0, -1, true)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 3, unread)
}

func TestNotificationService_MarkAsRead(t *testing.T) {
	repo := new(mockNotificationRepo)
	svc := NewNotificationService(repo)
	ctx := context.Background()

	repo.On("MarkAsRead", ctx, int64(1), testBuyerID).Return(nil)
	repo.On("MarkAsRead", ctx, int64(2), testBuyerID).Return(repository.ErrNotificationNotFound)

	require.NoError(t, svc.MarkAsRead(ctx, 1, testBuyerID))

	err := svc.MarkAsRead(ctx, 2, testBuyerID)
	assert.True(t, apperror.IsNotFound(err))
}
