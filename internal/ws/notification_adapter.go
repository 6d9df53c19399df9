package ws

import (
	"context"

	"github.com/secondhand/marketplace-backend/internal/models"
)

// NotificationServiceAdapter адаптирует NotificationService для использования в Hub.
type NotificationServiceAdapter struct {
	service interface {
		CreateNotification(ctx context.Context, userID int64, event string, data any) (*models.Notification, error)
	}
}

// NewNotificationServiceAdapter создаёт новый адаптер.
func NewNotificationServiceAdapter(service interface {
	CreateNotification(ctx context.Context, userID int64, event string, data any) (*models.Notification, error)
}) *NotificationServiceAdapter {
	return &NotificationServiceAdapter{service: service}
}

// SaveNotification реализует интерфейс NotificationSaver.
func (a *NotificationServiceAdapter) SaveNotification(ctx context.Context, userID int64, event string, data any) error {
	_, err := a.service.CreateNotification(ctx, userID, event, data)
	return err
}
