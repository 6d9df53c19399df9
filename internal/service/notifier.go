package service

import (
	"github.com/secondhand/marketplace-backend/internal/logger"
)

// Notifier доставляет события пользователям (WebSocket hub).
type Notifier interface {
	BroadcastToUser(userID int64, event string, data any) error
}

type noopNotifier struct{}

func (noopNotifier) BroadcastToUser(int64, string, any) error { return nil }

// notify отправляет событие. Ошибка доставки не влияет на результат операции.
func notify(n Notifier, userID int64, event string, data any) {
	if err := n.BroadcastToUser(userID, event, data); err != nil {
		logger.L().WithError(err).WithFields(map[string]interface{}{
			"user_id": userID,
			"event":   event,
		}).Warn("не удалось отправить уведомление")
	}
}

func orNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
