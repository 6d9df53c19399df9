package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/secondhand/marketplace-backend/internal/dto"
	"github.com/secondhand/marketplace-backend/internal/http/handlers/common"
	"github.com/secondhand/marketplace-backend/internal/http/response"
	"github.com/secondhand/marketplace-backend/internal/models"
)

// NotificationUseCase операции над уведомлениями.
type NotificationUseCase interface {
	ListNotifications(ctx context.Context, userID int64, limit, offset int, unreadOnly bool) ([]models.Notification, int, error)
	MarkAsRead(ctx context.Context, id, userID int64) error
	MarkAllAsRead(ctx context.Context, userID int64) error
}

// NotificationHandler обслуживает сохранённые уведомления пользователя.
type NotificationHandler struct {
	notifications NotificationUseCase
}

// NewNotificationHandler создаёт хэндлер.
func NewNotificationHandler(notifications NotificationUseCase) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List обрабатывает GET /api/notifications?unread=true.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "")
		return
	}

	var page dto.PaginationQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, "Invalid pagination parameters")
		return
	}
	limit, offset := page.Normalize()
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))

	items, unread, err := h.notifications.ListNotifications(c.Request.Context(), userID, limit, offset, unreadOnly)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.NotificationsResponse{Notifications: items, Unread: unread})
}

// MarkAsRead обрабатывает PATCH /api/notifications/:id/read.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "")
		return
	}

	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "Invalid notification id")
		return
	}

	if err := h.notifications.MarkAsRead(c.Request.Context(), id, userID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "Notification marked as read", nil)
}

// MarkAllAsRead обрабатывает POST /api/notifications/read-all.
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "")
		return
	}

	if err := h.notifications.MarkAllAsRead(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "All notifications marked as read", nil)
}
