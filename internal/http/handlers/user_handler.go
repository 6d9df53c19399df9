package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/secondhand/marketplace-backend/internal/dto"
	"github.com/secondhand/marketplace-backend/internal/http/handlers/common"
	"github.com/secondhand/marketplace-backend/internal/http/response"
	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/service"
	"github.com/secondhand/marketplace-backend/internal/validation"
)

// UserUseCase операции над текущим пользователем.
type UserUseCase interface {
	GetSession(ctx context.Context, userID int64) (*models.SessionUser, error)
	UpdateSettings(ctx context.Context, userID int64, in service.UpdateSettingsInput) (*models.SessionUser, error)
	UploadAvatar(ctx context.Context, userID int64, file service.FileUpload) (*models.SessionUser, error)
}

// UserHandler обслуживает сессию и профиль текущего пользователя.
type UserHandler struct {
	users UserUseCase
}

// NewUserHandler создаёт хэндлер.
func NewUserHandler(users UserUseCase) *UserHandler {
	return &UserHandler{users: users}
}

// Session обрабатывает GET /api/session.
func (h *UserHandler) Session(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "")
		return
	}

	user, err := h.users.GetSession(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.SessionResponse{User: user})
}

// UpdateMe обрабатывает PATCH /api/users/me.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "")
		return
	}

	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, validation.DescribeBindingError(err))
		return
	}

	user, err := h.users.UpdateSettings(c.Request.Context(), userID, service.UpdateSettingsInput{
		Settings:        req.Settings(),
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "Settings updated", dto.SessionResponse{User: user})
}

// UploadAvatar обрабатывает POST /api/users/me/avatar, файл в поле "image".
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "")
		return
	}

	files, err := common.FileUploads(c, "image")
	if err != nil {
		response.BadRequest(c, "Invalid multipart form")
		return
	}
	if len(files) != 1 {
		response.BadRequest(c, "Exactly one image is required")
		return
	}

	user, err := h.users.UploadAvatar(c.Request.Context(), userID, files[0])
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "Profile image updated", dto.SessionResponse{User: user})
}
