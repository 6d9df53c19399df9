package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secondhand/marketplace-backend/internal/logger"
	"github.com/secondhand/marketplace-backend/internal/pkg/apperror"
)

// Response единый конверт ответа API.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type PaginatedResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// SuccessMessage успешный ответ с сообщением.
func SuccessMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Paginated(c *gin.Context, data interface{}, total, limit, offset int) {
	c.JSON(http.StatusOK, PaginatedResponse{
		Success: true,
		Data:    data,
		Pagination: Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+limit < total,
		},
	})
}

// Error отправляет AppError как есть, остальные ошибки логирует и скрывает за 500.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logError(c, err)
		}
		Fail(c, appErr.HTTPStatus, appErr.Message)
		return
	}

	logError(c, err)
	Fail(c, http.StatusInternalServerError, apperror.ErrInternal.Message)
}

// Fail отправляет {success:false, message}.
func Fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, message)
}

func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = apperror.ErrUnauthorized.Message
	}
	Fail(c, http.StatusUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	Fail(c, http.StatusForbidden, message)
}

func logError(c *gin.Context, err error) {
	entry := logger.L().WithError(err).WithField("path", c.Request.URL.Path)
	if requestID, ok := c.Get("requestID"); ok {
		entry = entry.WithField("request_id", requestID)
	}
	entry.Error("ошибка обработки запроса")
}
