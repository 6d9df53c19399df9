package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/secondhand/marketplace-backend/internal/http/response"
	"github.com/secondhand/marketplace-backend/internal/logger"
	"github.com/secondhand/marketplace-backend/internal/pkg/apperror"
)

// ErrorHandler отдаёт ошибки, добавленные через c.Error, если ответ ещё не отправлен.
// AppError уходит клиенту как есть, остальные маскируются под 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		response.Error(c, c.Errors.Last().Err)
	}
}

// Recovery перехватывает панику обработчика и отвечает 500 в общем конверте.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		entry := logger.L().WithFields(logrus.Fields{
			"panic":  recovered,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
		if requestID, ok := c.Get(ContextRequestIDKey); ok {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error("паника в обработчике запроса")

		response.Fail(c, http.StatusInternalServerError, apperror.ErrInternal.Message)
	})
}
