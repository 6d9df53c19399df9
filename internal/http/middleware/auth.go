package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/secondhand/marketplace-backend/internal/http/response"
	"github.com/secondhand/marketplace-backend/internal/pkg/apperror"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "userID"
	ContextTokenKey  = "sessionToken"
)

// SessionCookieName имя cookie с токеном сессии.
const SessionCookieName = "session"

// Authenticator проверяет токен сессии и возвращает id пользователя.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (int64, error)
}

// AuthMiddleware пропускает только запросы с действующей сессией.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authenticate(c, auth); err != nil {
			if apperror.IsUnauthorized(err) {
				response.Unauthorized(c, "")
				return
			}
			response.Error(c, err)
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware определяет пользователя, если сессия есть, но не требует её.
func OptionalAuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = authenticate(c, auth)
		c.Next()
	}
}

// SessionToken извлекает токен из cookie, затем из заголовка Authorization.
func SessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}

	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// authenticate кладёт пользователя в контекст. Ошибка без кода или с кодом
// UNAUTHORIZED означает отсутствие сессии, остальные коды отдаются клиенту как есть.
func authenticate(c *gin.Context, auth Authenticator) error {
	token := SessionToken(c)
	if token == "" {
		return apperror.ErrUnauthorized
	}

	userID, err := auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		return err
	}
	if userID <= 0 {
		return apperror.ErrUnauthorized
	}

	c.Set(ContextUserIDKey, userID)
	c.Set(ContextTokenKey, token)
	return nil
}
