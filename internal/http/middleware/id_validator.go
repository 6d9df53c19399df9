package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/secondhand/marketplace-backend/internal/http/response"
)

// ValidateIDParams проверяет, что перечисленные параметры пути являются положительными числами.
func ValidateIDParams(params ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range params {
			raw := c.Param(name)
			if raw == "" {
				continue
			}
			if id, err := strconv.ParseInt(raw, 10, 64); err != nil || id <= 0 {
				response.BadRequest(c, "Invalid "+name)
				return
			}
		}
		c.Next()
	}
}
