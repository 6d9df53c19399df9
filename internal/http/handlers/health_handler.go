package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/secondhand/marketplace-backend/internal/dto"
	"github.com/secondhand/marketplace-backend/internal/http/response"
)

// Pinger проверяет доступность базы данных.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler предоставляет endpoint для проверки здоровья сервиса.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler создаёт новый health handler.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health обрабатывает GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, response.Response{
			Success: false,
			Message: "Database is unavailable",
			Data:    dto.HealthResponse{Status: "unhealthy", Database: "unhealthy"},
		})
		return
	}

	response.Success(c, dto.HealthResponse{Status: "healthy", Database: "healthy"})
}
