package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/secondhand/marketplace-backend/internal/dto"
	"github.com/secondhand/marketplace-backend/internal/http/middleware"
	"github.com/secondhand/marketplace-backend/internal/http/response"
	"github.com/secondhand/marketplace-backend/internal/service"
	"github.com/secondhand/marketplace-backend/internal/validation"
)

// AuthUseCase операции аутентификации, нужные хэндлеру.
type AuthUseCase interface {
	Signup(ctx context.Context, in service.SignupInput) (*service.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput) (*service.AuthResult, error)
	Logout(ctx context.Context, token string) error
}

// AuthHandler предоставляет HTTP слой для регистрации, входа и выхода.
type AuthHandler struct {
	auth         AuthUseCase
	cookieSecure bool
}

// NewAuthHandler создаёт хэндлер.
func NewAuthHandler(auth AuthUseCase, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, cookieSecure: cookieSecure}
}

// Signup обрабатывает POST /api/auth/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, validation.DescribeBindingError(err))
		return
	}

	result, err := h.auth.Signup(c.Request.Context(), service.SignupInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, result)
	response.Created(c, "Account created", dto.SessionResponse{User: result.User.ToSession()})
}

// Login обрабатывает POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, validation.DescribeBindingError(err))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, result)
	response.SuccessMessage(c, "Logged in", dto.SessionResponse{User: result.User.ToSession()})
}

// Logout обрабатывает POST /api/auth/logout. Без сессии просто очищает cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := middleware.SessionToken(c); token != "" {
		if err := h.auth.Logout(c.Request.Context(), token); err != nil {
			response.Error(c, err)
			return
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", h.cookieSecure, true)
	response.SuccessMessage(c, "Logged out", nil)
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, result *service.AuthResult) {
	maxAge := 0
	if result.Session != nil {
		maxAge = int(time.Until(result.Session.ExpiresAt).Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, result.Token, maxAge, "/", "", h.cookieSecure, true)
}
