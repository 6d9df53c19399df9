package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/secondhand/marketplace-backend/internal/logger"
	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/pkg/apperror"
	"github.com/secondhand/marketplace-backend/internal/repository"
	"github.com/secondhand/marketplace-backend/internal/validation"
)

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// AuthService инкапсулирует бизнес-логику регистрации и аутентификации.
type AuthService struct {
	repo     AuthRepository
	tokens   *TokenManager
	sessions SessionStore
}

// SignupInput содержит данные пользователя при регистрации.
type SignupInput struct {
	Email    string
	Username string
	Password string
	FullName *string
	Phone    *string
}

// LoginInput содержит данные для входа.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult возвращает итог регистрации или авторизации.
type AuthResult struct {
	User    *models.User
	Token   string
	Session *SessionClaims
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(repo AuthRepository, tokens *TokenManager, sessions SessionStore) *AuthService {
	return &AuthService{
		repo:     repo,
		tokens:   tokens,
		sessions: sessions,
	}
}

// Signup создаёт пользователя и открывает сессию.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateFullName(in.FullName); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePhone(in.Phone); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(passHash),
		FullName:     trimmedOrNil(in.FullName),
		Phone:        trimmedOrNil(in.Phone),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, mapUserError(err)
	}

	return s.openSession(user)
}

// Login проверяет учётные данные и открывает сессию. Пароли, сохранённые
// открытым текстом старой версией, принимаются один раз и сразу перехешируются.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, apperror.ErrInvalidCredentials
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, err
	}

	ok, legacy := verifyPassword(user.PasswordHash, in.Password)
	if !ok {
		return nil, apperror.ErrInvalidCredentials
	}

	if legacy {
		s.upgradeLegacyPassword(ctx, user, in.Password)
	}

	return s.openSession(user)
}

// Logout отзывает сессию токена. Невалидный токен молча игнорируется.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}
	return s.sessions.Revoke(ctx, claims.SessionID, claims.ExpiresAt)
}

// Authenticate проверяет токен и возвращает идентификатор пользователя.
func (s *AuthService) Authenticate(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, apperror.ErrUnauthorized
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return 0, apperror.ErrUnauthorized
	}

	revoked, err := s.sessions.IsRevoked(ctx, claims.SessionID)
	if err != nil {
		logger.L().WithError(err).WithField("user_id", claims.UserID).Error("auth service: хранилище сессий недоступно")
		return 0, apperror.Wrap(err, apperror.ErrCodeUnavailable, apperror.ErrSessionUnavailable.Message)
	}
	if revoked {
		return 0, apperror.ErrUnauthorized
	}

	return claims.UserID, nil
}

func (s *AuthService) openSession(user *models.User) (*AuthResult, error) {
	token, claims, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, Session: claims}, nil
}

func (s *AuthService) upgradeLegacyPassword(ctx context.Context, user *models.User, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err == nil {
		err = s.repo.UpdatePasswordHash(ctx, user.ID, string(hash))
	}
	if err != nil {
		// Логируем ошибку, но не прерываем процесс логина
		logger.L().WithFields(map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		}).Warn("auth service: не удалось перехешировать пароль")
		return
	}
	user.PasswordHash = string(hash)
}

// verifyPassword сравнивает пароль с bcrypt-хешем или, для старых записей,
// с открытым текстом за постоянное время. legacy=true означает открытый текст.
func verifyPassword(stored, password string) (ok bool, legacy bool) {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil, false
	}
	if stored == "" {
		return false, false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1, true
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}

func mapUserError(err error) error {
	switch {
	case errors.Is(err, repository.ErrEmailTaken):
		return apperror.New(apperror.ErrCodeConflict, "Email is already registered")
	case errors.Is(err, repository.ErrUsernameTaken):
		return apperror.New(apperror.ErrCodeConflict, "Username is already taken")
	case errors.Is(err, repository.ErrUserNotFound):
		return apperror.New(apperror.ErrCodeNotFound, "User not found")
	default:
		return err
	}
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
