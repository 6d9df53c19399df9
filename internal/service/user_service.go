package service

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/pkg/apperror"
	"github.com/secondhand/marketplace-backend/internal/storage"
	"github.com/secondhand/marketplace-backend/internal/validation"
)

// UserRepository операции над профилем пользователя.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	UpdateSettings(ctx context.Context, id int64, settings models.UserSettings) (*models.User, error)
	UpdateProfileImage(ctx context.Context, id int64, key, url string) (*string, error)
}

// UpdateSettingsInput изменения профиля и, опционально, пароля.
type UpdateSettingsInput struct {
	Settings        models.UserSettings
	CurrentPassword *string
	NewPassword     *string
}

// UserService профиль текущего пользователя.
type UserService struct {
	repo     UserRepository
	uploader *ImageUploader
	cleaner  *BlobCleaner
}

// NewUserService создаёт сервис пользователей.
func NewUserService(repo UserRepository, uploader *ImageUploader, cleaner *BlobCleaner) *UserService {
	return &UserService{repo: repo, uploader: uploader, cleaner: cleaner}
}

// GetSession возвращает проекцию текущего пользователя.
func (s *UserService) GetSession(ctx context.Context, userID int64) (*models.SessionUser, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, mapUserError(err)
	}
	return user.ToSession(), nil
}

// UpdateSettings применяет изменения профиля. Смена пароля требует текущий пароль.
func (s *UserService) UpdateSettings(ctx context.Context, userID int64, in UpdateSettingsInput) (*models.SessionUser, error) {
	settings, err := normalizeSettings(in.Settings)
	if err != nil {
		return nil, err
	}

	changePassword := in.NewPassword != nil && *in.NewPassword != ""
	if settings.IsEmpty() && !changePassword {
		return nil, apperror.New(apperror.ErrCodeValidation, "Nothing to update")
	}

	if changePassword {
		hash, err := s.hashNewPassword(ctx, userID, in.CurrentPassword, *in.NewPassword)
		if err != nil {
			return nil, err
		}
		settings.PasswordHash = &hash
	}

	user, err := s.repo.UpdateSettings(ctx, userID, settings)
	if err != nil {
		return nil, mapUserError(err)
	}
	return user.ToSession(), nil
}

// UploadAvatar заменяет фото профиля. Старый файл удаляется после записи в БД.
func (s *UserService) UploadAvatar(ctx context.Context, userID int64, file FileUpload) (*models.SessionUser, error) {
	uploaded, err := s.uploader.UploadAll(ctx, storage.AvatarKeyPrefix(userID), []FileUpload{file})
	if err != nil {
		return nil, err
	}
	img := uploaded[0]

	previous, err := s.repo.UpdateProfileImage(ctx, userID, img.StorageKey, img.URL)
	if err != nil {
		s.uploader.Discard(ctx, uploaded)
		return nil, mapUserError(err)
	}
	if previous != nil && *previous != img.StorageKey {
		s.cleaner.DeleteOrQueue(ctx, *previous)
	}

	return s.GetSession(ctx, userID)
}

// hashNewPassword проверяет текущий пароль и возвращает хеш нового. Сам хеш
// сохраняется вместе с остальными полями в UpdateSettings.
func (s *UserService) hashNewPassword(ctx context.Context, userID int64, current *string, next string) (string, error) {
	if current == nil || *current == "" {
		return "", apperror.New(apperror.ErrCodeValidation, "Current password is required")
	}
	if err := validation.ValidatePassword(next); err != nil {
		return "", apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", mapUserError(err)
	}
	if ok, _ := verifyPassword(user.PasswordHash, *current); !ok {
		return "", apperror.New(apperror.ErrCodeForbidden, "Current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// normalizeSettings проверяет и нормализует переданные поля.
func normalizeSettings(in models.UserSettings) (models.UserSettings, error) {
	out := models.UserSettings{}

	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if err := validation.ValidateEmail(email); err != nil {
			return out, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
		out.Email = &email
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return out, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
		out.Username = &username
	}
	if in.FullName != nil {
		if err := validation.ValidateFullName(in.FullName); err != nil {
			return out, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
		v := strings.TrimSpace(*in.FullName)
		out.FullName = &v
	}
	if in.Phone != nil {
		if err := validation.ValidatePhone(in.Phone); err != nil {
			return out, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
		v := strings.TrimSpace(*in.Phone)
		out.Phone = &v
	}

	return out, nil
}
