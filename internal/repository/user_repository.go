package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/repository/common"
)

var (
	// ErrUserNotFound возвращается, когда запись пользователя не найдена.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken email уже зарегистрирован.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUsernameTaken имя пользователя занято.
	ErrUsernameTaken = errors.New("username already taken")
)

const userColumns = `id, email, username, password_hash, full_name, phone, profile_image_key, profile_image_url, created_at, updated_at`

// UserRepository отвечает за работу с таблицей users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт нового пользователя.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, username, password_hash, full_name, phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(ctx, query,
		user.Email, user.Username, user.PasswordHash, user.FullName, user.Phone,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return mapUserConstraint(fmt.Errorf("user repository: create %w", err))
	}

	return nil
}

// GetByEmail возвращает пользователя по email (без учёта регистра).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by email %w", err)
	}

	return &user, nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := common.GetByID[models.User](ctx, r.db, "users", id, ErrUserNotFound)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("user repository: %w", err)
	}
	return user, err
}

// UpdatePasswordHash сохраняет новый хеш пароля.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("user repository: update password %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateSettings обновляет только переданные поля одним UPDATE, включая хеш
// пароля. Имена колонок берутся из фиксированного списка, значения всегда
// передаются параметрами.
func (r *UserRepository) UpdateSettings(ctx context.Context, id int64, settings models.UserSettings) (*models.User, error) {
	setClause, args := buildUserSettingsUpdate(settings)
	if setClause == "" {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s, updated_at = NOW() WHERE id = $%d RETURNING %s`, setClause, len(args), userColumns)

	var user models.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, mapUserConstraint(fmt.Errorf("user repository: update settings %w", err))
	}

	return &user, nil
}

// UpdateProfileImage сохраняет новое фото профиля и возвращает ключ предыдущего.
func (r *UserRepository) UpdateProfileImage(ctx context.Context, id int64, key, url string) (*string, error) {
	var previous *string
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &previous, `SELECT profile_image_key FROM users WHERE id = $1 FOR UPDATE`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("user repository: lock user %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET profile_image_key = $2, profile_image_url = $3, updated_at = NOW() WHERE id = $1
		`, id, key, url); err != nil {
			return fmt.Errorf("user repository: update profile image %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return previous, nil
}

// userSettingColumn связывает колонку с полем настроек.
type userSettingColumn struct {
	column string
	value  func(models.UserSettings) *string
}

var userSettingColumns = []userSettingColumn{
	{column: "email", value: func(s models.UserSettings) *string { return s.Email }},
	{column: "username", value: func(s models.UserSettings) *string { return s.Username }},
	{column: "full_name", value: func(s models.UserSettings) *string { return s.FullName }},
	{column: "phone", value: func(s models.UserSettings) *string { return s.Phone }},
	{column: "password_hash", value: func(s models.UserSettings) *string { return s.PasswordHash }},
}

// buildUserSettingsUpdate формирует "col = $n" только для заданных полей.
func buildUserSettingsUpdate(settings models.UserSettings) (string, []interface{}) {
	parts := make([]string, 0, len(userSettingColumns))
	args := make([]interface{}, 0, len(userSettingColumns)+1)

	for _, col := range userSettingColumns {
		v := col.value(settings)
		if v == nil {
			continue
		}
		args = append(args, *v)
		parts = append(parts, fmt.Sprintf("%s = $%d", col.column, len(args)))
	}

	return strings.Join(parts, ", "), args
}

func mapUserConstraint(err error) error {
	switch {
	case common.IsUniqueViolation(err, "users_email_key"):
		return ErrEmailTaken
	case common.IsUniqueViolation(err, "users_username_key"):
		return ErrUsernameTaken
	default:
		return err
	}
}
