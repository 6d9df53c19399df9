package models

import "time"

// User описывает пользователя маркетплейса.
type User struct {
	ID              int64     `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"`
	Username        string    `db:"username" json:"username"`
	PasswordHash    string    `db:"password_hash" json:"-"`
	FullName        *string   `db:"full_name" json:"full_name,omitempty"`
	Phone           *string   `db:"phone" json:"phone,omitempty"`
	ProfileImageKey *string   `db:"profile_image_key" json:"-"`
	ProfileImageURL *string   `db:"profile_image_url" json:"profile_image_url,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// SessionUser проекция текущего пользователя для GET /api/session.
type SessionUser struct {
	ID              int64   `json:"id"`
	Email           string  `json:"email"`
	Username        string  `json:"username"`
	FullName        *string `json:"full_name,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	ProfileImageURL *string `json:"profile_image_url,omitempty"`
}

// ToSession возвращает публичную проекцию пользователя.
func (u *User) ToSession() *SessionUser {
	return &SessionUser{
		ID:              u.ID,
		Email:           u.Email,
		Username:        u.Username,
		FullName:        u.FullName,
		Phone:           u.Phone,
		ProfileImageURL: u.ProfileImageURL,
	}
}

// UserSettings содержит изменяемые поля профиля. nil означает "не менять".
type UserSettings struct {
	Email    *string
	Username *string
	FullName *string
	Phone    *string
	// PasswordHash записывается тем же UPDATE, что и остальные поля.
	PasswordHash *string
}

// IsEmpty сообщает, что ни одно поле не задано.
func (s UserSettings) IsEmpty() bool {
	return s.Email == nil && s.Username == nil && s.FullName == nil && s.Phone == nil && s.PasswordHash == nil
}
