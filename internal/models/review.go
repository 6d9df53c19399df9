package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Review отзыв покупателя по завершённой транзакции.
type Review struct {
	ID            int64     `db:"id" json:"id"`
	TransactionID int64     `db:"transaction_id" json:"transaction_id"`
	Rating        int       `db:"rating" json:"rating"`
	Comment       *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ReviewView отзыв с именем автора.
type ReviewView struct {
	Review
	ProductID        int64  `db:"product_id" json:"product_id"`
	ReviewerID       int64  `db:"reviewer_id" json:"reviewer_id"`
	ReviewerUsername string `db:"reviewer_username" json:"reviewer_username"`
}

// Notification сохранённое уведомление пользователя.
type Notification struct {
	ID        int64          `db:"id" json:"id"`
	UserID    int64          `db:"user_id" json:"user_id"`
	Payload   types.JSONText `db:"payload" json:"payload"`
	IsRead    bool           `db:"is_read" json:"is_read"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// BlobDeletion файл, который не удалось удалить из хранилища.
type BlobDeletion struct {
	ID            int64     `db:"id" json:"id"`
	StorageKey    string    `db:"storage_key" json:"storage_key"`
	Attempts      int       `db:"attempts" json:"attempts"`
	LastError     *string   `db:"last_error" json:"last_error,omitempty"`
	NextAttemptAt time.Time `db:"next_attempt_at" json:"next_attempt_at"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
