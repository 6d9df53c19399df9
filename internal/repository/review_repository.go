package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/repository/common"
)

var (
	ErrReviewNotFound = errors.New("review not found")
	// ErrAlreadyReviewed по транзакции уже есть отзыв.
	ErrAlreadyReviewed = errors.New("transaction already reviewed")
)

type ReviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create создаёт отзыв. Единственность отзыва на транзакцию гарантирует UNIQUE(transaction_id).
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (transaction_id, rating, comment)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query, review.TransactionID, review.Rating, review.Comment).
		Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		if common.IsUniqueViolation(err, "") {
			return ErrAlreadyReviewed
		}
		return fmt.Errorf("review repository: create %w", err)
	}
	return nil
}

// ExistsForTransaction проверяет, оставлен ли отзыв по транзакции.
func (r *ReviewRepository) ExistsForTransaction(ctx context.Context, transactionID int64) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM reviews WHERE transaction_id = $1)`, transactionID); err != nil {
		return false, fmt.Errorf("review repository: exists %w", err)
	}
	return exists, nil
}

// ListByProduct возвращает отзывы по объявлению.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID int64) ([]models.ReviewView, error) {
	reviews := []models.ReviewView{}
	err := r.db.SelectContext(ctx, &reviews, `
		SELECT rv.*, t.product_id, t.buyer_id AS reviewer_id, u.username AS reviewer_username
		FROM reviews rv
		JOIN transactions t ON t.id = rv.transaction_id
		JOIN users u ON u.id = t.buyer_id
		WHERE t.product_id = $1
		ORDER BY rv.created_at DESC, rv.id DESC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("review repository: list by product %w", err)
	}
	return reviews, nil
}

// GetSellerSummary возвращает средний рейтинг продавца по всем его продажам.
func (r *ReviewRepository) GetSellerSummary(ctx context.Context, sellerID int64) (*models.SellerSummary, error) {
	var summary models.SellerSummary
	err := r.db.GetContext(ctx, &summary, `
		SELECT u.id, u.username,
			COALESCE(AVG(rv.rating), 0)::float8 AS average_rating,
			COUNT(rv.id) AS review_count
		FROM users u
		LEFT JOIN products p ON p.seller_id = u.id
		LEFT JOIN transactions t ON t.product_id = p.id
		LEFT JOIN reviews rv ON rv.transaction_id = t.id
		WHERE u.id = $1
		GROUP BY u.id, u.username
	`, sellerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("review repository: seller summary %w", err)
	}
	return &summary, nil
}
