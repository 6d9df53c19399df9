package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/secondhand/marketplace-backend/internal/models"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrTransactionAlreadyDone транзакция уже завершена.
	ErrTransactionAlreadyDone = errors.New("transaction already completed")
)

// TransactionRepository отвечает за таблицу transactions и представления покупок.
type TransactionRepository struct {
	db *sqlx.DB
}

// NewTransactionRepository создаёт репозиторий транзакций.
func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// GetWithParties возвращает транзакцию вместе с продавцом.
func (r *TransactionRepository) GetWithParties(ctx context.Context, id int64) (*models.TransactionParties, error) {
	var tp models.TransactionParties
	err := r.db.GetContext(ctx, &tp, `
		SELECT t.*, p.seller_id
		FROM transactions t
		JOIN products p ON p.id = t.product_id
		WHERE t.id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("transaction repository: get %w", err)
	}
	return &tp, nil
}

// MarkDone завершает транзакцию. Повторное завершение возвращает ErrTransactionAlreadyDone.
func (r *TransactionRepository) MarkDone(ctx context.Context, id int64) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.GetContext(ctx, &t, `
		UPDATE transactions SET transac_done = TRUE, completed_at = NOW()
		WHERE id = $1 AND transac_done = FALSE
		RETURNING *
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionAlreadyDone
		}
		return nil, fmt.Errorf("transaction repository: mark done %w", err)
	}
	return &t, nil
}

// LatestCompletedForBuyer возвращает самую свежую завершённую транзакцию покупателя по объявлению.
func (r *TransactionRepository) LatestCompletedForBuyer(ctx context.Context, productID, buyerID int64) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.GetContext(ctx, &t, `
		SELECT * FROM transactions
		WHERE product_id = $1 AND buyer_id = $2 AND transac_done = TRUE
		ORDER BY completed_at DESC NULLS LAST, id DESC
		LIMIT 1
	`, productID, buyerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("transaction repository: latest completed %w", err)
	}
	return &t, nil
}

// ListPurchases возвращает покупки пользователя.
func (r *TransactionRepository) ListPurchases(ctx context.Context, buyerID int64, limit, offset int) ([]models.Purchase, error) {
	purchases := []models.Purchase{}
	err := r.db.SelectContext(ctx, &purchases, `
		SELECT t.id AS transaction_id, p.id AS product_id, p.name AS product_name, o.price,
			p.seller_id, u.username AS seller_username, t.transac_done, t.completed_at, t.created_at,
			EXISTS(SELECT 1 FROM reviews rv WHERE rv.transaction_id = t.id) AS reviewed
		FROM transactions t
		JOIN products p ON p.id = t.product_id
		JOIN offers o ON o.id = t.offer_id
		JOIN users u ON u.id = p.seller_id
		WHERE t.buyer_id = $1
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2 OFFSET $3
	`, buyerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("transaction repository: list purchases %w", err)
	}
	return purchases, nil
}

// ListSentOffers возвращает предложения, отправленные пользователем.
func (r *TransactionRepository) ListSentOffers(ctx context.Context, buyerID int64, limit, offset int) ([]models.SentOffer, error) {
	offers := []models.SentOffer{}
	err := r.db.SelectContext(ctx, &offers, `
		SELECT o.id AS offer_id, p.id AS product_id, p.name AS product_name, p.price AS list_price,
			o.price AS offer_price, o.status, u.username AS seller_username, o.created_at
		FROM offers o
		JOIN products p ON p.id = o.product_id
		JOIN users u ON u.id = p.seller_id
		WHERE o.buyer_id = $1
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $2 OFFSET $3
	`, buyerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("transaction repository: list sent offers %w", err)
	}
	return offers, nil
}

// ListReceivedOffers возвращает предложения на объявления продавца.
func (r *TransactionRepository) ListReceivedOffers(ctx context.Context, sellerID int64, limit, offset int) ([]models.ReceivedOffer, error) {
	offers := []models.ReceivedOffer{}
	err := r.db.SelectContext(ctx, &offers, `
		SELECT o.id AS offer_id, p.id AS product_id, p.name AS product_name, p.price AS list_price,
			o.price AS offer_price, o.status, o.buyer_id, u.username AS buyer_username, o.created_at
		FROM offers o
		JOIN products p ON p.id = o.product_id
		JOIN users u ON u.id = o.buyer_id
		WHERE p.seller_id = $1
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $2 OFFSET $3
	`, sellerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("transaction repository: list received offers %w", err)
	}
	return offers, nil
}
