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
	ErrOfferNotFound = errors.New("offer not found")
	// ErrOfferNotPending предложение уже принято или отклонено.
	ErrOfferNotPending = errors.New("offer is not pending")
)

const offerViewSelect = `
	SELECT o.*, u.username AS buyer_username
	FROM offers o
	JOIN users u ON u.id = o.buyer_id
`

// OfferRepository отвечает за таблицу offers и переходы статусов.
type OfferRepository struct {
	db *sqlx.DB
}

// NewOfferRepository создаёт репозиторий предложений.
func NewOfferRepository(db *sqlx.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

// Create вставляет Pending предложение, только если объявление всё ещё доступно.
// Строка объявления читается под FOR SHARE: если AcceptCascade держит её под
// FOR UPDATE, вставка ждёт фиксации и видит уже снятое с продажи объявление.
func (r *OfferRepository) Create(ctx context.Context, offer *models.Offer) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var isAvail bool
		if err := tx.GetContext(ctx, &isAvail, lockProductForOfferQuery, offer.ProductID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProductNotFound
			}
			return fmt.Errorf("offer repository: lock product %w", err)
		}
		if !isAvail {
			return ErrProductUnavailable
		}

		if err := tx.GetContext(ctx, offer, `
			INSERT INTO offers (product_id, buyer_id, price, status)
			VALUES ($1, $2, $3, 'Pending')
			RETURNING *
		`, offer.ProductID, offer.BuyerID, offer.Price); err != nil {
			return fmt.Errorf("offer repository: create %w", err)
		}
		return nil
	})
}

const lockProductForOfferQuery = `SELECT is_avail FROM products WHERE id = $1 FOR SHARE`

// GetByID возвращает предложение.
func (r *OfferRepository) GetByID(ctx context.Context, id int64) (*models.Offer, error) {
	offer, err := common.GetByID[models.Offer](ctx, r.db, "offers", id, ErrOfferNotFound)
	if err != nil && !errors.Is(err, ErrOfferNotFound) {
		return nil, fmt.Errorf("offer repository: %w", err)
	}
	return offer, err
}

// ListByProduct возвращает все предложения по объявлению.
func (r *OfferRepository) ListByProduct(ctx context.Context, productID int64) ([]models.OfferView, error) {
	offers := []models.OfferView{}
	if err := r.db.SelectContext(ctx, &offers, offerViewSelect+`
		WHERE o.product_id = $1 ORDER BY o.created_at DESC, o.id DESC
	`, productID); err != nil {
		return nil, fmt.Errorf("offer repository: list by product %w", err)
	}
	return offers, nil
}

// ListByProductAndBuyer возвращает предложения конкретного покупателя по объявлению.
func (r *OfferRepository) ListByProductAndBuyer(ctx context.Context, productID, buyerID int64) ([]models.OfferView, error) {
	offers := []models.OfferView{}
	if err := r.db.SelectContext(ctx, &offers, offerViewSelect+`
		WHERE o.product_id = $1 AND o.buyer_id = $2 ORDER BY o.created_at DESC, o.id DESC
	`, productID, buyerID); err != nil {
		return nil, fmt.Errorf("offer repository: list by buyer %w", err)
	}
	return offers, nil
}

// UpdateStatusIfPending меняет статус одной строки. Условие status = 'Pending'
// проверяется в самом UPDATE, повторное изменение возвращает ErrOfferNotPending.
func (r *OfferRepository) UpdateStatusIfPending(ctx context.Context, id int64, status string) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.GetContext(ctx, &offer, `
		UPDATE offers SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'Pending'
		RETURNING *
	`, id, status)
	if err == nil {
		return &offer, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("offer repository: update status %w", err)
	}

	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrOfferNotPending
}

// AcceptCascade принимает предложение как единую единицу работы: блокирует
// предложение и объявление, снимает объявление с продажи, отклоняет остальные
// Pending предложения и создаёт транзакцию. Любая ошибка откатывает всё.
func (r *OfferRepository) AcceptCascade(ctx context.Context, id int64) (*models.AcceptResult, error) {
	result := &models.AcceptResult{}

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		offer, err := common.GetForUpdate[models.Offer](ctx, tx, "offers", id, ErrOfferNotFound)
		if err != nil {
			return err
		}
		if !offer.IsPending() {
			return ErrOfferNotPending
		}

		product, err := common.GetForUpdate[models.Product](ctx, tx, "products", offer.ProductID, ErrProductNotFound)
		if err != nil {
			return err
		}
		if !product.IsAvail {
			return ErrProductUnavailable
		}

		var accepted models.Offer
		if err := tx.GetContext(ctx, &accepted, `
			UPDATE offers SET status = 'Accepted', updated_at = NOW() WHERE id = $1 RETURNING *
		`, id); err != nil {
			return fmt.Errorf("offer repository: accept %w", err)
		}
		result.Offer = &accepted

		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET is_avail = FALSE, updated_at = NOW() WHERE id = $1
		`, product.ID); err != nil {
			return fmt.Errorf("offer repository: mark product sold %w", err)
		}

		rejected := []models.Offer{}
		if err := tx.SelectContext(ctx, &rejected, `
			UPDATE offers SET status = 'Rejected', updated_at = NOW()
			WHERE product_id = $1 AND status = 'Pending' AND id <> $2
			RETURNING *
		`, product.ID, id); err != nil {
			return fmt.Errorf("offer repository: reject siblings %w", err)
		}
		result.Rejected = rejected

		var transaction models.Transaction
		if err := tx.GetContext(ctx, &transaction, `
			INSERT INTO transactions (product_id, buyer_id, offer_id)
			VALUES ($1, $2, $3)
			RETURNING *
		`, product.ID, accepted.BuyerID, accepted.ID); err != nil {
			return fmt.Errorf("offer repository: create transaction %w", err)
		}
		result.Transaction = &transaction

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
