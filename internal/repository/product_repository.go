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
	ErrProductNotFound = errors.New("product not found")
	// ErrProductUnavailable объявление уже продано.
	ErrProductUnavailable = errors.New("product is no longer available")
	// ErrProductHasTransaction по объявлению уже есть сделка.
	ErrProductHasTransaction = errors.New("product has a transaction")
	// ErrCategoryNotFound указанная категория не существует.
	ErrCategoryNotFound = errors.New("category not found")
)

const productSummarySelect = `
	SELECT p.*, c.name AS category_name, u.username AS seller_username,
		(SELECT pi.url FROM product_images pi WHERE pi.product_id = p.id AND pi.is_cover LIMIT 1) AS cover_url
	FROM products p
	JOIN categories c ON c.id = p.category_id
	JOIN users u ON u.id = p.seller_id
`

// ProductRepository отвечает за таблицу products.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository создаёт репозиторий объявлений.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID возвращает объявление.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	product, err := common.GetByID[models.Product](ctx, r.db, "products", id, ErrProductNotFound)
	if err != nil && !errors.Is(err, ErrProductNotFound) {
		return nil, fmt.Errorf("product repository: %w", err)
	}
	return product, err
}

// GetSummary возвращает объявление с категорией, продавцом и обложкой.
func (r *ProductRepository) GetSummary(ctx context.Context, id int64) (*models.ProductSummary, error) {
	var summary models.ProductSummary
	if err := r.db.GetContext(ctx, &summary, productSummarySelect+` WHERE p.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("product repository: get summary %w", err)
	}
	return &summary, nil
}

// List возвращает страницу объявлений и общее количество.
func (r *ProductRepository) List(ctx context.Context, filter models.ProductFilter) ([]models.ProductSummary, int, error) {
	where, args := buildProductFilter(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM products p` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("product repository: count %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`%s%s ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d`,
		productSummarySelect, where, len(args)-1, len(args))

	products := []models.ProductSummary{}
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, fmt.Errorf("product repository: list %w", err)
	}

	return products, total, nil
}

// CreateWithImages создаёт объявление и его изображения в одной транзакции.
func (r *ProductRepository) CreateWithImages(ctx context.Context, product *models.Product, images []models.NewImage) ([]models.ProductImage, error) {
	var stored []models.ProductImage

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO products (seller_id, category_id, name, price, condition, description, location, is_avail)
			VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
			RETURNING *
		`
		if err := tx.GetContext(ctx, product, query,
			product.SellerID, product.CategoryID, product.Name, product.Price,
			product.Condition, product.Description, product.Location,
		); err != nil {
			if common.IsForeignKeyViolation(err) {
				return ErrCategoryNotFound
			}
			return fmt.Errorf("product repository: create %w", err)
		}

		if _, err := insertImages(ctx, tx, product.ID, images); err != nil {
			return err
		}
		if err := ensureCover(ctx, tx, product.ID, nil); err != nil {
			return err
		}

		var err error
		stored, err = listImages(ctx, tx, product.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}

// UpdateWithImages меняет поля и набор изображений доступного объявления одной
// транзакцией. Возвращает обновлённое объявление, удалённые изображения и итоговый набор.
func (r *ProductRepository) UpdateWithImages(ctx context.Context, id int64, upd models.ProductUpdate, removeIDs []int64, images []models.NewImage, coverID *int64, maxImages int) (*models.Product, []models.ProductImage, []models.ProductImage, error) {
	var (
		product        *models.Product
		removed, final []models.ProductImage
	)

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		product, err = lockAvailableProduct(ctx, tx, id)
		if err != nil {
			return err
		}

		if setClause, args := buildProductUpdate(upd); setClause != "" {
			args = append(args, id)
			query := fmt.Sprintf(`UPDATE products SET %s, updated_at = NOW() WHERE id = $%d RETURNING *`, setClause, len(args))

			var updated models.Product
			if err := tx.GetContext(ctx, &updated, query, args...); err != nil {
				if common.IsForeignKeyViolation(err) {
					return ErrCategoryNotFound
				}
				return fmt.Errorf("product repository: update %w", err)
			}
			product = &updated
		}

		removed, err = replaceImages(ctx, tx, id, removeIDs, images, coverID, maxImages)
		if err != nil {
			return err
		}

		final, err = listImages(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, nil, nil, err
	}

	return product, removed, final, nil
}

// Delete удаляет объявление без сделок и возвращает ключи его изображений.
func (r *ProductRepository) Delete(ctx context.Context, id int64) ([]string, error) {
	var keys []string

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := common.GetForUpdate[models.Product](ctx, tx, "products", id, ErrProductNotFound); err != nil {
			return err
		}

		var hasTransaction bool
		if err := tx.GetContext(ctx, &hasTransaction, `SELECT EXISTS(SELECT 1 FROM transactions WHERE product_id = $1)`, id); err != nil {
			return fmt.Errorf("product repository: check transactions %w", err)
		}
		if hasTransaction {
			return ErrProductHasTransaction
		}

		if err := tx.SelectContext(ctx, &keys, `SELECT storage_key FROM product_images WHERE product_id = $1`, id); err != nil {
			return fmt.Errorf("product repository: list image keys %w", err)
		}

		// offers и product_images удаляются каскадом.
		if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
			return fmt.Errorf("product repository: delete %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

// buildProductFilter формирует WHERE для выборки объявлений.
func buildProductFilter(f models.ProductFilter) (string, []interface{}) {
	conds := make([]string, 0, 6)
	args := make([]interface{}, 0, 8)

	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.OnlyAvailable {
		conds = append(conds, "p.is_avail = TRUE")
	}
	if f.CategoryID != nil {
		add("p.category_id = $%d", *f.CategoryID)
	}
	if f.SellerID != nil {
		add("p.seller_id = $%d", *f.SellerID)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		add("(p.name ILIKE $%[1]d OR p.description ILIKE $%[1]d)", "%"+escapeLike(q)+"%")
	}
	if f.MinPrice != nil {
		add("p.price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("p.price <= $%d", *f.MaxPrice)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// buildProductUpdate формирует SET из фиксированного списка колонок.
func buildProductUpdate(u models.ProductUpdate) (string, []interface{}) {
	parts := make([]string, 0, 6)
	args := make([]interface{}, 0, 7)

	set := func(column string, v interface{}) {
		args = append(args, v)
		parts = append(parts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.CategoryID != nil {
		set("category_id", *u.CategoryID)
	}
	if u.Name != nil {
		set("name", *u.Name)
	}
	if u.Price != nil {
		set("price", *u.Price)
	}
	if u.Condition != nil {
		set("condition", *u.Condition)
	}
	if u.Description != nil {
		set("description", *u.Description)
	}
	if u.Location != nil {
		set("location", *u.Location)
	}

	return strings.Join(parts, ", "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
