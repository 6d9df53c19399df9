package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/repository/common"
)

// ErrImageNotFound изображение не найдено у данного объявления.
var ErrImageNotFound = errors.New("product image not found")

// ImageLimitError превышен лимит изображений объявления.
type ImageLimitError struct {
	Limit     int
	Remaining int
}

func (e *ImageLimitError) Error() string {
	return fmt.Sprintf("image limit %d exceeded, %d slot(s) remaining", e.Limit, e.Remaining)
}

// ProductImageRepository отвечает за таблицу product_images.
type ProductImageRepository struct {
	db *sqlx.DB
}

// NewProductImageRepository создаёт репозиторий изображений.
func NewProductImageRepository(db *sqlx.DB) *ProductImageRepository {
	return &ProductImageRepository{db: db}
}

// ListByProduct возвращает изображения в порядке показа.
func (r *ProductImageRepository) ListByProduct(ctx context.Context, productID int64) ([]models.ProductImage, error) {
	return listImages(ctx, r.db, productID)
}

// CountByProduct возвращает количество изображений объявления.
func (r *ProductImageRepository) CountByProduct(ctx context.Context, productID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM product_images WHERE product_id = $1`, productID); err != nil {
		return 0, fmt.Errorf("product image repository: count %w", err)
	}
	return count, nil
}

// Attach добавляет изображения к доступному объявлению. Лимит проверяется под
// блокировкой строки объявления, поэтому параллельные загрузки не превышают maxImages.
// Возвращает итоговый набор изображений.
func (r *ProductImageRepository) Attach(ctx context.Context, productID int64, images []models.NewImage, maxImages int) ([]models.ProductImage, error) {
	var result []models.ProductImage

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := lockAvailableProduct(ctx, tx, productID); err != nil {
			return err
		}

		if err := checkImageLimit(ctx, tx, productID, len(images), maxImages); err != nil {
			return err
		}

		if _, err := insertImages(ctx, tx, productID, images); err != nil {
			return err
		}
		if err := ensureCover(ctx, tx, productID, nil); err != nil {
			return err
		}

		var err error
		result, err = listImages(ctx, tx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// replaceImages удаляет removeIDs, добавляет images и назначает обложку внутри tx.
// Возвращает удалённые строки, их файлы удаляются после фиксации.
func replaceImages(ctx context.Context, tx *sqlx.Tx, productID int64, removeIDs []int64, images []models.NewImage, coverID *int64, maxImages int) ([]models.ProductImage, error) {
	removed := []models.ProductImage{}

	if len(removeIDs) > 0 {
		if err := tx.SelectContext(ctx, &removed, `
			DELETE FROM product_images
			WHERE product_id = $1 AND id = ANY($2)
			RETURNING *
		`, productID, pq.Array(removeIDs)); err != nil {
			return nil, fmt.Errorf("product image repository: delete removed %w", err)
		}
		if len(removed) != len(uniqueIDs(removeIDs)) {
			return nil, ErrImageNotFound
		}
	}

	if err := checkImageLimit(ctx, tx, productID, len(images), maxImages); err != nil {
		return nil, err
	}

	if _, err := insertImages(ctx, tx, productID, images); err != nil {
		return nil, err
	}
	if err := ensureCover(ctx, tx, productID, coverID); err != nil {
		return nil, err
	}

	return removed, nil
}

// lockAvailableProduct блокирует строку объявления и проверяет, что оно не продано.
func lockAvailableProduct(ctx context.Context, tx *sqlx.Tx, productID int64) (*models.Product, error) {
	product, err := common.GetForUpdate[models.Product](ctx, tx, "products", productID, ErrProductNotFound)
	if err != nil {
		return nil, err
	}
	if !product.IsAvail {
		return nil, ErrProductUnavailable
	}
	return product, nil
}

// Delete удаляет одно изображение; если это была обложка, обложкой становится следующее.
func (r *ProductImageRepository) Delete(ctx context.Context, productID, imageID int64) (*models.ProductImage, error) {
	var removed models.ProductImage

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := lockAvailableProduct(ctx, tx, productID); err != nil {
			return err
		}

		if err := tx.GetContext(ctx, &removed, `
			DELETE FROM product_images WHERE product_id = $1 AND id = $2 RETURNING *
		`, productID, imageID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrImageNotFound
			}
			return fmt.Errorf("product image repository: delete %w", err)
		}

		return ensureCover(ctx, tx, productID, nil)
	})
	if err != nil {
		return nil, err
	}

	return &removed, nil
}

func checkImageLimit(ctx context.Context, tx *sqlx.Tx, productID int64, adding, maxImages int) error {
	var count int
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM product_images WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("product image repository: count %w", err)
	}

	if count+adding > maxImages {
		remaining := maxImages - count
		if remaining < 0 {
			remaining = 0
		}
		return &ImageLimitError{Limit: maxImages, Remaining: remaining}
	}
	return nil
}

// insertImages вставляет изображения с display_order, продолжающим текущий максимум.
func insertImages(ctx context.Context, tx *sqlx.Tx, productID int64, images []models.NewImage) ([]models.ProductImage, error) {
	if len(images) == 0 {
		return nil, nil
	}

	var maxOrder int
	if err := tx.GetContext(ctx, &maxOrder, `SELECT COALESCE(MAX(display_order), 0) FROM product_images WHERE product_id = $1`, productID); err != nil {
		return nil, fmt.Errorf("product image repository: max order %w", err)
	}

	inserted := make([]models.ProductImage, 0, len(images))
	for i, img := range images {
		var row models.ProductImage
		if err := tx.GetContext(ctx, &row, `
			INSERT INTO product_images (product_id, storage_key, url, display_order, is_cover)
			VALUES ($1, $2, $3, $4, FALSE)
			RETURNING *
		`, productID, img.StorageKey, img.URL, maxOrder+i+1); err != nil {
			return nil, fmt.Errorf("product image repository: insert %w", err)
		}
		inserted = append(inserted, row)
	}

	return inserted, nil
}

// ensureCover назначает обложку. Без coverID обложкой становится первое
// изображение, если обложки ещё нет.
func ensureCover(ctx context.Context, tx *sqlx.Tx, productID int64, coverID *int64) error {
	if coverID != nil {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM product_images WHERE product_id = $1 AND id = $2)`, productID, *coverID); err != nil {
			return fmt.Errorf("product image repository: check cover %w", err)
		}
		if !exists {
			return ErrImageNotFound
		}
		if _, err := tx.ExecContext(ctx, `UPDATE product_images SET is_cover = FALSE WHERE product_id = $1 AND is_cover AND id <> $2`, productID, *coverID); err != nil {
			return fmt.Errorf("product image repository: reset cover %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE product_images SET is_cover = TRUE WHERE id = $1`, *coverID); err != nil {
			return fmt.Errorf("product image repository: set cover %w", err)
		}
		return nil
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE product_images SET is_cover = TRUE
		WHERE id = (
			SELECT id FROM product_images WHERE product_id = $1 ORDER BY display_order, id LIMIT 1
		)
		AND NOT EXISTS (SELECT 1 FROM product_images WHERE product_id = $1 AND is_cover)
	`, productID)
	if err != nil {
		return fmt.Errorf("product image repository: default cover %w", err)
	}
	return nil
}

func listImages(ctx context.Context, q common.Querier, productID int64) ([]models.ProductImage, error) {
	images := []models.ProductImage{}
	if err := q.SelectContext(ctx, &images, `
		SELECT * FROM product_images WHERE product_id = $1 ORDER BY display_order, id
	`, productID); err != nil {
		return nil, fmt.Errorf("product image repository: list %w", err)
	}
	return images, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
