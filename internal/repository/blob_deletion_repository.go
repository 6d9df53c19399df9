package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/repository/common"
)

// BlobDeletionRepository очередь файлов, которые не удалось удалить из хранилища.
type BlobDeletionRepository struct {
	db *sqlx.DB
}

// NewBlobDeletionRepository создаёт репозиторий очереди удаления.
func NewBlobDeletionRepository(db *sqlx.DB) *BlobDeletionRepository {
	return &BlobDeletionRepository{db: db}
}

// Enqueue ставит ключи в очередь. Повторная постановка обновляет текст ошибки.
func (r *BlobDeletionRepository) Enqueue(ctx context.Context, keys []string, cause string) error {
	if len(keys) == 0 {
		return nil
	}

	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		inserter := common.NewBatchInserter(tx,
			`INSERT INTO blob_deletions (storage_key, last_error)`,
			`ON CONFLICT (storage_key) DO UPDATE SET last_error = EXCLUDED.last_error`,
			2, 100)

		for _, key := range uniqueStrings(keys) {
			if err := inserter.Add(ctx, key, cause); err != nil {
				return fmt.Errorf("blob deletion repository: enqueue %w", err)
			}
		}
		if err := inserter.Flush(ctx); err != nil {
			return fmt.Errorf("blob deletion repository: enqueue %w", err)
		}
		return nil
	})
}

// ListDue возвращает записи, время повторной попытки которых наступило.
func (r *BlobDeletionRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.BlobDeletion, error) {
	items := []models.BlobDeletion{}
	if err := r.db.SelectContext(ctx, &items, `
		SELECT * FROM blob_deletions WHERE next_attempt_at <= $1 ORDER BY next_attempt_at, id LIMIT $2
	`, now, limit); err != nil {
		return nil, fmt.Errorf("blob deletion repository: list due %w", err)
	}
	return items, nil
}

// Reschedule фиксирует неудачную попытку и время следующей.
func (r *BlobDeletionRepository) Reschedule(ctx context.Context, id int64, lastError string, next time.Time) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE blob_deletions SET attempts = attempts + 1, last_error = $2, next_attempt_at = $3 WHERE id = $1
	`, id, lastError, next); err != nil {
		return fmt.Errorf("blob deletion repository: reschedule %w", err)
	}
	return nil
}

// Delete убирает запись после успешного удаления файла.
func (r *BlobDeletionRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM blob_deletions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("blob deletion repository: delete %w", err)
	}
	return nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
