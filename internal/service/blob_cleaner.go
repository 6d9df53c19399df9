package service

import (
	"context"
	"time"

	"github.com/secondhand/marketplace-backend/internal/logger"
	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/storage"
)

// BlobDeletionQueue очередь файлов на повторное удаление.
type BlobDeletionQueue interface {
	Enqueue(ctx context.Context, keys []string, cause string) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.BlobDeletion, error)
	Reschedule(ctx context.Context, id int64, lastError string, next time.Time) error
	Delete(ctx context.Context, id int64) error
}

const (
	blobRetryBatch    = 100
	blobRetryMaxDelay = 6 * time.Hour
)

// BlobCleaner удаляет файлы из хранилища, неудачные удаления ставит в очередь.
type BlobCleaner struct {
	storage storage.BlobStorage
	queue   BlobDeletionQueue
	now     func() time.Time
}

// NewBlobCleaner создаёт сервис очистки файлов.
func NewBlobCleaner(storage storage.BlobStorage, queue BlobDeletionQueue) *BlobCleaner {
	return &BlobCleaner{storage: storage, queue: queue, now: time.Now}
}

// DeleteOrQueue удаляет файлы. Вызывается после фиксации транзакции, поэтому
// не возвращает ошибку: всё, что не удалилось, попадает в blob_deletions.
func (c *BlobCleaner) DeleteOrQueue(ctx context.Context, keys ...string) {
	ctx = context.WithoutCancel(ctx)

	var failed []string
	var lastErr error
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := c.storage.Delete(ctx, key); err != nil {
			failed = append(failed, key)
			lastErr = err
		}
	}
	if len(failed) == 0 {
		return
	}

	log := logger.L().WithError(lastErr).WithField("keys", failed)
	if err := c.queue.Enqueue(ctx, failed, lastErr.Error()); err != nil {
		log.WithField("queue_error", err.Error()).Error("не удалось поставить файлы в очередь удаления")
		return
	}
	log.Warn("удаление файлов отложено")
}

// RetryPending повторяет удаление файлов, чьё время пришло.
func (c *BlobCleaner) RetryPending(ctx context.Context) (deleted, failed int, err error) {
	items, err := c.queue.ListDue(ctx, c.now(), blobRetryBatch)
	if err != nil {
		return 0, 0, err
	}

	for _, item := range items {
		if delErr := c.storage.Delete(ctx, item.StorageKey); delErr != nil {
			failed++
			next := c.now().Add(retryDelay(item.Attempts + 1))
			if err := c.queue.Reschedule(ctx, item.ID, delErr.Error(), next); err != nil {
				return deleted, failed, err
			}
			continue
		}

		if err := c.queue.Delete(ctx, item.ID); err != nil {
			return deleted, failed, err
		}
		deleted++
	}

	return deleted, failed, nil
}

// retryDelay экспоненциальная задержка: 1, 2, 4... минут, не более 6 часов.
func retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 10 {
		return blobRetryMaxDelay
	}
	d := time.Minute << (attempt - 1)
	if d > blobRetryMaxDelay {
		return blobRetryMaxDelay
	}
	return d
}
