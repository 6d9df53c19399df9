package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/secondhand/marketplace-backend/internal/goroutine"
	"github.com/secondhand/marketplace-backend/internal/logger"
)

// BlobRetrier повторно удаляет файлы из очереди удаления.
type BlobRetrier interface {
	RetryPending(ctx context.Context) (deleted, failed int, err error)
}

// Scheduler запускает фоновые задачи по расписанию cron.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
}

// New создаёт планировщик. timeout ограничивает один запуск задачи.
func New(timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		timeout: timeout,
	}
}

// AddBlobCleanup регистрирует повторное удаление файлов по расписанию spec.
func (s *Scheduler) AddBlobCleanup(spec string, retrier BlobRetrier) error {
	if _, err := s.cron.AddFunc(spec, func() { s.runBlobCleanup(retrier) }); err != nil {
		return fmt.Errorf("scheduler: blob cleanup %q: %w", spec, err)
	}
	return nil
}

// Start запускает планировщик в фоне.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.L().WithField("jobs", len(s.cron.Entries())).Info("scheduler started")
}

// Stop останавливает планировщик и ждёт завершения текущих задач.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		logger.L().Warn("scheduler: задачи не завершились до таймаута остановки")
	}
}

func (s *Scheduler) runBlobCleanup(retrier BlobRetrier) {
	goroutine.DefaultRecoveryHandler.Run(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		deleted, failed, err := retrier.RetryPending(ctx)
		entry := logger.L().WithField("deleted", deleted).WithField("failed", failed)
		if err != nil {
			entry.WithError(err).Error("blob cleanup failed")
			return
		}
		if deleted > 0 || failed > 0 {
			entry.Info("blob cleanup finished")
		}
	})
}
