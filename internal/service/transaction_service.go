package service

import (
	"context"
	"errors"

	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/pkg/apperror"
	"github.com/secondhand/marketplace-backend/internal/repository"
)

// TransactionRepository сделки и история торга пользователя.
type TransactionRepository interface {
	GetWithParties(ctx context.Context, id int64) (*models.TransactionParties, error)
	MarkDone(ctx context.Context, id int64) (*models.Transaction, error)
	ListPurchases(ctx context.Context, buyerID int64, limit, offset int) ([]models.Purchase, error)
	ListSentOffers(ctx context.Context, buyerID int64, limit, offset int) ([]models.SentOffer, error)
	ListReceivedOffers(ctx context.Context, sellerID int64, limit, offset int) ([]models.ReceivedOffer, error)
}

// TransactionService завершение сделок и списки для личного кабинета.
type TransactionService struct {
	repo     TransactionRepository
	notifier Notifier
}

// NewTransactionService создаёт сервис сделок.
func NewTransactionService(repo TransactionRepository, notifier Notifier) *TransactionService {
	return &TransactionService{repo: repo, notifier: orNoop(notifier)}
}

var (
	errTransactionNotFound  = apperror.New(apperror.ErrCodeNotFound, "Transaction not found")
	errTransactionDone      = apperror.New(apperror.ErrCodeConflict, "Transaction already completed")
	errTransactionForbidden = apperror.New(apperror.ErrCodeForbidden, "Not authorized to complete this transaction")
)

// ListPurchases покупки пользователя.
func (s *TransactionService) ListPurchases(ctx context.Context, userID int64, limit, offset int) ([]models.Purchase, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.ListPurchases(ctx, userID, limit, offset)
}

// ListSentOffers предложения, отправленные пользователем.
func (s *TransactionService) ListSentOffers(ctx context.Context, userID int64, limit, offset int) ([]models.SentOffer, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.ListSentOffers(ctx, userID, limit, offset)
}

// ListReceivedOffers предложения на объявления пользователя.
func (s *TransactionService) ListReceivedOffers(ctx context.Context, userID int64, limit, offset int) ([]models.ReceivedOffer, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.ListReceivedOffers(ctx, userID, limit, offset)
}

// CompleteTransaction отмечает сделку завершённой. Вызвать может покупатель или продавец,
// вторая сторона получает уведомление.
func (s *TransactionService) CompleteTransaction(ctx context.Context, transactionID, requesterID int64) (*models.Transaction, error) {
	tp, err := s.repo.GetWithParties(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, errTransactionNotFound
		}
		return nil, err
	}
	if requesterID != tp.BuyerID && requesterID != tp.SellerID {
		return nil, errTransactionForbidden
	}
	if tp.TransacDone {
		return nil, errTransactionDone
	}

	done, err := s.repo.MarkDone(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionAlreadyDone) {
			return nil, errTransactionDone
		}
		return nil, err
	}

	counterpart := tp.SellerID
	if requesterID == tp.SellerID {
		counterpart = tp.BuyerID
	}
	notify(s.notifier, counterpart, models.EventSaleCompleted, map[string]any{
		"transaction_id": done.ID,
		"product_id":     done.ProductID,
	})

	return done, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
