package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/pkg/apperror"
	"github.com/secondhand/marketplace-backend/internal/repository"
)

type mockTransactionRepo struct {
	mock.Mock
}

func (m *mockTransactionRepo) GetWithParties(ctx context.Context, id int64) (*models.TransactionParties, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TransactionParties), args.Error(1)
}

func (m *mockTransactionRepo) MarkDone(ctx context.Context, id int64) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) ListPurchases(ctx context.Context, buyerID int64, limit, offset int) ([]models.Purchase, error) {
	args := m.Called(ctx, buyerID, limit, offset)
	return args.Get(0).([]models.Purchase), args.Error(1)
}

func (m *mockTransactionRepo) ListSentOffers(ctx context.Context, buyerID int64, limit, offset int) ([]models.SentOffer, error) {
	args := m.Called(ctx, buyerID, limit, offset)
	return args.Get(0).([]models.SentOffer), args.Error(1)
}

func (m *mockTransactionRepo) ListReceivedOffers(ctx context.Context, sellerID int64, limit, offset int) ([]models.ReceivedOffer, error) {
	args := m.Called(ctx, sellerID, limit, offset)
	return args.Get(0).([]models.ReceivedOffer), args.Error(1)
}

func openTransaction() *models.TransactionParties {
	return &models.TransactionParties{
		Transaction: models.Transaction{ID: 500, ProductID: 10, BuyerID: testBuyerID, OfferID: 100},
		SellerID:    testSellerID,
	}
}

func TestTransactionService_CompleteByBuyer(t *testing.T) {
	repo := new(mockTransactionRepo)
	notifier := &recordingNotifier{}
	svc := NewTransactionService(repo, notifier)
	ctx := context.Background()

	repo.On("GetWithParties", ctx, int64(500)).Return(openTransaction(), nil)
	repo.On("MarkDone", ctx, int64(500)).Return(&models.Transaction{ID: 500, ProductID: 10, TransacDone: true}, nil)

	done, err := svc.CompleteTransaction(ctx, 500, testBuyerID)
	require.NoError(t, err)
	assert.True(t, done.TransacDone)
	assert.Equal(t, []string{models.EventSaleCompleted}, notifier.eventsFor(testSellerID))
	assert.Empty(t, notifier.eventsFor(testBuyerID))
}

func TestTransactionService_CompleteBySellerNotifiesBuyer(t *testing.T) {
	repo := new(mockTransactionRepo)
	notifier := &recordingNotifier{}
	svc := NewTransactionService(repo, notifier)
	ctx := context.Background()

	repo.On("GetWithParties", ctx, int64(500)).Return(openTransaction(), nil)
	repo.On("MarkDone", ctx, int64(500)).Return(&models.Transaction{ID: 500, ProductID: 10, TransacDone: true}, nil)

	_, err := svc.CompleteTransaction(ctx, 500, testSellerID)
	require.NoError(t, err)
	assert.Equal(t, []string{models.EventSaleCompleted}, notifier.eventsFor(testBuyerID))
}

func TestTransactionService_CompleteFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("stranger", func(t *testing.T) {
		repo := new(mockTransactionRepo)
		repo.On("GetWithParties", ctx, int64(500)).Return(openTransaction(), nil)
		svc := NewTransactionService(repo, nil)

		_, err := svc.CompleteTransaction(ctx, 500, otherBuyerID)
		require.Error(t, err)
		assert.True(t, apperror.IsForbidden(err))
		repo.AssertNotCalled(t, "MarkDone", mock.Anything, mock.Anything)
	})

	t.Run("already done", func(t *testing.T) {
		done := openTransaction()
		done.TransacDone = true
		repo := new(mockTransactionRepo)
		repo.On("GetWithParties", ctx, int64(500)).Return(done, nil)
		svc := NewTransactionService(repo, nil)

		_, err := svc.CompleteTransaction(ctx, 500, testBuyerID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Transaction already completed")
	})

	t.Run("completed concurrently", func(t *testing.T) {
		repo := new(mockTransactionRepo)
		repo.On("GetWithParties", ctx, int64(500)).Return(openTransaction(), nil)
		repo.On("MarkDone", ctx, int64(500)).Return(nil, repository.ErrTransactionAlreadyDone)
		svc := NewTransactionService(repo, nil)

		_, err := svc.CompleteTransaction(ctx, 500, testSellerID)
		require.Error(t, err)
		assert.True(t, apperror.IsConflict(err))
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(mockTransactionRepo)
		repo.On("GetWithParties", ctx, int64(404)).Return(nil, repository.ErrTransactionNotFound)
		svc := NewTransactionService(repo, nil)

		_, err := svc.CompleteTransaction(ctx, 404, testBuyerID)
		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestTransactionService_ListsNormalizePaging(t *testing.T) {
	repo := new(mockTransactionRepo)
	svc := NewTransactionService(repo, nil)
	ctx := context.Background()

	repo.On("ListPurchases", ctx, testBuyerID, 20, 0).Return([]models.Purchase{{TransactionID: 500}}, nil)
	repo.On("ListSentOffers", ctx, testBuyerID, 50, 10).Return([]models.SentOffer{}, nil)
	repo.On("ListReceivedOffers", ctx, testSellerID, 20, 0).Return([]models.ReceivedOffer{}, nil)

	purchases, err := svc.ListPurchases(ctx, testBuyerID, 0, -3)
	require.NoError(t, err)
	assert.Len(t, purchases, 1)

	_, err = svc.ListSentOffers(ctx, testBuyerID, 50, 10)
	require.NoError(t, err)

	_, err = svc.ListReceivedOffers(ctx, testSellerID, 1000, 0)
	require.NoError(t, err)

	repo.AssertExpectations(t)
}
