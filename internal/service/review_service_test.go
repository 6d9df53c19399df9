package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/pkg/apperror"
	"github.com/secondhand/marketplace-backend/internal/repository"
)

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	if args.Error(0) == nil {
		review.ID = 900
		review.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *mockReviewRepo) ExistsForTransaction(ctx context.Context, transactionID int64) (bool, error) {
	args := m.Called(ctx, transactionID)
	return args.Bool(0), args.Error(1)
}

func (m *mockReviewRepo) ListByProduct(ctx context.Context, productID int64) ([]models.ReviewView, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).([]models.ReviewView), args.Error(1)
}

type mockPurchaseFinder struct {
	mock.Mock
}

func (m *mockPurchaseFinder) LatestCompletedForBuyer(ctx context.Context, productID, buyerID int64) (*models.Transaction, error) {
	args := m.Called(ctx, productID, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func completedPurchase() *models.Transaction {
	now := time.Now()
	return &models.Transaction{ID: 500, ProductID: 10, BuyerID: testBuyerID, OfferID: 100, TransacDone: true, CompletedAt: &now}
}

func TestReviewService_AddReview_Success(t *testing.T) {
	reviews := new(mockReviewRepo)
	purchases := new(mockPurchaseFinder)
	products := new(mockProductReader)
	notifier := &recordingNotifier{}
	svc := NewReviewService(reviews, purchases, products, notifier)
	ctx := context.Background()

	products.On("GetByID", ctx, int64(10)).Return(testListing(), nil)
	purchases.On("LatestCompletedForBuyer", ctx, int64(10), testBuyerID).Return(completedPurchase(), nil)
	reviews.On("ExistsForTransaction", ctx, int64(500)).Return(false, nil)
	reviews.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(nil)

	comment := "  Great bike, as described  "
	review, err := svc.AddReviewIfEligible(ctx, 10, testBuyerID, 5, &comment)
	require.NoError(t, err)
	assert.Equal(t, int64(500), review.TransactionID)
	assert.Equal(t, 5, review.Rating)
	require.NotNil(t, review.Comment)
	assert.Equal(t, "Great bike, as described", *review.Comment)
	assert.Equal(t, []string{models.EventReviewReceived}, notifier.eventsFor(testSellerID))
	reviews.AssertExpectations(t)
}

func TestReviewService_AddReview_InvalidRating(t *testing.T) {
	svc := NewReviewService(new(mockReviewRepo), new(mockPurchaseFinder), new(mockProductReader), nil)

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.AddReviewIfEligible(context.Background(), 10, testBuyerID, rating, nil)
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
		assert.Contains(t, err.Error(), "Rating must be an integer between 1 and 5")
	}
}

func TestReviewService_AddReview_NotPurchased(t *testing.T) {
	reviews := new(mockReviewRepo)
	purchases := new(mockPurchaseFinder)
	products := new(mockProductReader)
	svc := NewReviewService(reviews, purchases, products, nil)
	ctx := context.Background()

	products.On("GetByID", ctx, int64(10)).Return(testListing(), nil)
	purchases.On("LatestCompletedForBuyer", ctx, int64(10), otherBuyerID).Return(nil, repository.ErrTransactionNotFound)

	_, err := svc.AddReviewIfEligible(ctx, 10, otherBuyerID, 4, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "You have not purchased this product")
	reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReviewService_AddReview_SecondReviewFails(t *testing.T) {
	reviews := new(mockReviewRepo)
	purchases := new(mockPurchaseFinder)
	products := new(mockProductReader)
	svc := NewReviewService(reviews, purchases, products, nil)
	ctx := context.Background()

	products.On("GetByID", ctx, int64(10)).Return(testListing(), nil)
	purchases.On("LatestCompletedForBuyer", ctx, int64(10), testBuyerID).Return(completedPurchase(), nil)
	reviews.On("ExistsForTransaction", ctx, int64(500)).Return(false, nil).Once()
	reviews.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(nil).Once()

	_, err := svc.AddReviewIfEligible(ctx, 10, testBuyerID, 5, nil)
	require.NoError(t, err)

	reviews.On("ExistsForTransaction", ctx, int64(500)).Return(true, nil).Once()
	_, err = svc.AddReviewIfEligible(ctx, 10, testBuyerID, 3, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
	assert.Contains(t, err.Error(), "You have already reviewed this purchase")
}

func TestReviewService_AddReview_UniqueViolationRace(t *testing.T) {
	reviews := new(mockReviewRepo)
	purchases := new(mockPurchaseFinder)
	products := new(mockProductReader)
	svc := NewReviewService(reviews, purchases, products, nil)
	ctx := context.Background()

	products.On("GetByID", ctx, int64(10)).Return(testListing(), nil)
	purchases.On("LatestCompletedForBuyer", ctx, int64(10), testBuyerID).Return(completedPurchase(), nil)
	reviews.On("ExistsForTransaction", ctx, int64(500)).Return(false, nil)
	reviews.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(repository.ErrAlreadyReviewed)

	_, err := svc.AddReviewIfEligible(ctx, 10, testBuyerID, 5, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "You have already reviewed this purchase")
}

func TestReviewService_ListForListing(t *testing.T) {
	reviews := new(mockReviewRepo)
	products := new(mockProductReader)
	svc := NewReviewService(reviews, new(mockPurchaseFinder), products, nil)
	ctx := context.Background()

	products.On("GetByID", ctx, int64(10)).Return(testListing(), nil)
	products.On("GetByID", ctx, int64(404)).Return(nil, repository.ErrProductNotFound)
	reviews.On("ListByProduct", ctx, int64(10)).Return([]models.ReviewView{{ReviewerUsername: "buyer"}}, nil)

	list, err := svc.ListForListing(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ListForListing(ctx, 404)
	assert.True(t, apperror.IsNotFound(err))
}
