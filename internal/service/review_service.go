package service

import (
	"context"
	"errors"

	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/pkg/apperror"
	"github.com/secondhand/marketplace-backend/internal/repository"
	"github.com/secondhand/marketplace-backend/internal/validation"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	ExistsForTransaction(ctx context.Context, transactionID int64) (bool, error)
	ListByProduct(ctx context.Context, productID int64) ([]models.ReviewView, error)
}

// PurchaseFinder ищет завершённую покупку пользователя.
type PurchaseFinder interface {
	LatestCompletedForBuyer(ctx context.Context, productID, buyerID int64) (*models.Transaction, error)
}

type ReviewService struct {
	repo      ReviewRepository
	purchases PurchaseFinder
	products  ProductReader
	notifier  Notifier
	cache     *CacheService
}

func NewReviewService(repo ReviewRepository, purchases PurchaseFinder, products ProductReader, notifier Notifier) *ReviewService {
	return &ReviewService{
		repo:      repo,
		purchases: purchases,
		products:  products,
		notifier:  orNoop(notifier),
	}
}

// WithCache сбрасывает кэш рейтинга продавца при новых отзывах.
func (s *ReviewService) WithCache(cache *CacheService) *ReviewService {
	s.cache = cache
	return s
}

var (
	errNotPurchased    = apperror.New(apperror.ErrCodeForbidden, "You have not purchased this product")
	errAlreadyReviewed = apperror.New(apperror.ErrCodeConflict, "You have already reviewed this purchase")
)

// AddReviewIfEligible оставляет отзыв по самой свежей завершённой покупке объявления.
func (s *ReviewService) AddReviewIfEligible(ctx context.Context, listingID, userID int64, rating int, comment *string) (*models.Review, error) {
	if err := validation.ValidateRating(rating); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	comment = trimmedOrNil(comment)
	if err := validation.ValidateReviewComment(comment); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	product, err := s.products.GetByID(ctx, listingID)
	if err != nil {
		return nil, mapProductError(err)
	}

	purchase, err := s.purchases.LatestCompletedForBuyer(ctx, listingID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, errNotPurchased
		}
		return nil, err
	}

	// Быстрый отказ, окончательно уникальность проверяет UNIQUE(transaction_id).
	exists, err := s.repo.ExistsForTransaction(ctx, purchase.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errAlreadyReviewed
	}

	review := &models.Review{
		TransactionID: purchase.ID,
		Rating:        rating,
		Comment:       comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrAlreadyReviewed) {
			return nil, errAlreadyReviewed
		}
		return nil, err
	}

	s.cache.InvalidateSeller(product.SellerID)
	notify(s.notifier, product.SellerID, models.EventReviewReceived, map[string]any{
		"review_id":  review.ID,
		"product_id": product.ID,
		"rating":     review.Rating,
	})

	return review, nil
}

// ListForListing возвращает отзывы по объявлению.
func (s *ReviewService) ListForListing(ctx context.Context, listingID int64) ([]models.ReviewView, error) {
	if _, err := s.products.GetByID(ctx, listingID); err != nil {
		return nil, mapProductError(err)
	}
	return s.repo.ListByProduct(ctx, listingID)
}
