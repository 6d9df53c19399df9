package service

import (
	"context"
	"errors"

	"github.com/secondhand/marketplace-backend/internal/logger"
	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/pkg/apperror"
	"github.com/secondhand/marketplace-backend/internal/repository"
	"github.com/secondhand/marketplace-backend/internal/validation"
)

// AcceptMode определяет, что происходит при принятии предложения.
type AcceptMode string

const (
	// AcceptModeCascade снимает объявление с продажи, отклоняет остальные
	// предложения и создаёт транзакцию в одной единице работы.
	AcceptModeCascade AcceptMode = "cascade"
	// AcceptModeSingle меняет только статус самого предложения.
	AcceptModeSingle AcceptMode = "single"
)

// OfferRepository операции над предложениями.
type OfferRepository interface {
	Create(ctx context.Context, offer *models.Offer) error
	GetByID(ctx context.Context, id int64) (*models.Offer, error)
	ListByProduct(ctx context.Context, productID int64) ([]models.OfferView, error)
	ListByProductAndBuyer(ctx context.Context, productID, buyerID int64) ([]models.OfferView, error)
	UpdateStatusIfPending(ctx context.Context, id int64, status string) (*models.Offer, error)
	AcceptCascade(ctx context.Context, id int64) (*models.AcceptResult, error)
}

// ProductReader чтение объявления.
type ProductReader interface {
	GetByID(ctx context.Context, id int64) (*models.Product, error)
}

// UpdateOfferStatusCommand единая команда смены статуса предложения.
// ListingID задаётся маршрутом /products/:listingId/offers и сужает поиск.
type UpdateOfferStatusCommand struct {
	OfferID     int64
	RequesterID int64
	Status      string
	ListingID   *int64
}

// OfferService торг по объявлению: предложения покупателей и решения продавца.
type OfferService struct {
	offers   OfferRepository
	products ProductReader
	notifier Notifier
	mode     AcceptMode
}

// NewOfferService создаёт сервис предложений. Неизвестный режим трактуется как cascade.
func NewOfferService(offers OfferRepository, products ProductReader, notifier Notifier, mode AcceptMode) *OfferService {
	if mode != AcceptModeSingle {
		mode = AcceptModeCascade
	}
	return &OfferService{
		offers:   offers,
		products: products,
		notifier: orNoop(notifier),
		mode:     mode,
	}
}

var (
	errOfferNotFound     = apperror.New(apperror.ErrCodeNotFound, "Offer not found")
	errOfferNotPending   = apperror.New(apperror.ErrCodeConflict, "Only pending offers can be updated")
	errOfferForbidden    = apperror.New(apperror.ErrCodeForbidden, "Not authorized to update this offer")
	errOwnListingOffer   = apperror.New(apperror.ErrCodeForbidden, "You cannot offer on your own listing")
	errInvalidOfferState = apperror.New(apperror.ErrCodeValidation, "Invalid offer status")
)

// Mode возвращает текущий режим принятия.
func (s *OfferService) Mode() AcceptMode {
	return s.mode
}

// CreateOffer создаёт Pending предложение и уведомляет продавца.
func (s *OfferService) CreateOffer(ctx context.Context, listingID, buyerID int64, price float64) (*models.Offer, error) {
	if err := validation.ValidatePrice(price); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	product, err := s.products.GetByID(ctx, listingID)
	if err != nil {
		return nil, mapOfferError(err)
	}
	if product.SellerID == buyerID {
		return nil, errOwnListingOffer
	}
	if !product.IsAvail {
		return nil, errProductUnavailable
	}

	offer := &models.Offer{
		ProductID: listingID,
		BuyerID:   buyerID,
		Price:     price,
	}
	if err := s.offers.Create(ctx, offer); err != nil {
		return nil, mapOfferError(err)
	}

	notify(s.notifier, product.SellerID, models.EventOfferReceived, offerEvent(offer, product))

	return offer, nil
}

// UpdateOfferStatus принимает или отклоняет предложение. Единственная точка входа
// для обоих маршрутов изменения статуса.
func (s *OfferService) UpdateOfferStatus(ctx context.Context, cmd UpdateOfferStatusCommand) (*models.AcceptResult, error) {
	if !models.IsResolvedOfferStatus(cmd.Status) {
		return nil, errInvalidOfferState
	}

	offer, err := s.offers.GetByID(ctx, cmd.OfferID)
	if err != nil {
		return nil, mapOfferError(err)
	}
	if cmd.ListingID != nil && offer.ProductID != *cmd.ListingID {
		return nil, errOfferNotFound
	}

	product, err := s.products.GetByID(ctx, offer.ProductID)
	if err != nil {
		return nil, mapOfferError(err)
	}
	if product.SellerID != cmd.RequesterID {
		return nil, errOfferForbidden
	}
	if !offer.IsPending() {
		return nil, errOfferNotPending
	}

	var result *models.AcceptResult
	if cmd.Status == models.OfferStatusAccepted && s.mode == AcceptModeCascade {
		result, err = s.offers.AcceptCascade(ctx, offer.ID)
	} else {
		var updated *models.Offer
		updated, err = s.offers.UpdateStatusIfPending(ctx, offer.ID, cmd.Status)
		result = &models.AcceptResult{Offer: updated}
	}
	if err != nil {
		return nil, mapOfferError(err)
	}

	logger.L().WithFields(map[string]interface{}{
		"offer_id":   result.Offer.ID,
		"product_id": result.Offer.ProductID,
		"status":     result.Offer.Status,
		"rejected":   len(result.Rejected),
		"mode":       string(s.mode),
	}).Info("offer status updated")

	s.notifyResolution(product, result)

	return result, nil
}

// GetOffersForListing продавец видит все предложения, покупатель только свои.
func (s *OfferService) GetOffersForListing(ctx context.Context, listingID, requesterID int64) ([]models.OfferView, bool, error) {
	product, err := s.products.GetByID(ctx, listingID)
	if err != nil {
		return nil, false, mapOfferError(err)
	}

	if product.SellerID == requesterID {
		offers, err := s.offers.ListByProduct(ctx, listingID)
		return offers, true, err
	}

	offers, err := s.offers.ListByProductAndBuyer(ctx, listingID, requesterID)
	return offers, false, err
}

func (s *OfferService) notifyResolution(product *models.Product, result *models.AcceptResult) {
	event := models.EventOfferRejected
	if result.Offer.Status == models.OfferStatusAccepted {
		event = models.EventOfferAccepted
	}

	data := offerEvent(result.Offer, product)
	if result.Transaction != nil {
		data["transaction_id"] = result.Transaction.ID
	}
	notify(s.notifier, result.Offer.BuyerID, event, data)

	for i := range result.Rejected {
		rejected := &result.Rejected[i]
		notify(s.notifier, rejected.BuyerID, models.EventOfferRejected, offerEvent(rejected, product))
	}
}

func offerEvent(offer *models.Offer, product *models.Product) map[string]any {
	return map[string]any{
		"offer_id":     offer.ID,
		"product_id":   product.ID,
		"product_name": product.Name,
		"price":        offer.Price,
		"status":       offer.Status,
	}
}

func mapOfferError(err error) error {
	switch {
	case errors.Is(err, repository.ErrOfferNotFound):
		return errOfferNotFound
	case errors.Is(err, repository.ErrOfferNotPending):
		return errOfferNotPending
	case errors.Is(err, repository.ErrProductNotFound):
		return errProductNotFound
	case errors.Is(err, repository.ErrProductUnavailable):
		return errProductUnavailable
	default:
		return err
	}
}
