package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/secondhand/marketplace-backend/internal/dto"
	"github.com/secondhand/marketplace-backend/internal/http/handlers/common"
	"github.com/secondhand/marketplace-backend/internal/http/response"
	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/service"
	"github.com/secondhand/marketplace-backend/internal/validation"
)

// OfferUseCase операции над предложениями.
type OfferUseCase interface {
	CreateOffer(ctx context.Context, listingID, buyerID int64, price float64) (*models.Offer, error)
	UpdateOfferStatus(ctx context.Context, cmd service.UpdateOfferStatusCommand) (*models.AcceptResult, error)
	GetOffersForListing(ctx context.Context, listingID, requesterID int64) ([]models.OfferView, bool, error)
}

// OfferHandler обслуживает предложения цены.
type OfferHandler struct {
	offers OfferUseCase
}

// NewOfferHandler создаёт хэндлер.
func NewOfferHandler(offers OfferUseCase) *OfferHandler {
	return &OfferHandler{offers: offers}
}

// List обрабатывает GET /api/products/:listingId/offers.
func (h *OfferHandler) List(c *gin.Context) {
	userID, listingID, ok := userAndListing(c)
	if !ok {
		return
	}

	offers, isSeller, err := h.offers.GetOffersForListing(c.Request.Context(), listingID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.OffersResponse{Offers: offers, IsSeller: isSeller})
}

// Create обрабатывает POST /api/products/:listingId/offers.
func (h *OfferHandler) Create(c *gin.Context) {
	userID, listingID, ok := userAndListing(c)
	if !ok {
		return
	}

	var req dto.CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, validation.DescribeBindingError(err))
		return
	}

	offer, err := h.offers.CreateOffer(c.Request.Context(), listingID, userID, *req.Price)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Offer sent", offer)
}

// UpdateForListing обрабатывает PATCH /api/products/:listingId/offers с телом {offer_id, status}.
func (h *OfferHandler) UpdateForListing(c *gin.Context) {
	userID, listingID, ok := userAndListing(c)
	if !ok {
		return
	}

	var req dto.ListingOfferStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, validation.DescribeBindingError(err))
		return
	}

	h.updateStatus(c, service.UpdateOfferStatusCommand{
		OfferID:     req.OfferID,
		RequesterID: userID,
		Status:      req.ResolvedStatus(),
		ListingID:   &listingID,
	})
}

// Update обрабатывает PATCH /api/offers/:offerId с телом {status}.
func (h *OfferHandler) Update(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "")
		return
	}

	offerID, err := common.ParseIDParam(c, "offerId")
	if err != nil {
		response.BadRequest(c, "Invalid offer id")
		return
	}

	var req dto.OfferStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, validation.DescribeBindingError(err))
		return
	}

	h.updateStatus(c, service.UpdateOfferStatusCommand{
		OfferID:     offerID,
		RequesterID: userID,
		Status:      req.ResolvedStatus(),
	})
}

func (h *OfferHandler) updateStatus(c *gin.Context, cmd service.UpdateOfferStatusCommand) {
	result, err := h.offers.UpdateOfferStatus(c.Request.Context(), cmd)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "Offer "+result.Offer.Status, result)
}

// userAndListing извлекает текущего пользователя и :listingId, при ошибке отвечает сам.
func userAndListing(c *gin.Context) (int64, int64, bool) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "")
		return 0, 0, false
	}

	listingID, err := common.ParseIDParam(c, "listingId")
	if err != nil {
		response.BadRequest(c, "Invalid listing id")
		return 0, 0, false
	}

	return userID, listingID, true
}
