package handlers

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/secondhand/marketplace-backend/internal/dto"
	"github.com/secondhand/marketplace-backend/internal/http/handlers/common"
	"github.com/secondhand/marketplace-backend/internal/http/response"
	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/validation"
)

var errRatingNotInteger = fmt.Sprintf("Rating must be an integer between %d and %d", validation.MinRating, validation.MaxRating)

// ReviewUseCase операции над отзывами.
type ReviewUseCase interface {
	AddReviewIfEligible(ctx context.Context, listingID, userID int64, rating int, comment *string) (*models.Review, error)
	ListForListing(ctx context.Context, listingID int64) ([]models.ReviewView, error)
}

type ReviewHandler struct {
	reviews ReviewUseCase
}

func NewReviewHandler(reviews ReviewUseCase) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Create обрабатывает POST /api/products/:listingId/reviews.
func (h *ReviewHandler) Create(c *gin.Context) {
	userID, listingID, ok := userAndListing(c)
	if !ok {
		return
	}

	var req dto.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, validation.DescribeBindingError(err))
		return
	}

	rating, ok := req.IntRating()
	if !ok {
		response.BadRequest(c, errRatingNotInteger)
		return
	}

	review, err := h.reviews.AddReviewIfEligible(c.Request.Context(), listingID, userID, rating, req.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Review added", review)
}

// List обрабатывает GET /api/products/:listingId/reviews.
func (h *ReviewHandler) List(c *gin.Context) {
	listingID, err := common.ParseIDParam(c, "listingId")
	if err != nil {
		response.BadRequest(c, "Invalid listing id")
		return
	}

	reviews, err := h.reviews.ListForListing(c.Request.Context(), listingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ReviewsResponse{Reviews: reviews})
}
