package dto

import (
	"math"
	"strings"

	"github.com/secondhand/marketplace-backend/internal/models"
)

// SignupRequest represents the request to create an account
type SignupRequest struct {
	Email    string  `json:"email" binding:"required"`
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required"`
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
}

// LoginRequest represents the request to log in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateSettingsRequest represents a partial update of the current user
type UpdateSettingsRequest struct {
	Email           *string `json:"email"`
	Username        *string `json:"username"`
	FullName        *string `json:"full_name"`
	Phone           *string `json:"phone"`
	CurrentPassword *string `json:"current_password"`
	NewPassword     *string `json:"new_password"`
}

// Settings returns the profile fields of the request
func (r UpdateSettingsRequest) Settings() models.UserSettings {
	return models.UserSettings{
		Email:    r.Email,
		Username: r.Username,
		FullName: r.FullName,
		Phone:    r.Phone,
	}
}

// CreateListingForm represents the multipart form for a new listing.
// Files are read from the "images" field.
type CreateListingForm struct {
	CategoryID  int64   `form:"category_id" binding:"required,gt=0"`
	Name        string  `form:"name" binding:"required"`
	Price       float64 `form:"price" binding:"required,gt=0"`
	Condition   string  `form:"condition" binding:"required,listing_condition"`
	Description string  `form:"description"`
	Location    string  `form:"location"`
}

// UpdateListingForm represents the multipart form for editing a listing.
// Omitted fields are left unchanged.
type UpdateListingForm struct {
	CategoryID     *int64   `form:"category_id" binding:"omitempty,gt=0"`
	Name           *string  `form:"name"`
	Price          *float64 `form:"price" binding:"omitempty,gt=0"`
	Condition      *string  `form:"condition" binding:"omitempty,listing_condition"`
	Description    *string  `form:"description"`
	Location       *string  `form:"location"`
	RemoveImageIDs []int64  `form:"remove_image_ids"`
	CoverImageID   *int64   `form:"cover_image_id" binding:"omitempty,gt=0"`
}

// Update returns the listing fields of the form
func (f UpdateListingForm) Update() models.ProductUpdate {
	return models.ProductUpdate{
		CategoryID:  f.CategoryID,
		Name:        f.Name,
		Price:       f.Price,
		Condition:   f.Condition,
		Description: f.Description,
		Location:    f.Location,
	}
}

// ListProductsQuery represents listing search parameters
type ListProductsQuery struct {
	CategoryID  *int64   `form:"category_id" binding:"omitempty,gt=0"`
	SellerID    *int64   `form:"seller_id" binding:"omitempty,gt=0"`
	Query       string   `form:"q" binding:"max=100"`
	MinPrice    *float64 `form:"min_price" binding:"omitempty,gte=0"`
	MaxPrice    *float64 `form:"max_price" binding:"omitempty,gte=0"`
	IncludeSold bool     `form:"include_sold"`
	Limit       int      `form:"limit"`
	Offset      int      `form:"offset"`
}

// Filter converts the query into a repository filter with sane paging
func (q ListProductsQuery) Filter() models.ProductFilter {
	limit := q.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	return models.ProductFilter{
		CategoryID:    q.CategoryID,
		SellerID:      q.SellerID,
		Query:         strings.TrimSpace(q.Query),
		MinPrice:      q.MinPrice,
		MaxPrice:      q.MaxPrice,
		OnlyAvailable: !q.IncludeSold,
		Limit:         limit,
		Offset:        offset,
	}
}

// CreateOfferRequest represents the request to make an offer
type CreateOfferRequest struct {
	Price *float64 `json:"price" binding:"required,gt=0"`
}

// OfferStatusRequest represents PATCH /api/offers/:offerId.
// offer_status is accepted as an alias of status.
type OfferStatusRequest struct {
	Status      string `json:"status" binding:"omitempty,offer_status"`
	OfferStatus string `json:"offer_status" binding:"omitempty,offer_status"`
}

// ResolvedStatus returns the requested status or an empty string
func (r OfferStatusRequest) ResolvedStatus() string {
	if r.Status != "" {
		return r.Status
	}
	return r.OfferStatus
}

// ListingOfferStatusRequest represents PATCH /api/products/:listingId/offers
type ListingOfferStatusRequest struct {
	OfferID int64 `json:"offer_id" binding:"required,gt=0"`
	OfferStatusRequest
}

// CreateReviewRequest represents the request to review a purchase.
// Rating is decoded as a number so that 4.5 yields a domain error instead of a decode error.
type CreateReviewRequest struct {
	Rating  *float64 `json:"rating" binding:"required"`
	Comment *string  `json:"comment"`
}

// IntRating returns the rating and whether it is a whole number
func (r CreateReviewRequest) IntRating() (int, bool) {
	if r.Rating == nil || math.IsNaN(*r.Rating) || math.IsInf(*r.Rating, 0) || *r.Rating != math.Trunc(*r.Rating) {
		return 0, false
	}
	return int(*r.Rating), true
}

// PaginationQuery represents limit/offset query parameters
type PaginationQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// Normalize clamps limit to [1, 100] and offset to >= 0
func (p PaginationQuery) Normalize() (limit, offset int) {
	limit, offset = p.Limit, p.Offset
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
