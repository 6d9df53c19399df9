package dto

import (
	"github.com/secondhand/marketplace-backend/internal/models"
)

// SessionResponse represents the authenticated user
type SessionResponse struct {
	User *models.SessionUser `json:"user"`
}

// OffersResponse represents offers visible to the requester.
// Sellers see every offer, buyers only their own.
type OffersResponse struct {
	Offers   []models.OfferView `json:"offers"`
	IsSeller bool               `json:"is_seller"`
}

// ImagesResponse represents the image set of a listing after a change
type ImagesResponse struct {
	Images []models.ProductImage `json:"images"`
}

// ReviewsResponse represents reviews of a listing
type ReviewsResponse struct {
	Reviews []models.ReviewView `json:"reviews"`
}

// NotificationsResponse represents notifications of the current user
type NotificationsResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

// HealthResponse represents the health check result
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
