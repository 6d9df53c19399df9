package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secondhand/marketplace-backend/internal/config"
	"github.com/secondhand/marketplace-backend/internal/http/handlers"
	"github.com/secondhand/marketplace-backend/internal/http/middleware"
)

// multipartSlack запас на поля формы сверх самих файлов.
const multipartSlack = 1 << 20

// Handlers набор HTTP хэндлеров приложения.
type Handlers struct {
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	User          *handlers.UserHandler
	Product       *handlers.ProductHandler
	Offer         *handlers.OfferHandler
	Review        *handlers.ReviewHandler
	Transaction   *handlers.TransactionHandler
	Notification  *handlers.NotificationHandler
	WS            *handlers.WSHandler
	Authenticator middleware.Authenticator
}

func SetupRouter(cfg *config.Config, h Handlers) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	if cfg.StorageDriver == config.StorageDriverLocal {
		r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))
	}

	uploadLimit := middleware.BodyLimit(cfg.MaxImageBytes()*int64(cfg.MaxImagesPerListing) + multipartSlack)
	avatarLimit := middleware.BodyLimit(cfg.MaxImageBytes() + multipartSlack)
	requireAuth := middleware.AuthMiddleware(h.Authenticator)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/signup", h.Auth.Signup)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", h.Auth.Logout)
	}

	// Публичные маршруты
	api.GET("/categories", h.Product.ListCategories)
	api.GET("/products", h.Product.List)
	api.GET("/products/:listingId", middleware.ValidateIDParams("listingId"), h.Product.Get)
	api.GET("/products/:listingId/reviews", middleware.ValidateIDParams("listingId"), h.Review.List)
	api.GET("/ws", h.WS.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(requireAuth)
	{
		protected.GET("/session", h.User.Session)
		protected.PATCH("/users/me", h.User.UpdateMe)
		protected.POST("/users/me/avatar", avatarLimit, h.User.UploadAvatar)

		protected.POST("/products", uploadLimit, h.Product.Create)

		listing := protected.Group("/products/:listingId")
		listing.Use(middleware.ValidateIDParams("listingId"))
		{
			listing.PATCH("", uploadLimit, h.Product.Update)
			listing.DELETE("", h.Product.Delete)
			listing.POST("/images", uploadLimit, h.Product.AddImages)
			listing.DELETE("/images/:imageId", middleware.ValidateIDParams("imageId"), h.Product.RemoveImage)

			listing.GET("/offers", h.Offer.List)
			listing.POST("/offers", h.Offer.Create)
			listing.PATCH("/offers", h.Offer.UpdateForListing)

			listing.POST("/reviews", h.Review.Create)
		}

		protected.PATCH("/offers/:offerId", middleware.ValidateIDParams("offerId"), h.Offer.Update)

		protected.GET("/transactions/purchases", h.Transaction.Purchases)
		protected.GET("/transactions/sent-offers", h.Transaction.SentOffers)
		protected.GET("/transactions/received-offers", h.Transaction.ReceivedOffers)
		protected.POST("/transactions/:transactionId/complete", middleware.ValidateIDParams("transactionId"), h.Transaction.Complete)

		protected.GET("/notifications", h.Notification.List)
		protected.PATCH("/notifications/:id/read", middleware.ValidateIDParams("id"), h.Notification.MarkAsRead)
		protected.POST("/notifications/read-all", h.Notification.MarkAllAsRead)
	}

	return r
}
