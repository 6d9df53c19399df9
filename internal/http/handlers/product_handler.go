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

// imagesField имя multipart поля с изображениями объявления.
const imagesField = "images"

// ProductUseCase операции над объявлениями и их изображениями.
type ProductUseCase interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListListings(ctx context.Context, filter models.ProductFilter) ([]models.ProductSummary, int, error)
	GetListing(ctx context.Context, listingID int64) (*models.ProductDetail, error)
	CreateListing(ctx context.Context, sellerID int64, in service.CreateListingInput) (*models.ProductDetail, error)
	UpdateListing(ctx context.Context, listingID, sellerID int64, in service.UpdateListingInput) (*models.ProductDetail, error)
	DeleteListing(ctx context.Context, listingID, sellerID int64) error
	AddImages(ctx context.Context, listingID, sellerID int64, files []service.FileUpload) ([]models.ProductImage, error)
	RemoveImage(ctx context.Context, listingID, imageID, sellerID int64) error
}

// ProductHandler обслуживает каталог, объявления и изображения.
type ProductHandler struct {
	products ProductUseCase
}

// NewProductHandler создаёт хэндлер.
func NewProductHandler(products ProductUseCase) *ProductHandler {
	return &ProductHandler{products: products}
}

// ListCategories обрабатывает GET /api/categories.
func (h *ProductHandler) ListCategories(c *gin.Context) {
	categories, err := h.products.ListCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, categories)
}

// List обрабатывает GET /api/products.
func (h *ProductHandler) List(c *gin.Context) {
	var query dto.ListProductsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, validation.DescribeBindingError(err))
		return
	}

	filter := query.Filter()
	items, total, err := h.products.ListListings(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, items, total, filter.Limit, filter.Offset)
}

// Get обрабатывает GET /api/products/:listingId.
func (h *ProductHandler) Get(c *gin.Context) {
	listingID, err := common.ParseIDParam(c, "listingId")
	if err != nil {
		response.BadRequest(c, "Invalid listing id")
		return
	}

	detail, err := h.products.GetListing(c.Request.Context(), listingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, detail)
}

// Create обрабатывает POST /api/products (multipart).
func (h *ProductHandler) Create(c *gin.Context) {
	sellerID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "")
		return
	}

	var form dto.CreateListingForm
	if err := c.ShouldBind(&form); err != nil {
		response.BadRequest(c, validation.DescribeBindingError(err))
		return
	}

	files, err := common.FileUploads(c, imagesField)
	if err != nil {
		response.BadRequest(c, "Invalid multipart form")
		return
	}

	detail, err := h.products.CreateListing(c.Request.Context(), sellerID, service.CreateListingInput{
		CategoryID:  form.CategoryID,
		Name:        form.Name,
		Price:       form.Price,
		Condition:   form.Condition,
		Description: form.Description,
		Location:    form.Location,
		Files:       files,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Listing created", detail)
}

// Update обрабатывает PATCH /api/products/:listingId (multipart).
func (h *ProductHandler) Update(c *gin.Context) {
	sellerID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "")
		return
	}

	listingID, err := common.ParseIDParam(c, "listingId")
	if err != nil {
		response.BadRequest(c, "Invalid listing id")
		return
	}

	var form dto.UpdateListingForm
	if err := c.ShouldBind(&form); err != nil {
		response.BadRequest(c, validation.DescribeBindingError(err))
		return
	}

	files, err := common.FileUploads(c, imagesField)
	if err != nil {
		response.BadRequest(c, "Invalid multipart form")
		return
	}

	detail, err := h.products.UpdateListing(c.Request.Context(), listingID, sellerID, service.UpdateListingInput{
		Update:         form.Update(),
		RemoveImageIDs: form.RemoveImageIDs,
		CoverImageID:   form.CoverImageID,
		Files:          files,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "Listing updated", detail)
}

// Delete обрабатывает DELETE /api/products/:listingId.
func (h *ProductHandler) Delete(c *gin.Context) {
	sellerID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "")
		return
	}

	listingID, err := common.ParseIDParam(c, "listingId")
	if err != nil {
		response.BadRequest(c, "Invalid listing id")
		return
	}

	if err := h.products.DeleteListing(c.Request.Context(), listingID, sellerID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "Listing deleted", nil)
}

// AddImages обрабатывает POST /api/products/:listingId/images.
func (h *ProductHandler) AddImages(c *gin.Context) {
	sellerID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "")
		return
	}

	listingID, err := common.ParseIDParam(c, "listingId")
	if err != nil {
		response.BadRequest(c, "Invalid listing id")
		return
	}

	files, err := common.FileUploads(c, imagesField)
	if err != nil {
		response.BadRequest(c, "Invalid multipart form")
		return
	}

	images, err := h.products.AddImages(c.Request.Context(), listingID, sellerID, files)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Images uploaded", dto.ImagesResponse{Images: images})
}

// RemoveImage обрабатывает DELETE /api/products/:listingId/images/:imageId.
func (h *ProductHandler) RemoveImage(c *gin.Context) {
	sellerID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "")
		return
	}

	listingID, err := common.ParseIDParam(c, "listingId")
	if err != nil {
		response.BadRequest(c, "Invalid listing id")
		return
	}
	imageID, err := common.ParseIDParam(c, "imageId")
	if err != nil {
		response.BadRequest(c, "Invalid image id")
		return
	}

	if err := h.products.RemoveImage(c.Request.Context(), listingID, imageID, sellerID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "Image removed", nil)
}
