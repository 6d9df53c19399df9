package service

import (
	"context"
	"errors"
	"strings"

	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/pkg/apperror"
	"github.com/secondhand/marketplace-backend/internal/repository"
	"github.com/secondhand/marketplace-backend/internal/storage"
	"github.com/secondhand/marketplace-backend/internal/validation"
)

// ProductRepository операции над объявлениями.
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	GetSummary(ctx context.Context, id int64) (*models.ProductSummary, error)
	List(ctx context.Context, filter models.ProductFilter) ([]models.ProductSummary, int, error)
	CreateWithImages(ctx context.Context, product *models.Product, images []models.NewImage) ([]models.ProductImage, error)
	UpdateWithImages(ctx context.Context, id int64, upd models.ProductUpdate, removeIDs []int64, images []models.NewImage, coverID *int64, maxImages int) (*models.Product, []models.ProductImage, []models.ProductImage, error)
	Delete(ctx context.Context, id int64) ([]string, error)
}

// ProductImageRepository операции над изображениями объявления.
type ProductImageRepository interface {
	ListByProduct(ctx context.Context, productID int64) ([]models.ProductImage, error)
	CountByProduct(ctx context.Context, productID int64) (int, error)
	Attach(ctx context.Context, productID int64, images []models.NewImage, maxImages int) ([]models.ProductImage, error)
	Delete(ctx context.Context, productID, imageID int64) (*models.ProductImage, error)
}

// CategoryRepository справочник категорий.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// SellerRatingReader агрегат рейтинга продавца.
type SellerRatingReader interface {
	GetSellerSummary(ctx context.Context, sellerID int64) (*models.SellerSummary, error)
}

// CreateListingInput поля нового объявления и его изображения.
type CreateListingInput struct {
	CategoryID  int64
	Name        string
	Price       float64
	Condition   string
	Description string
	Location    string
	Files       []FileUpload
}

// UpdateListingInput изменения объявления. Пустые поля не меняются.
type UpdateListingInput struct {
	Update         models.ProductUpdate
	RemoveImageIDs []int64
	CoverImageID   *int64
	Files          []FileUpload
}

func (in UpdateListingInput) isEmpty() bool {
	u := in.Update
	return u.CategoryID == nil && u.Name == nil && u.Price == nil && u.Condition == nil &&
		u.Description == nil && u.Location == nil &&
		len(in.RemoveImageIDs) == 0 && in.CoverImageID == nil && len(in.Files) == 0
}

// ProductService жизненный цикл объявления: создание, правка, изображения, удаление.
type ProductService struct {
	products   ProductRepository
	images     ProductImageRepository
	categories CategoryRepository
	ratings    SellerRatingReader
	uploader   *ImageUploader
	cleaner    *BlobCleaner
	cache      *CacheService
	maxImages  int
}

// NewProductService создаёт сервис объявлений.
func NewProductService(
	products ProductRepository,
	images ProductImageRepository,
	categories CategoryRepository,
	ratings SellerRatingReader,
	uploader *ImageUploader,
	cleaner *BlobCleaner,
	maxImages int,
) *ProductService {
	return &ProductService{
		products:   products,
		images:     images,
		categories: categories,
		ratings:    ratings,
		uploader:   uploader,
		cleaner:    cleaner,
		maxImages:  maxImages,
	}
}

var (
	errProductNotFound       = apperror.New(apperror.ErrCodeNotFound, "Product not found")
	errProductUnavailable    = apperror.New(apperror.ErrCodeConflict, "Product is no longer available")
	errSoldListingEdit       = apperror.New(apperror.ErrCodeConflict, "Sold listings cannot be edited")
	errSoldListingDelete     = apperror.New(apperror.ErrCodeConflict, "Sold listings cannot be deleted")
	errNotListingOwnerEdit   = apperror.New(apperror.ErrCodeForbidden, "You can only edit your own listings")
	errNotListingOwnerDelete = apperror.New(apperror.ErrCodeForbidden, "You can only delete your own listings")
	errCategoryNotFound      = apperror.New(apperror.ErrCodeValidation, "Category not found")
	errImageNotFound         = apperror.New(apperror.ErrCodeNotFound, "Image not found")
)

// WithCache включает кэширование категорий и рейтингов продавцов.
func (s *ProductService) WithCache(cache *CacheService) *ProductService {
	s.cache = cache
	return s
}

// ListCategories возвращает справочник категорий.
func (s *ProductService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return GetOrSet(s.cache, categoriesCacheKey, categoriesCacheTTL, func() ([]models.Category, error) {
		return s.categories.List(ctx)
	})
}

// ListListings возвращает страницу объявлений и общее количество.
func (s *ProductService) ListListings(ctx context.Context, filter models.ProductFilter) ([]models.ProductSummary, int, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, 0, apperror.New(apperror.ErrCodeValidation, "min_price cannot exceed max_price")
	}
	return s.products.List(ctx, filter)
}

// GetListing возвращает карточку объявления с изображениями и рейтингом продавца.
func (s *ProductService) GetListing(ctx context.Context, listingID int64) (*models.ProductDetail, error) {
	summary, err := s.products.GetSummary(ctx, listingID)
	if err != nil {
		return nil, mapProductError(err)
	}

	images, err := s.images.ListByProduct(ctx, listingID)
	if err != nil {
		return nil, err
	}

	seller, err := GetOrSet(s.cache, SellerSummaryCacheKey(summary.SellerID), sellerSummaryCacheTTL, func() (*models.SellerSummary, error) {
		return s.ratings.GetSellerSummary(ctx, summary.SellerID)
	})
	if err != nil {
		return nil, mapUserError(err)
	}

	return &models.ProductDetail{
		Product:      summary.Product,
		CategoryName: summary.CategoryName,
		Images:       images,
		Seller:       *seller,
	}, nil
}

// CreateListing загружает изображения и создаёт объявление. Если запись в БД
// не удалась, загруженные файлы удаляются.
func (s *ProductService) CreateListing(ctx context.Context, sellerID int64, in CreateListingInput) (*models.ProductDetail, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)

	if err := validation.ValidateListingFields(in.Name, in.Price, in.Condition, in.Description, in.Location); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if len(in.Files) > s.maxImages {
		return nil, apperror.New(apperror.ErrCodeValidation, imageLimitMessage(s.maxImages, s.maxImages))
	}

	exists, err := s.categories.Exists(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errCategoryNotFound
	}

	uploaded, err := s.uploader.UploadAll(ctx, storage.ListingKeyPrefix(sellerID), in.Files)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		SellerID:    sellerID,
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		Price:       in.Price,
		Condition:   in.Condition,
		Description: in.Description,
		Location:    in.Location,
	}
	if _, err := s.products.CreateWithImages(ctx, product, uploaded); err != nil {
		s.uploader.Discard(ctx, uploaded)
		return nil, mapProductError(err)
	}

	return s.GetListing(ctx, product.ID)
}

// UpdateListing меняет поля и изображения объявления одной транзакцией.
// Файлы удалённых изображений стираются после фиксации.
func (s *ProductService) UpdateListing(ctx context.Context, listingID, sellerID int64, in UpdateListingInput) (*models.ProductDetail, error) {
	if _, err := s.ownedListing(ctx, listingID, sellerID, errNotListingOwnerEdit, errSoldListingEdit); err != nil {
		return nil, err
	}
	if in.isEmpty() {
		return nil, apperror.New(apperror.ErrCodeValidation, "Nothing to update")
	}
	in.Update.Name = trimPtr(in.Update.Name)
	in.Update.Description = trimPtr(in.Update.Description)
	in.Update.Location = trimPtr(in.Update.Location)
	if err := validation.ValidateProductUpdate(in.Update); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if len(in.Files) > s.maxImages {
		return nil, apperror.New(apperror.ErrCodeValidation, imageLimitMessage(s.maxImages, s.maxImages))
	}

	uploaded, err := s.uploader.UploadAll(ctx, storage.ListingKeyPrefix(sellerID), in.Files)
	if err != nil {
		return nil, err
	}

	_, removed, _, err := s.products.UpdateWithImages(ctx, listingID, in.Update, in.RemoveImageIDs, uploaded, in.CoverImageID, s.maxImages)
	if err != nil {
		s.uploader.Discard(ctx, uploaded)
		return nil, mapListingEditError(err)
	}

	s.cleaner.DeleteOrQueue(ctx, imageKeys(removed)...)

	return s.GetListing(ctx, listingID)
}

// DeleteListing удаляет объявление без сделок вместе с файлами изображений.
func (s *ProductService) DeleteListing(ctx context.Context, listingID, sellerID int64) error {
	product, err := s.products.GetByID(ctx, listingID)
	if err != nil {
		return mapProductError(err)
	}
	if product.SellerID != sellerID {
		return errNotListingOwnerDelete
	}

	keys, err := s.products.Delete(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrProductHasTransaction) {
			return errSoldListingDelete
		}
		return mapProductError(err)
	}

	s.cleaner.DeleteOrQueue(ctx, keys...)
	return nil
}

// ListImages возвращает изображения объявления.
func (s *ProductService) ListImages(ctx context.Context, listingID int64) ([]models.ProductImage, error) {
	if _, err := s.products.GetByID(ctx, listingID); err != nil {
		return nil, mapProductError(err)
	}
	return s.images.ListByProduct(ctx, listingID)
}

// AddImages добавляет изображения. Количество проверяется заранее, чтобы не
// загружать лишнее, и повторно под блокировкой объявления.
func (s *ProductService) AddImages(ctx context.Context, listingID, sellerID int64, files []FileUpload) ([]models.ProductImage, error) {
	if _, err := s.ownedListing(ctx, listingID, sellerID, errNotListingOwnerEdit, errSoldListingEdit); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "No images provided")
	}

	count, err := s.images.CountByProduct(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if remaining := s.maxImages - count; len(files) > remaining {
		return nil, apperror.New(apperror.ErrCodeValidation, imageLimitMessage(remaining, s.maxImages))
	}

	uploaded, err := s.uploader.UploadAll(ctx, storage.ListingKeyPrefix(sellerID), files)
	if err != nil {
		return nil, err
	}

	images, err := s.images.Attach(ctx, listingID, uploaded, s.maxImages)
	if err != nil {
		s.uploader.Discard(ctx, uploaded)
		return nil, mapListingEditError(err)
	}

	return images, nil
}

// RemoveImage удаляет изображение объявления и его файл.
func (s *ProductService) RemoveImage(ctx context.Context, listingID, imageID, sellerID int64) error {
	if _, err := s.ownedListing(ctx, listingID, sellerID, errNotListingOwnerEdit, errSoldListingEdit); err != nil {
		return err
	}

	removed, err := s.images.Delete(ctx, listingID, imageID)
	if err != nil {
		return mapListingEditError(err)
	}

	s.cleaner.DeleteOrQueue(ctx, removed.StorageKey)
	return nil
}

// ownedListing проверяет владельца и что объявление не продано.
func (s *ProductService) ownedListing(ctx context.Context, listingID, sellerID int64, notOwner, sold error) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, listingID)
	if err != nil {
		return nil, mapProductError(err)
	}
	if product.SellerID != sellerID {
		return nil, notOwner
	}
	if !product.IsAvail {
		return nil, sold
	}
	return product, nil
}

func mapProductError(err error) error {
	var limitErr *repository.ImageLimitError
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return errProductNotFound
	case errors.Is(err, repository.ErrProductUnavailable):
		return errProductUnavailable
	case errors.Is(err, repository.ErrCategoryNotFound):
		return errCategoryNotFound
	case errors.Is(err, repository.ErrImageNotFound):
		return errImageNotFound
	case errors.As(err, &limitErr):
		return apperror.New(apperror.ErrCodeValidation, imageLimitMessage(limitErr.Remaining, limitErr.Limit))
	default:
		return err
	}
}

// mapListingEditError как mapProductError, но продажа во время правки сообщается как запрет правки.
func mapListingEditError(err error) error {
	if errors.Is(err, repository.ErrProductUnavailable) {
		return errSoldListingEdit
	}
	return mapProductError(err)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func imageKeys(images []models.ProductImage) []string {
	keys := make([]string, 0, len(images))
	for _, img := range images {
		keys = append(keys, img.StorageKey)
	}
	return keys
}
