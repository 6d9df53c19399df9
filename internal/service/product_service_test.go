package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/pkg/apperror"
	"github.com/secondhand/marketplace-backend/internal/repository"
)

type mockProductRepo struct {
	mock.Mock
}

func (m *mockProductRepo) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *mockProductRepo) GetSummary(ctx context.Context, id int64) (*models.ProductSummary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductSummary), args.Error(1)
}

func (m *mockProductRepo) List(ctx context.Context, filter models.ProductFilter) ([]models.ProductSummary, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.ProductSummary), args.Int(1), args.Error(2)
}

func (m *mockProductRepo) CreateWithImages(ctx context.Context, product *models.Product, images []models.NewImage) ([]models.ProductImage, error) {
	args := m.Called(ctx, product, images)
	if args.Error(1) == nil {
		product.ID = 10
		product.IsAvail = true
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProductImage), args.Error(1)
}

func (m *mockProductRepo) UpdateWithImages(ctx context.Context, id int64, upd models.ProductUpdate, removeIDs []int64, images []models.NewImage, coverID *int64, maxImages int) (*models.Product, []models.ProductImage, []models.ProductImage, error) {
	args := m.Called(ctx, id, upd, removeIDs, images, coverID, maxImages)
	if args.Get(0) == nil {
		return nil, nil, nil, args.Error(3)
	}
	return args.Get(0).(*models.Product), args.Get(1).([]models.ProductImage), args.Get(2).([]models.ProductImage), args.Error(3)
}

func (m *mockProductRepo) Delete(ctx context.Context, id int64) ([]string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockCategoryRepo struct {
	mock.Mock
}

func (m *mockCategoryRepo) List(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *mockCategoryRepo) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockRatingReader struct {
	mock.Mock
}

func (m *mockRatingReader) GetSellerSummary(ctx context.Context, sellerID int64) (*models.SellerSummary, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SellerSummary), args.Error(1)
}

// fakeImageRepo таблица product_images в памяти с тем же лимитом, что и в БД.
type fakeImageRepo struct {
	mu     sync.Mutex
	nextID int64
	images map[int64][]models.ProductImage
}

func newFakeImageRepo() *fakeImageRepo {
	return &fakeImageRepo{images: make(map[int64][]models.ProductImage)}
}

func (r *fakeImageRepo) ListByProduct(ctx context.Context, productID int64) ([]models.ProductImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ProductImage{}, r.images[productID]...), nil
}

func (r *fakeImageRepo) CountByProduct(ctx context.Context, productID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.images[productID]), nil
}

func (r *fakeImageRepo) Attach(ctx context.Context, productID int64, images []models.NewImage, maxImages int) ([]models.ProductImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.images[productID]
	if len(current)+len(images) > maxImages {
		return nil, &repository.ImageLimitError{Limit: maxImages, Remaining: maxImages - len(current)}
	}
	for _, img := range images {
		r.nextID++
		current = append(current, models.ProductImage{
			ID:           r.nextID,
			ProductID:    productID,
			StorageKey:   img.StorageKey,
			URL:          img.URL,
			DisplayOrder: len(current) + 1,
			IsCover:      len(current) == 0,
		})
	}
	r.images[productID] = current
	return append([]models.ProductImage{}, current...), nil
}

func (r *fakeImageRepo) Delete(ctx context.Context, productID, imageID int64) (*models.ProductImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.images[productID]
	for i, img := range current {
		if img.ID == imageID {
			r.images[productID] = append(current[:i:i], current[i+1:]...)
			return &img, nil
		}
	}
	return nil, repository.ErrImageNotFound
}

type productServiceFixture struct {
	svc        *ProductService
	products   *mockProductRepo
	images     *fakeImageRepo
	categories *mockCategoryRepo
	ratings    *mockRatingReader
	store      *fakeBlobStorage
	queue      *fakeDeletionQueue
}

func newProductServiceFixture() *productServiceFixture {
	f := &productServiceFixture{
		products:   new(mockProductRepo),
		images:     newFakeImageRepo(),
		categories: new(mockCategoryRepo),
		ratings:    new(mockRatingReader),
		store:      newFakeBlobStorage(),
		queue:      newFakeDeletionQueue(),
	}
	cleaner := NewBlobCleaner(f.store, f.queue)
	uploader := NewImageUploader(f.store, cleaner, 5*1024*1024)
	f.svc = NewProductService(f.products, f.images, f.categories, f.ratings, uploader, cleaner, 5)
	return f
}

func (f *productServiceFixture) expectDetail(ctx context.Context, product *models.Product) {
	f.products.On("GetSummary", ctx, product.ID).Return(&models.ProductSummary{Product: *product, CategoryName: "Bikes"}, nil)
	f.ratings.On("GetSellerSummary", ctx, product.SellerID).Return(&models.SellerSummary{ID: product.SellerID, Username: "seller", AverageRating: 4.5, ReviewCount: 2}, nil)
}

func TestProductService_CreateListing(t *testing.T) {
	f := newProductServiceFixture()
	ctx := context.Background()

	f.categories.On("Exists", ctx, int64(3)).Return(true, nil)
	f.products.On("CreateWithImages", ctx, mock.AnythingOfType("*models.Product"), mock.MatchedBy(func(imgs []models.NewImage) bool {
		return len(imgs) == 2
	})).Return([]models.ProductImage{}, nil)
	f.expectDetail(ctx, &models.Product{ID: 10, SellerID: testSellerID, CategoryID: 3, Name: "Road bike", Price: 1000, IsAvail: true})

	detail, err := f.svc.CreateListing(ctx, testSellerID, CreateListingInput{
		CategoryID: 3,
		Name:       "  Road bike ",
		Price:      1000,
		Condition:  models.ConditionLikeNew,
		Location:   "Berlin",
		Files:      pngUploads(2),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), detail.ID)
	assert.Equal(t, "Bikes", detail.CategoryName)
	assert.Equal(t, 4.5, detail.Seller.AverageRating)
	assert.Equal(t, 2, f.store.count())

	created := f.products.Calls[0].Arguments.Get(1).(*models.Product)
	assert.Equal(t, "Road bike", created.Name)
}

func TestProductService_CreateListing_DiscardsBlobsOnDBFailure(t *testing.T) {
	f := newProductServiceFixture()
	ctx := context.Background()

	f.categories.On("Exists", ctx, int64(3)).Return(true, nil)
	f.products.On("CreateWithImages", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	_, err := f.svc.CreateListing(ctx, testSellerID, CreateListingInput{
		CategoryID: 3,
		Name:       "Road bike",
		Price:      1000,
		Condition:  models.ConditionLikeNew,
		Files:      pngUploads(3),
	})
	require.Error(t, err)
	assert.Equal(t, 3, f.store.puts)
	assert.Zero(t, f.store.count())
}

func TestProductService_CreateListing_Validation(t *testing.T) {
	f := newProductServiceFixture()
	ctx := context.Background()

	_, err := f.svc.CreateListing(ctx, testSellerID, CreateListingInput{CategoryID: 3, Name: "Bike", Price: 0, Condition: models.ConditionLikeNew})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Price must be a positive number")

	_, err = f.svc.CreateListing(ctx, testSellerID, CreateListingInput{CategoryID: 3, Name: "Bike", Price: 10, Condition: "Mint"})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.CreateListing(ctx, testSellerID, CreateListingInput{CategoryID: 3, Name: "Bike", Price: 10, Condition: models.ConditionLikeNew, Files: pngUploads(6)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "You can only upload 5 more image(s)")

	f.categories.On("Exists", ctx, int64(99)).Return(false, nil)
	_, err = f.svc.CreateListing(ctx, testSellerID, CreateListingInput{CategoryID: 99, Name: "Bike", Price: 10, Condition: models.ConditionLikeNew, Files: pngUploads(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Category not found")
	assert.Zero(t, f.store.puts)
}

// Шесть загрузок по одной: пять проходят, шестая отклоняется с числом свободных мест.
func TestProductService_AddImages_SixthRejected(t *testing.T) {
	f := newProductServiceFixture()
	ctx := context.Background()
	f.products.On("GetByID", ctx, int64(10)).Return(testListing(), nil)

	for i := 0; i < 5; i++ {
		images, err := f.svc.AddImages(ctx, 10, testSellerID, pngUploads(1))
		require.NoError(t, err, "upload %d", i+1)
		assert.Len(t, images, i+1)
	}

	_, err := f.svc.AddImages(ctx, 10, testSellerID, pngUploads(1))
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "This listing already has 5 images")
	assert.Equal(t, 5, f.store.puts)

	stored, err := f.images.ListByProduct(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 5)
	assert.True(t, stored[0].IsCover)
}

func TestProductService_AddImages_BatchOverLimit(t *testing.T) {
	f := newProductServiceFixture()
	ctx := context.Background()
	f.products.On("GetByID", ctx, int64(10)).Return(testListing(), nil)

	_, err := f.svc.AddImages(ctx, 10, testSellerID, pngUploads(3))
	require.NoError(t, err)

	_, err = f.svc.AddImages(ctx, 10, testSellerID, pngUploads(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "You can only upload 2 more image(s)")
	assert.Equal(t, 3, f.store.puts)
}

func TestProductService_AddImages_LimitRaceDiscardsBlobs(t *testing.T) {
	f := newProductServiceFixture()
	ctx := context.Background()
	f.products.On("GetByID", ctx, int64(10)).Return(testListing(), nil)

	// Параллельная загрузка заняла места между предварительной проверкой и блокировкой.
	images := &racingImageRepo{fakeImageRepo: f.images}
	f.svc.images = images

	_, err := f.svc.AddImages(ctx, 10, testSellerID, pngUploads(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "You can only upload 1 more image(s)")
	assert.Equal(t, 2, f.store.puts)
	assert.Zero(t, f.store.count())
}

type racingImageRepo struct {
	*fakeImageRepo
}

func (r *racingImageRepo) Attach(ctx context.Context, productID int64, images []models.NewImage, maxImages int) ([]models.ProductImage, error) {
	return nil, &repository.ImageLimitError{Limit: maxImages, Remaining: 1}
}

func TestProductService_AddImages_Ownership(t *testing.T) {
	f := newProductServiceFixture()
	ctx := context.Background()

	sold := testListing()
	sold.ID = 11
	sold.IsAvail = false
	f.products.On("GetByID", ctx, int64(10)).Return(testListing(), nil)
	f.products.On("GetByID", ctx, int64(11)).Return(sold, nil)

	_, err := f.svc.AddImages(ctx, 10, testBuyerID, pngUploads(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "You can only edit your own listings")

	_, err = f.svc.AddImages(ctx, 11, testSellerID, pngUploads(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Sold listings cannot be edited")
	assert.Zero(t, f.store.puts)
}

func TestProductService_UpdateListing(t *testing.T) {
	f := newProductServiceFixture()
	ctx := context.Background()

	f.products.On("GetByID", ctx, int64(10)).Return(testListing(), nil)
	f.store.objects["listings/1/old.png"] = testPNG

	newName := "  Gravel bike "
	price := 900.0
	removed := []models.ProductImage{{ID: 5, ProductID: 10, StorageKey: "listings/1/old.png"}}
	f.products.On("UpdateWithImages", ctx, int64(10),
		mock.MatchedBy(func(u models.ProductUpdate) bool { return u.Name != nil && *u.Name == "Gravel bike" }),
		[]int64{5}, mock.MatchedBy(func(imgs []models.NewImage) bool { return len(imgs) == 1 }), (*int64)(nil), 5,
	).Return(testListing(), removed, []models.ProductImage{}, nil)
	f.expectDetail(ctx, testListing())

	_, err := f.svc.UpdateListing(ctx, 10, testSellerID, UpdateListingInput{
		Update:         models.ProductUpdate{Name: &newName, Price: &price},
		RemoveImageIDs: []int64{5},
		Files:          pngUploads(1),
	})
	require.NoError(t, err)
	assert.False(t, f.store.has("listings/1/old.png"))
	assert.Equal(t, 1, f.store.count())
}

func TestProductService_UpdateListing_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("not owner", func(t *testing.T) {
		f := newProductServiceFixture()
		f.products.On("GetByID", ctx, int64(10)).Return(testListing(), nil)
		name := "x"
		_, err := f.svc.UpdateListing(ctx, 10, testBuyerID, UpdateListingInput{Update: models.ProductUpdate{Name: &name}})
		require.Error(t, err)
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("nothing to update", func(t *testing.T) {
		f := newProductServiceFixture()
		f.products.On("GetByID", ctx, int64(10)).Return(testListing(), nil)
		_, err := f.svc.UpdateListing(ctx, 10, testSellerID, UpdateListingInput{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Nothing to update")
	})

	t.Run("sold during edit", func(t *testing.T) {
		f := newProductServiceFixture()
		f.products.On("GetByID", ctx, int64(10)).Return(testListing(), nil)
		f.products.On("UpdateWithImages", ctx, int64(10), mock.Anything, mock.Anything, mock.Anything, mock.Anything, 5).
			Return(nil, nil, nil, fmt.Errorf("tx error: %w", repository.ErrProductUnavailable))

		_, err := f.svc.UpdateListing(ctx, 10, testSellerID, UpdateListingInput{Files: pngUploads(2)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Sold listings cannot be edited")
		assert.Zero(t, f.store.count(), "uploaded blobs must be discarded")
	})
}

func TestProductService_DeleteListing(t *testing.T) {
	f := newProductServiceFixture()
	ctx := context.Background()

	f.products.On("GetByID", ctx, int64(10)).Return(testListing(), nil)
	f.products.On("Delete", ctx, int64(10)).Return([]string{"listings/1/a.png", "listings/1/b.png"}, nil)
	f.store.objects["listings/1/a.png"] = testPNG
	f.store.objects["listings/1/b.png"] = testPNG
	f.store.failDelete["listings/1/b.png"] = true

	require.NoError(t, f.svc.DeleteListing(ctx, 10, testSellerID))
	assert.False(t, f.store.has("listings/1/a.png"))
	assert.Equal(t, []string{"listings/1/b.png"}, f.queue.keys())
}

func TestProductService_DeleteListing_Failures(t *testing.T) {
	f := newProductServiceFixture()
	ctx := context.Background()

	sold := testListing()
	sold.ID = 11
	f.products.On("GetByID", ctx, int64(10)).Return(testListing(), nil)
	f.products.On("GetByID", ctx, int64(11)).Return(sold, nil)
	f.products.On("GetByID", ctx, int64(404)).Return(nil, repository.ErrProductNotFound)
	f.products.On("Delete", ctx, int64(11)).Return(nil, repository.ErrProductHasTransaction)

	err := f.svc.DeleteListing(ctx, 10, testBuyerID)
	assert.Contains(t, err.Error(), "You can only delete your own listings")

	err = f.svc.DeleteListing(ctx, 11, testSellerID)
	assert.Contains(t, err.Error(), "Sold listings cannot be deleted")

	err = f.svc.DeleteListing(ctx, 404, testSellerID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestProductService_RemoveImage(t *testing.T) {
	f := newProductServiceFixture()
	ctx := context.Background()
	f.products.On("GetByID", ctx, int64(10)).Return(testListing(), nil)

	images, err := f.svc.AddImages(ctx, 10, testSellerID, pngUploads(2))
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveImage(ctx, 10, images[0].ID, testSellerID))
	assert.False(t, f.store.has(images[0].StorageKey))
	assert.True(t, f.store.has(images[1].StorageKey))

	err = f.svc.RemoveImage(ctx, 10, 999, testSellerID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Image not found")
}

func TestProductService_ListListings(t *testing.T) {
	f := newProductServiceFixture()
	ctx := context.Background()

	f.products.On("List", ctx, models.ProductFilter{OnlyAvailable: true, Limit: 20}).
		Return([]models.ProductSummary{{Product: *testListing()}}, 1, nil)

	items, total, err := f.svc.ListListings(ctx, models.ProductFilter{OnlyAvailable: true, Limit: 500, Offset: -1})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, total)

	minPrice, maxPrice := 100.0, 50.0
	_, _, err = f.svc.ListListings(ctx, models.ProductFilter{MinPrice: &minPrice, MaxPrice: &maxPrice})
	assert.True(t, apperror.IsValidation(err))
}

func TestProductService_GetListingNotFound(t *testing.T) {
	f := newProductServiceFixture()
	ctx := context.Background()
	f.products.On("GetSummary", ctx, int64(404)).Return(nil, repository.ErrProductNotFound)

	_, err := f.svc.GetListing(ctx, 404)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Product not found")
}

func TestProductService_CachesCategoriesAndSellerSummary(t *testing.T) {
	f := newProductServiceFixture()
	cache := NewCacheService()
	f.svc.WithCache(cache)
	ctx := context.Background()

	f.categories.On("List", ctx).Return([]models.Category{{ID: 1, Name: "Bikes", Slug: "bikes"}}, nil).Once()
	for i := 0; i < 3; i++ {
		cats, err := f.svc.ListCategories(ctx)
		require.NoError(t, err)
		assert.Len(t, cats, 1)
	}
	f.categories.AssertNumberOfCalls(t, "List", 1)

	f.expectDetail(ctx, testListing())
	_, err := f.svc.GetListing(ctx, 10)
	require.NoError(t, err)
	_, err = f.svc.GetListing(ctx, 10)
	require.NoError(t, err)
	f.ratings.AssertNumberOfCalls(t, "GetSellerSummary", 1)

	cache.InvalidateSeller(testSellerID)
	_, err = f.svc.GetListing(ctx, 10)
	require.NoError(t, err)
	f.ratings.AssertNumberOfCalls(t, "GetSellerSummary", 2)
}
