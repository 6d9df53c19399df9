package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/pkg/apperror"
	"github.com/secondhand/marketplace-backend/internal/storage"
	"github.com/secondhand/marketplace-backend/internal/validation"
)

// FileUpload файл из multipart-запроса.
type FileUpload struct {
	Filename string
	Size     int64
	Open     func() (io.ReadSeekCloser, error)
}

// ImageUploader проверяет и загружает изображения в хранилище.
type ImageUploader struct {
	storage  storage.BlobStorage
	cleaner  *BlobCleaner
	maxBytes int64
}

// NewImageUploader создаёт загрузчик изображений.
func NewImageUploader(storage storage.BlobStorage, cleaner *BlobCleaner, maxBytes int64) *ImageUploader {
	return &ImageUploader{storage: storage, cleaner: cleaner, maxBytes: maxBytes}
}

// UploadAll проверяет и загружает файлы под префиксом. При любой ошибке
// уже загруженные файлы удаляются, и вызывающий не получает ничего.
func (u *ImageUploader) UploadAll(ctx context.Context, prefix string, files []FileUpload) ([]models.NewImage, error) {
	uploaded := make([]models.NewImage, 0, len(files))
	for _, f := range files {
		img, err := u.upload(ctx, prefix, f)
		if err != nil {
			u.Discard(ctx, uploaded)
			return nil, err
		}
		uploaded = append(uploaded, img)
	}
	return uploaded, nil
}

// Discard удаляет загруженные файлы, если запись в БД не состоялась.
func (u *ImageUploader) Discard(ctx context.Context, images []models.NewImage) {
	if len(images) == 0 {
		return
	}
	keys := make([]string, 0, len(images))
	for _, img := range images {
		keys = append(keys, img.StorageKey)
	}
	u.cleaner.DeleteOrQueue(ctx, keys...)
}

func (u *ImageUploader) upload(ctx context.Context, prefix string, f FileUpload) (models.NewImage, error) {
	file, err := f.Open()
	if err != nil {
		return models.NewImage{}, fmt.Errorf("image uploader: open %s: %w", f.Filename, err)
	}
	defer file.Close()

	info, err := validation.ValidateImage(file, f.Size, u.maxBytes)
	if err != nil {
		return models.NewImage{}, imageValidationError(f.Filename, err)
	}

	key := storage.NewKey(prefix, info.Extension)
	url, err := u.storage.Put(ctx, key, info.ContentType, file, f.Size)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return models.NewImage{}, imageValidationError(f.Filename, validation.ErrFileTooLarge)
		}
		return models.NewImage{}, apperror.Wrap(err, apperror.ErrCodeStorageError, "Failed to upload image")
	}

	return models.NewImage{StorageKey: key, URL: url}, nil
}

func imageValidationError(filename string, err error) error {
	switch {
	case errors.Is(err, validation.ErrFileTooLarge), errors.Is(err, validation.ErrNotAnImage), errors.Is(err, validation.ErrEmptyFile):
		if filename == "" {
			return apperror.New(apperror.ErrCodeValidation, capitalize(err.Error()))
		}
		return apperror.Newf(apperror.ErrCodeValidation, "%s: %s", filename, err.Error())
	default:
		return apperror.Wrap(err, apperror.ErrCodeBadRequest, "Failed to read uploaded file")
	}
}

// imageLimitMessage сообщение о превышении лимита изображений.
func imageLimitMessage(remaining, limit int) string {
	if remaining <= 0 {
		return fmt.Sprintf("This listing already has %d images", limit)
	}
	return fmt.Sprintf("You can only upload %d more image(s)", remaining)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
