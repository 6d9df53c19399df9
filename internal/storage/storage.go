package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrTooLarge файл превышает допустимый размер.
var ErrTooLarge = errors.New("storage: file exceeds size limit")

// BlobStorage хранилище файлов объявлений и аватаров.
type BlobStorage interface {
	// Put сохраняет содержимое под ключом и возвращает публичный URL.
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error)
	// Delete удаляет файл. Отсутствующий файл ошибкой не считается.
	Delete(ctx context.Context, key string) error
}

// NewKey генерирует ключ вида "<prefix>/<uuid><ext>".
func NewKey(prefix, ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join(sanitizeSegment(prefix), uuid.NewString()+ext)
}

// ListingKeyPrefix префикс ключей изображений объявлений продавца. Ключ не
// зависит от id объявления, файлы загружаются до вставки строки.
func ListingKeyPrefix(sellerID int64) string {
	return fmt.Sprintf("listings/%d", sellerID)
}

// AvatarKeyPrefix префикс ключей аватаров пользователя.
func AvatarKeyPrefix(userID int64) string {
	return fmt.Sprintf("avatars/%d", userID)
}

// sanitizeSegment удаляет потенциально опасные символы из префикса.
func sanitizeSegment(prefix string) string {
	prefix = strings.ReplaceAll(prefix, "\\", "/")
	parts := strings.Split(prefix, "/")
	clean := parts[:0]
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		clean = append(clean, p)
	}
	if len(clean) == 0 {
		return "misc"
	}
	return strings.Join(clean, "/")
}

// validKey проверяет, что ключ не выходит за пределы хранилища.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for _, p := range strings.Split(key, "/") {
		if p == "" || p == "." || p == ".." {
			return false
		}
	}
	return true
}
