package validation

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/h2non/filetype"
)

// sniffLen количество байт, достаточное для определения типа.
const sniffLen = 512

var (
	ErrEmptyFile    = errors.New("file is empty")
	ErrNotAnImage   = errors.New("only image files are allowed")
	ErrFileTooLarge = errors.New("file is too large")
)

// ImageInfo результат проверки загруженного изображения.
type ImageInfo struct {
	ContentType string
	Extension   string
}

// SniffImage определяет тип по магическим байтам. Заголовок Content-Type клиента не учитывается.
func SniffImage(head []byte) (ImageInfo, error) {
	if len(head) == 0 {
		return ImageInfo{}, ErrEmptyFile
	}

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return ImageInfo{}, ErrNotAnImage
	}
	if !strings.HasPrefix(kind.MIME.Value, "image/") {
		return ImageInfo{}, ErrNotAnImage
	}

	return ImageInfo{ContentType: kind.MIME.Value, Extension: "." + kind.Extension}, nil
}

// ValidateImage проверяет размер и тип файла и возвращает позицию чтения в начало.
func ValidateImage(r io.ReadSeeker, size, maxBytes int64) (ImageInfo, error) {
	if size <= 0 {
		return ImageInfo{}, ErrEmptyFile
	}
	if maxBytes > 0 && size > maxBytes {
		return ImageInfo{}, fmt.Errorf("%w: maximum is %d MB", ErrFileTooLarge, maxBytes/(1024*1024))
	}

	buffer := make([]byte, sniffLen)
	n, err := io.ReadFull(r, buffer)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return ImageInfo{}, fmt.Errorf("read file: %w", err)
	}

	info, err := SniffImage(buffer[:n])
	if err != nil {
		return ImageInfo{}, err
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return ImageInfo{}, fmt.Errorf("rewind file: %w", err)
	}

	return info, nil
}
