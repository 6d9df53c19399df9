package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// RemoteStorage объектное хранилище с REST API вида
// /storage/v1/object/{bucket}/{key}.
type RemoteStorage struct {
	client  *resty.Client
	baseURL string
	bucket  string
}

// NewRemoteStorage создаёт клиента объектного хранилища.
func NewRemoteStorage(baseURL, bucket, apiKey string) *RemoteStorage {
	baseURL = strings.TrimRight(baseURL, "/")

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(300*time.Millisecond).
		SetAuthToken(apiKey).
		SetHeader("apikey", apiKey)

	return &RemoteStorage{client: client, baseURL: baseURL, bucket: bucket}
}

// Put загружает объект. Существующий ключ перезаписывается.
func (s *RemoteStorage) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error) {
	if !validKey(key) {
		return "", fmt.Errorf("storage: некорректный ключ %q", key)
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("storage: ошибка чтения файла: %w", err)
	}
	if size > 0 && int64(len(body)) != size {
		return "", fmt.Errorf("storage: ожидалось %d байт, прочитано %d", size, len(body))
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "true").
		SetBody(body).
		Post(s.objectPath(key))
	if err != nil {
		return "", fmt.Errorf("storage: загрузка %s: %w", key, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("storage: загрузка %s: статус %d: %s", key, resp.StatusCode(), resp.String())
	}

	return s.PublicURL(key), nil
}

// Delete удаляет объект. 404 считается успехом.
func (s *RemoteStorage) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("storage: некорректный ключ %q", key)
	}

	resp, err := s.client.R().
		SetContext(ctx).
		Delete(s.objectPath(key))
	if err != nil {
		return fmt.Errorf("storage: удаление %s: %w", key, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil
	}
	if resp.IsError() {
		return fmt.Errorf("storage: удаление %s: статус %d: %s", key, resp.StatusCode(), resp.String())
	}
	return nil
}

// PublicURL возвращает публичную ссылку на объект.
func (s *RemoteStorage) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, key)
}

func (s *RemoteStorage) objectPath(key string) string {
	return fmt.Sprintf("/storage/v1/object/%s/%s", s.bucket, key)
}
