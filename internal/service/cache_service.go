package service

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// CacheService кэш в памяти с TTL.
type CacheService struct {
	mu    sync.RWMutex
	cache map[string]*cacheEntry
	now   func() time.Time
}

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

const (
	categoriesCacheTTL    = 10 * time.Minute
	sellerSummaryCacheTTL = time.Minute
)

// NewCacheService создаёт кэш. Очистку устаревших записей запускает Run.
func NewCacheService() *CacheService {
	return &CacheService{
		cache: make(map[string]*cacheEntry),
		now:   time.Now,
	}
}

// Get возвращает значение, если оно есть и не устарело.
func (cs *CacheService) Get(key string) (interface{}, bool) {
	if cs == nil {
		return nil, false
	}
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	entry, exists := cs.cache[key]
	if !exists || cs.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

// Set сохраняет значение с TTL.
func (cs *CacheService) Set(key string, value interface{}, ttl time.Duration) {
	if cs == nil {
		return
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache[key] = &cacheEntry{
		data:      value,
		expiresAt: cs.now().Add(ttl),
	}
}

// Delete удаляет ключ.
func (cs *CacheService) Delete(key string) {
	if cs == nil {
		return
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.cache, key)
}

// InvalidateSeller сбрасывает агрегаты продавца после нового отзыва.
func (cs *CacheService) InvalidateSeller(sellerID int64) {
	cs.Delete(SellerSummaryCacheKey(sellerID))
}

// Run периодически удаляет устаревшие записи до отмены ctx.
func (cs *CacheService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cs.evictExpired()
		}
	}
}

func (cs *CacheService) evictExpired() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := cs.now()
	for key, entry := range cs.cache {
		if now.After(entry.expiresAt) {
			delete(cs.cache, key)
		}
	}
}

// Генераторы ключей
const categoriesCacheKey = "categories"

func SellerSummaryCacheKey(sellerID int64) string {
	return "seller:" + strconv.FormatInt(sellerID, 10) + ":summary"
}

// GetOrSet возвращает значение из кэша или вычисляет и сохраняет его.
func GetOrSet[T any](cs *CacheService, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	if value, found := cs.Get(key); found {
		if typed, ok := value.(T); ok {
			return typed, nil
		}
	}

	value, err := fn()
	if err != nil {
		var zero T
		return zero, err
	}

	cs.Set(key, value, ttl)
	return value, nil
}
