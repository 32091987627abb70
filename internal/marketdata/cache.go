package marketdata

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"advisor/internal/models"
	"advisor/pkg/retry"
)

// CacheConfig - параметры кэша рыночных данных
type CacheConfig struct {
	// PriceTTL - срок жизни текущей цены
	PriceTTL time.Duration

	// HistoryTTL - срок жизни исторической серии
	HistoryTTL time.Duration

	// SourceTimeout - таймаут на один вызов одного провайдера
	// Превышение трактуется как отказ провайдера, опрос идёт дальше
	SourceTimeout time.Duration

	// RetryAttempts - попыток на провайдера до перехода к следующему
	RetryAttempts int
}

// DefaultCacheConfig возвращает параметры по умолчанию
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		PriceTTL:      60 * time.Second,
		HistoryTTL:    1 * time.Hour,
		SourceTimeout: 10 * time.Second,
		RetryAttempts: 2,
	}
}

type cacheEntry struct {
	value     interface{}
	fetchedAt time.Time
}

// Cache - кэширующий фасад над цепочкой провайдеров рыночных данных
//
// Функции:
// - Кэширование с отдельным TTL для цен и истории
// - Упорядоченный fallback: провайдеры опрашиваются по приоритету
// - Склейка параллельных запросов одного ключа (singleflight)
// - DataUnavailableError с перечнем отказов при полном провале
type Cache struct {
	sources []PriceSource
	cfg     CacheConfig
	logger  *zap.Logger

	mu      sync.RWMutex
	entries map[string]cacheEntry

	group singleflight.Group

	// now переопределяется в тестах
	now func() time.Time
}

// NewCache создает кэш поверх провайдеров
// Порядок sources задаёт приоритет опроса
func NewCache(sources []PriceSource, cfg CacheConfig, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		sources: sources,
		cfg:     cfg,
		logger:  logger,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// GetPrice возвращает текущую цену инструмента
func (c *Cache) GetPrice(ctx context.Context, symbol string) (*models.PriceSnapshot, error) {
	key := fmt.Sprintf("%s:%s", KindPrice, symbol)

	value, err := c.get(ctx, key, KindPrice, symbol, c.cfg.PriceTTL,
		func(ctx context.Context, src PriceSource) (interface{}, error) {
			return src.FetchPrice(ctx, symbol)
		})
	if err != nil {
		return nil, err
	}
	return value.(*models.PriceSnapshot), nil
}

// GetHistory возвращает дневную серию за окно
func (c *Cache) GetHistory(ctx context.Context, symbol string, window models.Window) (models.PriceSeries, error) {
	key := fmt.Sprintf("%s:%s:%s", KindHistory, symbol, window)

	value, err := c.get(ctx, key, KindHistory, symbol, c.cfg.HistoryTTL,
		func(ctx context.Context, src PriceSource) (interface{}, error) {
			return src.FetchHistory(ctx, symbol, window)
		})
	if err != nil {
		return nil, err
	}
	return value.(models.PriceSeries), nil
}

// Invalidate сбрасывает кэш по инструменту (обе разновидности записей)
func (c *Cache) Invalidate(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, fmt.Sprintf("%s:%s", KindPrice, symbol))
	for key := range c.entries {
		if strings.HasPrefix(key, fmt.Sprintf("%s:%s:", KindHistory, symbol)) {
			delete(c.entries, key)
		}
	}
}

// get - общий путь чтения: кэш -> singleflight -> цепочка провайдеров
func (c *Cache) get(
	ctx context.Context,
	key, kind, symbol string,
	ttl time.Duration,
	fetch func(context.Context, PriceSource) (interface{}, error),
) (interface{}, error) {
	if value, ok := c.lookup(key, ttl); ok {
		RecordCacheHit(kind)
		return value, nil
	}
	RecordCacheMiss(kind)

	// Параллельные промахи одного ключа сливаются в один опрос провайдеров
	value, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Повторная проверка: запись могла появиться, пока мы ждали слот
		if value, ok := c.lookup(key, ttl); ok {
			return value, nil
		}

		value, err := c.fetchFallback(ctx, kind, symbol, fetch)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = cacheEntry{value: value, fetchedAt: c.now()}
		c.mu.Unlock()
		return value, nil
	})
	return value, err
}

func (c *Cache) lookup(key string, ttl time.Duration) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.fetchedAt) > ttl {
		return nil, false
	}
	return entry.value, true
}

// fetchFallback опрашивает провайдеров по порядку до первого успеха
// При полном провале возвращает DataUnavailableError со всеми отказами
func (c *Cache) fetchFallback(
	ctx context.Context,
	kind, symbol string,
	fetch func(context.Context, PriceSource) (interface{}, error),
) (interface{}, error) {
	failures := make([]SourceFailure, 0, len(c.sources))

	for _, src := range c.sources {
		value, err := c.fetchOne(ctx, src, fetch)
		if err == nil {
			return value, nil
		}

		c.logger.Warn("провайдер данных отказал, переходим к следующему",
			zap.String("source", src.Name()),
			zap.String("kind", kind),
			zap.String("symbol", symbol),
			zap.Error(err))

		failures = append(failures, SourceFailure{Source: src.Name(), Err: err})

		// Отмена контекста вызывающего - не отказ провайдера
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	RecordDataUnavailable(kind)
	return nil, &DataUnavailableError{
		Symbol:   symbol,
		Kind:     kind,
		Failures: failures,
	}
}

// fetchOne выполняет вызов одного провайдера с таймаутом и retry
func (c *Cache) fetchOne(
	ctx context.Context,
	src PriceSource,
	fetch func(context.Context, PriceSource) (interface{}, error),
) (interface{}, error) {
	start := time.Now()

	value, err := retry.DoWithResult(ctx, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.SourceTimeout)
		defer cancel()
		return fetch(callCtx, src)
	}, retry.Config{
		MaxRetries:   c.cfg.RetryAttempts,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
		RetryIf:      retry.RetryIfNotContext,
	})

	if err != nil {
		RecordSourceRequest(src.Name(), "error", time.Since(start).Seconds())
		return nil, err
	}
	RecordSourceRequest(src.Name(), "ok", time.Since(start).Seconds())
	return value, nil
}
