package marketdata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"advisor/internal/models"
)

// fakeSource - управляемый провайдер для тестов кэша
type fakeSource struct {
	name       string
	price      float64
	err        error
	delay      time.Duration
	priceCalls int64
	histCalls  int64
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchPrice(ctx context.Context, symbol string) (*models.PriceSnapshot, error) {
	atomic.AddInt64(&f.priceCalls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.PriceSnapshot{
		Symbol:   symbol,
		Price:    f.price,
		AsOf:     time.Now(),
		SourceID: f.name,
	}, nil
}

func (f *fakeSource) FetchHistory(ctx context.Context, symbol string, window models.Window) (models.PriceSeries, error) {
	atomic.AddInt64(&f.histCalls, 1)
	if f.err != nil {
		return nil, f.err
	}
	days, _ := window.Days()
	series := make(models.PriceSeries, days)
	for i := range series {
		series[i] = models.Candle{Close: f.price, Time: time.Now().AddDate(0, 0, i-days)}
	}
	return series, nil
}

func testCacheConfig() CacheConfig {
	return CacheConfig{
		PriceTTL:      60 * time.Second,
		HistoryTTL:    time.Hour,
		SourceTimeout: time.Second,
		RetryAttempts: 1, // без retry, чтобы счётчики вызовов были точными
	}
}

func TestCacheGetPriceCachesWithinTTL(t *testing.T) {
	src := &fakeSource{name: "primary", price: 100.5}
	cache := NewCache([]PriceSource{src}, testCacheConfig(), nil)

	for i := 0; i < 3; i++ {
		snap, err := cache.GetPrice(context.Background(), "AAPL")
		if err != nil {
			t.Fatalf("GetPrice: %v", err)
		}
		if snap.Price != 100.5 {
			t.Errorf("Price = %v, ожидалось 100.5", snap.Price)
		}
	}

	if calls := atomic.LoadInt64(&src.priceCalls); calls != 1 {
		t.Errorf("вызовов провайдера = %d, ожидался 1 (остальные из кэша)", calls)
	}
}

func TestCacheGetPriceRefetchesAfterTTL(t *testing.T) {
	src := &fakeSource{name: "primary", price: 100.5}
	cache := NewCache([]PriceSource{src}, testCacheConfig(), nil)

	now := time.Now()
	cache.now = func() time.Time { return now }

	if _, err := cache.GetPrice(context.Background(), "AAPL"); err != nil {
		t.Fatalf("GetPrice: %v", err)
	}

	// Сдвигаем часы за пределы TTL
	now = now.Add(61 * time.Second)

	if _, err := cache.GetPrice(context.Background(), "AAPL"); err != nil {
		t.Fatalf("GetPrice после TTL: %v", err)
	}
	if calls := atomic.LoadInt64(&src.priceCalls); calls != 2 {
		t.Errorf("вызовов провайдера = %d, ожидалось 2", calls)
	}
}

func TestCacheFallbackOrder(t *testing.T) {
	tests := []struct {
		name         string
		primaryErr   error
		backupErr    error
		wantSource   string
		wantErr      bool
		wantFailures int
	}{
		{
			name:       "основной работает - резерв не опрашивается",
			wantSource: "primary",
		},
		{
			name:       "основной отказал - берём резерв",
			primaryErr: errors.New("timeout"),
			wantSource: "backup",
		},
		{
			name:         "оба отказали - DataUnavailable с двумя отказами",
			primaryErr:   errors.New("timeout"),
			backupErr:    errors.New("503"),
			wantErr:      true,
			wantFailures: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &fakeSource{name: "primary", price: 10, err: tt.primaryErr}
			backup := &fakeSource{name: "backup", price: 20, err: tt.backupErr}
			cache := NewCache([]PriceSource{primary, backup}, testCacheConfig(), nil)

			snap, err := cache.GetPrice(context.Background(), "MSFT")

			if tt.wantErr {
				if err == nil {
					t.Fatal("ожидалась ошибка, получен nil")
				}
				var unavail *DataUnavailableError
				if !errors.As(err, &unavail) {
					t.Fatalf("ожидался DataUnavailableError, получен %T", err)
				}
				if len(unavail.Failures) != tt.wantFailures {
					t.Errorf("отказов = %d, ожидалось %d", len(unavail.Failures), tt.wantFailures)
				}
				if !IsDataUnavailable(err) {
					t.Error("IsDataUnavailable должен вернуть true")
				}
				return
			}

			if err != nil {
				t.Fatalf("GetPrice: %v", err)
			}
			if snap.SourceID != tt.wantSource {
				t.Errorf("SourceID = %q, ожидался %q", snap.SourceID, tt.wantSource)
			}
			if tt.primaryErr == nil && atomic.LoadInt64(&backup.priceCalls) != 0 {
				t.Error("резервный провайдер опрошен без необходимости")
			}
		})
	}
}

func TestCacheCoalescesConcurrentRequests(t *testing.T) {
	src := &fakeSource{name: "primary", price: 50, delay: 50 * time.Millisecond}
	cache := NewCache([]PriceSource{src}, testCacheConfig(), nil)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.GetPrice(context.Background(), "TSLA"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("GetPrice: %v", err)
	}
	if calls := atomic.LoadInt64(&src.priceCalls); calls != 1 {
		t.Errorf("вызовов провайдера = %d, ожидался 1 (склейка параллельных запросов)", calls)
	}
}

func TestCacheHistorySeparateTTL(t *testing.T) {
	src := &fakeSource{name: "primary", price: 30}
	cache := NewCache([]PriceSource{src}, testCacheConfig(), nil)

	series, err := cache.GetHistory(context.Background(), "NVDA", models.Window30d)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(series) != 30 {
		t.Errorf("длина серии = %d, ожидалось 30", len(series))
	}

	// Окна кэшируются независимо друг от друга
	if _, err := cache.GetHistory(context.Background(), "NVDA", models.Window60d); err != nil {
		t.Fatalf("GetHistory 60d: %v", err)
	}
	if calls := atomic.LoadInt64(&src.histCalls); calls != 2 {
		t.Errorf("вызовов истории = %d, ожидалось 2 (разные окна)", calls)
	}

	// Повтор того же окна - из кэша
	if _, err := cache.GetHistory(context.Background(), "NVDA", models.Window30d); err != nil {
		t.Fatalf("GetHistory повтор: %v", err)
	}
	if calls := atomic.LoadInt64(&src.histCalls); calls != 2 {
		t.Errorf("вызовов истории = %d, повтор должен идти из кэша", calls)
	}
}

func TestCacheInvalidate(t *testing.T) {
	src := &fakeSource{name: "primary", price: 70}
	cache := NewCache([]PriceSource{src}, testCacheConfig(), nil)

	if _, err := cache.GetPrice(context.Background(), "AMD"); err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	cache.Invalidate("AMD")
	if _, err := cache.GetPrice(context.Background(), "AMD"); err != nil {
		t.Fatalf("GetPrice после Invalidate: %v", err)
	}
	if calls := atomic.LoadInt64(&src.priceCalls); calls != 2 {
		t.Errorf("вызовов провайдера = %d, ожидалось 2 после сброса кэша", calls)
	}
}

func TestCacheContextCancellation(t *testing.T) {
	src := &fakeSource{name: "primary", price: 1, delay: time.Second}
	cache := NewCache([]PriceSource{src}, testCacheConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cache.GetPrice(ctx, "IBM")
	if err == nil {
		t.Fatal("ожидалась ошибка отменённого контекста")
	}
	if IsDataUnavailable(err) {
		t.Error("отмена контекста не должна маскироваться под DataUnavailable")
	}
}
