package engine

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"advisor/internal/models"
)

func TestVolatilityAnalyzerStdDev(t *testing.T) {
	// 21 закрытие -> 20 изменений, чередующихся +3% / +1%
	// Выборочное отклонение: mean=2, отклонения +-1, var = 20/19
	series := risingSeries(21, 100, 3, 1)
	market := &fakeMarket{series: series}

	analyzer := NewVolatilityAnalyzer(market, VolatilityConfig{LookbackN: 20, CacheTTL: time.Minute})

	stats, err := analyzer.Analyze(context.Background(), "AAPL", models.Window30d)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	want := math.Sqrt(20.0 / 19.0)
	if math.Abs(stats.StdDevPct-want) > 1e-9 {
		t.Errorf("StdDevPct = %v, ожидалось %v", stats.StdDevPct, want)
	}

	// Support/resistance - min(Low)/max(High) за последние 20 баров
	tail := series[len(series)-20:]
	wantSupport, wantResistance := tail[0].Low, tail[0].High
	for _, c := range tail {
		if c.Low < wantSupport {
			wantSupport = c.Low
		}
		if c.High > wantResistance {
			wantResistance = c.High
		}
	}
	if stats.Support != wantSupport {
		t.Errorf("Support = %v, ожидалось %v", stats.Support, wantSupport)
	}
	if stats.Resistance != wantResistance {
		t.Errorf("Resistance = %v, ожидалось %v", stats.Resistance, wantResistance)
	}
}

func TestVolatilityAnalyzerZeroVolatility(t *testing.T) {
	// Постоянное изменение +1% -> нулевое отклонение
	series := risingSeries(25, 50, 1, 1)
	market := &fakeMarket{series: series}

	analyzer := NewVolatilityAnalyzer(market, DefaultVolatilityConfig())

	stats, err := analyzer.Analyze(context.Background(), "KO", models.Window30d)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if math.Abs(stats.StdDevPct) > 1e-9 {
		t.Errorf("StdDevPct = %v, ожидался 0", stats.StdDevPct)
	}
}

func TestVolatilityAnalyzerInsufficientData(t *testing.T) {
	tests := []struct {
		name   string
		length int
	}{
		{"пустая серия", 0},
		{"ровно N точек", 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			market := &fakeMarket{series: risingSeries(tt.length, 100, 1, 1)}
			analyzer := NewVolatilityAnalyzer(market, VolatilityConfig{LookbackN: 20, CacheTTL: time.Minute})

			_, err := analyzer.Analyze(context.Background(), "XYZ", models.Window30d)
			if err == nil {
				t.Fatal("ожидалась ошибка нехватки данных")
			}
			var insuff *InsufficientDataError
			if !errors.As(err, &insuff) {
				t.Fatalf("ожидался InsufficientDataError, получен %T", err)
			}
			if insuff.Needed != 21 {
				t.Errorf("Needed = %d, ожидалось 21", insuff.Needed)
			}
			if insuff.Have != tt.length {
				t.Errorf("Have = %d, ожидалось %d", insuff.Have, tt.length)
			}
			if !IsInsufficientData(err) {
				t.Error("IsInsufficientData должен вернуть true")
			}
		})
	}
}

func TestVolatilityAnalyzerCachesResult(t *testing.T) {
	market := &fakeMarket{series: risingSeries(25, 100, 2, 1)}
	analyzer := NewVolatilityAnalyzer(market, VolatilityConfig{LookbackN: 20, CacheTTL: time.Minute})

	now := time.Now()
	analyzer.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := analyzer.Analyze(context.Background(), "AAPL", models.Window30d); err != nil {
			t.Fatalf("Analyze: %v", err)
		}
	}
	if calls := atomic.LoadInt64(&market.historyCalls); calls != 1 {
		t.Errorf("запросов истории = %d, ожидался 1 (результат кэшируется)", calls)
	}

	// После истечения TTL - пересчёт
	now = now.Add(2 * time.Minute)
	if _, err := analyzer.Analyze(context.Background(), "AAPL", models.Window30d); err != nil {
		t.Fatalf("Analyze после TTL: %v", err)
	}
	if calls := atomic.LoadInt64(&market.historyCalls); calls != 2 {
		t.Errorf("запросов истории = %d, ожидалось 2 после истечения TTL", calls)
	}
}

func TestVolatilityAnalyzerPropagatesFetchError(t *testing.T) {
	fetchErr := errors.New("all sources down")
	market := &fakeMarket{historyErr: fetchErr}
	analyzer := NewVolatilityAnalyzer(market, DefaultVolatilityConfig())

	_, err := analyzer.Analyze(context.Background(), "AAPL", models.Window30d)
	if !errors.Is(err, fetchErr) {
		t.Errorf("ошибка провайдера должна пробрасываться, получено: %v", err)
	}
}
