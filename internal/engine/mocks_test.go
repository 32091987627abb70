package engine

import (
	"context"
	"sync/atomic"
	"time"

	"advisor/internal/models"
)

// ============================================================================
// Моки слоя рыночных данных для тестов движка
// ============================================================================

// fakeMarket - управляемая реализация MarketData
type fakeMarket struct {
	price      float64
	priceErr   error
	series     models.PriceSeries
	historyErr error

	priceCalls   int64
	historyCalls int64
}

func (m *fakeMarket) GetPrice(ctx context.Context, symbol string) (*models.PriceSnapshot, error) {
	atomic.AddInt64(&m.priceCalls, 1)
	if m.priceErr != nil {
		return nil, m.priceErr
	}
	return &models.PriceSnapshot{
		Symbol:   symbol,
		Price:    m.price,
		AsOf:     time.Now(),
		SourceID: "fake",
	}, nil
}

func (m *fakeMarket) GetHistory(ctx context.Context, symbol string, window models.Window) (models.PriceSeries, error) {
	atomic.AddInt64(&m.historyCalls, 1)
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	return m.series, nil
}

// risingSeries строит серию длиной length с чередующимися изменениями
// +upPct% / +downPct% и диапазоном баров ±1% от закрытия
func risingSeries(length int, startPrice, upPct, downPct float64) models.PriceSeries {
	series := make(models.PriceSeries, length)
	price := startPrice
	day := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	for i := range series {
		if i > 0 {
			if i%2 == 1 {
				price *= 1 + upPct/100
			} else {
				price *= 1 + downPct/100
			}
		}
		series[i] = models.Candle{
			Time:  day.AddDate(0, 0, i),
			Open:  price,
			High:  price * 1.01,
			Low:   price * 0.99,
			Close: price,
		}
	}
	return series
}
