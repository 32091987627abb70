package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"advisor/internal/models"
)

// VolatilityConfig - параметры расчёта волатильности
type VolatilityConfig struct {
	// LookbackN - период скользящих min/max для support/resistance
	// Для расчёта нужно минимум LookbackN+1 точек истории
	LookbackN int

	// CacheTTL - срок жизни рассчитанной статистики
	// Пересчёт дёшев при закэшированной серии, поэтому TTL короткий
	CacheTTL time.Duration
}

// DefaultVolatilityConfig возвращает параметры по умолчанию
func DefaultVolatilityConfig() VolatilityConfig {
	return VolatilityConfig{
		LookbackN: 20,
		CacheTTL:  5 * time.Minute,
	}
}

type volEntry struct {
	stats      *models.VolatilityStats
	computedAt time.Time
}

// VolatilityAnalyzer считает волатильность и технические уровни по истории
//
// std_dev_pct - выборочное стандартное отклонение дневных процентных
// изменений цены, в процентах. Support/resistance - скользящие min(Low)
// и max(High) за последние LookbackN баров.
type VolatilityAnalyzer struct {
	data MarketData
	cfg  VolatilityConfig

	mu    sync.RWMutex
	cache map[string]volEntry

	// now переопределяется в тестах
	now func() time.Time
}

// NewVolatilityAnalyzer создает анализатор поверх слоя рыночных данных
func NewVolatilityAnalyzer(data MarketData, cfg VolatilityConfig) *VolatilityAnalyzer {
	if cfg.LookbackN <= 0 {
		cfg.LookbackN = DefaultVolatilityConfig().LookbackN
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultVolatilityConfig().CacheTTL
	}
	return &VolatilityAnalyzer{
		data:  data,
		cfg:   cfg,
		cache: make(map[string]volEntry),
		now:   time.Now,
	}
}

// Analyze возвращает статистику волатильности за окно
// Результат кэшируется со своим TTL независимо от кэша сырых серий
func (a *VolatilityAnalyzer) Analyze(ctx context.Context, symbol string, window models.Window) (*models.VolatilityStats, error) {
	key := fmt.Sprintf("%s:%s", symbol, window)

	a.mu.RLock()
	entry, ok := a.cache[key]
	a.mu.RUnlock()
	if ok && a.now().Sub(entry.computedAt) <= a.cfg.CacheTTL {
		return entry.stats, nil
	}

	series, err := a.data.GetHistory(ctx, symbol, window)
	if err != nil {
		return nil, err
	}

	stats, err := a.compute(symbol, series)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.cache[key] = volEntry{stats: stats, computedAt: a.now()}
	a.mu.Unlock()
	return stats, nil
}

// compute - чистый расчёт статистики по серии
func (a *VolatilityAnalyzer) compute(symbol string, series models.PriceSeries) (*models.VolatilityStats, error) {
	n := a.cfg.LookbackN
	if len(series) < n+1 {
		return nil, &InsufficientDataError{Symbol: symbol, Needed: n + 1, Have: len(series)}
	}

	closes := series.Closes()
	changes := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		changes = append(changes, (closes[i]-closes[i-1])/closes[i-1]*100)
	}
	if len(changes) < 2 {
		return nil, &InsufficientDataError{Symbol: symbol, Needed: n + 1, Have: len(changes) + 1}
	}

	stdDev := stat.StdDev(changes, nil)

	// Скользящие min/max за последние N баров
	tail := series[len(series)-n:]
	support := tail[0].Low
	resistance := tail[0].High
	for _, candle := range tail[1:] {
		if candle.Low < support {
			support = candle.Low
		}
		if candle.High > resistance {
			resistance = candle.High
		}
	}

	return &models.VolatilityStats{
		Symbol:     symbol,
		StdDevPct:  stdDev,
		Support:    support,
		Resistance: resistance,
		ComputedAt: a.now(),
	}, nil
}
