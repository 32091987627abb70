package engine

import (
	"advisor/internal/models"
)

// StrategyParams - настраиваемые множители стратегии
// Стоп считается от волатильности, тейк - от стопа
type StrategyParams struct {
	// StopMultiplier - множитель std_dev_pct для стоп-лосса
	StopMultiplier float64

	// StopCapPct - потолок стоп-лосса в процентах
	StopCapPct float64

	// TakeFactor - тейк-профит как кратное стоп-лосса
	TakeFactor float64
}

// ExitConfig - параметры расчёта уровней выхода
type ExitConfig struct {
	// Strategies - параметры по типу стратегии
	Strategies map[string]StrategyParams

	// UseTechnicalLevels - подтягивать стоп/тейк к support/resistance,
	// когда технический уровень лежит между входом и расчётным уровнем
	UseTechnicalLevels bool
}

// DefaultExitConfig возвращает параметры по умолчанию
//
// day_trading: стоп = min(std*1.5, 3%), тейк = стоп*2
// long_term:   стоп = min(std*2.0, 8%), тейк = стоп*1.5
func DefaultExitConfig() ExitConfig {
	return ExitConfig{
		Strategies: map[string]StrategyParams{
			models.StrategyDayTrading: {StopMultiplier: 1.5, StopCapPct: 3.0, TakeFactor: 2.0},
			models.StrategyLongTerm:   {StopMultiplier: 2.0, StopCapPct: 8.0, TakeFactor: 1.5},
		},
	}
}

// ExitCalculator считает уровни stop-loss/take-profit
type ExitCalculator struct {
	cfg ExitConfig
}

// NewExitCalculator создает калькулятор уровней выхода
func NewExitCalculator(cfg ExitConfig) *ExitCalculator {
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = DefaultExitConfig().Strategies
	}
	return &ExitCalculator{cfg: cfg}
}

// params возвращает параметры стратегии
// Неизвестные стратегии трактуются как долгосрочные
func (c *ExitCalculator) params(strategyType string) StrategyParams {
	if p, ok := c.cfg.Strategies[strategyType]; ok {
		return p
	}
	return c.cfg.Strategies[models.StrategyLongTerm]
}

// Compute считает уровни выхода от цены входа и волатильности
//
// Инвариант: для BUY stop < entry < take, для SELL зеркально
func (c *ExitCalculator) Compute(entryPrice float64, action, strategyType string, stats *models.VolatilityStats) (models.ExitLevels, error) {
	if entryPrice <= 0 {
		return models.ExitLevels{}, &InvalidInputError{Field: "entry_price", Reason: "must be positive"}
	}
	if stats == nil {
		return models.ExitLevels{}, &InvalidInputError{Field: "volatility_stats", Reason: "must not be nil"}
	}

	p := c.params(strategyType)

	stopPct := stats.StdDevPct * p.StopMultiplier
	if stopPct > p.StopCapPct {
		stopPct = p.StopCapPct
	}
	takePct := stopPct * p.TakeFactor

	levels := models.ExitLevels{
		StopLossPct:   stopPct,
		TakeProfitPct: takePct,
	}

	switch action {
	case models.ActionSell:
		levels.StopLossPrice = entryPrice * (1 + stopPct/100)
		levels.TakeProfitPrice = entryPrice * (1 - takePct/100)
	default:
		levels.StopLossPrice = entryPrice * (1 - stopPct/100)
		levels.TakeProfitPrice = entryPrice * (1 + takePct/100)
	}

	if c.cfg.UseTechnicalLevels {
		levels = adjustToTechnicalLevels(levels, entryPrice, action, stats)
	}
	return levels, nil
}

// adjustToTechnicalLevels подтягивает уровни к support/resistance
// с отступом 1%: стоп встает чуть ниже поддержки, тейк чуть ниже
// сопротивления. Уровень двигается только если скорректированное
// значение строго между входом и расчётным уровнем (риск уменьшается,
// не растёт)
func adjustToTechnicalLevels(levels models.ExitLevels, entryPrice float64, action string, stats *models.VolatilityStats) models.ExitLevels {
	if action == models.ActionBuy {
		if stop := stats.Support * 0.99; stop > levels.StopLossPrice && stop < entryPrice {
			levels.StopLossPrice = stop
			levels.StopLossPct = (entryPrice - stop) / entryPrice * 100
		}
		if take := stats.Resistance * 0.99; take > entryPrice && take < levels.TakeProfitPrice {
			levels.TakeProfitPrice = take
			levels.TakeProfitPct = (take - entryPrice) / entryPrice * 100
		}
		return levels
	}

	if stop := stats.Resistance * 1.01; stop < levels.StopLossPrice && stop > entryPrice {
		levels.StopLossPrice = stop
		levels.StopLossPct = (stop - entryPrice) / entryPrice * 100
	}
	if take := stats.Support * 1.01; take < entryPrice && take > levels.TakeProfitPrice {
		levels.TakeProfitPrice = take
		levels.TakeProfitPct = (entryPrice - take) / entryPrice * 100
	}
	return levels
}
