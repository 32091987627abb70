package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"advisor/internal/models"
)

// EngineConfig - параметры конвейера рекомендаций
type EngineConfig struct {
	// Window - окно истории для расчёта волатильности
	Window models.Window
}

// DefaultEngineConfig возвращает параметры по умолчанию
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{Window: models.Window30d}
}

// Engine - конвейер рекомендаций: сигнал + капитал + риск-профиль ->
// ограниченная по риску рекомендация
//
// Этапы выполняются строго по порядку, каждый зависит от предыдущего:
// цена -> волатильность -> уровни выхода -> размер позиции -> сборка.
// Любая ошибка этапа прерывает конвейер (всё-или-ничего).
type Engine struct {
	data   MarketData
	vol    *VolatilityAnalyzer
	exits  *ExitCalculator
	sizer  *Sizer
	cfg    EngineConfig
	logger *zap.Logger
}

// NewEngine собирает конвейер из компонентов
func NewEngine(data MarketData, vol *VolatilityAnalyzer, exits *ExitCalculator, sizer *Sizer, cfg EngineConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Window == "" {
		cfg.Window = DefaultEngineConfig().Window
	}
	return &Engine{
		data:   data,
		vol:    vol,
		exits:  exits,
		sizer:  sizer,
		cfg:    cfg,
		logger: logger,
	}
}

// pickStrategy выбирает стратегию рекомендации: тег сигнала побеждает,
// если входит в предпочтения профиля, иначе первая предпочтительная
func pickStrategy(signal models.Signal, profile models.RiskProfile) string {
	if signal.StrategyType != "" {
		for _, strategy := range profile.PreferredStrategies {
			if strategy == signal.StrategyType {
				return signal.StrategyType
			}
		}
	}
	if len(profile.PreferredStrategies) > 0 {
		return profile.PreferredStrategies[0]
	}
	return models.StrategyLongTerm
}

// Recommend выполняет полный конвейер для сигнала
func (e *Engine) Recommend(ctx context.Context, signal models.Signal, profile models.RiskProfile, capital models.CapitalState) (*models.Recommendation, error) {
	start := time.Now()

	rec, err := e.recommend(ctx, signal, profile, capital)
	if err != nil {
		RecordRecommendation("error", time.Since(start).Seconds())
		return nil, err
	}
	RecordRecommendation("ok", time.Since(start).Seconds())
	return rec, nil
}

func (e *Engine) recommend(ctx context.Context, signal models.Signal, profile models.RiskProfile, capital models.CapitalState) (*models.Recommendation, error) {
	if !models.IsValidAction(signal.Action) {
		return nil, &InvalidInputError{Field: "action", Reason: "must be BUY or SELL"}
	}
	if signal.Symbol == "" {
		return nil, &InvalidInputError{Field: "symbol", Reason: "must not be empty"}
	}

	// Этап 1: текущая цена
	snapshot, err := e.data.GetPrice(ctx, signal.Symbol)
	if err != nil {
		RecordStageError(StagePrice)
		return nil, &StageError{Stage: StagePrice, Err: err}
	}

	// Этап 2: волатильность и технические уровни
	stats, err := e.vol.Analyze(ctx, signal.Symbol, e.cfg.Window)
	if err != nil {
		RecordStageError(StageVolatility)
		return nil, &StageError{Stage: StageVolatility, Err: err}
	}

	// Этап 3: уровни выхода по стратегии сигнала либо предпочтениям профиля
	strategy := pickStrategy(signal, profile)
	levels, err := e.exits.Compute(snapshot.Price, signal.Action, strategy, stats)
	if err != nil {
		RecordStageError(StageExits)
		return nil, &StageError{Stage: StageExits, Err: err}
	}

	// Этап 4: размер позиции под риск-бюджет
	sizing, err := e.sizer.Size(capital.AvailableCapital, profile.MaxRiskPerTrade,
		snapshot.Price, levels.StopLossPrice, signal.Confidence)
	if err != nil {
		RecordStageError(StageSizing)
		return nil, &StageError{Stage: StageSizing, Err: err}
	}

	// Этап 5: сборка рекомендации
	rec := &models.Recommendation{
		Signal:          signal,
		CurrentPrice:    snapshot.Price,
		Sizing:          sizing,
		Levels:          levels,
		Volatility:      *stats,
		StrategyType:    strategy,
		RiskRewardRatio: levels.TakeProfitPct / levels.StopLossPct,
		CreatedAt:       time.Now(),
	}
	if capital.TotalCapital > 0 {
		rec.PercentOfPortfolio = sizing.InvestmentAmount / capital.TotalCapital * 100
	}

	e.logger.Info("рекомендация сформирована",
		zap.String("symbol", signal.Symbol),
		zap.String("action", signal.Action),
		zap.String("strategy", strategy),
		zap.Float64("price", snapshot.Price),
		zap.Int64("shares", sizing.Shares),
		zap.Float64("stop_loss", levels.StopLossPrice),
		zap.Float64("take_profit", levels.TakeProfitPrice))

	return rec, nil
}
