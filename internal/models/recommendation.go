package models

import (
	"fmt"
	"time"
)

// ExitLevels - уровни выхода из позиции
//
// Инвариант для BUY:  StopLossPrice < entry < TakeProfitPrice
// Инвариант для SELL: TakeProfitPrice < entry < StopLossPrice
type ExitLevels struct {
	StopLossPrice   float64 `json:"stop_loss"`
	TakeProfitPrice float64 `json:"take_profit"`
	StopLossPct     float64 `json:"stop_loss_pct"`   // расстояние до стопа, % от входа
	TakeProfitPct   float64 `json:"take_profit_pct"` // расстояние до тейка, % от входа
}

// SizingResult - результат расчета размера позиции
//
// Инвариант: Shares * |entry - stop| == RiskAmount <= available * maxRiskPerTrade
// Shares == 0 - валидный результат ("сделка не оправдана")
type SizingResult struct {
	Shares           int64   `json:"shares"`
	InvestmentAmount float64 `json:"investment_amount"`
	RiskAmount       float64 `json:"risk_amount"` // реализованный риск после округления вниз
}

// Recommendation - итоговая торговая рекомендация
// Создается один раз на оценку сигнала, не мутирует
type Recommendation struct {
	Signal             Signal          `json:"signal"`
	CurrentPrice       float64         `json:"current_price"`
	Sizing             SizingResult    `json:"sizing"`
	Levels             ExitLevels      `json:"levels"`
	Volatility         VolatilityStats `json:"volatility"`
	StrategyType       string          `json:"strategy_type"`
	RiskRewardRatio    float64         `json:"risk_reward_ratio"`       // take_profit_pct / stop_loss_pct
	PercentOfPortfolio float64         `json:"percentage_of_portfolio"` // investment / total_capital * 100
	CreatedAt          time.Time       `json:"created_at"`
}

// RiskReward форматирует соотношение риск/прибыль для отображения ("1:2.0")
// Формат сохранен для совместимости с потребителями
func (r *Recommendation) RiskReward() string {
	return fmt.Sprintf("1:%.1f", r.RiskRewardRatio)
}
