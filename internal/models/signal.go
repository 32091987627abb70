package models

import "time"

// Signal представляет торговый сигнал от внешнего генератора
//
// Сигналы потребляются, но не создаются этим ядром.
// Генератор сигналов (консенсус трейдеров) - внешний коллаборатор.
type Signal struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`                  // NVDA, TSLA
	Action       string    `json:"action"`                  // BUY, SELL
	Confidence   float64   `json:"confidence"`              // уверенность 0.0 - 1.0
	StrategyType string    `json:"strategy_type,omitempty"` // подсказка генератора (day_trading, long_term)
	Reasoning    string    `json:"reasoning,omitempty"`     // обоснование сигнала
	CreatedAt    time.Time `json:"created_at"`
}

// Направления сигнала
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// DirectionSign возвращает знак направления для расчета PNL
// BUY = +1 (прибыль при росте), SELL = -1 (прибыль при падении)
func DirectionSign(action string) float64 {
	if action == ActionSell {
		return -1
	}
	return 1
}

// IsValidAction проверяет, поддерживается ли направление сигнала
func IsValidAction(action string) bool {
	return action == ActionBuy || action == ActionSell
}
