package models

import "time"

// Position представляет открытую или закрытую позицию пользователя
//
// Владелец - PositionTracker. После создания мутируют только
// CurrentPrice и Status (плюс ClosedAt/UpdatedAt при закрытии).
type Position struct {
	ID           string     `json:"id" db:"id"` // uuid
	UserID       int64      `json:"user_id" db:"user_id"`
	Symbol       string     `json:"symbol" db:"symbol"`
	Action       string     `json:"action" db:"action"` // BUY, SELL
	Shares       int64      `json:"shares" db:"shares"`
	EntryPrice   float64    `json:"entry_price" db:"entry_price"`
	CurrentPrice float64    `json:"current_price" db:"current_price"`
	Levels       ExitLevels `json:"levels"`
	StrategyType string     `json:"strategy_type" db:"strategy_type"`
	SignalID     string     `json:"signal_id" db:"signal_id"`
	Status       string     `json:"status" db:"status"`
	OpenedAt     time.Time  `json:"opened_at" db:"opened_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty" db:"closed_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Статусы позиции (state machine с терминальными состояниями)
const (
	StatusOpen         = "open"
	StatusClosedStop   = "closed_stop"   // цена пересекла stop-loss
	StatusClosedTake   = "closed_take"   // цена пересекла take-profit
	StatusClosedManual = "closed_manual" // внешний запрос закрытия
)

// InvestmentAmount возвращает сумму входа в позицию
func (p *Position) InvestmentAmount() float64 {
	return float64(p.Shares) * p.EntryPrice
}

// CurrentValue возвращает текущую стоимость позиции
func (p *Position) CurrentValue() float64 {
	if p.CurrentPrice > 0 {
		return float64(p.Shares) * p.CurrentPrice
	}
	return p.InvestmentAmount()
}

// UnrealizedPnl возвращает нереализованный PNL с учетом направления
// BUY: (current - entry) * shares; SELL: (entry - current) * shares
func (p *Position) UnrealizedPnl() float64 {
	if p.CurrentPrice <= 0 {
		return 0
	}
	return (p.CurrentPrice - p.EntryPrice) * float64(p.Shares) * DirectionSign(p.Action)
}

// UnrealizedPnlPct возвращает PNL в процентах от суммы входа
func (p *Position) UnrealizedPnlPct() float64 {
	invested := p.InvestmentAmount()
	if invested <= 0 {
		return 0
	}
	return p.UnrealizedPnl() / invested * 100
}

// RiskAmount возвращает сумму под риском до stop-loss
func (p *Position) RiskAmount() float64 {
	if p.Levels.StopLossPrice <= 0 {
		return 0
	}
	diff := p.EntryPrice - p.Levels.StopLossPrice
	if diff < 0 {
		diff = -diff
	}
	return float64(p.Shares) * diff
}

// IsOpen возвращает true если позиция еще отслеживается
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// Clone возвращает независимую копию позиции
func (p *Position) Clone() *Position {
	clone := *p
	if p.ClosedAt != nil {
		closedAt := *p.ClosedAt
		clone.ClosedAt = &closedAt
	}
	return &clone
}
