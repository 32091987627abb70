package models

import "time"

// RiskProfile представляет настройки риска пользователя
//
// Неизменяем в рамках одного расчета рекомендации.
// Пользователь может заменить профиль между расчетами.
type RiskProfile struct {
	Tier                string   `json:"tier"`                 // conservative, moderate, aggressive
	MaxRiskPerTrade     float64  `json:"max_risk_per_trade"`   // доля капитала (0 < x <= 1)
	MaxPortfolioRisk    float64  `json:"max_portfolio_risk"`   // доля капитала (0 < x <= 1)
	PreferredStrategies []string `json:"preferred_strategies"` // упорядоченный список тегов стратегий
}

// Уровни риска
const (
	TierConservative = "conservative"
	TierModerate     = "moderate"
	TierAggressive   = "aggressive"
)

// Теги стратегий
const (
	StrategyDayTrading = "day_trading"
	StrategyLongTerm   = "long_term"
)

// DefaultRiskProfile возвращает профиль по умолчанию для уровня риска
func DefaultRiskProfile(tier string) RiskProfile {
	switch tier {
	case TierConservative:
		return RiskProfile{
			Tier:                TierConservative,
			MaxRiskPerTrade:     0.01,
			MaxPortfolioRisk:    0.05,
			PreferredStrategies: []string{StrategyLongTerm},
		}
	case TierAggressive:
		return RiskProfile{
			Tier:                TierAggressive,
			MaxRiskPerTrade:     0.05,
			MaxPortfolioRisk:    0.20,
			PreferredStrategies: []string{StrategyDayTrading, StrategyLongTerm},
		}
	default:
		return RiskProfile{
			Tier:                TierModerate,
			MaxRiskPerTrade:     0.02,
			MaxPortfolioRisk:    0.10,
			PreferredStrategies: []string{StrategyLongTerm, StrategyDayTrading},
		}
	}
}

// IsValidTier проверяет известность уровня риска
func IsValidTier(tier string) bool {
	return tier == TierConservative || tier == TierModerate || tier == TierAggressive
}

// CapitalState представляет состояние капитала пользователя
//
// Инвариант: AvailableCapital + InvestedCapital <= TotalCapital
// (равенство когда комиссии/проскальзывание не моделируются)
type CapitalState struct {
	TotalCapital     float64 `json:"total_capital"`
	AvailableCapital float64 `json:"available_capital"`
	InvestedCapital  float64 `json:"invested_capital"`
	Currency         string  `json:"currency"` // валюта счета (USD)
}

// CanInvest проверяет, достаточно ли доступного капитала для суммы
func (c CapitalState) CanInvest(amount float64) bool {
	return amount >= 0 && amount <= c.AvailableCapital
}

// UserProfile объединяет профиль риска и капитал одного пользователя
// Персистентная запись (таблица user_profiles)
type UserProfile struct {
	UserID    int64        `json:"user_id" db:"user_id"`
	Risk      RiskProfile  `json:"risk"`
	Capital   CapitalState `json:"capital"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}
