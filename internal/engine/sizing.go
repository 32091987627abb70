package engine

import (
	"math"

	"advisor/internal/models"
)

// Sizer переводит капитал, риск-бюджет и уверенность сигнала в размер позиции
//
// Риск на сделку никогда не превышает бюджет:
// shares * |entry - stop| <= available_capital * risk_fraction
type Sizer struct{}

// NewSizer создает калькулятор размера позиции
func NewSizer() *Sizer {
	return &Sizer{}
}

// confidenceMultiplier отображает уверенность [0,1] в множитель [0.5, 1.0]
// Выход за диапазон обрезается, а не отклоняется
func confidenceMultiplier(confidence float64) float64 {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return 0.5 + confidence*0.5
}

// Size рассчитывает размер позиции под риск-бюджет
//
// shares = floor(available * risk_fraction * confidence_multiplier / |entry - stop|)
// Ноль акций - допустимый результат: "сделка не оправдана"
func (s *Sizer) Size(availableCapital, riskFraction, entryPrice, stopLossPrice, confidence float64) (models.SizingResult, error) {
	if availableCapital < 0 {
		return models.SizingResult{}, &InvalidInputError{Field: "available_capital", Reason: "must be non-negative"}
	}
	if riskFraction <= 0 || riskFraction > 1 {
		return models.SizingResult{}, &InvalidInputError{Field: "risk_fraction", Reason: "must be in (0, 1]"}
	}
	if entryPrice <= 0 {
		return models.SizingResult{}, &InvalidInputError{Field: "entry_price", Reason: "must be positive"}
	}

	priceRiskPerShare := math.Abs(entryPrice - stopLossPrice)
	if priceRiskPerShare == 0 {
		return models.SizingResult{}, &InvalidInputError{Field: "stop_loss_price", Reason: "stop equals entry, zero price risk per share"}
	}

	adjustedRisk := availableCapital * riskFraction * confidenceMultiplier(confidence)
	shares := int64(math.Floor(adjustedRisk / priceRiskPerShare))

	// Инвестиция не может превышать доступный капитал
	if float64(shares)*entryPrice > availableCapital {
		shares = int64(math.Floor(availableCapital / entryPrice))
	}

	return models.SizingResult{
		Shares:           shares,
		InvestmentAmount: float64(shares) * entryPrice,
		RiskAmount:       float64(shares) * priceRiskPerShare,
	}, nil
}
