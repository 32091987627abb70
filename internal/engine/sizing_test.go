package engine

import (
	"math"
	"testing"
)

func TestConfidenceMultiplier(t *testing.T) {
	tests := []struct {
		confidence float64
		want       float64
	}{
		{0, 0.5},
		{0.5, 0.75},
		{0.85, 0.925},
		{1, 1.0},
		{-0.3, 0.5}, // обрезка снизу
		{1.7, 1.0},  // обрезка сверху
	}

	for _, tt := range tests {
		if got := confidenceMultiplier(tt.confidence); !almostEqual(got, tt.want) {
			t.Errorf("confidenceMultiplier(%v) = %v, ожидалось %v", tt.confidence, got, tt.want)
		}
	}
}

func TestSizerSize(t *testing.T) {
	sizer := NewSizer()

	tests := []struct {
		name           string
		available      float64
		riskFraction   float64
		entryPrice     float64
		stopLoss       float64
		confidence     float64
		wantShares     int64
		wantInvestment float64
	}{
		{
			// adjusted_risk = 10000*0.02*0.925 = 185; 185/43.77 -> 4 акции
			name:           "умеренный профиль NVDA",
			available:      10000,
			riskFraction:   0.02,
			entryPrice:     875.50,
			stopLoss:       831.73,
			confidence:     0.85,
			wantShares:     4,
			wantInvestment: 3502.00,
		},
		{
			name:           "ноль акций - сделка не оправдана",
			available:      100,
			riskFraction:   0.01,
			entryPrice:     500,
			stopLoss:       490,
			confidence:     0.5,
			wantShares:     0, // adjusted = 0.75, риск на акцию 10
			wantInvestment: 0,
		},
		{
			name:           "инвестиция ограничена доступным капиталом",
			available:      1000,
			riskFraction:   1.0,
			entryPrice:     100,
			stopLoss:       99,
			confidence:     1.0,
			wantShares:     10, // бюджет дал бы 1000 акций, капитала хватает на 10
			wantInvestment: 1000,
		},
		{
			name:           "SELL: стоп выше входа",
			available:      10000,
			riskFraction:   0.02,
			entryPrice:     100,
			stopLoss:       105,
			confidence:     1.0,
			wantShares:     40, // 200/5
			wantInvestment: 4000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := sizer.Size(tt.available, tt.riskFraction, tt.entryPrice, tt.stopLoss, tt.confidence)
			if err != nil {
				t.Fatalf("Size: %v", err)
			}
			if result.Shares != tt.wantShares {
				t.Errorf("Shares = %d, ожидалось %d", result.Shares, tt.wantShares)
			}
			if !almostEqual(result.InvestmentAmount, tt.wantInvestment) {
				t.Errorf("InvestmentAmount = %v, ожидалось %v", result.InvestmentAmount, tt.wantInvestment)
			}

			// Риск-бюджет никогда не превышается
			budget := tt.available * tt.riskFraction
			if result.RiskAmount > budget+1e-9 {
				t.Errorf("RiskAmount %v превышает бюджет %v", result.RiskAmount, budget)
			}
			// Реализованный риск согласован с количеством акций
			wantRisk := float64(result.Shares) * math.Abs(tt.entryPrice-tt.stopLoss)
			if !almostEqual(result.RiskAmount, wantRisk) {
				t.Errorf("RiskAmount = %v, ожидалось %v", result.RiskAmount, wantRisk)
			}
		})
	}
}

func TestSizerInvalidInput(t *testing.T) {
	sizer := NewSizer()

	tests := []struct {
		name         string
		available    float64
		riskFraction float64
		entryPrice   float64
		stopLoss     float64
	}{
		{"отрицательный капитал", -1, 0.02, 100, 97},
		{"нулевая доля риска", 10000, 0, 100, 97},
		{"доля риска больше единицы", 10000, 1.5, 100, 97},
		{"нулевая цена входа", 10000, 0.02, 0, 97},
		{"стоп равен входу", 10000, 0.02, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sizer.Size(tt.available, tt.riskFraction, tt.entryPrice, tt.stopLoss, 0.5)
			if err == nil {
				t.Fatal("ожидалась ошибка")
			}
			if !IsInvalidInput(err) {
				t.Errorf("ожидался InvalidInputError, получен %T: %v", err, err)
			}
		})
	}
}
