package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PriceSnapshot представляет текущую цену инструмента
// Неизменяем после создания
type PriceSnapshot struct {
	Symbol   string    `json:"symbol"`
	Price    float64   `json:"price"`
	AsOf     time.Time `json:"as_of"`
	SourceID string    `json:"source_id"` // какой провайдер вернул данные
}

// Candle представляет одну свечу OHLCV
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries - упорядоченная по времени последовательность свечей
// Read-only после получения от провайдера
type PriceSeries []Candle

// Closes возвращает цены закрытия серии
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, c := range s {
		closes[i] = c.Close
	}
	return closes
}

// Last возвращает последнюю свечу серии
// ok == false для пустой серии
func (s PriceSeries) Last() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[len(s)-1], true
}

// Window определяет окно исторических данных ("30d", "60d", "90d")
type Window string

// Стандартные окна (соглашение провайдера исходных данных)
const (
	Window30d Window = "30d"
	Window60d Window = "60d"
	Window90d Window = "90d"
)

// Days возвращает длину окна в днях
func (w Window) Days() (int, error) {
	str := strings.TrimSuffix(string(w), "d")
	if str == string(w) {
		return 0, fmt.Errorf("invalid window format: %q (expected e.g. \"30d\")", w)
	}
	days, err := strconv.Atoi(str)
	if err != nil || days <= 0 {
		return 0, fmt.Errorf("invalid window length: %q", w)
	}
	return days, nil
}

// VolatilityStats - производная рыночная статистика по инструменту
// Кэшируется с собственным TTL, независимым от TTL сырой серии
type VolatilityStats struct {
	Symbol     string    `json:"symbol"`
	StdDevPct  float64   `json:"std_dev_pct"` // стандартное отклонение дневных изменений, %
	Support    float64   `json:"support"`     // минимум последних N баров (low)
	Resistance float64   `json:"resistance"`  // максимум последних N баров (high)
	ComputedAt time.Time `json:"computed_at"`
}
