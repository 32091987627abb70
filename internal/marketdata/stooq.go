package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"advisor/internal/models"
	"advisor/pkg/ratelimit"
)

const stooqBaseURL = "https://stooq.com"

// Stooq реализует PriceSource через CSV-эндпоинты stooq.com
//
// Резервный провайдер: опрашивается только после отказа основного.
// Тикеры US-акций на stooq имеют суффикс ".us" (AAPL -> aapl.us).
type Stooq struct {
	client  *http.Client
	limiter *ratelimit.RateLimiter
	baseURL string // переопределяется в тестах
}

// NewStooq создает резервный провайдер Stooq
func NewStooq(client *http.Client) *Stooq {
	return &Stooq{
		client:  client,
		limiter: ratelimit.NewRateLimiter(2, 4),
		baseURL: stooqBaseURL,
	}
}

func (s *Stooq) Name() string { return "stooq" }

// stooqSymbol приводит тикер к формату stooq
func stooqSymbol(symbol string) string {
	sym := strings.ToLower(symbol)
	if !strings.Contains(sym, ".") {
		sym += ".us"
	}
	return sym
}

func (s *Stooq) fetchCSV(ctx context.Context, path string) ([][]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &SourceError{Source: "stooq", Code: "rate_limit", Message: "rate limiter interrupted", Original: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &SourceError{Source: "stooq", Code: "network", Message: "request failed", Original: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &SourceError{
			Source:  "stooq",
			Code:    fmt.Sprintf("http_%d", resp.StatusCode),
			Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &SourceError{Source: "stooq", Code: "decode", Message: "invalid CSV payload", Original: err}
	}
	return records, nil
}

// FetchPrice получает последнюю котировку через лёгкий эндпоинт /q/l/
// Формат: Symbol,Date,Time,Open,High,Low,Close,Volume
func (s *Stooq) FetchPrice(ctx context.Context, symbol string) (*models.PriceSnapshot, error) {
	path := fmt.Sprintf("/q/l/?s=%s&f=sd2t2ohlcv&h&e=csv", url.QueryEscape(stooqSymbol(symbol)))

	records, err := s.fetchCSV(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 || len(records[1]) < 7 {
		return nil, &SourceError{Source: "stooq", Code: "no_data", Message: "no quote for " + symbol}
	}

	row := records[1]
	price, err := strconv.ParseFloat(row[6], 64)
	if err != nil || price <= 0 {
		// stooq отдаёт "N/D" для неизвестного тикера
		return nil, &SourceError{Source: "stooq", Code: "no_data", Message: "no price for " + symbol}
	}

	asOf := time.Now()
	if t, perr := time.Parse("2006-01-02 15:04:05", row[1]+" "+row[2]); perr == nil {
		asOf = t
	}

	return &models.PriceSnapshot{
		Symbol:   symbol,
		Price:    price,
		AsOf:     asOf,
		SourceID: s.Name(),
	}, nil
}

// FetchHistory получает полную дневную историю /q/d/l/ и обрезает до окна
// Формат: Date,Open,High,Low,Close,Volume
func (s *Stooq) FetchHistory(ctx context.Context, symbol string, window models.Window) (models.PriceSeries, error) {
	days, err := window.Days()
	if err != nil {
		return nil, &SourceError{Source: "stooq", Code: "bad_window", Message: err.Error()}
	}

	path := fmt.Sprintf("/q/d/l/?s=%s&i=d", url.QueryEscape(stooqSymbol(symbol)))

	records, err := s.fetchCSV(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, &SourceError{Source: "stooq", Code: "no_data", Message: "empty history for " + symbol}
	}

	series := make(models.PriceSeries, 0, days)
	for _, row := range records[1:] {
		if len(row) < 5 {
			continue
		}
		date, perr := time.Parse("2006-01-02", row[0])
		if perr != nil {
			continue
		}
		closePrice, perr := strconv.ParseFloat(row[4], 64)
		if perr != nil {
			continue
		}
		candle := models.Candle{
			Time:  date,
			Open:  parseFloatOrZero(row[1]),
			High:  parseFloatOrZero(row[2]),
			Low:   parseFloatOrZero(row[3]),
			Close: closePrice,
		}
		if len(row) > 5 {
			candle.Volume = parseFloatOrZero(row[5])
		}
		series = append(series, candle)
	}

	if len(series) == 0 {
		return nil, &SourceError{Source: "stooq", Code: "no_data", Message: "no usable bars for " + symbol}
	}

	// История stooq отсортирована по возрастанию даты - берём хвост
	if len(series) > days {
		series = series[len(series)-days:]
	}
	return series, nil
}

func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
