package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"advisor/internal/models"
	"advisor/pkg/ratelimit"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// Yahoo реализует PriceSource через публичный chart API Yahoo Finance
//
// Основной провайдер: бесплатный, без API ключа, но с неофициальными
// лимитами - все запросы проходят через token bucket limiter.
type Yahoo struct {
	client  *http.Client
	limiter *ratelimit.RateLimiter
	baseURL string // переопределяется в тестах
}

// NewYahoo создает провайдер Yahoo Finance
func NewYahoo(client *http.Client) *Yahoo {
	return &Yahoo{
		client:  client,
		limiter: ratelimit.NewRateLimiter(5, 10), // 5 req/sec, burst 10
		baseURL: yahooBaseURL,
	}
}

func (y *Yahoo) Name() string { return "yahoo" }

// yahooChart - структура ответа Yahoo Finance chart API
// Null-значения в массивах quote соответствуют выходным дням
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) fetchChart(ctx context.Context, symbol, interval, rng string) (*yahooChart, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, &SourceError{Source: "yahoo", Code: "rate_limit", Message: "rate limiter interrupted", Original: err}
	}

	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		y.baseURL, url.PathEscape(symbol), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, &SourceError{Source: "yahoo", Code: "network", Message: "request failed", Original: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SourceError{Source: "yahoo", Code: "network", Message: "read body failed", Original: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &SourceError{
			Source:  "yahoo",
			Code:    fmt.Sprintf("http_%d", resp.StatusCode),
			Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, &SourceError{Source: "yahoo", Code: "decode", Message: "invalid chart payload", Original: err}
	}
	if chart.Chart.Error != nil {
		return nil, &SourceError{
			Source:  "yahoo",
			Code:    chart.Chart.Error.Code,
			Message: chart.Chart.Error.Description,
		}
	}
	if len(chart.Chart.Result) == 0 {
		return nil, &SourceError{Source: "yahoo", Code: "no_data", Message: "no data for symbol " + symbol}
	}
	return &chart, nil
}

// FetchPrice получает текущую цену из метаданных дневного графика
func (y *Yahoo) FetchPrice(ctx context.Context, symbol string) (*models.PriceSnapshot, error) {
	chart, err := y.fetchChart(ctx, symbol, "1d", "1d")
	if err != nil {
		return nil, err
	}

	meta := chart.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return nil, &SourceError{Source: "yahoo", Code: "no_data", Message: "no current price for " + symbol}
	}

	asOf := time.Unix(meta.RegularMarketTime, 0)
	if meta.RegularMarketTime == 0 {
		asOf = time.Now()
	}

	return &models.PriceSnapshot{
		Symbol:   symbol,
		Price:    meta.RegularMarketPrice,
		AsOf:     asOf,
		SourceID: y.Name(),
	}, nil
}

// FetchHistory получает дневные свечи за окно
// Null-бары (праздники) пропускаются; частичная серия не возвращается -
// серия либо собрана целиком, либо ошибка
func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, window models.Window) (models.PriceSeries, error) {
	days, err := window.Days()
	if err != nil {
		return nil, &SourceError{Source: "yahoo", Code: "bad_window", Message: err.Error()}
	}

	chart, err := y.fetchChart(ctx, symbol, "1d", yahooRange(days))
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, &SourceError{Source: "yahoo", Code: "no_data", Message: "empty history for " + symbol}
	}

	quote := result.Indicators.Quote[0]
	series := make(models.PriceSeries, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue // null-бар (выходной/праздник)
		}
		series = append(series, models.Candle{
			Time:   time.Unix(ts, 0),
			Open:   deref(quote.Open, i),
			High:   deref(quote.High, i),
			Low:    deref(quote.Low, i),
			Close:  *quote.Close[i],
			Volume: deref(quote.Volume, i),
		})
	}

	if len(series) == 0 {
		return nil, &SourceError{Source: "yahoo", Code: "no_data", Message: "no usable bars for " + symbol}
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Time.Before(series[j].Time) })

	// Обрезаем до запрошенного окна
	if len(series) > days {
		series = series[len(series)-days:]
	}
	return series, nil
}

// yahooRange подбирает range-параметр API под запрошенное окно в днях
func yahooRange(days int) string {
	switch {
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	default:
		return "2y"
	}
}

func deref(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	return *vals[i]
}
