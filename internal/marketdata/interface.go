package marketdata

import (
	"context"

	"advisor/internal/models"
)

// PriceSource определяет унифицированный интерфейс провайдера рыночных данных
//
// Контракт:
// - Безопасен для повторных вызовов, не хранит состояние между вызовами
// - Блокируется только на I/O; отмена через context
// - Ошибки типизированы через SourceError для fallback-логики кэша
type PriceSource interface {
	// Name возвращает идентификатор провайдера
	Name() string

	// FetchPrice получает текущую цену инструмента
	FetchPrice(ctx context.Context, symbol string) (*models.PriceSnapshot, error)

	// FetchHistory получает историю свечей за окно
	// Возвращает ошибку вместо частично заполненной серии
	FetchHistory(ctx context.Context, symbol string, window models.Window) (models.PriceSeries, error)
}

// SourceError представляет ошибку провайдера рыночных данных
type SourceError struct {
	Source   string
	Code     string
	Message  string
	Original error
}

func (e *SourceError) Error() string {
	return e.Source + ": " + e.Message
}

// Unwrap возвращает оригинальную ошибку для поддержки errors.Is() и errors.As()
func (e *SourceError) Unwrap() error {
	return e.Original
}

// Виды запросов к кэшу (часть ключа кэширования)
const (
	KindPrice   = "price"
	KindHistory = "history"
)
