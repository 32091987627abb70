package engine

import (
	"context"

	"advisor/internal/models"
)

// MarketData - контракт слоя рыночных данных, который потребляет движок
// Реализуется marketdata.Cache; в тестах подменяется моками
type MarketData interface {
	GetPrice(ctx context.Context, symbol string) (*models.PriceSnapshot, error)
	GetHistory(ctx context.Context, symbol string, window models.Window) (models.PriceSeries, error)
}
