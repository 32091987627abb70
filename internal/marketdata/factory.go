package marketdata

import (
	"fmt"
	"net/http"
	"strings"
)

// SupportedSources - список поддерживаемых провайдеров данных
// Порядок в конфигурации задаёт приоритет опроса
var SupportedSources = []string{
	"yahoo",
	"stooq",
}

// NewSource создает провайдер рыночных данных по имени
func NewSource(name string, client *http.Client) (PriceSource, error) {
	name = strings.ToLower(name)

	switch name {
	case "yahoo":
		return NewYahoo(client), nil
	case "stooq":
		return NewStooq(client), nil
	default:
		return nil, fmt.Errorf("unsupported market data source: %s", name)
	}
}

// IsSupported проверяет, поддерживается ли провайдер
func IsSupported(name string) bool {
	name = strings.ToLower(name)
	for _, supported := range SupportedSources {
		if name == supported {
			return true
		}
	}
	return false
}
