package marketdata

import (
	"errors"
	"fmt"
	"strings"
)

// SourceFailure фиксирует неудачу одного провайдера при fallback-обходе
type SourceFailure struct {
	Source string `json:"source"`
	Err    error  `json:"-"`
}

func (f SourceFailure) String() string {
	return fmt.Sprintf("%s: %v", f.Source, f.Err)
}

// DataUnavailableError возникает когда все провайдеры исчерпаны
//
// Несет список неудач по каждому провайдеру. Кэш никогда не возвращает
// данные старше TTL вместо этой ошибки.
type DataUnavailableError struct {
	Symbol   string
	Kind     string // price или history
	Failures []SourceFailure
}

func (e *DataUnavailableError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}
	return fmt.Sprintf("market data unavailable for %s (%s): [%s]",
		e.Symbol, e.Kind, strings.Join(parts, "; "))
}

// IsDataUnavailable проверяет, является ли ошибка исчерпанием провайдеров
// Поддерживает wrapped ошибки через errors.As
func IsDataUnavailable(err error) bool {
	var unavailable *DataUnavailableError
	return errors.As(err, &unavailable)
}
