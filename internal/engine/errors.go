package engine

import (
	"errors"
	"fmt"
)

// Этапы конвейера рекомендаций (для аннотации ошибок)
const (
	StagePrice      = "price"
	StageVolatility = "volatility"
	StageExits      = "exit_levels"
	StageSizing     = "sizing"
)

// InsufficientDataError - исторической серии не хватает для расчёта волатильности
type InsufficientDataError struct {
	Symbol string
	Needed int
	Have   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient history for %s: need %d points, have %d",
		e.Symbol, e.Needed, e.Have)
}

// InvalidInputError - некорректный вход, не ретраится
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Field, e.Reason)
}

// StageError аннотирует ошибку именем упавшего этапа конвейера
// Конвейер всё-или-ничего: частичная рекомендация не возвращается
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsInsufficientData проверяет, является ли ошибка нехваткой истории
func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}

// IsInvalidInput проверяет, является ли ошибка некорректным входом
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}
