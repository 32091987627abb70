package models

import "time"

// Notification представляет уведомление о событии жизненного цикла позиции
type Notification struct {
	ID         int                    `json:"id" db:"id"`
	Timestamp  time.Time              `json:"timestamp" db:"timestamp"`
	Type       string                 `json:"type" db:"type"`         // OPEN, STOP_LOSS, TAKE_PROFIT, MANUAL_CLOSE, ERROR, SKIPPED_REFRESH
	Severity   string                 `json:"severity" db:"severity"` // info, warn, error
	PositionID *string                `json:"position_id,omitempty" db:"position_id"`
	Message    string                 `json:"message" db:"message"`
	Meta       map[string]interface{} `json:"meta,omitempty" db:"meta"` // дополнительные данные (JSON в БД)
}

// Типы уведомлений
const (
	NotificationTypeOpen           = "OPEN"            // открытие позиции
	NotificationTypeStopLoss       = "STOP_LOSS"       // срабатывание stop-loss
	NotificationTypeTakeProfit     = "TAKE_PROFIT"     // срабатывание take-profit
	NotificationTypeManualClose    = "MANUAL_CLOSE"    // ручное закрытие
	NotificationTypeError          = "ERROR"           // ошибка обработки
	NotificationTypeSkippedRefresh = "SKIPPED_REFRESH" // refresh пропущен (нет данных)
)

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)
