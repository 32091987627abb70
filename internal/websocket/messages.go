package websocket

import (
	"time"

	"advisor/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypePositionUpdate - обновление состояния позиции
	// Отправляется после каждого refresh открытой позиции
	MessageTypePositionUpdate MessageType = "positionUpdate"

	// MessageTypeNotification - новое уведомление
	// Отправляется при событиях: открытие, stop-loss, take-profit, ручное закрытие, ошибки
	MessageTypeNotification MessageType = "notification"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// PositionUpdateMessage - сообщение об обновлении состояния позиции
//
// Содержит актуальную информацию о позиции после refresh:
// - Текущую цену и стоимость
// - Нереализованный PNL
// - Статус (open или терминальный после срабатывания стопа/тейка)
type PositionUpdateMessage struct {
	BaseMessage
	PositionID string              `json:"position_id"`
	Data       *PositionUpdateData `json:"data"`
}

// PositionUpdateData - данные обновления позиции
type PositionUpdateData struct {
	// Тикер инструмента
	Symbol string `json:"symbol"`

	// Статус позиции (open, closed_stop, closed_take, closed_manual)
	Status string `json:"status"`

	// Направление позиции (BUY, SELL)
	Action string `json:"action"`

	// Количество акций
	Shares int64 `json:"shares"`

	// Цена входа
	EntryPrice float64 `json:"entry_price"`

	// Текущая рыночная цена
	CurrentPrice float64 `json:"current_price"`

	// Текущая стоимость позиции
	CurrentValue float64 `json:"current_value"`

	// Нереализованный PNL
	UnrealizedPnl float64 `json:"unrealized_pnl"`

	// Нереализованный PNL в процентах от входа
	UnrealizedPnlPct float64 `json:"unrealized_pnl_pct"`

	// Уровни выхода
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`

	// Время последнего обновления
	LastUpdate time.Time `json:"last_update"`
}

// NotificationMessage - сообщение о новом уведомлении
//
// Содержит информацию о событии:
// - Тип события (OPEN, STOP_LOSS, TAKE_PROFIT, MANUAL_CLOSE, ERROR, SKIPPED_REFRESH)
// - Уровень важности (info, warn, error)
// - Текст сообщения
// - Дополнительные метаданные
type NotificationMessage struct {
	BaseMessage
	Data *NotificationData `json:"data"`
}

// NotificationData - данные уведомления
type NotificationData struct {
	// ID уведомления в БД
	ID int `json:"id"`

	// Тип уведомления
	Type string `json:"type"`

	// Уровень важности (info, warn, error)
	Severity string `json:"severity"`

	// ID связанной позиции (если применимо)
	PositionID *string `json:"position_id,omitempty"`

	// Текст сообщения
	Message string `json:"message"`

	// Дополнительные метаданные (цены, количество акций, PNL и т.д.)
	Meta map[string]interface{} `json:"meta,omitempty"`

	// Время создания уведомления
	Timestamp time.Time `json:"timestamp"`
}

// ============ Фабричные функции для создания сообщений ============

// NewPositionUpdateMessage создает сообщение обновления позиции
func NewPositionUpdateMessage(position *models.Position) *PositionUpdateMessage {
	return &PositionUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypePositionUpdate,
			Timestamp: time.Now(),
		},
		PositionID: position.ID,
		Data: &PositionUpdateData{
			Symbol:           position.Symbol,
			Status:           position.Status,
			Action:           position.Action,
			Shares:           position.Shares,
			EntryPrice:       position.EntryPrice,
			CurrentPrice:     position.CurrentPrice,
			CurrentValue:     position.CurrentValue(),
			UnrealizedPnl:    position.UnrealizedPnl(),
			UnrealizedPnlPct: position.UnrealizedPnlPct(),
			StopLoss:         position.Levels.StopLossPrice,
			TakeProfit:       position.Levels.TakeProfitPrice,
			LastUpdate:       position.UpdatedAt,
		},
	}
}

// NewNotificationMessage создает сообщение уведомления
func NewNotificationMessage(notif *models.Notification) *NotificationMessage {
	return &NotificationMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeNotification,
			Timestamp: time.Now(),
		},
		Data: &NotificationData{
			ID:         notif.ID,
			Type:       notif.Type,
			Severity:   notif.Severity,
			PositionID: notif.PositionID,
			Message:    notif.Message,
			Meta:       notif.Meta,
			Timestamp:  notif.Timestamp,
		},
	}
}
