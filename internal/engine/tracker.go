package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"advisor/internal/marketdata"
	"advisor/internal/models"
)

// Ошибки трекера
var (
	ErrPositionNotFound = fmt.Errorf("position not found")
	ErrPositionClosed   = fmt.Errorf("position already closed")
)

// trackedPosition - позиция с собственным мьютексом
// Обновления одной позиции сериализуются, разные позиции независимы
type trackedPosition struct {
	mu  sync.Mutex
	pos *models.Position
}

// Tracker отслеживает жизненный цикл открытых позиций
//
// Функции:
// - Открытие позиции из принятой рекомендации
// - Обновление цены и проверка пересечения stop/take
// - Ручное закрытие
// - Уведомления о переходах через канал (неблокирующая отправка)
//
// Трекер пассивен: периодический опрос запускает внешний планировщик.
type Tracker struct {
	data   MarketData
	logger *zap.Logger

	mu        sync.RWMutex
	positions map[string]*trackedPosition

	notificationChan chan<- *models.Notification

	// now переопределяется в тестах
	now func() time.Time
}

// NewTracker создает трекер позиций
// notifChan может быть nil - тогда уведомления не отправляются
func NewTracker(data MarketData, notifChan chan<- *models.Notification, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		data:             data,
		logger:           logger,
		positions:        make(map[string]*trackedPosition),
		notificationChan: notifChan,
		now:              time.Now,
	}
}

// Open создает позицию из принятой рекомендации
func (t *Tracker) Open(rec *models.Recommendation, userID int64) *models.Position {
	now := t.now()
	pos := &models.Position{
		ID:           uuid.NewString(),
		UserID:       userID,
		Symbol:       rec.Signal.Symbol,
		Action:       rec.Signal.Action,
		Shares:       rec.Sizing.Shares,
		EntryPrice:   rec.CurrentPrice,
		CurrentPrice: rec.CurrentPrice,
		Levels:       rec.Levels,
		StrategyType: rec.StrategyType,
		SignalID:     rec.Signal.ID,
		Status:       models.StatusOpen,
		OpenedAt:     now,
		UpdatedAt:    now,
	}

	t.mu.Lock()
	t.positions[pos.ID] = &trackedPosition{pos: pos}
	openCount := t.countOpenLocked()
	t.mu.Unlock()
	SetOpenPositions(openCount)

	t.logger.Info("позиция открыта",
		zap.String("position_id", pos.ID),
		zap.String("symbol", pos.Symbol),
		zap.String("action", pos.Action),
		zap.Int64("shares", pos.Shares),
		zap.Float64("entry_price", pos.EntryPrice))

	t.notify(&models.Notification{
		Timestamp:  now,
		Type:       models.NotificationTypeOpen,
		Severity:   models.SeverityInfo,
		PositionID: &pos.ID,
		Message: fmt.Sprintf("📈 Открыта позиция %s %s: %d шт. по %.2f",
			pos.Action, pos.Symbol, pos.Shares, pos.EntryPrice),
		Meta: map[string]interface{}{
			"symbol":      pos.Symbol,
			"shares":      pos.Shares,
			"entry_price": pos.EntryPrice,
			"stop_loss":   pos.Levels.StopLossPrice,
			"take_profit": pos.Levels.TakeProfitPrice,
		},
	})

	return pos.Clone()
}

// Discard убирает позицию из трекера без перехода статуса
// Используется при откате, когда сохранить принятую позицию не удалось
func (t *Tracker) Discard(id string) {
	t.mu.Lock()
	delete(t.positions, id)
	openCount := t.countOpenLocked()
	t.mu.Unlock()
	SetOpenPositions(openCount)

	t.logger.Info("позиция убрана из трекера", zap.String("position_id", id))
}

// Restore регистрирует позицию, загруженную из хранилища при старте
func (t *Tracker) Restore(pos *models.Position) {
	t.mu.Lock()
	t.positions[pos.ID] = &trackedPosition{pos: pos.Clone()}
	openCount := t.countOpenLocked()
	t.mu.Unlock()
	SetOpenPositions(openCount)
}

// Get возвращает копию позиции
func (t *Tracker) Get(id string) (*models.Position, error) {
	tp, err := t.lookup(id)
	if err != nil {
		return nil, err
	}
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return tp.pos.Clone(), nil
}

// OpenPositions возвращает копии всех открытых позиций
func (t *Tracker) OpenPositions() []*models.Position {
	t.mu.RLock()
	tracked := make([]*trackedPosition, 0, len(t.positions))
	for _, tp := range t.positions {
		tracked = append(tracked, tp)
	}
	t.mu.RUnlock()

	result := make([]*models.Position, 0, len(tracked))
	for _, tp := range tracked {
		tp.mu.Lock()
		if tp.pos.IsOpen() {
			result = append(result, tp.pos.Clone())
		}
		tp.mu.Unlock()
	}
	return result
}

// Refresh обновляет цену позиции и проверяет пересечение уровней
//
// Идемпотентен: закрытая позиция не меняется, повторный вызов безопасен.
// DataUnavailable трактуется как пропущенное обновление: позиция остаётся
// открытой, ошибка возвращается вызывающему для логирования.
func (t *Tracker) Refresh(ctx context.Context, id string) (*models.Position, error) {
	tp, err := t.lookup(id)
	if err != nil {
		return nil, err
	}

	tp.mu.Lock()
	defer tp.mu.Unlock()

	// Закрытые статусы не меняются: ни статус, ни цена
	if IsTerminal(tp.pos.Status) {
		return tp.pos.Clone(), nil
	}

	snapshot, err := t.data.GetPrice(ctx, tp.pos.Symbol)
	if err != nil {
		if marketdata.IsDataUnavailable(err) {
			RecordSkippedRefresh()
			t.notifySkipped(tp.pos, err)
		}
		return tp.pos.Clone(), err
	}

	tp.pos.CurrentPrice = snapshot.Price
	tp.pos.UpdatedAt = t.now()

	if next, triggered := evaluateTrigger(tp.pos, snapshot.Price); triggered {
		t.transitionLocked(tp.pos, next)
	}
	return tp.pos.Clone(), nil
}

// RefreshAll обновляет все открытые позиции
// Позиции независимы: ошибка одной не прерывает обход остальных
func (t *Tracker) RefreshAll(ctx context.Context) {
	for _, pos := range t.OpenPositions() {
		if _, err := t.Refresh(ctx, pos.ID); err != nil {
			t.logger.Warn("обновление позиции пропущено",
				zap.String("position_id", pos.ID),
				zap.String("symbol", pos.Symbol),
				zap.Error(err))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Close закрывает позицию вручную
func (t *Tracker) Close(ctx context.Context, id string) (*models.Position, error) {
	tp, err := t.lookup(id)
	if err != nil {
		return nil, err
	}

	tp.mu.Lock()
	defer tp.mu.Unlock()

	if IsTerminal(tp.pos.Status) {
		return nil, ErrPositionClosed
	}

	// Цена на момент закрытия - лучшая доступная; при отказе провайдеров
	// позиция закрывается по последней известной цене
	if snapshot, perr := t.data.GetPrice(ctx, tp.pos.Symbol); perr == nil {
		tp.pos.CurrentPrice = snapshot.Price
	}

	t.transitionLocked(tp.pos, models.StatusClosedManual)
	return tp.pos.Clone(), nil
}

// transitionLocked выполняет переход статуса; tp.mu должен быть взят
func (t *Tracker) transitionLocked(pos *models.Position, to string) {
	if !CanTransition(pos.Status, to) {
		t.logger.Error("недопустимый переход статуса",
			zap.String("position_id", pos.ID),
			zap.String("from", pos.Status),
			zap.String("to", to))
		return
	}

	now := t.now()
	pos.Status = to
	pos.ClosedAt = &now
	pos.UpdatedAt = now
	RecordPositionTransition(to)

	t.mu.RLock()
	openCount := t.countOpenLocked()
	t.mu.RUnlock()
	SetOpenPositions(openCount)

	pnl := pos.UnrealizedPnl()
	t.logger.Info("позиция закрыта",
		zap.String("position_id", pos.ID),
		zap.String("symbol", pos.Symbol),
		zap.String("status", to),
		zap.Float64("pnl", pnl))

	t.notifyTransition(pos, pnl)
}

// lookup возвращает обёртку позиции по id
func (t *Tracker) lookup(id string) (*trackedPosition, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tp, ok := t.positions[id]
	if !ok {
		return nil, ErrPositionNotFound
	}
	return tp, nil
}

// countOpenLocked считает открытые позиции; t.mu должен быть взят
// Статус читается без tp.mu - gauge допускает погрешность в моменте
func (t *Tracker) countOpenLocked() int {
	n := 0
	for _, tp := range t.positions {
		if tp.pos.IsOpen() {
			n++
		}
	}
	return n
}

func (t *Tracker) notifyTransition(pos *models.Position, pnl float64) {
	var notifType, emoji string
	severity := models.SeverityInfo
	switch pos.Status {
	case models.StatusClosedStop:
		notifType = models.NotificationTypeStopLoss
		severity = models.SeverityWarn
		emoji = "🚫"
	case models.StatusClosedTake:
		notifType = models.NotificationTypeTakeProfit
		emoji = "✅"
	case models.StatusClosedManual:
		notifType = models.NotificationTypeManualClose
		emoji = "✋"
	default:
		return
	}

	t.notify(&models.Notification{
		Timestamp:  t.now(),
		Type:       notifType,
		Severity:   severity,
		PositionID: &pos.ID,
		Message: fmt.Sprintf("%s Позиция %s %s закрыта (%s). P&L: %.2f",
			emoji, pos.Action, pos.Symbol, pos.Status, pnl),
		Meta: map[string]interface{}{
			"symbol":        pos.Symbol,
			"status":        pos.Status,
			"pnl":           pnl,
			"current_price": pos.CurrentPrice,
		},
	})
}

func (t *Tracker) notifySkipped(pos *models.Position, err error) {
	t.notify(&models.Notification{
		Timestamp:  t.now(),
		Type:       models.NotificationTypeSkippedRefresh,
		Severity:   models.SeverityWarn,
		PositionID: &pos.ID,
		Message: fmt.Sprintf("⚠️ Обновление %s пропущено: данные недоступны",
			pos.Symbol),
		Meta: map[string]interface{}{
			"symbol": pos.Symbol,
			"error":  err.Error(),
		},
	})
}

// notify отправляет уведомление без блокировки
func (t *Tracker) notify(notif *models.Notification) {
	if t.notificationChan == nil {
		return
	}
	select {
	case t.notificationChan <- notif:
	default:
		// Канал заполнен
	}
}
