package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"advisor/internal/models"
)

// WebSocketBroadcaster - интерфейс для отправки WebSocket сообщений
//
// Позволяет избежать циклических зависимостей между пакетами
// и упрощает тестирование (можно подставить mock)
type WebSocketBroadcaster interface {
	BroadcastNotification(notif *models.Notification)
}

// NotificationService предоставляет бизнес-логику уведомлений.
//
// Отвечает за:
// - Приём событий жизненного цикла позиций из канала трекера
// - Журналирование уведомлений в БД
// - Broadcast через WebSocket для real-time UI
// - Очистку журнала
//
// Типы уведомлений:
// - OPEN: открытие позиции
// - STOP_LOSS: срабатывание stop-loss
// - TAKE_PROFIT: срабатывание take-profit
// - MANUAL_CLOSE: ручное закрытие
// - ERROR: ошибка обработки
// - SKIPPED_REFRESH: обновление пропущено (нет данных)
type NotificationService struct {
	notificationRepo NotificationRepositoryInterface
	wsHub            WebSocketBroadcaster
	logger           *zap.Logger

	events <-chan *models.Notification
}

// NewNotificationService создает новый экземпляр NotificationService.
// events - канал, в который Tracker публикует события позиций
func NewNotificationService(
	notificationRepo NotificationRepositoryInterface,
	events <-chan *models.Notification,
	logger *zap.Logger,
) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		notificationRepo: notificationRepo,
		events:           events,
		logger:           logger,
	}
}

// SetWebSocketHub устанавливает WebSocket hub для broadcast уведомлений.
//
// Вызывается после инициализации Hub в main.go:
//
//	notifService := service.NewNotificationService(notifRepo, events, logger)
//	notifService.SetWebSocketHub(wsHub)
func (s *NotificationService) SetWebSocketHub(hub WebSocketBroadcaster) {
	s.wsHub = hub
}

// Run читает события трекера до отмены контекста
// Запускается в отдельной горутине из main.go
func (s *NotificationService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-s.events:
			if !ok {
				return
			}
			if err := s.CreateNotification(notif); err != nil {
				s.logger.Error("не удалось записать уведомление",
					zap.String("type", notif.Type),
					zap.Error(err))
			}
		}
	}
}

// CreateNotification записывает уведомление в журнал и делает broadcast
func (s *NotificationService) CreateNotification(notif *models.Notification) error {
	if err := s.notificationRepo.Create(notif); err != nil {
		return err
	}

	if s.wsHub != nil {
		s.wsHub.BroadcastNotification(notif)
	}
	return nil
}

// GetRecent возвращает последние уведомления, limit обрезается до [1, 200]
func (s *NotificationService) GetRecent(limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return s.notificationRepo.GetRecent(limit)
}

// GetByTypes возвращает уведомления заданных типов
func (s *NotificationService) GetByTypes(types []string, limit int) ([]*models.Notification, error) {
	if len(types) == 0 {
		return s.GetRecent(limit)
	}
	if limit <= 0 {
		limit = 50
	}
	return s.notificationRepo.GetByTypes(types, limit)
}

// GetByPosition возвращает журнал одной позиции
func (s *NotificationService) GetByPosition(positionID string) ([]*models.Notification, error) {
	return s.notificationRepo.GetByPosition(positionID)
}

// ClearAll очищает журнал уведомлений
func (s *NotificationService) ClearAll() error {
	return s.notificationRepo.DeleteAll()
}

// Cleanup удаляет уведомления старше retention
func (s *NotificationService) Cleanup(retention time.Duration) (int64, error) {
	return s.notificationRepo.DeleteOlderThan(time.Now().Add(-retention))
}
