package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"advisor/internal/models"
	"advisor/internal/service"
)

// NotificationHandler отвечает за журнал событий жизненного цикла позиций
//
// Endpoints:
// - GET /api/v1/notifications                       - получение списка уведомлений
// - GET /api/v1/notifications?types=stop_loss,error - с фильтрацией по типам
// - GET /api/v1/notifications?position_id=...       - история одной позиции
// - GET /api/v1/notifications?limit=50              - с ограничением количества
// - DELETE /api/v1/notifications                    - очистка журнала
type NotificationHandler struct {
	notificationService service.NotificationServiceInterface
}

// NewNotificationHandler создает новый NotificationHandler с внедрением зависимости
func NewNotificationHandler(notificationService service.NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// GetNotificationsResponse представляет ответ списка уведомлений
type GetNotificationsResponse struct {
	Notifications []NotificationDTO `json:"notifications"`
	Total         int               `json:"total"`
}

// NotificationDTO представляет уведомление в API
type NotificationDTO struct {
	ID         int                    `json:"id"`
	Timestamp  string                 `json:"timestamp"`
	Type       string                 `json:"type"`
	Severity   string                 `json:"severity"`
	PositionID *string                `json:"position_id,omitempty"`
	Message    string                 `json:"message"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// GetNotifications возвращает список уведомлений с фильтрацией
//
// GET /api/v1/notifications
//
// Query параметры:
// - types (string): фильтр по типам через запятую
//   (open, stop_loss, take_profit, manual_close, error, skipped_refresh)
// - position_id (string): только события одной позиции
// - limit (int): количество записей (по умолчанию 100)
//
// HTTP коды:
// - 200 OK: успешно, возвращает массив уведомлений
// - 500 Internal Server Error: ошибка сервера
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	typesParam := r.URL.Query().Get("types")
	limitParam := r.URL.Query().Get("limit")
	positionID := r.URL.Query().Get("position_id")

	// Парсинг типов
	var types []string
	if typesParam != "" {
		parts := strings.Split(typesParam, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				types = append(types, strings.ToUpper(trimmed))
			}
		}
	}

	// Парсинг лимита
	limit := 100 // по умолчанию
	if limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	notifications, err := h.fetch(types, positionID, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to get notifications", err.Error())
		return
	}

	dtos := make([]NotificationDTO, 0, len(notifications))
	for _, n := range notifications {
		dtos = append(dtos, NotificationDTO{
			ID:         n.ID,
			Timestamp:  n.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			Type:       n.Type,
			Severity:   n.Severity,
			PositionID: n.PositionID,
			Message:    n.Message,
			Meta:       n.Meta,
		})
	}

	respondWithJSON(w, http.StatusOK, GetNotificationsResponse{
		Notifications: dtos,
		Total:         len(dtos),
	})
}

// fetch выбирает способ выборки по заданным фильтрам
func (h *NotificationHandler) fetch(types []string, positionID string, limit int) ([]*models.Notification, error) {
	switch {
	case positionID != "":
		return h.notificationService.GetByPosition(positionID)
	case len(types) > 0:
		return h.notificationService.GetByTypes(types, limit)
	default:
		return h.notificationService.GetRecent(limit)
	}
}

// ClearNotifications очищает журнал уведомлений
//
// DELETE /api/v1/notifications
//
// Удаляет все уведомления из базы данных. Действие необратимо.
//
// HTTP коды:
// - 200 OK: журнал успешно очищен
// - 500 Internal Server Error: ошибка при очистке
func (h *NotificationHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	if err := h.notificationService.ClearAll(); err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to clear notifications", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "Notifications cleared successfully",
	})
}
