package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"advisor/internal/marketdata"
	"advisor/internal/models"
	"advisor/internal/service"

	"github.com/gorilla/mux"
)

// PositionHandler отвечает за жизненный цикл позиций
//
// Endpoints:
// - POST /api/v1/positions              - принять сигнал и открыть позицию
// - GET /api/v1/positions               - список позиций пользователя
// - GET /api/v1/positions/summary       - сводка по открытым позициям
// - GET /api/v1/positions/{id}          - получение позиции
// - POST /api/v1/positions/{id}/refresh - принудительное обновление цены
// - POST /api/v1/positions/{id}/close   - ручное закрытие
type PositionHandler struct {
	advisorService  service.AdvisorServiceInterface
	positionService service.PositionServiceInterface
}

// NewPositionHandler создает новый PositionHandler с внедрением зависимостей
func NewPositionHandler(advisorService service.AdvisorServiceInterface, positionService service.PositionServiceInterface) *PositionHandler {
	return &PositionHandler{
		advisorService:  advisorService,
		positionService: positionService,
	}
}

// PositionResponse структура ответа с данными позиции
type PositionResponse struct {
	ID               string  `json:"id"`
	UserID           int64   `json:"user_id"`
	Symbol           string  `json:"symbol"`
	Action           string  `json:"action"`
	Shares           int64   `json:"shares"`
	EntryPrice       float64 `json:"entry_price"`
	CurrentPrice     float64 `json:"current_price"`
	StopLoss         float64 `json:"stop_loss"`
	TakeProfit       float64 `json:"take_profit"`
	StrategyType     string  `json:"strategy_type"`
	SignalID         string  `json:"signal_id,omitempty"`
	Status           string  `json:"status"`
	InvestmentAmount float64 `json:"investment_amount"`
	CurrentValue     float64 `json:"current_value"`
	UnrealizedPnl    float64 `json:"unrealized_pnl"`
	UnrealizedPnlPct float64 `json:"unrealized_pnl_pct"`
	OpenedAt         string  `json:"opened_at"`
	ClosedAt         *string `json:"closed_at,omitempty"`
}

// CreatePosition принимает торговый сигнал, рассчитывает рекомендацию
// и сразу открывает позицию с резервированием капитала
// POST /api/v1/positions
//
// Request Body: как у POST /api/v1/recommendations
//
// Response:
// - 201 Created: позиция открыта
// - 400 Bad Request: невалидный сигнал
// - 404 Not Found: профиль не найден
// - 409 Conflict: недостаточно доступного капитала
// - 422 Unprocessable Entity: нулевой размер позиции ("сделка не оправдана")
//   или недостаточно истории
// - 503 Service Unavailable: источники котировок недоступны
func (h *PositionHandler) CreatePosition(w http.ResponseWriter, r *http.Request) {
	var req SignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	if req.UserID <= 0 {
		respondWithError(w, http.StatusBadRequest, "missing_user_id", "user_id is required", "")
		return
	}

	rec, err := h.advisorService.Recommend(r.Context(), req.UserID, req.toSignal())
	if err != nil {
		handleAdvisorError(w, err)
		return
	}

	pos, err := h.advisorService.Accept(r.Context(), req.UserID, rec)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, positionToResponse(pos))
}

// GetPositions возвращает позиции пользователя
// GET /api/v1/positions?user_id=1&status=open
//
// Query Parameters:
// - user_id (обязательный)
// - status: фильтр по статусу (open, closed_stop, closed_take, closed_manual)
//
// Response:
// - 200 OK: массив позиций
func (h *PositionHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserIDQuery(w, r)
	if !ok {
		return
	}

	positions, err := h.positionService.List(userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to get positions", err.Error())
		return
	}

	statusFilter := r.URL.Query().Get("status")

	response := make([]PositionResponse, 0, len(positions))
	for _, pos := range positions {
		if statusFilter != "" && pos.Status != statusFilter {
			continue
		}
		response = append(response, positionToResponse(pos))
	}

	respondWithJSON(w, http.StatusOK, response)
}

// GetPosition возвращает позицию по ID
// GET /api/v1/positions/{id}
//
// Response:
// - 200 OK: данные позиции
// - 404 Not Found: позиция не найдена
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	pos, err := h.positionService.Get(id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, positionToResponse(pos))
}

// RefreshPosition принудительно обновляет цену позиции и проверяет триггеры
// POST /api/v1/positions/{id}/refresh
//
// Response:
// - 200 OK: обновленная позиция (статус мог измениться на closed_stop/closed_take)
// - 404 Not Found: позиция не найдена
// - 503 Service Unavailable: котировки недоступны, refresh пропущен,
//   позиция осталась без изменений
func (h *PositionHandler) RefreshPosition(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	pos, err := h.positionService.Refresh(r.Context(), id)
	if err != nil {
		if marketdata.IsDataUnavailable(err) {
			respondWithError(w, http.StatusServiceUnavailable, "data_unavailable", "Price sources unavailable, refresh skipped", err.Error())
			return
		}
		h.handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, positionToResponse(pos))
}

// ClosePosition закрывает позицию вручную
// POST /api/v1/positions/{id}/close
//
// Response:
// - 200 OK: закрытая позиция (status=closed_manual)
// - 404 Not Found: позиция не найдена
// - 409 Conflict: позиция уже закрыта
func (h *PositionHandler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	pos, err := h.positionService.Close(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, positionToResponse(pos))
}

// GetSummary возвращает сводку по открытым позициям пользователя
// GET /api/v1/positions/summary?user_id=1
//
// Response:
// - 200 OK: агрегированная сводка
func (h *PositionHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserIDQuery(w, r)
	if !ok {
		return
	}

	summary, err := h.positionService.Summary(userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to build summary", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

// ============ Helper методы ============

// parseUserIDQuery извлекает user_id из query-параметров
func parseUserIDQuery(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		respondWithError(w, http.StatusBadRequest, "invalid_user_id", "Invalid user ID", "user_id query parameter must be a positive number")
		return 0, false
	}
	return userID, true
}

// positionToResponse конвертирует модель позиции в ответ API
func positionToResponse(pos *models.Position) PositionResponse {
	response := PositionResponse{
		ID:               pos.ID,
		UserID:           pos.UserID,
		Symbol:           pos.Symbol,
		Action:           pos.Action,
		Shares:           pos.Shares,
		EntryPrice:       pos.EntryPrice,
		CurrentPrice:     pos.CurrentPrice,
		StopLoss:         pos.Levels.StopLossPrice,
		TakeProfit:       pos.Levels.TakeProfitPrice,
		StrategyType:     pos.StrategyType,
		SignalID:         pos.SignalID,
		Status:           pos.Status,
		InvestmentAmount: pos.InvestmentAmount(),
		CurrentValue:     pos.CurrentValue(),
		UnrealizedPnl:    pos.UnrealizedPnl(),
		UnrealizedPnlPct: pos.UnrealizedPnlPct(),
		OpenedAt:         pos.OpenedAt.Format(time.RFC3339),
	}
	if pos.ClosedAt != nil {
		closedAt := pos.ClosedAt.Format(time.RFC3339)
		response.ClosedAt = &closedAt
	}
	return response
}

// handleServiceError обрабатывает ошибки от сервисов позиций
func (h *PositionHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrPositionNotFound):
		respondWithError(w, http.StatusNotFound, "position_not_found", "Position not found", "")

	case errors.Is(err, service.ErrPositionClosed):
		respondWithError(w, http.StatusConflict, "position_closed", "Position is already closed", "")

	case errors.Is(err, service.ErrNoPositionWarranted):
		respondWithError(w, http.StatusUnprocessableEntity, "no_position_warranted", "Computed position size is zero, trade not warranted", "")

	case errors.Is(err, service.ErrInsufficientCapital):
		respondWithError(w, http.StatusConflict, "insufficient_capital", "Not enough available capital for this position", "")

	default:
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Internal server error", err.Error())
	}
}
