package handlers

import (
	"errors"
	"net/http"
	"time"

	"advisor/internal/engine"
	"advisor/internal/marketdata"
	"advisor/internal/models"
	"advisor/internal/service"
)

// RecommendationHandler отвечает за расчет торговых рекомендаций
//
// Endpoints:
// - POST /api/v1/recommendations - рассчитать рекомендацию по сигналу
type RecommendationHandler struct {
	advisorService service.AdvisorServiceInterface
}

// NewRecommendationHandler создает новый RecommendationHandler с внедрением зависимости
func NewRecommendationHandler(advisorService service.AdvisorServiceInterface) *RecommendationHandler {
	return &RecommendationHandler{
		advisorService: advisorService,
	}
}

// SignalRequest структура входящего торгового сигнала
type SignalRequest struct {
	UserID       int64   `json:"user_id"`
	SignalID     string  `json:"signal_id,omitempty"`
	Symbol       string  `json:"symbol"`     // NVDA
	Action       string  `json:"action"`     // BUY, SELL
	Confidence   float64 `json:"confidence"` // 0.0 - 1.0
	StrategyType string  `json:"strategy_type,omitempty"`
	Reasoning    string  `json:"reasoning,omitempty"`
}

// RecommendationResponse структура ответа с рекомендацией.
// Имена полей и единицы измерения (цены в валюте счета, проценты 0-100,
// соотношение риск/прибыль строкой "1:N") зафиксированы для потребителей.
type RecommendationResponse struct {
	Instrument            string  `json:"instrument"`
	Action                string  `json:"action"`
	Confidence            float64 `json:"confidence"` // 0-100
	CurrentPrice          float64 `json:"current_price"`
	SharesToBuy           int64   `json:"shares_to_buy"`
	InvestmentAmount      float64 `json:"investment_amount"`
	PercentageOfPortfolio float64 `json:"percentage_of_portfolio"`
	StopLoss              float64 `json:"stop_loss"`
	TakeProfit            float64 `json:"take_profit"`
	MaxRisk               float64 `json:"max_risk"`
	RiskRewardRatio       string  `json:"risk_reward_ratio"` // "1:2.0"
	StrategyType          string  `json:"strategy_type"`
	StopLossPct           float64 `json:"stop_loss_pct"`
	TakeProfitPct         float64 `json:"take_profit_pct"`
	VolatilityPct         float64 `json:"volatility_pct"`
	CreatedAt             string  `json:"created_at"`
}

// CreateRecommendation рассчитывает рекомендацию по торговому сигналу
// POST /api/v1/recommendations
//
// Request Body:
//
//	{
//	  "user_id": 1,
//	  "symbol": "NVDA",
//	  "action": "BUY",
//	  "confidence": 0.85,
//	  "strategy_type": "day_trading"
//	}
//
// Response:
// - 200 OK: рекомендация рассчитана (shares_to_buy может быть 0 - "сделка не оправдана")
// - 400 Bad Request: невалидный сигнал
// - 404 Not Found: профиль пользователя не найден
// - 422 Unprocessable Entity: недостаточно истории для расчета волатильности
// - 503 Service Unavailable: все источники котировок недоступны
func (h *RecommendationHandler) CreateRecommendation(w http.ResponseWriter, r *http.Request) {
	var req SignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	if req.UserID <= 0 {
		respondWithError(w, http.StatusBadRequest, "missing_user_id", "user_id is required", "")
		return
	}
	if req.Symbol == "" {
		respondWithError(w, http.StatusBadRequest, "missing_symbol", "symbol is required", "")
		return
	}

	signal := req.toSignal()

	rec, err := h.advisorService.Recommend(r.Context(), req.UserID, signal)
	if err != nil {
		handleAdvisorError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, recommendationToResponse(rec))
}

// toSignal конвертирует запрос в доменную модель сигнала
func (r SignalRequest) toSignal() models.Signal {
	return models.Signal{
		ID:           r.SignalID,
		Symbol:       r.Symbol,
		Action:       r.Action,
		Confidence:   r.Confidence,
		StrategyType: r.StrategyType,
		Reasoning:    r.Reasoning,
		CreatedAt:    time.Now(),
	}
}

// recommendationToResponse конвертирует доменную рекомендацию в ответ API
func recommendationToResponse(rec *models.Recommendation) RecommendationResponse {
	return RecommendationResponse{
		Instrument:            rec.Signal.Symbol,
		Action:                rec.Signal.Action,
		Confidence:            rec.Signal.Confidence * 100,
		CurrentPrice:          rec.CurrentPrice,
		SharesToBuy:           rec.Sizing.Shares,
		InvestmentAmount:      rec.Sizing.InvestmentAmount,
		PercentageOfPortfolio: rec.PercentOfPortfolio,
		StopLoss:              rec.Levels.StopLossPrice,
		TakeProfit:            rec.Levels.TakeProfitPrice,
		MaxRisk:               rec.Sizing.RiskAmount,
		RiskRewardRatio:       rec.RiskReward(),
		StrategyType:          rec.StrategyType,
		StopLossPct:           rec.Levels.StopLossPct,
		TakeProfitPct:         rec.Levels.TakeProfitPct,
		VolatilityPct:         rec.Volatility.StdDevPct,
		CreatedAt:             rec.CreatedAt.Format(time.RFC3339),
	}
}

// handleAdvisorError маппит ошибки конвейера рекомендаций на HTTP статусы
func handleAdvisorError(w http.ResponseWriter, err error) {
	var stageErr *engine.StageError
	stage := ""
	if errors.As(err, &stageErr) {
		stage = stageErr.Stage
	}

	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		respondWithError(w, http.StatusNotFound, "profile_not_found", "User profile not found", "")

	case engine.IsInvalidInput(err):
		respondWithError(w, http.StatusBadRequest, "invalid_input", "Invalid signal or sizing input", err.Error())

	case engine.IsInsufficientData(err):
		respondWithError(w, http.StatusUnprocessableEntity, "insufficient_data", "Not enough price history for volatility analysis", err.Error())

	case marketdata.IsDataUnavailable(err):
		respondWithError(w, http.StatusServiceUnavailable, "data_unavailable", "All price sources are unavailable", err.Error())

	default:
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Internal server error", stageDetails(stage, err))
	}
}

func stageDetails(stage string, err error) string {
	if stage == "" {
		return err.Error()
	}
	return "stage " + stage + ": " + err.Error()
}
