package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"advisor/internal/models"
	"advisor/internal/service"

	"github.com/gorilla/mux"
)

// ProfileHandler отвечает за управление профилями риска и капиталом
//
// Endpoints:
// - POST /api/v1/profiles                    - создание профиля
// - GET /api/v1/profiles/{user_id}           - получение профиля
// - PATCH /api/v1/profiles/{user_id}/risk    - обновление настроек риска
// - POST /api/v1/profiles/{user_id}/deposit  - пополнение капитала
type ProfileHandler struct {
	profileService service.ProfileServiceInterface
}

// NewProfileHandler создает новый ProfileHandler с внедрением зависимости
func NewProfileHandler(profileService service.ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

// CreateProfileRequest структура запроса на создание профиля
type CreateProfileRequest struct {
	UserID  int64   `json:"user_id"`
	Tier    string  `json:"tier"`    // conservative, moderate, aggressive
	Capital float64 `json:"capital"` // стартовый капитал
}

// UpdateRiskRequest структура запроса на обновление риска.
// Если заданы только tier - применяются параметры уровня по умолчанию,
// указанные поля переопределяют их.
type UpdateRiskRequest struct {
	Tier                string   `json:"tier"`
	MaxRiskPerTrade     *float64 `json:"max_risk_per_trade,omitempty"`
	MaxPortfolioRisk    *float64 `json:"max_portfolio_risk,omitempty"`
	PreferredStrategies []string `json:"preferred_strategies,omitempty"`
}

// DepositRequest структура запроса на пополнение капитала
type DepositRequest struct {
	Amount float64 `json:"amount"`
}

// ProfileResponse структура ответа с данными профиля
type ProfileResponse struct {
	UserID              int64    `json:"user_id"`
	Tier                string   `json:"tier"`
	MaxRiskPerTrade     float64  `json:"max_risk_per_trade"`
	MaxPortfolioRisk    float64  `json:"max_portfolio_risk"`
	PreferredStrategies []string `json:"preferred_strategies"`
	TotalCapital        float64  `json:"total_capital"`
	AvailableCapital    float64  `json:"available_capital"`
	InvestedCapital     float64  `json:"invested_capital"`
	Currency            string   `json:"currency"`
	CreatedAt           string   `json:"created_at"`
	UpdatedAt           string   `json:"updated_at"`
}

// CreateProfile создает новый профиль пользователя
// POST /api/v1/profiles
//
// Response:
// - 201 Created: профиль создан
// - 400 Bad Request: невалидный уровень риска или капитал
// - 409 Conflict: профиль уже существует
func (h *ProfileHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	if req.UserID <= 0 {
		respondWithError(w, http.StatusBadRequest, "missing_user_id", "user_id is required", "")
		return
	}

	profile, err := h.profileService.CreateProfile(req.UserID, req.Tier, req.Capital)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, profileToResponse(profile))
}

// GetProfile возвращает профиль пользователя
// GET /api/v1/profiles/{user_id}
//
// Response:
// - 200 OK: данные профиля
// - 404 Not Found: профиль не найден
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	profile, err := h.profileService.GetProfile(userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, profileToResponse(profile))
}

// UpdateRisk обновляет настройки риска профиля
// PATCH /api/v1/profiles/{user_id}/risk
//
// Response:
// - 200 OK: обновленный профиль
// - 400 Bad Request: невалидные параметры риска
// - 404 Not Found: профиль не найден
func (h *ProfileHandler) UpdateRisk(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	var req UpdateRiskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	var (
		profile *models.UserProfile
		err     error
	)
	if req.MaxRiskPerTrade == nil && req.MaxPortfolioRisk == nil && req.PreferredStrategies == nil {
		// Только уровень - применяем параметры по умолчанию
		profile, err = h.profileService.UpdateRisk(userID, req.Tier)
	} else {
		risk := models.DefaultRiskProfile(req.Tier)
		if req.MaxRiskPerTrade != nil {
			risk.MaxRiskPerTrade = *req.MaxRiskPerTrade
		}
		if req.MaxPortfolioRisk != nil {
			risk.MaxPortfolioRisk = *req.MaxPortfolioRisk
		}
		if req.PreferredStrategies != nil {
			risk.PreferredStrategies = req.PreferredStrategies
		}
		profile, err = h.profileService.UpdateRiskParams(userID, risk)
	}
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, profileToResponse(profile))
}

// Deposit пополняет доступный капитал пользователя
// POST /api/v1/profiles/{user_id}/deposit
//
// Response:
// - 200 OK: обновленный профиль
// - 400 Bad Request: неположительная сумма
// - 404 Not Found: профиль не найден
func (h *ProfileHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	profile, err := h.profileService.Deposit(userID, req.Amount)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, profileToResponse(profile))
}

// ============ Helper методы ============

// parseUserID извлекает user_id из пути запроса
func parseUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	vars := mux.Vars(r)
	userID, err := strconv.ParseInt(vars["user_id"], 10, 64)
	if err != nil || userID <= 0 {
		respondWithError(w, http.StatusBadRequest, "invalid_user_id", "Invalid user ID", "user_id must be a positive number")
		return 0, false
	}
	return userID, true
}

// profileToResponse конвертирует модель профиля в ответ API
func profileToResponse(profile *models.UserProfile) ProfileResponse {
	return ProfileResponse{
		UserID:              profile.UserID,
		Tier:                profile.Risk.Tier,
		MaxRiskPerTrade:     profile.Risk.MaxRiskPerTrade,
		MaxPortfolioRisk:    profile.Risk.MaxPortfolioRisk,
		PreferredStrategies: profile.Risk.PreferredStrategies,
		TotalCapital:        profile.Capital.TotalCapital,
		AvailableCapital:    profile.Capital.AvailableCapital,
		InvestedCapital:     profile.Capital.InvestedCapital,
		Currency:            profile.Capital.Currency,
		CreatedAt:           profile.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           profile.UpdatedAt.Format(time.RFC3339),
	}
}

// handleServiceError обрабатывает ошибки от сервиса профилей
func (h *ProfileHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		respondWithError(w, http.StatusNotFound, "profile_not_found", "User profile not found", "")

	case errors.Is(err, service.ErrProfileExists):
		respondWithError(w, http.StatusConflict, "profile_exists", "Profile for this user already exists", "")

	case errors.Is(err, service.ErrInvalidTier):
		respondWithError(w, http.StatusBadRequest, "invalid_tier", "Tier must be conservative, moderate or aggressive", "")

	case errors.Is(err, service.ErrInvalidCapital):
		respondWithError(w, http.StatusBadRequest, "invalid_capital", "Capital must be positive", "")

	case errors.Is(err, service.ErrInvalidRiskPerTrade):
		respondWithError(w, http.StatusBadRequest, "invalid_risk_per_trade", "Risk fractions must be in (0, 1]", "")

	default:
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Internal server error", err.Error())
	}
}
