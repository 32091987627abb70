package api

import (
	"net/http"
	"net/http/pprof"

	"advisor/internal/api/handlers"
	"advisor/internal/api/middleware"
	"advisor/internal/service"
	"advisor/internal/websocket"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	ProfileService      service.ProfileServiceInterface
	AdvisorService      service.AdvisorServiceInterface
	PositionService     service.PositionServiceInterface
	NotificationService service.NotificationServiceInterface
	WebSocketHub        *websocket.Hub
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /recommendations/
//	│   └── POST / - рассчитать рекомендацию по сигналу
//	├── /positions/
//	│   ├── POST / - принять сигнал и открыть позицию
//	│   ├── GET / - список позиций пользователя
//	│   ├── GET /summary - сводка по открытым позициям
//	│   ├── GET /{id} - получить позицию
//	│   ├── POST /{id}/refresh - обновить цену и проверить триггеры
//	│   └── POST /{id}/close - закрыть вручную
//	├── /profiles/
//	│   ├── POST / - создать профиль
//	│   ├── GET /{user_id} - получить профиль
//	│   ├── PATCH /{user_id}/risk - обновить настройки риска
//	│   └── POST /{user_id}/deposit - пополнить капитал
//	└── /notifications/
//	    ├── GET / - журнал событий
//	    └── DELETE / - очистить журнал
//
// /ws/stream - WebSocket для real-time обновлений позиций
// /metrics   - Prometheus метрики
// /health    - health check
// /debug/    - pprof (за DebugAuth)
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. Auth (только для /api/v1)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	// Создание handlers с внедрением зависимостей
	var recommendationHandler *handlers.RecommendationHandler
	if deps != nil && deps.AdvisorService != nil {
		recommendationHandler = handlers.NewRecommendationHandler(deps.AdvisorService)
	}

	var positionHandler *handlers.PositionHandler
	if deps != nil && deps.AdvisorService != nil && deps.PositionService != nil {
		positionHandler = handlers.NewPositionHandler(deps.AdvisorService, deps.PositionService)
	}

	var profileHandler *handlers.ProfileHandler
	if deps != nil && deps.ProfileService != nil {
		profileHandler = handlers.NewProfileHandler(deps.ProfileService)
	}

	var notificationHandler *handlers.NotificationHandler
	if deps != nil && deps.NotificationService != nil {
		notificationHandler = handlers.NewNotificationHandler(deps.NotificationService)
	}

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Auth)

	// Recommendation routes
	if recommendationHandler != nil {
		api.HandleFunc("/recommendations", recommendationHandler.CreateRecommendation).Methods("POST")
	}

	// Position routes
	if positionHandler != nil {
		api.HandleFunc("/positions", positionHandler.CreatePosition).Methods("POST")
		api.HandleFunc("/positions", positionHandler.GetPositions).Methods("GET")
		api.HandleFunc("/positions/summary", positionHandler.GetSummary).Methods("GET")
		api.HandleFunc("/positions/{id}", positionHandler.GetPosition).Methods("GET")
		api.HandleFunc("/positions/{id}/refresh", positionHandler.RefreshPosition).Methods("POST")
		api.HandleFunc("/positions/{id}/close", positionHandler.ClosePosition).Methods("POST")
	}

	// Profile routes
	if profileHandler != nil {
		api.HandleFunc("/profiles", profileHandler.CreateProfile).Methods("POST")
		api.HandleFunc("/profiles/{user_id}", profileHandler.GetProfile).Methods("GET")
		api.HandleFunc("/profiles/{user_id}/risk", profileHandler.UpdateRisk).Methods("PATCH")
		api.HandleFunc("/profiles/{user_id}/deposit", profileHandler.Deposit).Methods("POST")
	}

	// Notification routes
	if notificationHandler != nil {
		api.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
		api.HandleFunc("/notifications", notificationHandler.ClearNotifications).Methods("DELETE")
	}

	// WebSocket route
	if deps != nil && deps.WebSocketHub != nil {
		hub := deps.WebSocketHub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// pprof за basic auth
	debug := router.PathPrefix("/debug/pprof").Subrouter()
	debug.Use(middleware.DebugAuth)
	debug.HandleFunc("", pprof.Index)
	debug.HandleFunc("/cmdline", pprof.Cmdline)
	debug.HandleFunc("/profile", pprof.Profile)
	debug.HandleFunc("/symbol", pprof.Symbol)
	debug.HandleFunc("/trace", pprof.Trace)
	debug.PathPrefix("/").Handler(http.HandlerFunc(pprof.Index))

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
