package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"advisor/internal/api"
	"advisor/internal/config"
	"advisor/internal/engine"
	"advisor/internal/marketdata"
	"advisor/internal/models"
	"advisor/internal/repository"
	"advisor/internal/scheduler"
	"advisor/internal/service"
	"advisor/internal/websocket"
	"advisor/pkg/utils"

	_ "github.com/lib/pq"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера
	logger := utils.InitGlobalLogger(utils.LogConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: os.Getenv("ENV") == "development",
	})
	defer logger.Logger.Sync()

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		utils.Fatal("не удалось подключиться к базе данных",
			zap.String("dsn", cfg.Database.DSNWithoutPassword()),
			zap.Error(err))
	}
	defer db.Close()

	utils.Info("подключение к базе данных установлено",
		zap.String("dsn", cfg.Database.DSNWithoutPassword()))

	// Репозитории
	profileRepo := repository.NewProfileRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Провайдеры рыночных данных: опрашиваются в порядке конфигурации,
	// отказ одного провайдера переключает на следующий
	httpClient := marketdata.NewHTTPClient(marketdata.DefaultHTTPClientConfig())
	sources := make([]marketdata.PriceSource, 0, len(cfg.MarketData.Sources))
	for _, name := range cfg.MarketData.Sources {
		source, err := marketdata.NewSource(name, httpClient)
		if err != nil {
			utils.Fatal("не удалось создать провайдер рыночных данных",
				utils.Source(name), zap.Error(err))
		}
		sources = append(sources, source)
	}

	dataCache := marketdata.NewCache(sources, marketdata.CacheConfig{
		PriceTTL:      cfg.MarketData.PriceTTL,
		HistoryTTL:    cfg.MarketData.HistoryTTL,
		SourceTimeout: cfg.MarketData.SourceTimeout,
		RetryAttempts: cfg.MarketData.RetryAttempts,
	}, logger.WithComponent("marketdata").Logger)

	// Конвейер рекомендаций
	volAnalyzer := engine.NewVolatilityAnalyzer(dataCache, engine.VolatilityConfig{
		LookbackN: cfg.Engine.VolatilityLookback,
		CacheTTL:  5 * time.Minute,
	})
	exitCalc := engine.NewExitCalculator(engine.ExitConfig{
		Strategies:         engine.DefaultExitConfig().Strategies,
		UseTechnicalLevels: cfg.Engine.UseTechnicalLevels,
	})
	advisorEngine := engine.NewEngine(
		dataCache,
		volAnalyzer,
		exitCalc,
		engine.NewSizer(),
		engine.EngineConfig{Window: cfg.Engine.HistoryWindow},
		logger.WithComponent("engine").Logger,
	)

	// Трекер позиций публикует события жизненного цикла в канал,
	// NotificationService читает его и журналирует
	events := make(chan *models.Notification, 64)
	tracker := engine.NewTracker(dataCache, events, logger.WithComponent("tracker").Logger)

	// Сервисы
	profileService := service.NewProfileService(profileRepo)
	advisorService := service.NewAdvisorService(advisorEngine, tracker, profileRepo, positionRepo,
		logger.WithComponent("advisor").Logger)
	positionService := service.NewPositionService(tracker, positionRepo, profileRepo,
		logger.WithComponent("positions").Logger)
	notificationService := service.NewNotificationService(notificationRepo, events,
		logger.WithComponent("notifications").Logger)

	// WebSocket hub для real-time обновлений
	hub := websocket.NewHub()
	go hub.Run()
	notificationService.SetWebSocketHub(hub)

	// Восстановление открытых позиций после рестарта
	restored, err := positionService.RestoreOpenPositions()
	if err != nil {
		utils.Fatal("не удалось восстановить открытые позиции", zap.Error(err))
	}
	utils.Info("сервис инициализирован", zap.Int("restored_positions", restored))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go notificationService.Run(ctx)

	// Планировщик фоновых задач
	sched := scheduler.New(ctx, positionService, notificationService, scheduler.Config{
		RefreshSpec:           cfg.Scheduler.RefreshSpec,
		CleanupSpec:           cfg.Scheduler.CleanupSpec,
		NotificationRetention: cfg.Scheduler.NotificationRetention,
	}, logger.WithComponent("scheduler").Logger)
	if err := sched.Register(); err != nil {
		utils.Fatal("не удалось зарегистрировать фоновые задачи", zap.Error(err))
	}
	sched.Start()

	// HTTP API
	deps := &api.Dependencies{
		ProfileService:      profileService,
		AdvisorService:      advisorService,
		PositionService:     positionService,
		NotificationService: notificationService,
		WebSocketHub:        hub,
	}
	router := api.SetupRoutes(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		utils.Info("HTTP сервер запущен", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Fatal("HTTP сервер завершился с ошибкой", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.Info("остановка сервиса...")

	sched.Stop()
	cancel()
	hub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.Error("принудительная остановка HTTP сервера", zap.Error(err))
	}

	utils.Info("сервис остановлен")
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
