package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// PositionRefresher обновляет все открытые позиции
type PositionRefresher interface {
	RefreshAll(ctx context.Context)
}

// NotificationCleaner удаляет устаревшие записи журнала уведомлений
type NotificationCleaner interface {
	Cleanup(retention time.Duration) (int64, error)
}

// Config - расписание фоновых задач
type Config struct {
	// RefreshSpec - cron-выражение обновления позиций
	// Поддерживает формат @every: "@every 15m"
	RefreshSpec string

	// CleanupSpec - cron-выражение очистки журнала уведомлений
	CleanupSpec string

	// NotificationRetention - срок хранения уведомлений
	NotificationRetention time.Duration
}

// DefaultConfig возвращает расписание по умолчанию:
// обновление позиций каждые 15 минут, очистка журнала раз в сутки
func DefaultConfig() Config {
	return Config{
		RefreshSpec:           "@every 15m",
		CleanupSpec:           "0 3 * * *",
		NotificationRetention: 30 * 24 * time.Hour,
	}
}

// Scheduler управляет фоновыми задачами сервиса
//
// Задачи:
// - Периодическое обновление открытых позиций (цены, stop/take проверки)
// - Очистка устаревших уведомлений из журнала
//
// Пропущенные обновления (нет рыночных данных) не считаются ошибкой
// планировщика: PositionService сам логирует их и идет дальше.
type Scheduler struct {
	cron          *cron.Cron
	positions     PositionRefresher
	notifications NotificationCleaner
	cfg           Config
	ctx           context.Context
	logger        *zap.Logger
}

// New создает планировщик. ctx ограничивает время выполнения задач
// и передается в RefreshAll.
func New(ctx context.Context, positions PositionRefresher, notifications NotificationCleaner, cfg Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:          cron.New(),
		positions:     positions,
		notifications: notifications,
		cfg:           cfg,
		ctx:           ctx,
		logger:        logger,
	}
}

// Register регистрирует все задачи по расписанию из конфига
func (s *Scheduler) Register() error {
	if _, err := s.cron.AddFunc(s.cfg.RefreshSpec, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.CleanupSpec, s.cleanupTask); err != nil {
		return fmt.Errorf("register cleanup task: %w", err)
	}
	return nil
}

// Start запускает планировщик
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("планировщик запущен",
		zap.String("refresh_spec", s.cfg.RefreshSpec),
		zap.String("cleanup_spec", s.cfg.CleanupSpec))
}

// Stop останавливает планировщик, дожидаясь завершения запущенных задач
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("планировщик остановлен")
}

// RunRefreshNow выполняет обновление позиций немедленно
// (ручной запуск при старте сервиса)
func (s *Scheduler) RunRefreshNow() {
	s.refreshTask()
}

func (s *Scheduler) refreshTask() {
	start := time.Now()
	s.positions.RefreshAll(s.ctx)
	s.logger.Debug("обновление позиций завершено",
		zap.Duration("elapsed", time.Since(start)))
}

func (s *Scheduler) cleanupTask() {
	deleted, err := s.notifications.Cleanup(s.cfg.NotificationRetention)
	if err != nil {
		s.logger.Error("очистка журнала уведомлений не удалась", zap.Error(err))
		return
	}
	if deleted > 0 {
		s.logger.Info("журнал уведомлений очищен",
			zap.Int64("deleted", deleted),
			zap.Duration("retention", s.cfg.NotificationRetention))
	}
}
