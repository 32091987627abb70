package service

import (
	"context"
	"time"

	"advisor/internal/models"
	"advisor/internal/repository"
)

// ProfileRepositoryInterface определяет интерфейс репозитория профилей
type ProfileRepositoryInterface interface {
	Create(profile *models.UserProfile) error
	GetByUserID(userID int64) (*models.UserProfile, error)
	UpdateRisk(userID int64, risk models.RiskProfile) error
	UpdateCapital(userID int64, delta float64) error
	Deposit(userID int64, amount float64) error
	Exists(userID int64) (bool, error)
}

// PositionRepositoryInterface определяет интерфейс репозитория позиций
type PositionRepositoryInterface interface {
	Create(pos *models.Position) error
	GetByID(id string) (*models.Position, error)
	GetOpen() ([]*models.Position, error)
	GetByUser(userID int64) ([]*models.Position, error)
	GetOpenByUser(userID int64) ([]*models.Position, error)
	UpdatePrice(id string, price float64) error
	CloseStatus(id, status string, price float64, closedAt time.Time) error
	CountOpen() (int, error)
	Delete(id string) error
}

// NotificationRepositoryInterface определяет интерфейс репозитория уведомлений
type NotificationRepositoryInterface interface {
	Create(notif *models.Notification) error
	GetRecent(limit int) ([]*models.Notification, error)
	GetByTypes(types []string, limit int) ([]*models.Notification, error)
	GetByPosition(positionID string) ([]*models.Notification, error)
	DeleteAll() error
	DeleteOlderThan(threshold time.Time) (int64, error)
}

// ProfileServiceInterface определяет интерфейс сервиса профилей
type ProfileServiceInterface interface {
	CreateProfile(userID int64, tier string, capital float64) (*models.UserProfile, error)
	GetProfile(userID int64) (*models.UserProfile, error)
	UpdateRisk(userID int64, tier string) (*models.UserProfile, error)
	UpdateRiskParams(userID int64, risk models.RiskProfile) (*models.UserProfile, error)
	Deposit(userID int64, amount float64) (*models.UserProfile, error)
}

// AdvisorServiceInterface определяет интерфейс сервиса рекомендаций
type AdvisorServiceInterface interface {
	Recommend(ctx context.Context, userID int64, signal models.Signal) (*models.Recommendation, error)
	Accept(ctx context.Context, userID int64, rec *models.Recommendation) (*models.Position, error)
}

// PositionServiceInterface определяет интерфейс сервиса позиций
type PositionServiceInterface interface {
	Get(id string) (*models.Position, error)
	List(userID int64) ([]*models.Position, error)
	Refresh(ctx context.Context, id string) (*models.Position, error)
	Close(ctx context.Context, id string) (*models.Position, error)
	Summary(userID int64) (*PositionSummary, error)
}

// NotificationServiceInterface определяет интерфейс сервиса уведомлений
type NotificationServiceInterface interface {
	GetRecent(limit int) ([]*models.Notification, error)
	GetByTypes(types []string, limit int) ([]*models.Notification, error)
	GetByPosition(positionID string) ([]*models.Notification, error)
	ClearAll() error
}

// Проверка реализаций на этапе компиляции
var (
	_ ProfileRepositoryInterface      = (*repository.ProfileRepository)(nil)
	_ PositionRepositoryInterface     = (*repository.PositionRepository)(nil)
	_ NotificationRepositoryInterface = (*repository.NotificationRepository)(nil)

	_ ProfileServiceInterface      = (*ProfileService)(nil)
	_ AdvisorServiceInterface      = (*AdvisorService)(nil)
	_ PositionServiceInterface     = (*PositionService)(nil)
	_ NotificationServiceInterface = (*NotificationService)(nil)
)
