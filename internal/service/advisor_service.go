package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"advisor/internal/engine"
	"advisor/internal/models"
	"advisor/internal/repository"
)

// Ошибки сервиса рекомендаций
var (
	ErrNoPositionWarranted = errors.New("zero shares: no position warranted")
	ErrInsufficientCapital = errors.New("insufficient available capital")
)

// AdvisorService - бизнес-логика рекомендаций и принятия сделок
//
// Связывает движок рекомендаций с профилями и трекером позиций:
// - Recommend: профиль пользователя -> конвейер движка -> рекомендация
// - Accept: рекомендация -> резерв капитала -> позиция в трекере и БД
type AdvisorService struct {
	engine       *engine.Engine
	tracker      *engine.Tracker
	profileRepo  ProfileRepositoryInterface
	positionRepo PositionRepositoryInterface
	logger       *zap.Logger
}

// NewAdvisorService создает новый экземпляр сервиса рекомендаций
func NewAdvisorService(
	eng *engine.Engine,
	tracker *engine.Tracker,
	profileRepo ProfileRepositoryInterface,
	positionRepo PositionRepositoryInterface,
	logger *zap.Logger,
) *AdvisorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdvisorService{
		engine:       eng,
		tracker:      tracker,
		profileRepo:  profileRepo,
		positionRepo: positionRepo,
		logger:       logger,
	}
}

// Recommend строит рекомендацию для сигнала под профиль пользователя
func (s *AdvisorService) Recommend(ctx context.Context, userID int64, signal models.Signal) (*models.Recommendation, error) {
	profile, err := s.profileRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	return s.engine.Recommend(ctx, signal, profile.Risk, profile.Capital)
}

// Accept принимает рекомендацию: резервирует капитал, открывает позицию
// в трекере и сохраняет ее в БД
//
// Порядок важен: сначала атомарный резерв капитала (защита от двойного
// списания), затем открытие. При ошибке сохранения капитал возвращается.
func (s *AdvisorService) Accept(ctx context.Context, userID int64, rec *models.Recommendation) (*models.Position, error) {
	if rec == nil || rec.Sizing.Shares <= 0 {
		return nil, ErrNoPositionWarranted
	}

	if err := s.profileRepo.UpdateCapital(userID, rec.Sizing.InvestmentAmount); err != nil {
		if errors.Is(err, repository.ErrInsufficientCapital) {
			return nil, ErrInsufficientCapital
		}
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	pos := s.tracker.Open(rec, userID)

	if err := s.positionRepo.Create(pos); err != nil {
		// Откат: позиция убирается из трекера, капитал возвращается,
		// иначе планировщик будет обновлять позицию без строки в БД
		s.tracker.Discard(pos.ID)
		if refundErr := s.profileRepo.UpdateCapital(userID, -rec.Sizing.InvestmentAmount); refundErr != nil {
			s.logger.Error("не удалось вернуть капитал после сбоя сохранения позиции",
				zap.Int64("user_id", userID),
				zap.String("position_id", pos.ID),
				zap.Error(refundErr))
		}
		return nil, err
	}

	s.logger.Info("рекомендация принята",
		zap.Int64("user_id", userID),
		zap.String("position_id", pos.ID),
		zap.String("symbol", pos.Symbol),
		zap.Int64("shares", pos.Shares),
		zap.Float64("investment", rec.Sizing.InvestmentAmount))

	return pos, nil
}
