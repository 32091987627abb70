package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"advisor/internal/engine"
	"advisor/internal/models"
	"advisor/internal/repository"
)

// Ошибки сервиса позиций
var (
	ErrPositionNotFound = errors.New("position not found")
	ErrPositionClosed   = errors.New("position already closed")
)

// PositionSummary - агрегат по открытым позициям пользователя
type PositionSummary struct {
	OpenCount        int     `json:"open_count"`
	TotalInvested    float64 `json:"total_invested"`
	TotalValue       float64 `json:"total_value"`
	UnrealizedPnl    float64 `json:"unrealized_pnl"`
	UnrealizedPnlPct float64 `json:"unrealized_pnl_pct"`
}

// PositionService - бизнес-логика жизненного цикла позиций
//
// Трекер владеет состоянием в памяти, сервис синхронизирует его с БД:
// каждое обновление цены и каждый переход статуса фиксируются в positions,
// закрытие возвращает зарезервированный капитал профилю.
type PositionService struct {
	tracker      *engine.Tracker
	positionRepo PositionRepositoryInterface
	profileRepo  ProfileRepositoryInterface
	logger       *zap.Logger
}

// NewPositionService создает новый экземпляр сервиса позиций
func NewPositionService(
	tracker *engine.Tracker,
	positionRepo PositionRepositoryInterface,
	profileRepo ProfileRepositoryInterface,
	logger *zap.Logger,
) *PositionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PositionService{
		tracker:      tracker,
		positionRepo: positionRepo,
		profileRepo:  profileRepo,
		logger:       logger,
	}
}

// RestoreOpenPositions загружает открытые позиции из БД в трекер
// Вызывается один раз при старте сервиса
func (s *PositionService) RestoreOpenPositions() (int, error) {
	positions, err := s.positionRepo.GetOpen()
	if err != nil {
		return 0, err
	}

	for _, pos := range positions {
		s.tracker.Restore(pos)
	}

	if len(positions) > 0 {
		s.logger.Info("открытые позиции восстановлены",
			zap.Int("count", len(positions)))
	}
	return len(positions), nil
}

// Get возвращает позицию из трекера, с fallback на БД для закрытых
func (s *PositionService) Get(id string) (*models.Position, error) {
	pos, err := s.tracker.Get(id)
	if err == nil {
		return pos, nil
	}
	if !errors.Is(err, engine.ErrPositionNotFound) {
		return nil, err
	}
	return s.getFromRepo(id)
}

func (s *PositionService) getFromRepo(id string) (*models.Position, error) {
	pos, err := s.positionRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrPositionNotFound) {
			return nil, ErrPositionNotFound
		}
		return nil, err
	}
	return pos, nil
}

// List возвращает позиции пользователя из БД
func (s *PositionService) List(userID int64) ([]*models.Position, error) {
	return s.positionRepo.GetByUser(userID)
}

// Refresh обновляет одну позицию и фиксирует изменения в БД
func (s *PositionService) Refresh(ctx context.Context, id string) (*models.Position, error) {
	pos, err := s.tracker.Refresh(ctx, id)
	if err != nil {
		// Пропущенное обновление: позиция не изменилась, БД не трогаем
		return pos, mapNotFound(err)
	}

	if err := s.persist(pos); err != nil {
		s.logger.Error("не удалось сохранить обновление позиции",
			zap.String("position_id", pos.ID),
			zap.Error(err))
		return pos, err
	}
	return pos, nil
}

// RefreshAll обновляет все открытые позиции (вызывается планировщиком)
func (s *PositionService) RefreshAll(ctx context.Context) {
	for _, pos := range s.tracker.OpenPositions() {
		if _, err := s.Refresh(ctx, pos.ID); err != nil {
			s.logger.Warn("обновление позиции пропущено",
				zap.String("position_id", pos.ID),
				zap.String("symbol", pos.Symbol),
				zap.Error(err))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Close закрывает позицию вручную
func (s *PositionService) Close(ctx context.Context, id string) (*models.Position, error) {
	pos, err := s.tracker.Close(ctx, id)
	if err != nil {
		if errors.Is(err, engine.ErrPositionClosed) {
			return nil, ErrPositionClosed
		}
		return nil, mapNotFound(err)
	}

	if err := s.persist(pos); err != nil {
		return pos, err
	}
	return pos, nil
}

// persist фиксирует состояние позиции в БД
// Для закрытой позиции дополнительно возвращает капитал профилю
func (s *PositionService) persist(pos *models.Position) error {
	if pos.IsOpen() {
		return s.positionRepo.UpdatePrice(pos.ID, pos.CurrentPrice)
	}

	closedAt := pos.UpdatedAt
	if pos.ClosedAt != nil {
		closedAt = *pos.ClosedAt
	}
	if err := s.positionRepo.CloseStatus(pos.ID, pos.Status, pos.CurrentPrice, closedAt); err != nil {
		return err
	}

	// Возврат вложенной суммы из инвестированного в доступный капитал
	if err := s.profileRepo.UpdateCapital(pos.UserID, -pos.InvestmentAmount()); err != nil {
		s.logger.Error("не удалось вернуть капитал после закрытия позиции",
			zap.String("position_id", pos.ID),
			zap.Int64("user_id", pos.UserID),
			zap.Error(err))
		return err
	}
	return nil
}

// Summary считает агрегат по открытым позициям пользователя
func (s *PositionService) Summary(userID int64) (*PositionSummary, error) {
	positions, err := s.positionRepo.GetOpenByUser(userID)
	if err != nil {
		return nil, err
	}

	summary := &PositionSummary{OpenCount: len(positions)}
	for _, pos := range positions {
		summary.TotalInvested += pos.InvestmentAmount()
		summary.TotalValue += pos.CurrentValue()
		summary.UnrealizedPnl += pos.UnrealizedPnl()
	}
	if summary.TotalInvested > 0 {
		summary.UnrealizedPnlPct = summary.UnrealizedPnl / summary.TotalInvested * 100
	}
	return summary, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, engine.ErrPositionNotFound) {
		return ErrPositionNotFound
	}
	return err
}
