package service

import (
	"errors"

	"advisor/internal/models"
	"advisor/internal/repository"
)

// Ошибки сервиса профилей
var (
	ErrProfileNotFound     = errors.New("profile not found")
	ErrProfileExists       = errors.New("profile for this user already exists")
	ErrInvalidTier         = errors.New("risk tier must be conservative, moderate or aggressive")
	ErrInvalidCapital      = errors.New("capital must be non-negative")
	ErrInvalidRiskPerTrade = errors.New("max risk per trade must be in (0, 1]")
)

// ProfileService - бизнес-логика профилей пользователей
type ProfileService struct {
	profileRepo ProfileRepositoryInterface
}

// NewProfileService создает новый экземпляр сервиса профилей
func NewProfileService(profileRepo ProfileRepositoryInterface) *ProfileService {
	return &ProfileService{profileRepo: profileRepo}
}

// CreateProfile создает профиль с дефолтами уровня риска
//
// Выполняет:
// 1. Валидацию уровня и капитала
// 2. Заполнение риск-параметров по уровню
// 3. Сохранение в БД
func (s *ProfileService) CreateProfile(userID int64, tier string, capital float64) (*models.UserProfile, error) {
	if !models.IsValidTier(tier) {
		return nil, ErrInvalidTier
	}
	if capital < 0 {
		return nil, ErrInvalidCapital
	}

	profile := &models.UserProfile{
		UserID: userID,
		Risk:   models.DefaultRiskProfile(tier),
		Capital: models.CapitalState{
			TotalCapital:     capital,
			AvailableCapital: capital,
			Currency:         "USD",
		},
	}

	if err := s.profileRepo.Create(profile); err != nil {
		if errors.Is(err, repository.ErrProfileExists) {
			return nil, ErrProfileExists
		}
		return nil, err
	}
	return profile, nil
}

// GetProfile возвращает профиль пользователя
func (s *ProfileService) GetProfile(userID int64) (*models.UserProfile, error) {
	profile, err := s.profileRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

// UpdateRisk меняет уровень риска с пересчетом дефолтных параметров
func (s *ProfileService) UpdateRisk(userID int64, tier string) (*models.UserProfile, error) {
	if !models.IsValidTier(tier) {
		return nil, ErrInvalidTier
	}

	if err := s.profileRepo.UpdateRisk(userID, models.DefaultRiskProfile(tier)); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return s.GetProfile(userID)
}

// UpdateRiskParams меняет индивидуальные риск-параметры профиля
func (s *ProfileService) UpdateRiskParams(userID int64, risk models.RiskProfile) (*models.UserProfile, error) {
	if risk.MaxRiskPerTrade <= 0 || risk.MaxRiskPerTrade > 1 {
		return nil, ErrInvalidRiskPerTrade
	}
	if !models.IsValidTier(risk.Tier) {
		return nil, ErrInvalidTier
	}

	if err := s.profileRepo.UpdateRisk(userID, risk); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return s.GetProfile(userID)
}

// Deposit увеличивает капитал пользователя
//
// Инкремент выполняется атомарно в БД: пополнение, идущее параллельно
// с резервом капитала под позицию, не затирает резерв
func (s *ProfileService) Deposit(userID int64, amount float64) (*models.UserProfile, error) {
	if amount <= 0 {
		return nil, ErrInvalidCapital
	}

	if err := s.profileRepo.Deposit(userID, amount); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return s.GetProfile(userID)
}
