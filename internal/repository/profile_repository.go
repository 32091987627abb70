package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"advisor/internal/models"
)

// Ошибки репозитория профилей
var (
	ErrProfileNotFound     = errors.New("profile not found")
	ErrProfileExists       = errors.New("profile already exists")
	ErrInsufficientCapital = errors.New("insufficient available capital")
)

// ProfileRepository - работа с таблицей user_profiles
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository создает новый экземпляр репозитория
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create создает профиль пользователя
func (r *ProfileRepository) Create(profile *models.UserProfile) error {
	query := `
		INSERT INTO user_profiles (user_id, risk_tier, max_risk_per_trade, max_portfolio_risk, preferred_strategies, total_capital, available_capital, invested_capital, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	if profile.Capital.Currency == "" {
		profile.Capital.Currency = "USD"
	}

	_, err := r.db.Exec(
		query,
		profile.UserID,
		profile.Risk.Tier,
		profile.Risk.MaxRiskPerTrade,
		profile.Risk.MaxPortfolioRisk,
		pq.Array(profile.Risk.PreferredStrategies),
		profile.Capital.TotalCapital,
		profile.Capital.AvailableCapital,
		profile.Capital.InvestedCapital,
		profile.Capital.Currency,
		profile.CreatedAt,
		profile.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrProfileExists
		}
		return err
	}
	return nil
}

// GetByUserID возвращает профиль пользователя
func (r *ProfileRepository) GetByUserID(userID int64) (*models.UserProfile, error) {
	query := `
		SELECT user_id, risk_tier, max_risk_per_trade, max_portfolio_risk, preferred_strategies, total_capital, available_capital, invested_capital, currency, created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1`

	profile := &models.UserProfile{}
	var strategies pq.StringArray
	err := r.db.QueryRow(query, userID).Scan(
		&profile.UserID,
		&profile.Risk.Tier,
		&profile.Risk.MaxRiskPerTrade,
		&profile.Risk.MaxPortfolioRisk,
		&strategies,
		&profile.Capital.TotalCapital,
		&profile.Capital.AvailableCapital,
		&profile.Capital.InvestedCapital,
		&profile.Capital.Currency,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	profile.Risk.PreferredStrategies = []string(strategies)
	return profile, nil
}

// UpdateRisk обновляет риск-параметры профиля
// Капитальные колонки не трогает, чтобы не затереть параллельный резерв
func (r *ProfileRepository) UpdateRisk(userID int64, risk models.RiskProfile) error {
	query := `
		UPDATE user_profiles
		SET risk_tier = $1, max_risk_per_trade = $2, max_portfolio_risk = $3, preferred_strategies = $4, updated_at = $5
		WHERE user_id = $6`

	result, err := r.db.Exec(
		query,
		risk.Tier,
		risk.MaxRiskPerTrade,
		risk.MaxPortfolioRisk,
		pq.Array(risk.PreferredStrategies),
		time.Now(),
		userID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// Deposit атомарно увеличивает общий и свободный капитал
// Инкремент вместо перезаписи: пополнение, идущее параллельно с резервом
// капитала под позицию, не должно его потерять
func (r *ProfileRepository) Deposit(userID int64, amount float64) error {
	query := `
		UPDATE user_profiles
		SET total_capital = total_capital + $1, available_capital = available_capital + $1, updated_at = $2
		WHERE user_id = $3`

	result, err := r.db.Exec(query, amount, time.Now(), userID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// UpdateCapital атомарно переносит сумму между свободным и
// инвестированным капиталом (delta > 0 - инвестиция, < 0 - возврат)
func (r *ProfileRepository) UpdateCapital(userID int64, delta float64) error {
	query := `
		UPDATE user_profiles
		SET available_capital = available_capital - $1, invested_capital = invested_capital + $1, updated_at = $2
		WHERE user_id = $3 AND available_capital - $1 >= 0`

	result, err := r.db.Exec(query, delta, time.Now(), userID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		exists, exErr := r.Exists(userID)
		if exErr != nil {
			return exErr
		}
		if exists {
			return ErrInsufficientCapital
		}
		return ErrProfileNotFound
	}
	return nil
}

// Exists проверяет существование профиля
func (r *ProfileRepository) Exists(userID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM user_profiles WHERE user_id = $1)`

	var exists bool
	err := r.db.QueryRow(query, userID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// isUniqueViolation проверяет, является ли ошибка нарушением UNIQUE constraint
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "23505")
}
