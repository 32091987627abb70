package repository

import (
	"database/sql"
	"errors"
	"time"

	"advisor/internal/models"
)

// Ошибки репозитория позиций
var (
	ErrPositionNotFound = errors.New("position not found")
)

// PositionRepository - работа с таблицей positions
type PositionRepository struct {
	db *sql.DB
}

// NewPositionRepository создает новый экземпляр репозитория
func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

const positionColumns = `id, user_id, symbol, action, shares, entry_price, current_price,
		stop_loss_price, take_profit_price, stop_loss_pct, take_profit_pct,
		strategy_type, signal_id, status, opened_at, closed_at, updated_at`

// Create сохраняет новую позицию
func (r *PositionRepository) Create(pos *models.Position) error {
	query := `
		INSERT INTO positions (id, user_id, symbol, action, shares, entry_price, current_price, stop_loss_price, take_profit_price, stop_loss_pct, take_profit_pct, strategy_type, signal_id, status, opened_at, closed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	if pos.Status == "" {
		pos.Status = models.StatusOpen
	}
	if pos.UpdatedAt.IsZero() {
		pos.UpdatedAt = time.Now()
	}

	_, err := r.db.Exec(
		query,
		pos.ID,
		pos.UserID,
		pos.Symbol,
		pos.Action,
		pos.Shares,
		pos.EntryPrice,
		pos.CurrentPrice,
		pos.Levels.StopLossPrice,
		pos.Levels.TakeProfitPrice,
		pos.Levels.StopLossPct,
		pos.Levels.TakeProfitPct,
		pos.StrategyType,
		pos.SignalID,
		pos.Status,
		pos.OpenedAt,
		pos.ClosedAt,
		pos.UpdatedAt,
	)
	return err
}

// scanPosition читает строку в модель позиции
func scanPosition(row interface{ Scan(...interface{}) error }) (*models.Position, error) {
	pos := &models.Position{}
	err := row.Scan(
		&pos.ID,
		&pos.UserID,
		&pos.Symbol,
		&pos.Action,
		&pos.Shares,
		&pos.EntryPrice,
		&pos.CurrentPrice,
		&pos.Levels.StopLossPrice,
		&pos.Levels.TakeProfitPrice,
		&pos.Levels.StopLossPct,
		&pos.Levels.TakeProfitPct,
		&pos.StrategyType,
		&pos.SignalID,
		&pos.Status,
		&pos.OpenedAt,
		&pos.ClosedAt,
		&pos.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return pos, nil
}

// GetByID возвращает позицию по идентификатору
func (r *PositionRepository) GetByID(id string) (*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE id = $1`

	pos, err := scanPosition(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPositionNotFound
		}
		return nil, err
	}
	return pos, nil
}

// GetOpen возвращает все открытые позиции (для восстановления при старте)
func (r *PositionRepository) GetOpen() ([]*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status = $1
		ORDER BY opened_at DESC`

	return r.queryPositions(query, models.StatusOpen)
}

// GetByUser возвращает позиции пользователя, новые первыми
func (r *PositionRepository) GetByUser(userID int64) ([]*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE user_id = $1
		ORDER BY opened_at DESC`

	return r.queryPositions(query, userID)
}

// GetOpenByUser возвращает открытые позиции пользователя
func (r *PositionRepository) GetOpenByUser(userID int64) ([]*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE user_id = $1 AND status = $2
		ORDER BY opened_at DESC`

	return r.queryPositions(query, userID, models.StatusOpen)
}

func (r *PositionRepository) queryPositions(query string, args ...interface{}) ([]*models.Position, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []*models.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return positions, nil
}

// UpdatePrice обновляет текущую цену открытой позиции
func (r *PositionRepository) UpdatePrice(id string, price float64) error {
	query := `
		UPDATE positions
		SET current_price = $1, updated_at = $2
		WHERE id = $3`

	result, err := r.db.Exec(query, price, time.Now(), id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// CloseStatus фиксирует закрытие позиции: статус, цена и момент закрытия
func (r *PositionRepository) CloseStatus(id, status string, price float64, closedAt time.Time) error {
	query := `
		UPDATE positions
		SET status = $1, current_price = $2, closed_at = $3, updated_at = $4
		WHERE id = $5`

	result, err := r.db.Exec(query, status, price, closedAt, time.Now(), id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// CountOpen возвращает количество открытых позиций
func (r *PositionRepository) CountOpen() (int, error) {
	query := `SELECT COUNT(*) FROM positions WHERE status = $1`

	var count int
	err := r.db.QueryRow(query, models.StatusOpen).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Delete удаляет позицию
func (r *PositionRepository) Delete(id string) error {
	query := `DELETE FROM positions WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func checkAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrPositionNotFound
	}
	return nil
}
