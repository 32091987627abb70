package service

import (
	"context"
	"sync"
	"time"

	"advisor/internal/engine"
	"advisor/internal/models"
	"advisor/internal/repository"
)

// ============================================================================
// Моки репозиториев и рыночных данных для тестов сервисов
// ============================================================================

// mockProfileRepo - in-memory реализация ProfileRepositoryInterface
type mockProfileRepo struct {
	mu       sync.Mutex
	profiles map[int64]*models.UserProfile

	createErr  error
	updateErr  error
	capitalErr error
	depositErr error

	// getHook выполняется один раз внутри GetByUserID под мьютексом -
	// позволяет вклинить конкурентное изменение между чтением и записью
	getHook func()
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[int64]*models.UserProfile)}
}

func (m *mockProfileRepo) Create(profile *models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.profiles[profile.UserID]; ok {
		return repository.ErrProfileExists
	}
	clone := *profile
	m.profiles[profile.UserID] = &clone
	return nil
}

func (m *mockProfileRepo) GetByUserID(userID int64) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[userID]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	clone := *profile
	if m.getHook != nil {
		hook := m.getHook
		m.getHook = nil
		hook()
	}
	return &clone, nil
}

func (m *mockProfileRepo) UpdateRisk(userID int64, risk models.RiskProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	profile, ok := m.profiles[userID]
	if !ok {
		return repository.ErrProfileNotFound
	}
	profile.Risk = risk
	return nil
}

func (m *mockProfileRepo) Deposit(userID int64, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depositErr != nil {
		return m.depositErr
	}
	profile, ok := m.profiles[userID]
	if !ok {
		return repository.ErrProfileNotFound
	}
	profile.Capital.TotalCapital += amount
	profile.Capital.AvailableCapital += amount
	return nil
}

func (m *mockProfileRepo) UpdateCapital(userID int64, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.capitalErr != nil {
		return m.capitalErr
	}
	profile, ok := m.profiles[userID]
	if !ok {
		return repository.ErrProfileNotFound
	}
	if profile.Capital.AvailableCapital-delta < 0 {
		return repository.ErrInsufficientCapital
	}
	profile.Capital.AvailableCapital -= delta
	profile.Capital.InvestedCapital += delta
	return nil
}

func (m *mockProfileRepo) Exists(userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.profiles[userID]
	return ok, nil
}

// mockPositionRepo - in-memory реализация PositionRepositoryInterface
type mockPositionRepo struct {
	mu        sync.Mutex
	positions map[string]*models.Position

	createErr error
}

func newMockPositionRepo() *mockPositionRepo {
	return &mockPositionRepo{positions: make(map[string]*models.Position)}
}

func (m *mockPositionRepo) Create(pos *models.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.positions[pos.ID] = pos.Clone()
	return nil
}

func (m *mockPositionRepo) GetByID(id string) (*models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[id]
	if !ok {
		return nil, repository.ErrPositionNotFound
	}
	return pos.Clone(), nil
}

func (m *mockPositionRepo) GetOpen() ([]*models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Position
	for _, pos := range m.positions {
		if pos.IsOpen() {
			result = append(result, pos.Clone())
		}
	}
	return result, nil
}

func (m *mockPositionRepo) GetByUser(userID int64) ([]*models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Position
	for _, pos := range m.positions {
		if pos.UserID == userID {
			result = append(result, pos.Clone())
		}
	}
	return result, nil
}

func (m *mockPositionRepo) GetOpenByUser(userID int64) ([]*models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Position
	for _, pos := range m.positions {
		if pos.UserID == userID && pos.IsOpen() {
			result = append(result, pos.Clone())
		}
	}
	return result, nil
}

func (m *mockPositionRepo) UpdatePrice(id string, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[id]
	if !ok {
		return repository.ErrPositionNotFound
	}
	pos.CurrentPrice = price
	return nil
}

func (m *mockPositionRepo) CloseStatus(id, status string, price float64, closedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[id]
	if !ok {
		return repository.ErrPositionNotFound
	}
	pos.Status = status
	pos.CurrentPrice = price
	pos.ClosedAt = &closedAt
	return nil
}

func (m *mockPositionRepo) CountOpen() (int, error) {
	positions, _ := m.GetOpen()
	return len(positions), nil
}

func (m *mockPositionRepo) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.positions[id]; !ok {
		return repository.ErrPositionNotFound
	}
	delete(m.positions, id)
	return nil
}

// mockNotificationRepo - in-memory реализация NotificationRepositoryInterface
type mockNotificationRepo struct {
	mu            sync.Mutex
	notifications []*models.Notification
	createErr     error
}

func (m *mockNotificationRepo) Create(notif *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	notif.ID = len(m.notifications) + 1
	m.notifications = append(m.notifications, notif)
	return nil
}

func (m *mockNotificationRepo) GetRecent(limit int) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.notifications) {
		limit = len(m.notifications)
	}
	return m.notifications[len(m.notifications)-limit:], nil
}

func (m *mockNotificationRepo) GetByTypes(types []string, limit int) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Notification
	for _, n := range m.notifications {
		for _, t := range types {
			if n.Type == t {
				result = append(result, n)
			}
		}
	}
	return result, nil
}

func (m *mockNotificationRepo) GetByPosition(positionID string) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Notification
	for _, n := range m.notifications {
		if n.PositionID != nil && *n.PositionID == positionID {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *mockNotificationRepo) DeleteAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = nil
	return nil
}

func (m *mockNotificationRepo) DeleteOlderThan(threshold time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*models.Notification
	var deleted int64
	for _, n := range m.notifications {
		if n.Timestamp.Before(threshold) {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	m.notifications = kept
	return deleted, nil
}

// stubMarket - детерминированный источник рыночных данных
type stubMarket struct {
	price  float64
	series models.PriceSeries
	err    error
}

func (m *stubMarket) GetPrice(ctx context.Context, symbol string) (*models.PriceSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.PriceSnapshot{Symbol: symbol, Price: m.price, AsOf: time.Now(), SourceID: "stub"}, nil
}

func (m *stubMarket) GetHistory(ctx context.Context, symbol string, window models.Window) (models.PriceSeries, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.series, nil
}

// steadySeries строит серию с чередованием +swingPct% и флэта
// Ненулевой разброс изменений гарантирует ненулевой стоп-лосс
func steadySeries(length int, start, swingPct float64) models.PriceSeries {
	series := make(models.PriceSeries, length)
	price := start
	day := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	for i := range series {
		if i > 0 && i%2 == 1 {
			price *= 1 + swingPct/100
		}
		series[i] = models.Candle{
			Time:  day.AddDate(0, 0, i),
			Open:  price,
			High:  price * 1.01,
			Low:   price * 0.99,
			Close: price,
		}
	}
	return series
}

// newTestEngine собирает движок поверх stubMarket
func newTestEngine(market *stubMarket) (*engine.Engine, *engine.Tracker, chan *models.Notification) {
	vol := engine.NewVolatilityAnalyzer(market, engine.DefaultVolatilityConfig())
	exits := engine.NewExitCalculator(engine.DefaultExitConfig())
	eng := engine.NewEngine(market, vol, exits, engine.NewSizer(), engine.DefaultEngineConfig(), nil)
	events := make(chan *models.Notification, 32)
	tracker := engine.NewTracker(market, events, nil)
	return eng, tracker, events
}
