package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"advisor/internal/models"
	"advisor/internal/service"
)

// ErrMockDatabase общая ошибка для симуляции отказа хранилища
var ErrMockDatabase = errors.New("mock database error")

// ============ Mock Profile Service ============

// MockProfileService мок для ProfileServiceInterface
type MockProfileService struct {
	profiles map[int64]*models.UserProfile
	err      error
	mu       sync.RWMutex
}

// NewMockProfileService создает новый мок сервиса профилей
func NewMockProfileService() *MockProfileService {
	return &MockProfileService{
		profiles: make(map[int64]*models.UserProfile),
	}
}

func (m *MockProfileService) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockProfileService) CreateProfile(userID int64, tier string, capital float64) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if !models.IsValidTier(tier) {
		return nil, service.ErrInvalidTier
	}
	if _, exists := m.profiles[userID]; exists {
		return nil, service.ErrProfileExists
	}

	profile := &models.UserProfile{
		UserID: userID,
		Risk:   models.DefaultRiskProfile(tier),
		Capital: models.CapitalState{
			TotalCapital:     capital,
			AvailableCapital: capital,
			Currency:         "USD",
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.profiles[userID] = profile
	return profile, nil
}

func (m *MockProfileService) GetProfile(userID int64) (*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.err != nil {
		return nil, m.err
	}
	profile, exists := m.profiles[userID]
	if !exists {
		return nil, service.ErrProfileNotFound
	}
	return profile, nil
}

func (m *MockProfileService) UpdateRisk(userID int64, tier string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if !models.IsValidTier(tier) {
		return nil, service.ErrInvalidTier
	}
	profile, exists := m.profiles[userID]
	if !exists {
		return nil, service.ErrProfileNotFound
	}
	profile.Risk = models.DefaultRiskProfile(tier)
	return profile, nil
}

func (m *MockProfileService) UpdateRiskParams(userID int64, risk models.RiskProfile) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if risk.MaxRiskPerTrade <= 0 || risk.MaxRiskPerTrade > 1 {
		return nil, service.ErrInvalidRiskPerTrade
	}
	profile, exists := m.profiles[userID]
	if !exists {
		return nil, service.ErrProfileNotFound
	}
	profile.Risk = risk
	return profile, nil
}

func (m *MockProfileService) Deposit(userID int64, amount float64) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if amount <= 0 {
		return nil, service.ErrInvalidCapital
	}
	profile, exists := m.profiles[userID]
	if !exists {
		return nil, service.ErrProfileNotFound
	}
	profile.Capital.TotalCapital += amount
	profile.Capital.AvailableCapital += amount
	return profile, nil
}

// ============ Mock Advisor Service ============

// MockAdvisorService мок для AdvisorServiceInterface
type MockAdvisorService struct {
	rec          *models.Recommendation
	recommendErr error
	position     *models.Position
	acceptErr    error
	mu           sync.Mutex
}

func NewMockAdvisorService() *MockAdvisorService {
	return &MockAdvisorService{}
}

func (m *MockAdvisorService) SetRecommendation(rec *models.Recommendation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = rec
}

func (m *MockAdvisorService) SetRecommendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recommendErr = err
}

func (m *MockAdvisorService) SetPosition(pos *models.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = pos
}

func (m *MockAdvisorService) SetAcceptError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acceptErr = err
}

func (m *MockAdvisorService) Recommend(ctx context.Context, userID int64, signal models.Signal) (*models.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.recommendErr != nil {
		return nil, m.recommendErr
	}
	if m.rec == nil {
		return nil, errors.New("mock: no recommendation configured")
	}
	rec := *m.rec
	rec.Signal = signal
	return &rec, nil
}

func (m *MockAdvisorService) Accept(ctx context.Context, userID int64, rec *models.Recommendation) (*models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.acceptErr != nil {
		return nil, m.acceptErr
	}
	if m.position == nil {
		return nil, errors.New("mock: no position configured")
	}
	return m.position.Clone(), nil
}

// ============ Mock Position Service ============

// MockPositionService мок для PositionServiceInterface
type MockPositionService struct {
	positions  map[string]*models.Position
	getErr     error
	refreshErr error
	closeErr   error
	mu         sync.RWMutex
}

func NewMockPositionService() *MockPositionService {
	return &MockPositionService{
		positions: make(map[string]*models.Position),
	}
}

func (m *MockPositionService) AddPosition(pos *models.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[pos.ID] = pos.Clone()
}

func (m *MockPositionService) SetGetError(err error)     { m.mu.Lock(); m.getErr = err; m.mu.Unlock() }
func (m *MockPositionService) SetRefreshError(err error) { m.mu.Lock(); m.refreshErr = err; m.mu.Unlock() }
func (m *MockPositionService) SetCloseError(err error)   { m.mu.Lock(); m.closeErr = err; m.mu.Unlock() }

func (m *MockPositionService) Get(id string) (*models.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	pos, exists := m.positions[id]
	if !exists {
		return nil, service.ErrPositionNotFound
	}
	return pos.Clone(), nil
}

func (m *MockPositionService) List(userID int64) ([]*models.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	result := make([]*models.Position, 0, len(m.positions))
	for _, pos := range m.positions {
		if pos.UserID == userID {
			result = append(result, pos.Clone())
		}
	}
	return result, nil
}

func (m *MockPositionService) Refresh(ctx context.Context, id string) (*models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	pos, exists := m.positions[id]
	if !exists {
		return nil, service.ErrPositionNotFound
	}
	return pos.Clone(), nil
}

func (m *MockPositionService) Close(ctx context.Context, id string) (*models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closeErr != nil {
		return nil, m.closeErr
	}
	pos, exists := m.positions[id]
	if !exists {
		return nil, service.ErrPositionNotFound
	}
	if !pos.IsOpen() {
		return nil, service.ErrPositionClosed
	}
	now := time.Now()
	pos.Status = models.StatusClosedManual
	pos.ClosedAt = &now
	return pos.Clone(), nil
}

func (m *MockPositionService) Summary(userID int64) (*service.PositionSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	summary := &service.PositionSummary{}
	for _, pos := range m.positions {
		if pos.UserID != userID || !pos.IsOpen() {
			continue
		}
		summary.OpenCount++
		summary.TotalInvested += pos.InvestmentAmount()
		summary.TotalValue += pos.CurrentValue()
		summary.UnrealizedPnl += pos.UnrealizedPnl()
	}
	if summary.TotalInvested > 0 {
		summary.UnrealizedPnlPct = summary.UnrealizedPnl / summary.TotalInvested * 100
	}
	return summary, nil
}

// ============ Mock Notification Service ============

// MockNotificationService мок для NotificationServiceInterface
type MockNotificationService struct {
	notifications []*models.Notification
	getErr        error
	clearErr      error
	nextID        int
	mu            sync.Mutex
}

func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{nextID: 1}
}

func (m *MockNotificationService) SetGetError(err error)   { m.mu.Lock(); m.getErr = err; m.mu.Unlock() }
func (m *MockNotificationService) SetClearError(err error) { m.mu.Lock(); m.clearErr = err; m.mu.Unlock() }

func (m *MockNotificationService) AddNotification(notifType, severity, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, &models.Notification{
		ID:        m.nextID,
		Timestamp: time.Now(),
		Type:      notifType,
		Severity:  severity,
		Message:   message,
	})
	m.nextID++
}

func (m *MockNotificationService) GetRecent(limit int) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	if limit > len(m.notifications) {
		limit = len(m.notifications)
	}
	return m.notifications[len(m.notifications)-limit:], nil
}

func (m *MockNotificationService) GetByTypes(types []string, limit int) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	allowed := make(map[string]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	var result []*models.Notification
	for _, n := range m.notifications {
		if allowed[n.Type] && len(result) < limit {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *MockNotificationService) GetByPosition(positionID string) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.Notification
	for _, n := range m.notifications {
		if n.PositionID != nil && *n.PositionID == positionID {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *MockNotificationService) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.clearErr != nil {
		return m.clearErr
	}
	m.notifications = nil
	return nil
}
