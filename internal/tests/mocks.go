package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"facilita/internal/domain"
	"facilita/internal/redis"
	"facilita/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK SERVICE REPOSITORY
// ──────────────────────────────────────────────

// MockServiceRepository is a mock implementation of ServiceRepository.
type MockServiceRepository struct {
	mu       sync.RWMutex
	services map[string]*domain.Service

	// Counters for verification
	CreateCallCount     int32
	TransitionCallCount int32

	// Error injection
	CreateError     error
	TransitionError error
}

// NewMockServiceRepository creates a new mock service repository.
func NewMockServiceRepository() *MockServiceRepository {
	return &MockServiceRepository{
		services: make(map[string]*domain.Service),
	}
}

// AddService adds a service to the mock repository.
func (m *MockServiceRepository) AddService(svc *domain.Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[svc.ID] = svc
}

func (m *MockServiceRepository) Create(ctx context.Context, svc *domain.Service) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *svc
	m.services[svc.ID] = &copy
	return nil
}

func (m *MockServiceRepository) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	svc, ok := m.services[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *svc
	return &copy, nil
}

func (m *MockServiceRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.services[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.services, id)
	return nil
}

func (m *MockServiceRepository) ListByContractor(ctx context.Context, contractorID string) ([]*domain.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Service, 0)
	for _, svc := range m.services {
		if svc.ContractorID == contractorID {
			copy := *svc
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockServiceRepository) ListPending(ctx context.Context) ([]*domain.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Service, 0)
	for _, svc := range m.services {
		if svc.Status == domain.ServiceStatusPending {
			copy := *svc
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockServiceRepository) GetActiveByProvider(ctx context.Context, providerID string) (*domain.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, svc := range m.services {
		if svc.ProviderID == providerID && svc.Status.IsActive() {
			copy := *svc
			return &copy, nil
		}
	}
	return nil, nil // No active service
}

func (m *MockServiceRepository) TransitionStatus(ctx context.Context, svc *domain.Service, expected domain.ServiceStatus) error {
	atomic.AddInt32(&m.TransitionCallCount, 1)
	if m.TransitionError != nil {
		return m.TransitionError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.services[svc.ID]
	if !ok {
		return repository.ErrNotFound
	}
	// Compare-and-set: the stored row must still be in the expected status.
	if stored.Status != expected {
		return repository.ErrStatusConflict
	}
	stored.ProviderID = svc.ProviderID
	stored.Status = svc.Status
	stored.CancelReason = svc.CancelReason
	stored.StartedAt = svc.StartedAt
	stored.CompletedAt = svc.CompletedAt
	stored.ConfirmedAt = svc.ConfirmedAt
	stored.Version++
	svc.Version = stored.Version
	return nil
}

// GetService returns the service by ID (for test assertions).
func (m *MockServiceRepository) GetService(id string) *domain.Service {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.services[id]
}

// CountServices returns the number of services.
func (m *MockServiceRepository) CountServices() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.services)
}

// ──────────────────────────────────────────────
// MOCK TRACKING REPOSITORY
// ──────────────────────────────────────────────

// MockTrackingRepository is a mock implementation of TrackingRepository.
type MockTrackingRepository struct {
	mu      sync.RWMutex
	records []*domain.TrackingRecord

	// Counters
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockTrackingRepository creates a new mock tracking repository.
func NewMockTrackingRepository() *MockTrackingRepository {
	return &MockTrackingRepository{
		records: make([]*domain.TrackingRecord, 0),
	}
}

func (m *MockTrackingRepository) Create(ctx context.Context, rec *domain.TrackingRecord) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *rec
	m.records = append(m.records, &copy)
	return nil
}

func (m *MockTrackingRepository) ListByService(ctx context.Context, serviceID string) ([]*domain.TrackingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.TrackingRecord, 0)
	// Most recent first.
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].ServiceID == serviceID {
			copy := *m.records[i]
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockTrackingRepository) GetLatest(ctx context.Context, serviceID string) (*domain.TrackingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].ServiceID == serviceID {
			copy := *m.records[i]
			return &copy, nil
		}
	}
	return nil, nil // No records yet
}

// StatusSequence returns the recorded statuses for a service in insertion
// order (for test assertions).
func (m *MockTrackingRepository) StatusSequence(serviceID string) []domain.ServiceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.ServiceStatus
	for _, rec := range m.records {
		if rec.ServiceID == serviceID {
			result = append(result, rec.Status)
		}
	}
	return result
}

// CountRecords returns the number of records for a service.
func (m *MockTrackingRepository) CountRecords(serviceID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, rec := range m.records {
		if rec.ServiceID == serviceID {
			count++
		}
	}
	return count
}

// ──────────────────────────────────────────────
// MOCK REFUSAL REPOSITORY
// ──────────────────────────────────────────────

// MockRefusalRepository is a mock implementation of RefusalRepository.
type MockRefusalRepository struct {
	mu       sync.RWMutex
	refusals []*domain.Refusal

	// Counters
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockRefusalRepository creates a new mock refusal repository.
func NewMockRefusalRepository() *MockRefusalRepository {
	return &MockRefusalRepository{
		refusals: make([]*domain.Refusal, 0),
	}
}

func (m *MockRefusalRepository) Create(ctx context.Context, ref *domain.Refusal) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.refusals {
		if r.ServiceID == ref.ServiceID && r.ProviderID == ref.ProviderID {
			return repository.ErrDuplicate
		}
	}
	copy := *ref
	m.refusals = append(m.refusals, &copy)
	return nil
}

func (m *MockRefusalRepository) CountByService(ctx context.Context, serviceID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, r := range m.refusals {
		if r.ServiceID == serviceID {
			count++
		}
	}
	return count, nil
}

func (m *MockRefusalRepository) GetByServiceAndProvider(ctx context.Context, serviceID, providerID string) (*domain.Refusal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.refusals {
		if r.ServiceID == serviceID && r.ProviderID == providerID {
			copy := *r
			return &copy, nil
		}
	}
	return nil, nil // None exists
}

// ──────────────────────────────────────────────
// MOCK WAYPOINT REPOSITORY
// ──────────────────────────────────────────────

// MockWaypointRepository is a mock implementation of WaypointRepository.
type MockWaypointRepository struct {
	mu        sync.RWMutex
	waypoints []*domain.Waypoint

	// Counters
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockWaypointRepository creates a new mock waypoint repository.
func NewMockWaypointRepository() *MockWaypointRepository {
	return &MockWaypointRepository{
		waypoints: make([]*domain.Waypoint, 0),
	}
}

func (m *MockWaypointRepository) Create(ctx context.Context, wp *domain.Waypoint) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// The store assigns the next position, like the SQL implementation.
	next := 0
	for _, existing := range m.waypoints {
		if existing.ServiceID == wp.ServiceID && existing.Position >= next {
			next = existing.Position + 1
		}
	}
	wp.Position = next
	copy := *wp
	m.waypoints = append(m.waypoints, &copy)
	return nil
}

func (m *MockWaypointRepository) ListByService(ctx context.Context, serviceID string) ([]*domain.Waypoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Waypoint, 0)
	for _, wp := range m.waypoints {
		if wp.ServiceID == serviceID {
			copy := *wp
			result = append(result, &copy)
		}
	}
	// Order by position.
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			if result[j].Position < result[i].Position {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	return result, nil
}

func (m *MockWaypointRepository) DeleteAt(ctx context.Context, serviceID string, position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, wp := range m.waypoints {
		if wp.ServiceID == serviceID && wp.Position == position {
			m.waypoints = append(m.waypoints[:i], m.waypoints[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *MockWaypointRepository) UpdatePosition(ctx context.Context, id string, position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, wp := range m.waypoints {
		if wp.ID == id {
			wp.Position = position
			return nil
		}
	}
	return repository.ErrNotFound
}

// Positions returns the stored positions for a service in position order
// (for test assertions).
func (m *MockWaypointRepository) Positions(serviceID string) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []int
	for _, wp := range m.waypoints {
		if wp.ServiceID == serviceID {
			result = append(result, wp.Position)
		}
	}
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			if result[j] < result[i] {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	return result
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment

	// Counters
	CreateCallCount       int32
	UpdateStatusCallCount int32

	// Error injection
	CreateError error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
	}
}

// AddPayment adds a payment to the mock repository.
func (m *MockPaymentRepository) AddPayment(payment *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[payment.ID] = payment
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *payment
	m.payments[payment.ID] = &copy
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *payment
	return &copy, nil
}

func (m *MockPaymentRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.ExternalID == externalID {
			copy := *p
			return &copy, nil
		}
	}
	return nil, nil // First sight of this external id
}

func (m *MockPaymentRepository) ListOpenByService(ctx context.Context, serviceID string) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Payment, 0)
	for _, p := range m.payments {
		if p.ServiceID == serviceID &&
			(p.Status == domain.PaymentStatusPending || p.Status == domain.PaymentStatusPaid) {
			copy := *p
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	payment.Status = status
	return nil
}

// GetPayment returns the payment by ID (for test assertions).
func (m *MockPaymentRepository) GetPayment(id string) *domain.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.payments[id]
}

// CountPayments returns the number of payments.
func (m *MockPaymentRepository) CountPayments() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payments)
}

// ──────────────────────────────────────────────
// MOCK NOTIFICATION REPOSITORY
// ──────────────────────────────────────────────

// MockNotificationRepository is a mock implementation of
// NotificationRepository.
type MockNotificationRepository struct {
	mu            sync.RWMutex
	notifications []*domain.Notification

	// Counters
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockNotificationRepository creates a new mock notification repository.
func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make([]*domain.Notification, 0),
	}
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *n
	m.notifications = append(m.notifications, &copy)
	return nil
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Notification, 0)
	for i := len(m.notifications) - 1; i >= 0; i-- {
		if m.notifications[i].UserID == userID {
			copy := *m.notifications[i]
			result = append(result, &copy)
		}
	}
	return result, nil
}

// CountForUser returns the number of notifications for a user.
func (m *MockNotificationRepository) CountForUser(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID {
			count++
		}
	}
	return count
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireProviderLock(ctx context.Context, providerID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:prestador:" + providerID
	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseProviderLock(ctx context.Context, providerID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, "lock:prestador:"+providerID)
	return nil
}

// IsLocked checks if a provider is locked (for test assertions).
func (m *MockLockStore) IsLocked(providerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks["lock:prestador:"+providerID]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is a mock implementation of CacheStore.
type MockCacheStore struct {
	mu       sync.RWMutex
	services map[string]*redis.CachedService

	// Counters
	SetCallCount        int32
	InvalidateCallCount int32
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		services: make(map[string]*redis.CachedService),
	}
}

func (m *MockCacheStore) GetService(ctx context.Context, serviceID string) (*redis.CachedService, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	svc, ok := m.services[serviceID]
	if !ok {
		return nil, nil // Cache miss
	}
	copy := *svc
	return &copy, nil
}

func (m *MockCacheStore) SetService(ctx context.Context, svc *redis.CachedService) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *svc
	m.services[svc.ID] = &copy
	return nil
}

func (m *MockCacheStore) InvalidateService(ctx context.Context, serviceID string) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.services, serviceID)
	return nil
}

// HasService checks if a service snapshot is cached (for test assertions).
func (m *MockCacheStore) HasService(serviceID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.services[serviceID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK BROADCASTER
// ──────────────────────────────────────────────

// BroadcastEvent is one captured broadcast (for test assertions).
type BroadcastEvent struct {
	ServiceID string
	UserID    string
	Event     string
	Payload   any
}

// MockBroadcaster records every broadcast for assertions.
type MockBroadcaster struct {
	mu     sync.Mutex
	events []BroadcastEvent
}

// NewMockBroadcaster creates a new mock broadcaster.
func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{}
}

func (m *MockBroadcaster) BroadcastToService(serviceID, event string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, BroadcastEvent{ServiceID: serviceID, Event: event, Payload: payload})
}

func (m *MockBroadcaster) BroadcastToUser(userID, event string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, BroadcastEvent{UserID: userID, Event: event, Payload: payload})
}

// Events returns all captured events.
func (m *MockBroadcaster) Events() []BroadcastEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]BroadcastEvent, len(m.events))
	copy(result, m.events)
	return result
}

// ServiceEvents returns the event names broadcast to a service's room in
// order.
func (m *MockBroadcaster) ServiceEvents(serviceID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []string
	for _, ev := range m.events {
		if ev.ServiceID == serviceID {
			result = append(result, ev.Event)
		}
	}
	return result
}

// UserEvents returns the event names broadcast to a user in order.
func (m *MockBroadcaster) UserEvents(userID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []string
	for _, ev := range m.events {
		if ev.UserID == userID {
			result = append(result, ev.Event)
		}
	}
	return result
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
