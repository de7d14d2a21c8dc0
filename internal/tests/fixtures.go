package tests

import (
	"time"

	"facilita/internal/domain"
	"facilita/internal/service"
)

// fixture bundles the mocks behind a fully wired service layer. The nil
// *sql.DB makes transactional operations run against the injected mocks.
type fixture struct {
	services      *MockServiceRepository
	tracking      *MockTrackingRepository
	refusals      *MockRefusalRepository
	waypoints     *MockWaypointRepository
	payments      *MockPaymentRepository
	notifications *MockNotificationRepository
	locks         *MockLockStore
	cache         *MockCacheStore
	broadcaster   *MockBroadcaster

	trackingService  *service.TrackingService
	lifecycleService *service.LifecycleService
	waypointService  *service.WaypointService
	paymentService   *service.PaymentService
}

// newFixture wires the full service layer over fresh mocks with the given
// refusal threshold (0 selects the default).
func newFixture(refusalThreshold int) *fixture {
	f := &fixture{
		services:      NewMockServiceRepository(),
		tracking:      NewMockTrackingRepository(),
		refusals:      NewMockRefusalRepository(),
		waypoints:     NewMockWaypointRepository(),
		payments:      NewMockPaymentRepository(),
		notifications: NewMockNotificationRepository(),
		locks:         NewMockLockStore(),
		cache:         NewMockCacheStore(),
		broadcaster:   NewMockBroadcaster(),
	}

	notificationService := service.NewNotificationService(f.notifications, f.broadcaster)
	f.trackingService = service.NewTrackingService(nil, f.services, f.tracking, f.broadcaster, notificationService)
	f.lifecycleService = service.NewLifecycleService(
		nil,
		f.services,
		f.tracking,
		f.refusals,
		f.payments,
		f.waypoints,
		f.trackingService,
		notificationService,
		f.locks,
		f.cache,
		f.broadcaster,
		refusalThreshold,
	)
	f.waypointService = service.NewWaypointService(nil, f.services, f.waypoints)
	f.paymentService = service.NewPaymentService(f.payments, f.services)

	return f
}

// pendingService seeds a PENDING service owned by the contractor.
func (f *fixture) pendingService(id, contractorID string) *domain.Service {
	svc := &domain.Service{
		ID:           id,
		ContractorID: contractorID,
		Description:  "Instalação de chuveiro elétrico",
		Status:       domain.ServiceStatusPending,
		RequestedAt:  time.Now(),
	}
	f.services.AddService(svc)
	return svc
}

// activeService seeds a service already accepted by the provider.
func (f *fixture) activeService(id, contractorID, providerID string, status domain.ServiceStatus) *domain.Service {
	svc := &domain.Service{
		ID:           id,
		ContractorID: contractorID,
		ProviderID:   providerID,
		Description:  "Reparo de vazamento",
		Status:       status,
		RequestedAt:  time.Now().Add(-time.Hour),
		StartedAt:    time.Now().Add(-30 * time.Minute),
	}
	f.services.AddService(svc)
	return svc
}
