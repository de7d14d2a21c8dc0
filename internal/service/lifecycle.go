package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"facilita/internal/domain"
	internalRedis "facilita/internal/redis"
	"facilita/internal/repository"
)

const (
	providerLockTTL = 10 * time.Second

	// DefaultRefusalThreshold is how many distinct providers must refuse a
	// pending service before it is cancelled automatically. Overridable via
	// configuration.
	DefaultRefusalThreshold = 5

	autoCancelReason = "Cancelado automaticamente por excesso de recusas"
)

// LifecycleService orchestrates the operations that change ownership or
// terminal state of a service: acceptance, refusal, cancellation and
// completion confirmation, with their cross-entity side effects.
type LifecycleService struct {
	db               *sql.DB
	serviceRepo      repository.ServiceRepository
	trackingRepo     repository.TrackingRepository
	refusalRepo      repository.RefusalRepository
	paymentRepo      repository.PaymentRepository
	waypointRepo     repository.WaypointRepository
	tracking         *TrackingService
	notifications    *NotificationService
	lockStore        internalRedis.LockStoreInterface
	cacheStore       internalRedis.CacheStoreInterface
	broadcaster      Broadcaster
	refusalThreshold int
}

// NewLifecycleService creates a new LifecycleService. lockStore and
// cacheStore may be nil (single-instance or test deployments); broadcaster
// may be nil.
func NewLifecycleService(
	db *sql.DB,
	serviceRepo repository.ServiceRepository,
	trackingRepo repository.TrackingRepository,
	refusalRepo repository.RefusalRepository,
	paymentRepo repository.PaymentRepository,
	waypointRepo repository.WaypointRepository,
	tracking *TrackingService,
	notifications *NotificationService,
	lockStore internalRedis.LockStoreInterface,
	cacheStore internalRedis.CacheStoreInterface,
	broadcaster Broadcaster,
	refusalThreshold int,
) *LifecycleService {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	if refusalThreshold <= 0 {
		refusalThreshold = DefaultRefusalThreshold
	}
	return &LifecycleService{
		db:               db,
		serviceRepo:      serviceRepo,
		trackingRepo:     trackingRepo,
		refusalRepo:      refusalRepo,
		paymentRepo:      paymentRepo,
		waypointRepo:     waypointRepo,
		tracking:         tracking,
		notifications:    notifications,
		lockStore:        lockStore,
		cacheStore:       cacheStore,
		broadcaster:      broadcaster,
		refusalThreshold: refusalThreshold,
	}
}

// WaypointInput describes one stop supplied at service creation.
type WaypointInput struct {
	Lat         float64
	Lng         float64
	Description string
	ETA         time.Time
}

// CreateServiceRequest contains the parameters for creating a service.
type CreateServiceRequest struct {
	ContractorID string
	CategoryID   string
	Description  string
	Value        float64
	HasValue     bool
	Lat          float64
	Lng          float64
	HasLocation  bool
	Address      string
	Waypoints    []WaypointInput
}

// Create registers a new PENDING service owned by the contractor.
func (s *LifecycleService) Create(ctx context.Context, req CreateServiceRequest) (*domain.Service, error) {
	if req.ContractorID == "" {
		return nil, ErrInvalidUserID
	}
	if req.Description == "" {
		return nil, ErrInvalidDescription
	}
	if req.HasLocation && !isValidCoordinates(req.Lat, req.Lng) {
		return nil, ErrInvalidCoordinates
	}
	for _, wp := range req.Waypoints {
		if !isValidCoordinates(wp.Lat, wp.Lng) {
			return nil, ErrInvalidCoordinates
		}
	}

	svc := &domain.Service{
		ID:           uuid.New().String(),
		ContractorID: req.ContractorID,
		CategoryID:   req.CategoryID,
		Description:  req.Description,
		Value:        req.Value,
		HasValue:     req.HasValue,
		Status:       domain.ServiceStatusPending,
		Lat:          req.Lat,
		Lng:          req.Lng,
		HasLocation:  req.HasLocation,
		Address:      req.Address,
		RequestedAt:  time.Now(),
	}

	err := runInTx(ctx, s.db, s.fallbackRepos(), func(r repos) error {
		if err := r.services.Create(ctx, svc); err != nil {
			return err
		}
		// Created in request order; the store assigns positions 0..n-1.
		for _, in := range req.Waypoints {
			wp := &domain.Waypoint{
				ID:          uuid.New().String(),
				ServiceID:   svc.ID,
				Lat:         in.Lat,
				Lng:         in.Lng,
				Description: in.Description,
				ETA:         in.ETA,
				HasETA:      !in.ETA.IsZero(),
			}
			if err := r.waypoints.Create(ctx, wp); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return svc, nil
}

// Accept assigns a provider to a pending service, atomically moving it to
// IN_PROGRESS. Acceptance does not append a tracking record: the status
// flip on the service row is the IN_PROGRESS transition itself, and the
// tracking log starts with the first movement (EN_ROUTE).
func (s *LifecycleService) Accept(ctx context.Context, serviceID, providerID string) (*domain.Service, error) {
	if serviceID == "" {
		return nil, ErrInvalidServiceID
	}
	if providerID == "" {
		return nil, ErrInvalidUserID
	}

	// The provider lock closes the busy-check window across instances.
	if s.lockStore != nil {
		locked, err := s.lockStore.AcquireProviderLock(ctx, providerID, providerLockTTL)
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, ErrProviderBusy
		}
		defer func() {
			_ = s.lockStore.ReleaseProviderLock(ctx, providerID)
		}()
	}

	active, err := s.serviceRepo.GetActiveByProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrProviderBusy
	}

	svc, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	if svc.Status != domain.ServiceStatusPending {
		return nil, ErrServiceUnavailable
	}

	svc.ProviderID = providerID
	svc.Status = domain.ServiceStatusInProgress
	svc.StartedAt = time.Now()

	if err := s.serviceRepo.TransitionStatus(ctx, svc, domain.ServiceStatusPending); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// Another provider got there first.
			return nil, ErrServiceUnavailable
		}
		return nil, err
	}

	s.invalidateCache(ctx, svc.ID)

	s.broadcaster.BroadcastToService(svc.ID, EventStatusUpdated, StatusUpdatePayload{
		ServiceID: svc.ID,
		Status:    string(svc.Status),
		At:        svc.StartedAt.Format(time.RFC3339),
	})

	if s.notifications != nil {
		s.notifications.Notify(ctx, ServiceAccepted(svc))
	}

	return svc, nil
}

// RefuseResult contains the outcome of a refusal.
type RefuseResult struct {
	RefusalCount  int
	AutoCancelled bool
}

// Refuse records a provider declining a pending service. Reaching the
// refusal threshold cancels the service with a system reason.
func (s *LifecycleService) Refuse(ctx context.Context, serviceID, providerID, reason string) (*RefuseResult, error) {
	if serviceID == "" {
		return nil, ErrInvalidServiceID
	}
	if providerID == "" {
		return nil, ErrInvalidUserID
	}

	svc, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	if svc.Status != domain.ServiceStatusPending {
		return nil, ErrServiceUnavailable
	}

	existing, err := s.refusalRepo.GetByServiceAndProvider(ctx, serviceID, providerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyRefused
	}

	result := &RefuseResult{}

	err = runInTx(ctx, s.db, s.fallbackRepos(), func(r repos) error {
		ref := &domain.Refusal{
			ID:         uuid.New().String(),
			ServiceID:  serviceID,
			ProviderID: providerID,
			Reason:     reason,
			CreatedAt:  time.Now(),
		}
		if err := r.refusals.Create(ctx, ref); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAlreadyRefused
			}
			return err
		}

		count, err := r.refusals.CountByService(ctx, serviceID)
		if err != nil {
			return err
		}
		result.RefusalCount = count

		if count < s.refusalThreshold {
			return nil
		}

		now := time.Now()
		svc.Status = domain.ServiceStatusCancelled
		svc.CancelReason = autoCancelReason
		svc.CompletedAt = now

		if err := r.services.TransitionStatus(ctx, svc, domain.ServiceStatusPending); err != nil {
			if errors.Is(err, repository.ErrStatusConflict) {
				// A provider accepted between our read and the cancel.
				return ErrServiceUnavailable
			}
			return err
		}

		rec := &domain.TrackingRecord{
			ID:        uuid.New().String(),
			ServiceID: serviceID,
			Status:    domain.ServiceStatusCancelled,
			Note:      autoCancelReason,
			CreatedAt: now,
		}
		if err := r.tracking.Create(ctx, rec); err != nil {
			return err
		}

		result.AutoCancelled = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.AutoCancelled {
		s.invalidateCache(ctx, svc.ID)
		s.broadcaster.BroadcastToService(svc.ID, EventStatusUpdated, StatusUpdatePayload{
			ServiceID: svc.ID,
			Status:    string(domain.ServiceStatusCancelled),
			Note:      autoCancelReason,
			At:        svc.CompletedAt.Format(time.RFC3339),
		})
		if s.notifications != nil {
			s.notifications.Notify(ctx, ServiceAutoCancelled(svc))
		}
	}

	return result, nil
}

// CancelResult contains the outcome of a cancellation.
type CancelResult struct {
	Service           *domain.Service
	RefundEligible    bool
	CancelledPayments int
}

// Cancel lets the owning contractor cancel a PENDING or IN_PROGRESS
// service. The status flip, open payment cancellation, provider
// notification and synthetic tracking record commit in one transaction.
func (s *LifecycleService) Cancel(ctx context.Context, serviceID, contractorID, reason string) (*CancelResult, error) {
	if serviceID == "" {
		return nil, ErrInvalidServiceID
	}
	if contractorID == "" {
		return nil, ErrInvalidUserID
	}

	svc, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	if svc.ContractorID != contractorID {
		return nil, ErrNotOwner
	}

	if svc.Status != domain.ServiceStatusPending && svc.Status != domain.ServiceStatusInProgress {
		return nil, ErrServiceNotCancellable
	}

	if svc.Status == domain.ServiceStatusInProgress && reason == "" {
		return nil, ErrCancelReasonRequired
	}

	expected := svc.Status
	now := time.Now()
	svc.Status = domain.ServiceStatusCancelled
	svc.CancelReason = reason
	svc.CompletedAt = now

	result := &CancelResult{Service: svc}
	var providerNote *domain.Notification

	err = runInTx(ctx, s.db, s.fallbackRepos(), func(r repos) error {
		if err := r.services.TransitionStatus(ctx, svc, expected); err != nil {
			return err
		}

		open, err := r.payments.ListOpenByService(ctx, serviceID)
		if err != nil {
			return err
		}
		for _, p := range open {
			if p.Status == domain.PaymentStatusPaid {
				// TODO: trigger an actual gateway refund once the refund API
				// is integrated; for now the row is only flagged.
				result.RefundEligible = true
			}
			if err := r.payments.UpdateStatus(ctx, p.ID, domain.PaymentStatusCancelled); err != nil {
				return err
			}
			result.CancelledPayments++
		}

		if svc.ProviderID != "" {
			providerNote = ServiceCancelled(svc, reason)
			if err := r.notifications.Create(ctx, providerNote); err != nil {
				return err
			}
		}

		rec := &domain.TrackingRecord{
			ID:        uuid.New().String(),
			ServiceID: serviceID,
			Status:    domain.ServiceStatusCancelled,
			Note:      reason,
			CreatedAt: now,
		}
		return r.tracking.Create(ctx, rec)
	})
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			actual := expected
			if fresh, ferr := s.serviceRepo.GetByID(ctx, serviceID); ferr == nil {
				actual = fresh.Status
			}
			return nil, &InvalidTransitionError{
				Target:   domain.ServiceStatusCancelled,
				Expected: expected,
				Actual:   actual,
			}
		}
		return nil, err
	}

	s.invalidateCache(ctx, serviceID)

	s.broadcaster.BroadcastToService(serviceID, EventStatusUpdated, StatusUpdatePayload{
		ServiceID: serviceID,
		Status:    string(domain.ServiceStatusCancelled),
		Note:      reason,
		At:        now.Format(time.RFC3339),
	})

	if providerNote != nil && s.notifications != nil {
		s.notifications.Push(providerNote)
	}

	return result, nil
}

// ConfirmCompletion lets the owning contractor confirm a finished service,
// closing it as CONFIRMED. Delegates to the tracking state machine so the
// transition is validated, recorded and broadcast exactly like every other
// one.
func (s *LifecycleService) ConfirmCompletion(ctx context.Context, serviceID, contractorID string) (*domain.TrackingRecord, error) {
	rec, err := s.tracking.Transition(ctx, TransitionRequest{
		ServiceID: serviceID,
		ActorID:   contractorID,
		ActorRole: domain.RoleContractor,
		Target:    domain.ServiceStatusConfirmed,
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, serviceID)

	return rec, nil
}

// Delete removes a service that is still PENDING. Accepted services can
// only be cancelled.
func (s *LifecycleService) Delete(ctx context.Context, serviceID, contractorID string) error {
	if serviceID == "" {
		return ErrInvalidServiceID
	}

	svc, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return err
	}

	if svc.ContractorID != contractorID {
		return ErrNotOwner
	}

	if svc.Status != domain.ServiceStatusPending {
		return ErrServiceNotDeletable
	}

	if err := s.serviceRepo.Delete(ctx, serviceID); err != nil {
		return err
	}

	s.invalidateCache(ctx, serviceID)

	return nil
}

// Get retrieves a service. PENDING services are visible to any
// authenticated user (providers browse them); everything else only to
// participants.
func (s *LifecycleService) Get(ctx context.Context, serviceID, actorID string) (*domain.Service, error) {
	if serviceID == "" {
		return nil, ErrInvalidServiceID
	}

	svc, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	if svc.Status != domain.ServiceStatusPending && !isParticipant(svc, actorID) {
		return nil, ErrNotOwner
	}

	if s.cacheStore != nil {
		if err := s.cacheStore.SetService(ctx, &internalRedis.CachedService{
			ID:           svc.ID,
			ContractorID: svc.ContractorID,
			ProviderID:   svc.ProviderID,
			Status:       string(svc.Status),
			Version:      svc.Version,
			Value:        svc.Value,
		}); err != nil {
			log.Printf("lifecycle: cache write failed for service %s: %v", svc.ID, err)
		}
	}

	return svc, nil
}

// CurrentStatus returns the service's status, serving from the Redis
// snapshot when fresh enough.
func (s *LifecycleService) CurrentStatus(ctx context.Context, serviceID string) (domain.ServiceStatus, error) {
	if serviceID == "" {
		return "", ErrInvalidServiceID
	}

	if s.cacheStore != nil {
		cached, err := s.cacheStore.GetService(ctx, serviceID)
		if err == nil && cached != nil {
			return domain.ServiceStatus(cached.Status), nil
		}
	}

	svc, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return "", err
	}

	return svc.Status, nil
}

// ListPending retrieves services waiting for a provider.
func (s *LifecycleService) ListPending(ctx context.Context) ([]*domain.Service, error) {
	return s.serviceRepo.ListPending(ctx)
}

// ListByContractor retrieves a contractor's services.
func (s *LifecycleService) ListByContractor(ctx context.Context, contractorID string) ([]*domain.Service, error) {
	if contractorID == "" {
		return nil, ErrInvalidUserID
	}
	return s.serviceRepo.ListByContractor(ctx, contractorID)
}

// invalidateCache drops the cached snapshot after a status change.
func (s *LifecycleService) invalidateCache(ctx context.Context, serviceID string) {
	if s.cacheStore == nil {
		return
	}
	if err := s.cacheStore.InvalidateService(ctx, serviceID); err != nil {
		log.Printf("lifecycle: cache invalidation failed for service %s: %v", serviceID, err)
	}
}

func (s *LifecycleService) fallbackRepos() repos {
	return repos{
		services:      s.serviceRepo,
		tracking:      s.trackingRepo,
		refusals:      s.refusalRepo,
		payments:      s.paymentRepo,
		notifications: notificationRepoOf(s.notifications),
		waypoints:     s.waypointRepo,
	}
}

func notificationRepoOf(n *NotificationService) repository.NotificationRepository {
	if n == nil {
		return nil
	}
	return n.repo
}
