package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"facilita/internal/domain"
	"facilita/internal/repository"
)

// transitionRule describes one legal tracking transition: the status the
// service must currently be in, and which side of the marketplace may
// trigger it.
type transitionRule struct {
	expected domain.ServiceStatus
	role     domain.Role
}

// transitionRules is the single source of truth for the tracking state
// machine. Acceptance (PENDING to IN_PROGRESS) is not listed: it changes
// ownership, not just progress, and is handled by LifecycleService.Accept.
var transitionRules = map[domain.ServiceStatus]transitionRule{
	domain.ServiceStatusEnRoute:   {expected: domain.ServiceStatusInProgress, role: domain.RoleProvider},
	domain.ServiceStatusArrived:   {expected: domain.ServiceStatusEnRoute, role: domain.RoleProvider},
	domain.ServiceStatusStarted:   {expected: domain.ServiceStatusArrived, role: domain.RoleProvider},
	domain.ServiceStatusFinished:  {expected: domain.ServiceStatusStarted, role: domain.RoleProvider},
	domain.ServiceStatusConfirmed: {expected: domain.ServiceStatusFinished, role: domain.RoleContractor},
}

// TrackingService validates and records status transitions. Service.Status
// is the authoritative current status, updated with a compare-and-set on
// every transition; the tracking log is a pure audit trail appended in the
// same transaction.
type TrackingService struct {
	db            *sql.DB
	serviceRepo   repository.ServiceRepository
	trackingRepo  repository.TrackingRepository
	broadcaster   Broadcaster
	notifications *NotificationService
}

// NewTrackingService creates a new TrackingService. notifications may be
// nil.
func NewTrackingService(
	db *sql.DB,
	serviceRepo repository.ServiceRepository,
	trackingRepo repository.TrackingRepository,
	broadcaster Broadcaster,
	notifications *NotificationService,
) *TrackingService {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &TrackingService{
		db:            db,
		serviceRepo:   serviceRepo,
		trackingRepo:  trackingRepo,
		broadcaster:   broadcaster,
		notifications: notifications,
	}
}

// TransitionRequest contains the parameters for one status transition.
type TransitionRequest struct {
	ServiceID   string
	ActorID     string
	ActorRole   domain.Role
	Target      domain.ServiceStatus
	Lat         float64
	Lng         float64
	HasLocation bool
	Address     string
	Note        string
}

// Transition applies one tracking transition. Authorization is checked
// before the state precondition. On success it returns the created tracking
// record; a concurrent conflicting transition loses the compare-and-set and
// gets an InvalidTransitionError.
func (s *TrackingService) Transition(ctx context.Context, req TransitionRequest) (*domain.TrackingRecord, error) {
	if req.ServiceID == "" {
		return nil, ErrInvalidServiceID
	}
	if req.ActorID == "" {
		return nil, ErrInvalidUserID
	}

	rule, ok := transitionRules[req.Target]
	if !ok {
		return nil, ErrInvalidStatus
	}

	if req.HasLocation && !isValidCoordinates(req.Lat, req.Lng) {
		return nil, ErrInvalidCoordinates
	}

	svc, err := s.serviceRepo.GetByID(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}

	if err := authorizeTransition(svc, rule, req.ActorID, req.ActorRole); err != nil {
		return nil, err
	}

	if svc.Status != rule.expected {
		return nil, &InvalidTransitionError{
			Target:   req.Target,
			Expected: rule.expected,
			Actual:   svc.Status,
		}
	}

	now := time.Now()
	svc.Status = req.Target
	switch req.Target {
	case domain.ServiceStatusFinished:
		svc.CompletedAt = now
	case domain.ServiceStatusConfirmed:
		svc.ConfirmedAt = now
	}

	rec := &domain.TrackingRecord{
		ID:          uuid.New().String(),
		ServiceID:   svc.ID,
		Status:      req.Target,
		Lat:         req.Lat,
		Lng:         req.Lng,
		HasLocation: req.HasLocation,
		Address:     req.Address,
		Note:        req.Note,
		CreatedAt:   now,
	}

	err = runInTx(ctx, s.db, repos{services: s.serviceRepo, tracking: s.trackingRepo}, func(r repos) error {
		if err := r.services.TransitionStatus(ctx, svc, rule.expected); err != nil {
			return err
		}
		return r.tracking.Create(ctx, rec)
	})
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// Lost the compare-and-set race; report what won.
			actual := rule.expected
			if fresh, ferr := s.serviceRepo.GetByID(ctx, req.ServiceID); ferr == nil {
				actual = fresh.Status
			}
			return nil, &InvalidTransitionError{
				Target:   req.Target,
				Expected: rule.expected,
				Actual:   actual,
			}
		}
		return nil, err
	}

	s.emit(svc.ID, rec)

	// The contractor has to confirm completion; tell them the work is done.
	if req.Target == domain.ServiceStatusFinished && s.notifications != nil {
		s.notifications.Notify(ctx, ServiceFinished(svc))
	}

	return rec, nil
}

// History retrieves a service's tracking records, most recent first.
// Only participants may read it.
func (s *TrackingService) History(ctx context.Context, serviceID, actorID string) ([]*domain.TrackingRecord, error) {
	if serviceID == "" {
		return nil, ErrInvalidServiceID
	}

	svc, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	if !isParticipant(svc, actorID) {
		return nil, ErrNotOwner
	}

	return s.trackingRepo.ListByService(ctx, serviceID)
}

// LastStatus retrieves the most recent tracking record for a service. When
// no record exists yet (the service is still PENDING, or was accepted but
// never tracked) a synthetic record is derived from the service row.
func (s *TrackingService) LastStatus(ctx context.Context, serviceID, actorID string) (*domain.TrackingRecord, error) {
	if serviceID == "" {
		return nil, ErrInvalidServiceID
	}

	svc, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	if !isParticipant(svc, actorID) {
		return nil, ErrNotOwner
	}

	rec, err := s.trackingRepo.GetLatest(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}

	at := svc.RequestedAt
	if !svc.StartedAt.IsZero() {
		at = svc.StartedAt
	}

	return &domain.TrackingRecord{
		ServiceID: svc.ID,
		Status:    svc.Status,
		CreatedAt: at,
	}, nil
}

// emit broadcasts the transition. Failures inside the broadcaster are its
// own problem; the transition has already committed.
func (s *TrackingService) emit(serviceID string, rec *domain.TrackingRecord) {
	s.broadcaster.BroadcastToService(serviceID, EventStatusUpdated, StatusUpdatePayload{
		ServiceID: serviceID,
		Status:    string(rec.Status),
		Note:      rec.Note,
		At:        rec.CreatedAt.Format(time.RFC3339),
	})

	if rec.HasLocation {
		s.broadcaster.BroadcastToService(serviceID, EventLocationUpdated, LocationUpdatePayload{
			ServiceID: serviceID,
			Lat:       rec.Lat,
			Lng:       rec.Lng,
			Address:   rec.Address,
			At:        rec.CreatedAt.Format(time.RFC3339),
		})
	}

	log.Printf("tracking: service %s moved to %s", serviceID, rec.Status)
}

// authorizeTransition enforces role and ownership checks ahead of any state
// validation.
func authorizeTransition(svc *domain.Service, rule transitionRule, actorID string, actorRole domain.Role) error {
	if actorRole != rule.role {
		return ErrWrongRole
	}

	switch rule.role {
	case domain.RoleProvider:
		if svc.ProviderID == "" || svc.ProviderID != actorID {
			return ErrNotAssigned
		}
	case domain.RoleContractor:
		if svc.ContractorID != actorID {
			return ErrNotOwner
		}
	}

	return nil
}

func isParticipant(svc *domain.Service, actorID string) bool {
	return actorID != "" && (svc.ContractorID == actorID || svc.ProviderID == actorID)
}

func isValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
