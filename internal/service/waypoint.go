package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"facilita/internal/domain"
	"facilita/internal/repository"
)

// WaypointService manages the ordered stops of a service's route. Waypoints
// are editable by the owning contractor until the work finishes.
type WaypointService struct {
	db           *sql.DB
	serviceRepo  repository.ServiceRepository
	waypointRepo repository.WaypointRepository
}

// NewWaypointService creates a new WaypointService.
func NewWaypointService(
	db *sql.DB,
	serviceRepo repository.ServiceRepository,
	waypointRepo repository.WaypointRepository,
) *WaypointService {
	return &WaypointService{
		db:           db,
		serviceRepo:  serviceRepo,
		waypointRepo: waypointRepo,
	}
}

// AddWaypointRequest contains the parameters for appending a waypoint.
type AddWaypointRequest struct {
	ServiceID    string
	ContractorID string
	Lat          float64
	Lng          float64
	Description  string
	ETA          time.Time
}

// Add appends a waypoint at the end of the service's route.
func (s *WaypointService) Add(ctx context.Context, req AddWaypointRequest) (*domain.Waypoint, error) {
	if req.ServiceID == "" {
		return nil, ErrInvalidServiceID
	}
	if !isValidCoordinates(req.Lat, req.Lng) {
		return nil, ErrInvalidCoordinates
	}

	if _, err := s.authorize(ctx, req.ServiceID, req.ContractorID); err != nil {
		return nil, err
	}

	wp := &domain.Waypoint{
		ID:          uuid.New().String(),
		ServiceID:   req.ServiceID,
		Lat:         req.Lat,
		Lng:         req.Lng,
		Description: req.Description,
		ETA:         req.ETA,
		HasETA:      !req.ETA.IsZero(),
	}

	// The store assigns the position atomically with the insert, so
	// concurrent appends to the same route cannot collide.
	if err := s.waypointRepo.Create(ctx, wp); err != nil {
		return nil, err
	}

	return wp, nil
}

// List retrieves a service's waypoints ordered by position. Read access
// follows the service's visibility rules.
func (s *WaypointService) List(ctx context.Context, serviceID, actorID string) ([]*domain.Waypoint, error) {
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

	return s.waypointRepo.ListByService(ctx, serviceID)
}

// Remove deletes the waypoint at the given position and re-indexes the
// remaining set to contiguous positions starting at 0, preserving relative
// order. Delete and re-index commit in one transaction.
func (s *WaypointService) Remove(ctx context.Context, serviceID, contractorID string, position int) error {
	if serviceID == "" {
		return ErrInvalidServiceID
	}

	if _, err := s.authorize(ctx, serviceID, contractorID); err != nil {
		return err
	}

	fallback := repos{services: s.serviceRepo, waypoints: s.waypointRepo}

	return runInTx(ctx, s.db, fallback, func(r repos) error {
		if err := r.waypoints.DeleteAt(ctx, serviceID, position); err != nil {
			return err
		}

		remaining, err := r.waypoints.ListByService(ctx, serviceID)
		if err != nil {
			return err
		}

		for i, wp := range remaining {
			if wp.Position == i {
				continue
			}
			if err := r.waypoints.UpdatePosition(ctx, wp.ID, i); err != nil {
				return err
			}
		}

		return nil
	})
}

// authorize checks ownership and that the route is still editable.
func (s *WaypointService) authorize(ctx context.Context, serviceID, contractorID string) (*domain.Service, error) {
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

	switch svc.Status {
	case domain.ServiceStatusFinished, domain.ServiceStatusConfirmed, domain.ServiceStatusCancelled:
		return nil, ErrWaypointLocked
	}

	return svc, nil
}
