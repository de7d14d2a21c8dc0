package service

import (
	"errors"
	"fmt"

	"facilita/internal/domain"
)

var (
	// ErrInvalidServiceID is returned when service ID is empty.
	ErrInvalidServiceID = errors.New("invalid service id")

	// ErrInvalidUserID is returned when an actor ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidDescription is returned when a service description is empty.
	ErrInvalidDescription = errors.New("description is required")

	// ErrInvalidCoordinates is returned when lat/lng are out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")

	// ErrInvalidStatus is returned when a target status is not a known
	// tracking transition.
	ErrInvalidStatus = errors.New("invalid target status")

	// ErrNotOwner is returned when the actor is not the contractor who
	// created the service.
	ErrNotOwner = errors.New("actor is not the service owner")

	// ErrNotAssigned is returned when the actor is not the provider
	// assigned to the service.
	ErrNotAssigned = errors.New("actor is not the assigned provider")

	// ErrWrongRole is returned when the operation requires a different role.
	ErrWrongRole = errors.New("operation not allowed for this role")

	// ErrProviderBusy is returned when a provider tries to accept a second
	// service while one is already active.
	ErrProviderBusy = errors.New("provider already has an active service")

	// ErrServiceUnavailable is returned when the service is no longer
	// pending and cannot be accepted or refused.
	ErrServiceUnavailable = errors.New("service is not available")

	// ErrAlreadyRefused is returned when a provider refuses the same
	// service twice.
	ErrAlreadyRefused = errors.New("provider already refused this service")

	// ErrCancelReasonRequired is returned when cancelling an in-progress
	// service without a reason.
	ErrCancelReasonRequired = errors.New("cancellation reason is required")

	// ErrServiceNotCancellable is returned when the service is past the
	// point where the contractor may cancel.
	ErrServiceNotCancellable = errors.New("service cannot be cancelled in current status")

	// ErrServiceNotDeletable is returned when deleting a service that has
	// been accepted.
	ErrServiceNotDeletable = errors.New("service can only be deleted while pending")

	// ErrWaypointLocked is returned when editing waypoints after the work
	// has finished.
	ErrWaypointLocked = errors.New("waypoints can no longer be modified")

	// ErrInvalidAmount is returned when a payment amount is not positive.
	ErrInvalidAmount = errors.New("invalid payment amount")

	// ErrInvalidPaymentID is returned when a payment id is empty.
	ErrInvalidPaymentID = errors.New("invalid payment id")

	// ErrInvalidExternalID is returned when a gateway report lacks its
	// payment id.
	ErrInvalidExternalID = errors.New("invalid external payment id")

	// ErrInvalidTransition is the sentinel for illegal status transitions.
	// Concrete failures are InvalidTransitionError values that unwrap to
	// this sentinel.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// InvalidTransitionError reports a status transition whose precondition on
// the current status was not met. Expected is the status the transition
// requires; Actual is the status the service was found in.
type InvalidTransitionError struct {
	Target   domain.ServiceStatus
	Expected domain.ServiceStatus
	Actual   domain.ServiceStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition to %s: requires current status %s, found %s",
		e.Target, e.Expected, e.Actual)
}

// Unwrap makes the error match ErrInvalidTransition with errors.Is.
func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
