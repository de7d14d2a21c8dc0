package domain

import "time"

// ServiceStatus represents the current status of a service request.
type ServiceStatus string

const (
	ServiceStatusPending    ServiceStatus = "PENDING"
	ServiceStatusInProgress ServiceStatus = "IN_PROGRESS"
	ServiceStatusEnRoute    ServiceStatus = "EN_ROUTE"
	ServiceStatusArrived    ServiceStatus = "ARRIVED"
	ServiceStatusStarted    ServiceStatus = "STARTED"
	ServiceStatusFinished   ServiceStatus = "FINISHED"
	ServiceStatusConfirmed  ServiceStatus = "CONFIRMED"
	ServiceStatusCancelled  ServiceStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is possible from s.
func (s ServiceStatus) IsTerminal() bool {
	return s == ServiceStatusConfirmed || s == ServiceStatusCancelled
}

// IsActive reports whether s counts toward a provider's active workload.
// A provider holding a service between acceptance and confirmation cannot
// accept another one.
func (s ServiceStatus) IsActive() bool {
	switch s {
	case ServiceStatusInProgress, ServiceStatusEnRoute, ServiceStatusArrived,
		ServiceStatusStarted, ServiceStatusFinished:
		return true
	}
	return false
}

// Role identifies which side of the marketplace an actor is on.
type Role string

const (
	RoleProvider   Role = "PROVIDER"
	RoleContractor Role = "CONTRACTOR"
)

// Service represents one unit of requested work.
type Service struct {
	ID           string
	ContractorID string
	ProviderID   string // empty until a provider accepts
	CategoryID   string
	Description  string
	Value        float64
	HasValue     bool
	Status       ServiceStatus
	Lat          float64
	Lng          float64
	Address      string
	HasLocation  bool
	CancelReason string
	Version      int64 // bumped on every status change, optimistic concurrency
	RequestedAt  time.Time
	StartedAt    time.Time
	CompletedAt  time.Time
	ConfirmedAt  time.Time
}
