package domain

import "time"

// TrackingRecord is an append-only audit entry capturing one status
// transition of a service, with optional location data. Records are never
// mutated or deleted.
type TrackingRecord struct {
	ID          string
	ServiceID   string
	Status      ServiceStatus
	Lat         float64
	Lng         float64
	HasLocation bool
	Address     string
	Note        string
	CreatedAt   time.Time
}

// Refusal records a provider declining a pending service. At most one
// refusal exists per (service, provider) pair.
type Refusal struct {
	ID         string
	ServiceID  string
	ProviderID string
	Reason     string
	CreatedAt  time.Time
}
