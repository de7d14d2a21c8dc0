package domain

import "time"

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Payment represents a payment tied to a service. ExternalID is the id
// assigned by the payment gateway and is the idempotency key for webhook
// reconciliation.
type Payment struct {
	ID         string
	ServiceID  string
	Amount     float64
	Status     PaymentStatus
	ExternalID string
	CreatedAt  time.Time
}
