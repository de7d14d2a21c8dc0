package tests

import (
	"context"
	"errors"
	"testing"

	"facilita/internal/domain"
	"facilita/internal/repository"
	"facilita/internal/service"
)

func TestReconcile_CreatesPaymentOnFirstReport(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.pendingService("svc-1", "contractor-1")

	payment, err := f.paymentService.Reconcile(context.Background(), service.ReconcileRequest{
		ExternalID: "gw-123",
		ServiceID:  "svc-1",
		Amount:     150.0,
		Status:     domain.PaymentStatusPending,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if payment.ExternalID != "gw-123" {
		t.Errorf("expected external id gw-123, got %s", payment.ExternalID)
	}
	if f.payments.CountPayments() != 1 {
		t.Errorf("expected 1 payment, got %d", f.payments.CountPayments())
	}
}

func TestReconcile_ReplayWithSameStatusIsNoOp(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.pendingService("svc-1", "contractor-1")

	req := service.ReconcileRequest{
		ExternalID: "gw-123",
		ServiceID:  "svc-1",
		Amount:     150.0,
		Status:     domain.PaymentStatusPaid,
	}

	if _, err := f.paymentService.Reconcile(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.paymentService.Reconcile(context.Background(), req); err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}

	// The replay must not create a second row or touch the stored one.
	if f.payments.CountPayments() != 1 {
		t.Errorf("expected 1 payment after replay, got %d", f.payments.CountPayments())
	}
	if f.payments.UpdateStatusCallCount != 0 {
		t.Error("expected no status write on an identical replay")
	}
}

func TestReconcile_StatusProgressionUpdates(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.pendingService("svc-1", "contractor-1")

	first, err := f.paymentService.Reconcile(context.Background(), service.ReconcileRequest{
		ExternalID: "gw-123",
		ServiceID:  "svc-1",
		Amount:     150.0,
		Status:     domain.PaymentStatusPending,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := f.paymentService.Reconcile(context.Background(), service.ReconcileRequest{
		ExternalID: "gw-123",
		Status:     domain.PaymentStatusPaid,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.ID != first.ID {
		t.Error("expected the same payment row to be updated")
	}
	if f.payments.GetPayment(first.ID).Status != domain.PaymentStatusPaid {
		t.Error("expected stored status PAID")
	}
}

func TestReconcile_LocalCancellationWins(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.pendingService("svc-1", "contractor-1")
	f.payments.AddPayment(&domain.Payment{
		ID:         "pay-1",
		ServiceID:  "svc-1",
		Amount:     150.0,
		Status:     domain.PaymentStatusCancelled,
		ExternalID: "gw-123",
	})

	// A late PAID report must not resurrect a cancelled payment.
	payment, err := f.paymentService.Reconcile(context.Background(), service.ReconcileRequest{
		ExternalID: "gw-123",
		Status:     domain.PaymentStatusPaid,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if payment.Status != domain.PaymentStatusCancelled {
		t.Errorf("expected CANCELLED to win, got %s", payment.Status)
	}
	if f.payments.GetPayment("pay-1").Status != domain.PaymentStatusCancelled {
		t.Error("stored payment must stay CANCELLED")
	}
}

func TestReconcile_UnknownServiceRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(0)

	_, err := f.paymentService.Reconcile(context.Background(), service.ReconcileRequest{
		ExternalID: "gw-123",
		ServiceID:  "missing",
		Amount:     150.0,
		Status:     domain.PaymentStatusPending,
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReconcile_RequiresExternalID(t *testing.T) {
	t.Parallel()
	f := newFixture(0)

	_, err := f.paymentService.Reconcile(context.Background(), service.ReconcileRequest{
		ServiceID: "svc-1",
		Status:    domain.PaymentStatusPending,
	})
	if err != service.ErrInvalidExternalID {
		t.Errorf("expected ErrInvalidExternalID, got %v", err)
	}
}

func TestReconcile_RejectsNegativeAmount(t *testing.T) {
	t.Parallel()
	f := newFixture(0)

	_, err := f.paymentService.Reconcile(context.Background(), service.ReconcileRequest{
		ExternalID: "gw-123",
		ServiceID:  "svc-1",
		Amount:     -10,
		Status:     domain.PaymentStatusPending,
	})
	if err != service.ErrInvalidAmount {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestReconcile_FirstReportRequiresServiceID(t *testing.T) {
	t.Parallel()
	f := newFixture(0)

	_, err := f.paymentService.Reconcile(context.Background(), service.ReconcileRequest{
		ExternalID: "gw-123",
		Amount:     150.0,
		Status:     domain.PaymentStatusPending,
	})
	if err != service.ErrInvalidServiceID {
		t.Errorf("expected ErrInvalidServiceID, got %v", err)
	}
}

func TestGetPayment_RequiresID(t *testing.T) {
	t.Parallel()
	f := newFixture(0)

	_, err := f.paymentService.GetPayment(context.Background(), "")
	if err != service.ErrInvalidPaymentID {
		t.Errorf("expected ErrInvalidPaymentID, got %v", err)
	}
}
