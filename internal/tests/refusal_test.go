package tests

import (
	"context"
	"fmt"
	"testing"

	"facilita/internal/domain"
	"facilita/internal/service"
)

func TestRefuse_RecordsRefusal(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.pendingService("svc-1", "contractor-1")

	result, err := f.lifecycleService.Refuse(context.Background(), "svc-1", "provider-1", "Fora da minha região")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RefusalCount != 1 {
		t.Errorf("expected refusal count 1, got %d", result.RefusalCount)
	}
	if result.AutoCancelled {
		t.Error("one refusal must not auto-cancel")
	}

	stored := f.services.GetService("svc-1")
	if stored.Status != domain.ServiceStatusPending {
		t.Errorf("service should stay PENDING, got %s", stored.Status)
	}
}

func TestRefuse_SameProviderTwiceRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.pendingService("svc-1", "contractor-1")

	if _, err := f.lifecycleService.Refuse(context.Background(), "svc-1", "provider-1", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.lifecycleService.Refuse(context.Background(), "svc-1", "provider-1", "")
	if err != service.ErrAlreadyRefused {
		t.Errorf("expected ErrAlreadyRefused, got %v", err)
	}

	count, _ := f.refusals.CountByService(context.Background(), "svc-1")
	if count != 1 {
		t.Errorf("expected a single stored refusal, got %d", count)
	}
}

func TestRefuse_NonPendingServiceUnavailable(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusInProgress)

	_, err := f.lifecycleService.Refuse(context.Background(), "svc-1", "provider-2", "")
	if err != service.ErrServiceUnavailable {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestRefuse_AutoCancelAtThreshold(t *testing.T) {
	t.Parallel()
	f := newFixture(0) // default threshold of 5
	f.pendingService("svc-1", "contractor-1")

	for i := 1; i <= 4; i++ {
		result, err := f.lifecycleService.Refuse(context.Background(), "svc-1", fmt.Sprintf("provider-%d", i), "")
		if err != nil {
			t.Fatalf("refusal %d: unexpected error: %v", i, err)
		}
		if result.AutoCancelled {
			t.Fatalf("refusal %d must not auto-cancel yet", i)
		}
	}

	result, err := f.lifecycleService.Refuse(context.Background(), "svc-1", "provider-5", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.AutoCancelled {
		t.Fatal("fifth distinct refusal should auto-cancel")
	}
	if result.RefusalCount != 5 {
		t.Errorf("expected refusal count 5, got %d", result.RefusalCount)
	}

	stored := f.services.GetService("svc-1")
	if stored.Status != domain.ServiceStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", stored.Status)
	}
	if stored.CancelReason == "" {
		t.Error("expected a system cancel reason")
	}

	// Auto-cancellation lands in the tracking log.
	seq := f.tracking.StatusSequence("svc-1")
	if len(seq) != 1 || seq[0] != domain.ServiceStatusCancelled {
		t.Errorf("expected tracking sequence [CANCELLED], got %v", seq)
	}

	// The contractor hears about it.
	if f.notifications.CountForUser("contractor-1") != 1 {
		t.Error("expected the contractor to be notified of the auto-cancel")
	}
}

func TestRefuse_ThresholdIsConfigurable(t *testing.T) {
	t.Parallel()
	f := newFixture(2)
	f.pendingService("svc-1", "contractor-1")

	if _, err := f.lifecycleService.Refuse(context.Background(), "svc-1", "provider-1", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := f.lifecycleService.Refuse(context.Background(), "svc-1", "provider-2", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.AutoCancelled {
		t.Error("expected auto-cancel at configured threshold of 2")
	}
}

func TestRefuse_RefusalsDoNotBlockAcceptance(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.pendingService("svc-1", "contractor-1")

	for i := 1; i <= 4; i++ {
		if _, err := f.lifecycleService.Refuse(context.Background(), "svc-1", fmt.Sprintf("provider-%d", i), ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Still below threshold: a fifth provider can accept instead.
	if _, err := f.lifecycleService.Accept(context.Background(), "svc-1", "provider-5"); err != nil {
		t.Errorf("expected acceptance to succeed, got %v", err)
	}
}
