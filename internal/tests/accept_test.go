package tests

import (
	"context"
	"testing"

	"facilita/internal/domain"
	"facilita/internal/service"
)

func TestAccept_MovesServiceToInProgress(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.pendingService("svc-1", "contractor-1")

	svc, err := f.lifecycleService.Accept(context.Background(), "svc-1", "provider-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if svc.Status != domain.ServiceStatusInProgress {
		t.Errorf("expected status IN_PROGRESS, got %s", svc.Status)
	}
	if svc.ProviderID != "provider-1" {
		t.Errorf("expected provider-1, got %s", svc.ProviderID)
	}
	if svc.StartedAt.IsZero() {
		t.Error("expected StartedAt to be set")
	}

	stored := f.services.GetService("svc-1")
	if stored.Status != domain.ServiceStatusInProgress {
		t.Errorf("stored status = %s, want IN_PROGRESS", stored.Status)
	}
	if stored.Version != 1 {
		t.Errorf("expected version bump to 1, got %d", stored.Version)
	}
}

func TestAccept_DoesNotAppendTrackingRecord(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.pendingService("svc-1", "contractor-1")

	if _, err := f.lifecycleService.Accept(context.Background(), "svc-1", "provider-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The tracking log starts with the first movement, not the acceptance.
	if n := f.tracking.CountRecords("svc-1"); n != 0 {
		t.Errorf("expected empty tracking log, got %d records", n)
	}
}

func TestAccept_TakenServiceIsUnavailable(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusInProgress)

	_, err := f.lifecycleService.Accept(context.Background(), "svc-1", "provider-2")
	if err != service.ErrServiceUnavailable {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestAccept_ProviderWithActiveServiceIsBusy(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusEnRoute)
	f.pendingService("svc-2", "contractor-2")

	_, err := f.lifecycleService.Accept(context.Background(), "svc-2", "provider-1")
	if err != service.ErrProviderBusy {
		t.Errorf("expected ErrProviderBusy, got %v", err)
	}
}

func TestAccept_ProviderFreeAfterConfirmation(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusConfirmed)
	f.pendingService("svc-2", "contractor-2")

	if _, err := f.lifecycleService.Accept(context.Background(), "svc-2", "provider-1"); err != nil {
		t.Errorf("confirmed service should not block a new acceptance, got %v", err)
	}
}

func TestAccept_LockContentionRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.pendingService("svc-1", "contractor-1")
	f.locks.ForceAcquireFailure = true

	_, err := f.lifecycleService.Accept(context.Background(), "svc-1", "provider-1")
	if err != service.ErrProviderBusy {
		t.Errorf("expected ErrProviderBusy when lock is held, got %v", err)
	}
}

func TestAccept_ReleasesLockAfterSuccess(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.pendingService("svc-1", "contractor-1")

	if _, err := f.lifecycleService.Accept(context.Background(), "svc-1", "provider-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.locks.IsLocked("provider-1") {
		t.Error("expected provider lock to be released")
	}
	if f.locks.ReleaseCallCount == 0 {
		t.Error("expected release to be called")
	}
}

func TestAccept_InvalidatesCachedSnapshot(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.pendingService("svc-1", "contractor-1")

	// Warm the cache through a read.
	if _, err := f.lifecycleService.Get(context.Background(), "svc-1", "anyone"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.cache.HasService("svc-1") {
		t.Fatal("expected snapshot to be cached")
	}

	if _, err := f.lifecycleService.Accept(context.Background(), "svc-1", "provider-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.cache.HasService("svc-1") {
		t.Error("expected cached snapshot to be invalidated")
	}
}

func TestAccept_NotifiesContractor(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.pendingService("svc-1", "contractor-1")

	if _, err := f.lifecycleService.Accept(context.Background(), "svc-1", "provider-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.notifications.CountForUser("contractor-1") != 1 {
		t.Error("expected the contractor to be notified")
	}

	events := f.broadcaster.ServiceEvents("svc-1")
	if len(events) == 0 || events[0] != service.EventStatusUpdated {
		t.Errorf("expected a status_updated broadcast, got %v", events)
	}
}

func TestAccept_LoserOfConcurrentAcceptGetsUnavailable(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	svc := f.pendingService("svc-1", "contractor-1")

	// First provider wins the compare-and-set.
	if _, err := f.lifecycleService.Accept(context.Background(), svc.ID, "provider-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.lifecycleService.Accept(context.Background(), svc.ID, "provider-2")
	if err != service.ErrServiceUnavailable {
		t.Errorf("expected ErrServiceUnavailable for the loser, got %v", err)
	}

	stored := f.services.GetService(svc.ID)
	if stored.ProviderID != "provider-1" {
		t.Errorf("winner should keep the service, got provider %s", stored.ProviderID)
	}
}
