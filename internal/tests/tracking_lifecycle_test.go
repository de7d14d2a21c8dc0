package tests

import (
	"context"
	"errors"
	"testing"

	"facilita/internal/domain"
	"facilita/internal/service"
)

func transitionReq(serviceID, actorID string, role domain.Role, target domain.ServiceStatus) service.TransitionRequest {
	return service.TransitionRequest{
		ServiceID: serviceID,
		ActorID:   actorID,
		ActorRole: role,
		Target:    target,
	}
}

func TestTracking_FinishNotifiesContractor(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusStarted)

	if _, err := f.trackingService.Transition(context.Background(), transitionReq("svc-1", "provider-1", domain.RoleProvider, domain.ServiceStatusFinished)); err != nil {
		t.Fatalf("transition: %v", err)
	}

	notifications, err := f.notifications.ListByUser(context.Background(), "contractor-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("expected 1 notification for the contractor, got %d", len(notifications))
	}
	if notifications[0].Type != domain.NotificationServiceFinished {
		t.Errorf("expected type %s, got %s", domain.NotificationServiceFinished, notifications[0].Type)
	}
	if notifications[0].ServiceID != "svc-1" {
		t.Errorf("expected service svc-1, got %s", notifications[0].ServiceID)
	}
}

func TestTracking_IntermediateStepsDoNotNotify(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusInProgress)

	if _, err := f.trackingService.Transition(context.Background(), transitionReq("svc-1", "provider-1", domain.RoleProvider, domain.ServiceStatusEnRoute)); err != nil {
		t.Fatalf("transition: %v", err)
	}

	if n := f.notifications.CountForUser("contractor-1"); n != 0 {
		t.Errorf("expected no notifications before FINISHED, got %d", n)
	}
}

func TestTracking_FullLifecycleSequence(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.pendingService("svc-1", "contractor-1")

	if _, err := f.lifecycleService.Accept(context.Background(), "svc-1", "provider-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	steps := []domain.ServiceStatus{
		domain.ServiceStatusEnRoute,
		domain.ServiceStatusArrived,
		domain.ServiceStatusStarted,
		domain.ServiceStatusFinished,
	}
	for _, target := range steps {
		if _, err := f.trackingService.Transition(context.Background(), transitionReq("svc-1", "provider-1", domain.RoleProvider, target)); err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
	}

	if _, err := f.lifecycleService.ConfirmCompletion(context.Background(), "svc-1", "contractor-1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	want := []domain.ServiceStatus{
		domain.ServiceStatusEnRoute,
		domain.ServiceStatusArrived,
		domain.ServiceStatusStarted,
		domain.ServiceStatusFinished,
		domain.ServiceStatusConfirmed,
	}
	got := f.tracking.StatusSequence("svc-1")
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	stored := f.services.GetService("svc-1")
	if stored.Status != domain.ServiceStatusConfirmed {
		t.Errorf("expected final status CONFIRMED, got %s", stored.Status)
	}
	if stored.CompletedAt.IsZero() || stored.ConfirmedAt.IsZero() {
		t.Error("expected CompletedAt and ConfirmedAt to be stamped")
	}
	// One version bump per transition: accept + 4 tracking + confirm.
	if stored.Version != 6 {
		t.Errorf("expected version 6, got %d", stored.Version)
	}
}

func TestTracking_SkippingStepsRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusInProgress)

	// ARRIVED straight from IN_PROGRESS skips EN_ROUTE.
	_, err := f.trackingService.Transition(context.Background(), transitionReq("svc-1", "provider-1", domain.RoleProvider, domain.ServiceStatusArrived))

	var transitionErr *service.InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if transitionErr.Expected != domain.ServiceStatusEnRoute {
		t.Errorf("expected expected-status EN_ROUTE, got %s", transitionErr.Expected)
	}
	if transitionErr.Actual != domain.ServiceStatusInProgress {
		t.Errorf("expected actual status IN_PROGRESS, got %s", transitionErr.Actual)
	}
}

func TestTracking_RoleCheckedBeforeState(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusInProgress)

	// The contractor calling a provider transition gets a role error even
	// though the state would also be wrong.
	_, err := f.trackingService.Transition(context.Background(), transitionReq("svc-1", "contractor-1", domain.RoleContractor, domain.ServiceStatusArrived))
	if err != service.ErrWrongRole {
		t.Errorf("expected ErrWrongRole, got %v", err)
	}
}

func TestTracking_OnlyAssignedProviderMayTransition(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusInProgress)

	_, err := f.trackingService.Transition(context.Background(), transitionReq("svc-1", "provider-2", domain.RoleProvider, domain.ServiceStatusEnRoute))
	if err != service.ErrNotAssigned {
		t.Errorf("expected ErrNotAssigned, got %v", err)
	}
}

func TestTracking_OnlyOwnerMayConfirm(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusFinished)

	_, err := f.trackingService.Transition(context.Background(), transitionReq("svc-1", "contractor-2", domain.RoleContractor, domain.ServiceStatusConfirmed))
	if err != service.ErrNotOwner {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
}

func TestTracking_ProviderCannotConfirm(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusFinished)

	_, err := f.trackingService.Transition(context.Background(), transitionReq("svc-1", "provider-1", domain.RoleProvider, domain.ServiceStatusConfirmed))
	if err != service.ErrWrongRole {
		t.Errorf("expected ErrWrongRole, got %v", err)
	}
}

func TestTracking_InvalidCoordinatesRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusInProgress)

	req := transitionReq("svc-1", "provider-1", domain.RoleProvider, domain.ServiceStatusEnRoute)
	req.Lat = 200.0
	req.Lng = -46.6
	req.HasLocation = true

	_, err := f.trackingService.Transition(context.Background(), req)
	if err != service.ErrInvalidCoordinates {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestTracking_UnknownTargetRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusInProgress)

	_, err := f.trackingService.Transition(context.Background(), transitionReq("svc-1", "provider-1", domain.RoleProvider, domain.ServiceStatus("TELEPORTED")))
	if err != service.ErrInvalidStatus {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestTracking_BroadcastsStatusAndLocation(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusInProgress)

	req := transitionReq("svc-1", "provider-1", domain.RoleProvider, domain.ServiceStatusEnRoute)
	req.Lat = -23.55
	req.Lng = -46.63
	req.HasLocation = true

	if _, err := f.trackingService.Transition(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := f.broadcaster.ServiceEvents("svc-1")
	if len(events) != 2 || events[0] != service.EventStatusUpdated || events[1] != service.EventLocationUpdated {
		t.Errorf("expected [status_updated location_updated], got %v", events)
	}
}

func TestTracking_HistoryOnlyForParticipants(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusEnRoute)

	if _, err := f.trackingService.History(context.Background(), "svc-1", "stranger"); err != service.ErrNotOwner {
		t.Errorf("expected ErrNotOwner for a stranger, got %v", err)
	}

	if _, err := f.trackingService.History(context.Background(), "svc-1", "contractor-1"); err != nil {
		t.Errorf("expected contractor to read history, got %v", err)
	}
	if _, err := f.trackingService.History(context.Background(), "svc-1", "provider-1"); err != nil {
		t.Errorf("expected provider to read history, got %v", err)
	}
}

func TestTracking_LastStatusSynthesizedWhenLogEmpty(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusInProgress)

	rec, err := f.trackingService.LastStatus(context.Background(), "svc-1", "contractor-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Status != domain.ServiceStatusInProgress {
		t.Errorf("expected synthesized IN_PROGRESS, got %s", rec.Status)
	}
	if rec.ID != "" {
		t.Error("synthesized record must not carry a persisted id")
	}
}

func TestTracking_LastStatusReturnsLatestRecord(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusInProgress)

	for _, target := range []domain.ServiceStatus{domain.ServiceStatusEnRoute, domain.ServiceStatusArrived} {
		if _, err := f.trackingService.Transition(context.Background(), transitionReq("svc-1", "provider-1", domain.RoleProvider, target)); err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
	}

	rec, err := f.trackingService.LastStatus(context.Background(), "svc-1", "provider-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != domain.ServiceStatusArrived {
		t.Errorf("expected ARRIVED, got %s", rec.Status)
	}
}
