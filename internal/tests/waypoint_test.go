package tests

import (
	"context"
	"sync"
	"testing"

	"facilita/internal/domain"
	"facilita/internal/service"
)

func addWaypoint(t *testing.T, f *fixture, serviceID, contractorID string) *domain.Waypoint {
	t.Helper()
	wp, err := f.waypointService.Add(context.Background(), service.AddWaypointRequest{
		ServiceID:    serviceID,
		ContractorID: contractorID,
		Lat:          -23.55,
		Lng:          -46.63,
	})
	if err != nil {
		t.Fatalf("add waypoint: %v", err)
	}
	return wp
}

func TestWaypoint_AddAppendsAtEnd(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.pendingService("svc-1", "contractor-1")

	first := addWaypoint(t, f, "svc-1", "contractor-1")
	second := addWaypoint(t, f, "svc-1", "contractor-1")

	if first.Position != 0 || second.Position != 1 {
		t.Errorf("expected positions 0 and 1, got %d and %d", first.Position, second.Position)
	}
}

func TestWaypoint_ConcurrentAddsKeepPositionsUnique(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.pendingService("svc-1", "contractor-1")

	const adds = 8
	var wg sync.WaitGroup
	errs := make(chan error, adds)
	for i := 0; i < adds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.waypointService.Add(context.Background(), service.AddWaypointRequest{
				ServiceID:    "svc-1",
				ContractorID: "contractor-1",
				Lat:          -23.55,
				Lng:          -46.63,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("add waypoint: %v", err)
		}
	}

	positions := f.waypoints.Positions("svc-1")
	if len(positions) != adds {
		t.Fatalf("expected %d waypoints, got %d", adds, len(positions))
	}
	for i, pos := range positions {
		if pos != i {
			t.Fatalf("expected contiguous unique positions starting at 0, got %v", positions)
		}
	}
}

func TestWaypoint_AddOnlyByOwner(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.pendingService("svc-1", "contractor-1")

	_, err := f.waypointService.Add(context.Background(), service.AddWaypointRequest{
		ServiceID:    "svc-1",
		ContractorID: "contractor-2",
		Lat:          -23.55,
		Lng:          -46.63,
	})
	if err != service.ErrNotOwner {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
}

func TestWaypoint_RouteLockedAfterFinish(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		status domain.ServiceStatus
	}{
		{"finished", domain.ServiceStatusFinished},
		{"confirmed", domain.ServiceStatusConfirmed},
		{"cancelled", domain.ServiceStatusCancelled},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(0)
			f.activeService("svc-1", "contractor-1", "provider-1", tc.status)

			_, err := f.waypointService.Add(context.Background(), service.AddWaypointRequest{
				ServiceID:    "svc-1",
				ContractorID: "contractor-1",
				Lat:          -23.55,
				Lng:          -46.63,
			})
			if err != service.ErrWaypointLocked {
				t.Errorf("expected ErrWaypointLocked for %s, got %v", tc.status, err)
			}
		})
	}
}

func TestWaypoint_RouteEditableWhileInProgress(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusEnRoute)

	addWaypoint(t, f, "svc-1", "contractor-1")
}

func TestWaypoint_RemoveReindexesContiguously(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.pendingService("svc-1", "contractor-1")

	for i := 0; i < 4; i++ {
		addWaypoint(t, f, "svc-1", "contractor-1")
	}

	// Remove the second stop; the rest must close the gap.
	if err := f.waypointService.Remove(context.Background(), "svc-1", "contractor-1", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	positions := f.waypoints.Positions("svc-1")
	if len(positions) != 3 {
		t.Fatalf("expected 3 remaining waypoints, got %d", len(positions))
	}
	for i, pos := range positions {
		if pos != i {
			t.Errorf("expected contiguous positions starting at 0, got %v", positions)
			break
		}
	}
}

func TestWaypoint_ListVisibleToParticipants(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusEnRoute)

	if _, err := f.waypointService.List(context.Background(), "svc-1", "provider-1"); err != nil {
		t.Errorf("expected provider to list waypoints, got %v", err)
	}
	if _, err := f.waypointService.List(context.Background(), "svc-1", "stranger"); err != service.ErrNotOwner {
		t.Errorf("expected ErrNotOwner for a stranger, got %v", err)
	}
}
