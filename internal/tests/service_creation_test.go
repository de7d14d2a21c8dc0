package tests

import (
	"context"
	"testing"

	"facilita/internal/domain"
	"facilita/internal/service"
)

func TestServiceCreation_ValidatesContractorID(t *testing.T) {
	t.Parallel()
	f := newFixture(0)

	_, err := f.lifecycleService.Create(context.Background(), service.CreateServiceRequest{
		ContractorID: "", // Empty contractor ID.
		Description:  "Pintura de parede",
	})

	if err != service.ErrInvalidUserID {
		t.Errorf("expected ErrInvalidUserID, got %v", err)
	}
}

func TestServiceCreation_ValidatesDescription(t *testing.T) {
	t.Parallel()
	f := newFixture(0)

	_, err := f.lifecycleService.Create(context.Background(), service.CreateServiceRequest{
		ContractorID: "contractor-1",
		Description:  "",
	})

	if err != service.ErrInvalidDescription {
		t.Errorf("expected ErrInvalidDescription, got %v", err)
	}
}

func TestServiceCreation_ValidatesCoordinates(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		lat  float64
		lng  float64
	}{
		{"lat too low", -91.0, -46.6},
		{"lat too high", 91.0, -46.6},
		{"lng too low", -23.5, -181.0},
		{"lng too high", -23.5, 181.0},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(0)

			_, err := f.lifecycleService.Create(context.Background(), service.CreateServiceRequest{
				ContractorID: "contractor-1",
				Description:  "Limpeza pós-obra",
				Lat:          tc.lat,
				Lng:          tc.lng,
				HasLocation:  true,
			})

			if err != service.ErrInvalidCoordinates {
				t.Errorf("expected ErrInvalidCoordinates for (%f, %f), got %v", tc.lat, tc.lng, err)
			}
		})
	}
}

func TestServiceCreation_StartsPending(t *testing.T) {
	t.Parallel()
	f := newFixture(0)

	svc, err := f.lifecycleService.Create(context.Background(), service.CreateServiceRequest{
		ContractorID: "contractor-1",
		Description:  "Montagem de móveis",
		Value:        150.0,
		HasValue:     true,
		Lat:          -23.55,
		Lng:          -46.63,
		HasLocation:  true,
		Address:      "Rua Augusta, 1200",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if svc.Status != domain.ServiceStatusPending {
		t.Errorf("expected status PENDING, got %s", svc.Status)
	}
	if svc.ProviderID != "" {
		t.Errorf("expected no provider, got %s", svc.ProviderID)
	}
	if svc.ID == "" {
		t.Error("expected a generated id")
	}
	if f.services.CountServices() != 1 {
		t.Errorf("expected 1 stored service, got %d", f.services.CountServices())
	}
}

func TestServiceCreation_PersistsWaypointsInOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(0)

	svc, err := f.lifecycleService.Create(context.Background(), service.CreateServiceRequest{
		ContractorID: "contractor-1",
		Description:  "Frete com duas paradas",
		Waypoints: []service.WaypointInput{
			{Lat: -23.55, Lng: -46.63, Description: "Coleta"},
			{Lat: -23.56, Lng: -46.65, Description: "Entrega"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	positions := f.waypoints.Positions(svc.ID)
	if len(positions) != 2 || positions[0] != 0 || positions[1] != 1 {
		t.Errorf("expected contiguous positions [0 1], got %v", positions)
	}
}

func TestServiceCreation_RejectsInvalidWaypoint(t *testing.T) {
	t.Parallel()
	f := newFixture(0)

	_, err := f.lifecycleService.Create(context.Background(), service.CreateServiceRequest{
		ContractorID: "contractor-1",
		Description:  "Frete",
		Waypoints: []service.WaypointInput{
			{Lat: 120.0, Lng: -46.63},
		},
	})

	if err != service.ErrInvalidCoordinates {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestServiceDeletion_OnlyWhilePending(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.activeService("svc-1", "contractor-1", "provider-1", domain.ServiceStatusInProgress)

	err := f.lifecycleService.Delete(context.Background(), "svc-1", "contractor-1")
	if err != service.ErrServiceNotDeletable {
		t.Errorf("expected ErrServiceNotDeletable, got %v", err)
	}

	f.pendingService("svc-2", "contractor-1")
	if err := f.lifecycleService.Delete(context.Background(), "svc-2", "contractor-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.services.GetService("svc-2") != nil {
		t.Error("expected service to be removed")
	}
}

func TestServiceDeletion_OnlyByOwner(t *testing.T) {
	t.Parallel()
	f := newFixture(0)
	f.pendingService("svc-1", "contractor-1")

	err := f.lifecycleService.Delete(context.Background(), "svc-1", "contractor-2")
	if err != service.ErrNotOwner {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
}
