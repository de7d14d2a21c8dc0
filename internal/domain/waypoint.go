package domain

import "time"

// Waypoint is an ordered stop on a service's route. Position values within
// one service are contiguous starting at 0; removing a waypoint re-indexes
// the remaining set.
type Waypoint struct {
	ID          string
	ServiceID   string
	Position    int
	Lat         float64
	Lng         float64
	Description string
	ETA         time.Time
	HasETA      bool
}
