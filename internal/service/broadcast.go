package service

// Event names delivered over the realtime layer.
const (
	EventStatusUpdated   = "status_updated"
	EventLocationUpdated = "location_updated"
	EventNewMessage      = "new_message"
	EventNotification    = "notification"
)

// Broadcaster fans events out to connected clients. Delivery is best-effort
// and at-most-once: implementations must never block or fail the state
// mutation path.
type Broadcaster interface {
	// BroadcastToService delivers an event to every client subscribed to
	// the service's room.
	BroadcastToService(serviceID, event string, payload any)

	// BroadcastToUser delivers an event to every connection belonging to
	// one user, across devices.
	BroadcastToUser(userID, event string, payload any)
}

// StatusUpdatePayload is broadcast on every lifecycle transition.
type StatusUpdatePayload struct {
	ServiceID string `json:"service_id"`
	Status    string `json:"status"`
	Note      string `json:"note,omitempty"`
	At        string `json:"at"`
}

// LocationUpdatePayload is broadcast when a transition carries coordinates
// and on high-frequency live location pings. Never persisted on the ping
// path.
type LocationUpdatePayload struct {
	ServiceID  string  `json:"service_id"`
	ProviderID string  `json:"provider_id,omitempty"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Address    string  `json:"address,omitempty"`
	At         string  `json:"at"`
}

// NopBroadcaster discards every event. Used in tests and when the realtime
// layer is disabled.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastToService(serviceID, event string, payload any) {}
func (NopBroadcaster) BroadcastToUser(userID, event string, payload any)       {}

// Ensure NopBroadcaster implements Broadcaster.
var _ Broadcaster = NopBroadcaster{}
