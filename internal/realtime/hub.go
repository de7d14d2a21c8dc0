package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	internalRedis "facilita/internal/redis"
	"facilita/internal/service"
)

// ServiceRoom returns the room name all subscribers of one service join.
func ServiceRoom(serviceID string) string {
	return "servico_" + serviceID
}

// UserChannel returns the per-user channel name used for cross-device
// delivery.
func UserChannel(userID string) string {
	return "user_" + userID
}

// Envelope is the wire format for every realtime event, client- and
// server-sent.
type Envelope struct {
	Event     string          `json:"event"`
	ServiceID string          `json:"service_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Hub is the in-process connection registry. It tracks which clients joined
// which service rooms and which connections belong to which user. Delivery
// is at-most-once: a slow client's buffer overflowing means dropped events,
// never a blocked publisher.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	users map[string]map[*Client]struct{}

	calls     *CallRegistry
	locations internalRedis.LocationStoreInterface

	// publisher, when set, carries client-originated room events to the
	// other instances. Delivery to local clients happens through the
	// subscriber loop feeding them back into this hub.
	publisher service.Broadcaster
}

// NewHub creates a new Hub. locations may be nil.
func NewHub(calls *CallRegistry, locations internalRedis.LocationStoreInterface) *Hub {
	if calls == nil {
		calls = NewCallRegistry(0)
	}
	h := &Hub{
		rooms:     make(map[string]map[*Client]struct{}),
		users:     make(map[string]map[*Client]struct{}),
		calls:     calls,
		locations: locations,
	}
	calls.onExpire = h.notifyCallExpired
	return h
}

// Calls exposes the call registry, used by the janitor wiring.
func (h *Hub) Calls() *CallRegistry {
	return h.calls
}

// SetPublisher routes client-originated room events through the given
// broadcaster instead of delivering them locally.
func (h *Hub) SetPublisher(p service.Broadcaster) {
	h.publisher = p
}

// publishToService fans a client-originated event out through the publisher
// when one is configured, falling back to local delivery.
func (h *Hub) publishToService(serviceID, event string, payload any) {
	if h.publisher != nil {
		h.publisher.BroadcastToService(serviceID, event, payload)
		return
	}
	h.BroadcastToService(serviceID, event, payload)
}

// Register adds a connection to its user channel.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.users[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.users[c.UserID] = set
	}
	set[c] = struct{}{}
}

// Unregister removes a connection from every room and its user channel, and
// tears down any call the connection's user was part of, notifying the
// counterpart.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	for room := range c.rooms {
		h.removeFromRoomLocked(room, c)
	}
	if set, ok := h.users[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, c.UserID)
		}
	}
	stillConnected := len(h.users[c.UserID]) > 0
	h.mu.Unlock()

	c.close()

	// Only tear down calls when the user's last connection is gone.
	if stillConnected {
		return
	}

	for _, call := range h.calls.TerminateFor(c.UserID) {
		counterpart := call.Counterpart(c.UserID)
		h.SendToUser(counterpart, EventCallEnded, CallEventPayload{
			CallID: call.ID,
			From:   c.UserID,
			Reason: "disconnected",
		})
	}

	if h.locations != nil && c.Role == "PROVIDER" {
		if err := h.locations.RemoveLocation(context.Background(), c.UserID); err != nil {
			log.Printf("realtime: location cleanup failed for %s: %v", c.UserID, err)
		}
	}
}

// Join subscribes a connection to a service room.
func (h *Hub) Join(c *Client, serviceID string) {
	room := ServiceRoom(serviceID)

	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.rooms[room]
	if !ok {
		set = make(map[*Client]struct{})
		h.rooms[room] = set
	}
	set[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

// Leave unsubscribes a connection from a service room.
func (h *Hub) Leave(c *Client, serviceID string) {
	room := ServiceRoom(serviceID)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoomLocked(room, c)
	delete(c.rooms, room)
}

func (h *Hub) removeFromRoomLocked(room string, c *Client) {
	if set, ok := h.rooms[room]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
}

// BroadcastToService delivers an event to every client in the service's
// room.
func (h *Hub) BroadcastToService(serviceID, event string, payload any) {
	h.deliverRoom(ServiceRoom(serviceID), serviceID, event, payload)
}

// BroadcastToUser delivers an event to every connection of one user.
func (h *Hub) BroadcastToUser(userID, event string, payload any) {
	h.SendToUser(userID, event, payload)
}

// SendToUser delivers an event to every connection of one user. Returns
// false when the user has no connections.
func (h *Hub) SendToUser(userID, event string, payload any) bool {
	msg, err := encodeEnvelope(event, "", payload)
	if err != nil {
		log.Printf("realtime: encode %s failed: %v", event, err)
		return false
	}

	h.mu.RLock()
	set := h.users[userID]
	clients := make([]*Client, 0, len(set))
	for c := range set {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.trySend(msg)
	}

	return len(clients) > 0
}

func (h *Hub) deliverRoom(room, serviceID, event string, payload any) {
	msg, err := encodeEnvelope(event, serviceID, payload)
	if err != nil {
		log.Printf("realtime: encode %s failed: %v", event, err)
		return
	}

	h.mu.RLock()
	set := h.rooms[room]
	clients := make([]*Client, 0, len(set))
	for c := range set {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.trySend(msg)
	}
}

func (h *Hub) notifyCallExpired(call *Call) {
	payload := CallEventPayload{CallID: call.ID, Reason: "timeout"}
	h.SendToUser(call.CallerID, EventCallCancelled, payload)
	h.SendToUser(call.CalleeID, EventCallCancelled, payload)
}

func encodeEnvelope(event, serviceID string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, ServiceID: serviceID, Data: data})
}

// Ensure Hub satisfies the broadcaster contract consumed by the services.
var _ service.Broadcaster = (*Hub)(nil)
