package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"facilita/internal/service"
)

const eventsChannel = "facilita:events"

// pubSubMessage is the cross-instance fan-out envelope. Target is either a
// service room or a user channel.
type pubSubMessage struct {
	ServiceID string          `json:"service_id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
}

// Bridge fans events out across instances through Redis pub/sub. Publishers
// call the Broadcaster methods; every instance's subscriber loop delivers
// the message to its local hub. Delivery stays at-most-once: Redis pub/sub
// drops messages for disconnected subscribers.
type Bridge struct {
	client *redis.Client
	hub    *Hub
}

// NewBridge creates a pub/sub bridge over the given hub.
func NewBridge(client *redis.Client, hub *Hub) *Bridge {
	return &Bridge{client: client, hub: hub}
}

// BroadcastToService publishes a service room event to every instance.
func (b *Bridge) BroadcastToService(serviceID, event string, payload any) {
	b.publish(pubSubMessage{ServiceID: serviceID, Event: event}, payload)
}

// BroadcastToUser publishes a user channel event to every instance.
func (b *Bridge) BroadcastToUser(userID, event string, payload any) {
	b.publish(pubSubMessage{UserID: userID, Event: event}, payload)
}

func (b *Bridge) publish(msg pubSubMessage, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("realtime: encode %s for publish failed: %v", msg.Event, err)
		return
	}
	msg.Data = data

	raw, err := json.Marshal(msg)
	if err != nil {
		log.Printf("realtime: encode pubsub envelope failed: %v", err)
		return
	}

	if err := b.client.Publish(context.Background(), eventsChannel, raw).Err(); err != nil {
		log.Printf("realtime: publish %s failed: %v", msg.Event, err)
	}
}

// Run subscribes to the events channel and delivers incoming messages to
// the local hub. Blocks until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.client.Subscribe(ctx, eventsChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.deliver(msg.Payload)
		}
	}
}

func (b *Bridge) deliver(payload string) {
	var msg pubSubMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		log.Printf("realtime: bad pubsub message: %v", err)
		return
	}

	switch {
	case msg.ServiceID != "":
		b.hub.BroadcastToService(msg.ServiceID, msg.Event, msg.Data)
	case msg.UserID != "":
		b.hub.BroadcastToUser(msg.UserID, msg.Event, msg.Data)
	}
}

var _ service.Broadcaster = (*Bridge)(nil)
