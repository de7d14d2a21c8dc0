package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"facilita/internal/service"
)

// handleMessage routes one client-sent envelope. Malformed payloads are
// dropped; call errors are reported back only to the sender.
func (h *Hub) handleMessage(c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("realtime: bad envelope from %s: %v", c.UserID, err)
		return
	}

	switch env.Event {
	case EventJoin:
		if env.ServiceID != "" {
			h.Join(c, env.ServiceID)
		}
	case EventLeave:
		if env.ServiceID != "" {
			h.Leave(c, env.ServiceID)
		}
	case EventLocationUpdate:
		h.handleLocation(c, env)
	case EventNewMessage:
		h.handleChat(c, env)
	case EventCallInitiate:
		h.handleCallInitiate(c, env)
	case EventCallAccept:
		h.handleCallAnswer(c, env, h.calls.Accept, EventCallAccepted, "")
	case EventCallReject:
		h.handleCallAnswer(c, env, h.calls.Reject, EventCallRejected, "")
	case EventCallCancel:
		h.handleCallAnswer(c, env, h.calls.Cancel, EventCallCancelled, "")
	case EventCallEnd:
		h.handleCallAnswer(c, env, h.calls.End, EventCallEnded, EventCallFinished)
	case EventCallICE, EventCallToggleMedia:
		h.handleCallRelay(c, env)
	default:
		log.Printf("realtime: unknown event %q from %s", env.Event, c.UserID)
	}
}

func (h *Hub) handleLocation(c *Client, env Envelope) {
	var p LocationPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return
	}
	if p.ServiceID == "" {
		p.ServiceID = env.ServiceID
	}
	if p.ServiceID == "" {
		return
	}

	h.publishToService(p.ServiceID, EventLocationUpdated, service.LocationUpdatePayload{
		ServiceID:  p.ServiceID,
		ProviderID: c.UserID,
		Lat:        p.Lat,
		Lng:        p.Lng,
	})

	if h.locations != nil && c.Role == "PROVIDER" {
		if err := h.locations.UpdateLocation(context.Background(), c.UserID, p.Lat, p.Lng); err != nil {
			log.Printf("realtime: location index update failed for %s: %v", c.UserID, err)
		}
	}
}

func (h *Hub) handleChat(c *Client, env Envelope) {
	var p MessagePayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return
	}
	if p.ServiceID == "" {
		p.ServiceID = env.ServiceID
	}
	if p.ServiceID == "" || p.Text == "" {
		return
	}

	// Sender identity always comes from the authenticated connection.
	p.From = c.UserID
	p.FromName = c.DisplayName

	h.publishToService(p.ServiceID, EventNewMessage, p)
}

func (h *Hub) handleCallInitiate(c *Client, env Envelope) {
	var p CallEventPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return
	}
	if p.To == "" || p.To == c.UserID {
		return
	}

	serviceID := p.ServiceID
	if serviceID == "" {
		serviceID = env.ServiceID
	}

	call := h.calls.Initiate(serviceID, c.UserID, p.To)

	delivered := h.SendToUser(p.To, EventCallIncoming, CallEventPayload{
		CallID:    call.ID,
		ServiceID: serviceID,
		From:      c.UserID,
		FromName:  c.DisplayName,
		SDP:       p.SDP,
		Media:     p.Media,
	})
	if !delivered {
		_, _ = h.calls.Cancel(call.ID, c.UserID)
		c.trySendEvent(EventCallFailed, CallEventPayload{
			CallID: call.ID,
			Reason: "offline",
		})
		return
	}

	c.trySendEvent(EventCallInitiate, CallEventPayload{CallID: call.ID, To: p.To})
}

// handleCallAnswer covers the accept/reject/cancel/end transitions: apply
// the registry transition for the acting client, then notify the
// counterpart with the matching server event. A non-empty echo event is
// sent back to the acting client once the transition committed.
func (h *Hub) handleCallAnswer(c *Client, env Envelope, transition func(callID, userID string) (*Call, error), event, echo string) {
	var p CallEventPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return
	}

	call, err := transition(p.CallID, c.UserID)
	if err != nil {
		h.replyCallError(c, p.CallID, err)
		return
	}

	h.SendToUser(call.Counterpart(c.UserID), event, CallEventPayload{
		CallID:    call.ID,
		ServiceID: call.ServiceID,
		From:      c.UserID,
		SDP:       p.SDP,
		Reason:    p.Reason,
	})

	if echo != "" {
		c.trySendEvent(echo, CallEventPayload{
			CallID:    call.ID,
			ServiceID: call.ServiceID,
		})
	}
}

// handleCallRelay forwards ICE candidates and media toggles to the other
// party of an in-flight call without touching its state.
func (h *Hub) handleCallRelay(c *Client, env Envelope) {
	var p CallEventPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return
	}

	call, err := h.calls.Get(p.CallID, c.UserID)
	if err != nil {
		h.replyCallError(c, p.CallID, err)
		return
	}

	p.From = c.UserID
	p.To = ""
	h.SendToUser(call.Counterpart(c.UserID), env.Event, p)
}

func (h *Hub) replyCallError(c *Client, callID string, err error) {
	reason := "error"
	switch {
	case errors.Is(err, ErrCallNotFound):
		reason = "not_found"
	case errors.Is(err, ErrCallState):
		reason = "invalid_state"
	case errors.Is(err, ErrNotCallParty):
		reason = "not_participant"
	}
	c.trySendEvent(EventCallFailed, CallEventPayload{CallID: callID, Reason: reason})
}

func (c *Client) trySendEvent(event string, payload any) {
	msg, err := encodeEnvelope(event, "", payload)
	if err != nil {
		log.Printf("realtime: encode %s failed: %v", event, err)
		return
	}
	c.trySend(msg)
}
