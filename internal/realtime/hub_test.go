package realtime

import (
	"encoding/json"
	"testing"
	"time"
)

// testClient returns a registered client with no underlying connection. The
// hub only touches the send buffer, so a nil conn is safe as long as the
// pumps never run.
func testClient(h *Hub, userID, role string) *Client {
	c := NewClient(h, nil, userID, role, userID)
	h.Register(c)
	return c
}

// recvEnvelope pops one queued message, failing the test when the buffer is
// empty.
func recvEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case msg := <-c.send:
		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("bad envelope: %v", err)
		}
		return env
	default:
		t.Fatal("expected a queued message")
		return Envelope{}
	}
}

func TestHub_BroadcastReachesRoomMembersOnly(t *testing.T) {
	t.Parallel()
	h := NewHub(nil, nil)

	member := testClient(h, "user-1", "CONTRACTOR")
	outsider := testClient(h, "user-2", "PROVIDER")
	h.Join(member, "svc-1")

	h.BroadcastToService("svc-1", EventStatusUpdated, map[string]string{"status": "EN_ROUTE"})

	env := recvEnvelope(t, member)
	if env.Event != EventStatusUpdated {
		t.Errorf("expected %s, got %s", EventStatusUpdated, env.Event)
	}
	if env.ServiceID != "svc-1" {
		t.Errorf("expected service id svc-1, got %s", env.ServiceID)
	}
	if len(outsider.send) != 0 {
		t.Error("outsider must not receive room events")
	}
}

func TestHub_LeaveStopsDelivery(t *testing.T) {
	t.Parallel()
	h := NewHub(nil, nil)

	c := testClient(h, "user-1", "CONTRACTOR")
	h.Join(c, "svc-1")
	h.Leave(c, "svc-1")

	h.BroadcastToService("svc-1", EventStatusUpdated, nil)

	if len(c.send) != 0 {
		t.Error("expected no delivery after leaving the room")
	}
}

func TestHub_SendToUserReportsDelivery(t *testing.T) {
	t.Parallel()
	h := NewHub(nil, nil)

	c := testClient(h, "user-1", "CONTRACTOR")

	if !h.SendToUser("user-1", EventCallIncoming, CallEventPayload{CallID: "call-1"}) {
		t.Error("expected delivery to a connected user")
	}
	if h.SendToUser("user-2", EventCallIncoming, nil) {
		t.Error("expected false for a user with no connections")
	}

	env := recvEnvelope(t, c)
	if env.Event != EventCallIncoming {
		t.Errorf("expected %s, got %s", EventCallIncoming, env.Event)
	}
}

func TestHub_SlowClientDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()
	h := NewHub(nil, nil)

	c := testClient(h, "user-1", "CONTRACTOR")
	h.Join(c, "svc-1")

	for i := 0; i < sendBufferSize+10; i++ {
		h.BroadcastToService("svc-1", EventLocationUpdated, nil)
	}

	if len(c.send) != sendBufferSize {
		t.Errorf("expected the buffer capped at %d, got %d", sendBufferSize, len(c.send))
	}
}

func TestHub_SendAfterDisconnectIsDropped(t *testing.T) {
	t.Parallel()
	h := NewHub(nil, nil)

	c := testClient(h, "user-1", "CONTRACTOR")
	h.Join(c, "svc-1")
	h.Unregister(c)

	// A broadcaster that snapshotted the room before the disconnect still
	// holds the client; its send must be a silent drop.
	c.trySend([]byte(`{"event":"status_updated"}`))
}

func TestHub_BroadcastRacingDisconnect(t *testing.T) {
	t.Parallel()
	h := NewHub(nil, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			c := testClient(h, "user-1", "CONTRACTOR")
			h.Join(c, "svc-1")
			h.Unregister(c)
		}
	}()

	for i := 0; i < 500; i++ {
		h.BroadcastToService("svc-1", EventLocationUpdated, nil)
	}
	<-done
}

func TestHub_UnregisterTearsDownCallsAndNotifiesCounterpart(t *testing.T) {
	t.Parallel()
	h := NewHub(nil, nil)

	caller := testClient(h, "user-1", "CONTRACTOR")
	callee := testClient(h, "user-2", "PROVIDER")

	call := h.calls.Initiate("svc-1", caller.UserID, callee.UserID)
	if _, err := h.calls.Accept(call.ID, callee.UserID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h.Unregister(caller)

	env := recvEnvelope(t, callee)
	if env.Event != EventCallEnded {
		t.Fatalf("expected %s, got %s", EventCallEnded, env.Event)
	}
	var p CallEventPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if p.CallID != call.ID || p.Reason != "disconnected" {
		t.Errorf("unexpected payload: %+v", p)
	}
	if _, err := h.calls.Get(call.ID, callee.UserID); err != ErrCallNotFound {
		t.Errorf("expected the call removed, got %v", err)
	}
}

func TestHub_SecondConnectionKeepsCallsAlive(t *testing.T) {
	t.Parallel()
	h := NewHub(nil, nil)

	phone := testClient(h, "user-1", "CONTRACTOR")
	tablet := testClient(h, "user-1", "CONTRACTOR")
	callee := testClient(h, "user-2", "PROVIDER")

	call := h.calls.Initiate("svc-1", "user-1", callee.UserID)
	if _, err := h.calls.Accept(call.ID, callee.UserID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Dropping one of two connections must not end the call.
	h.Unregister(phone)

	if _, err := h.calls.Get(call.ID, "user-1"); err != nil {
		t.Fatalf("call must survive while another connection remains: %v", err)
	}
	if len(callee.send) != 0 {
		t.Error("counterpart must not be notified")
	}

	h.Unregister(tablet)

	if _, err := h.calls.Get(call.ID, callee.UserID); err != ErrCallNotFound {
		t.Errorf("expected the call torn down after the last connection, got %v", err)
	}
	if env := recvEnvelope(t, callee); env.Event != EventCallEnded {
		t.Errorf("expected %s, got %s", EventCallEnded, env.Event)
	}
}

func TestHub_HangupNotifiesCounterpartAndConfirmsToActor(t *testing.T) {
	t.Parallel()
	h := NewHub(nil, nil)

	caller := testClient(h, "user-1", "CONTRACTOR")
	callee := testClient(h, "user-2", "PROVIDER")

	call := h.calls.Initiate("svc-1", caller.UserID, callee.UserID)
	if _, err := h.calls.Accept(call.ID, callee.UserID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h.handleMessage(caller, []byte(`{"event":"call:end","data":{"call_id":"`+call.ID+`"}}`))

	if env := recvEnvelope(t, callee); env.Event != EventCallEnded {
		t.Errorf("counterpart: expected %s, got %s", EventCallEnded, env.Event)
	}

	env := recvEnvelope(t, caller)
	if env.Event != EventCallFinished {
		t.Fatalf("actor: expected %s, got %s", EventCallFinished, env.Event)
	}
	var p CallEventPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if p.CallID != call.ID {
		t.Errorf("expected call id %s, got %s", call.ID, p.CallID)
	}
}

func TestHub_ExpiredRingNotifiesBothParties(t *testing.T) {
	t.Parallel()

	registry := NewCallRegistry(30 * time.Millisecond)
	h := NewHub(registry, nil)

	caller := testClient(h, "user-1", "CONTRACTOR")
	callee := testClient(h, "user-2", "PROVIDER")

	call := registry.Initiate("svc-1", caller.UserID, callee.UserID)

	time.Sleep(50 * time.Millisecond)
	registry.sweep()

	for _, c := range []*Client{caller, callee} {
		env := recvEnvelope(t, c)
		if env.Event != EventCallCancelled {
			t.Fatalf("expected %s, got %s", EventCallCancelled, env.Event)
		}
		var p CallEventPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if p.CallID != call.ID || p.Reason != "timeout" {
			t.Errorf("unexpected payload: %+v", p)
		}
	}
}
