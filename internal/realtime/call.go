package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CallState models the signaling lifecycle of one voice/video call.
// ringing moves to active on accept, or terminates via rejected/cancelled;
// active terminates via ended.
type CallState string

const (
	CallStateRinging   CallState = "ringing"
	CallStateActive    CallState = "active"
	CallStateEnded     CallState = "ended"
	CallStateRejected  CallState = "rejected"
	CallStateCancelled CallState = "cancelled"
)

// DefaultRingTTL bounds how long an unanswered call stays in memory before
// the janitor evicts it.
const DefaultRingTTL = 60 * time.Second

var (
	// ErrCallNotFound is returned when a call id does not resolve.
	ErrCallNotFound = errors.New("call not found")

	// ErrCallState is returned when a signaling event arrives in a state
	// that does not allow it.
	ErrCallState = errors.New("event not allowed in current call state")

	// ErrNotCallParty is returned when the actor is neither caller nor
	// callee.
	ErrNotCallParty = errors.New("actor is not part of this call")
)

// Call tracks the metadata of one in-flight call. State is driven entirely
// by client events; the server only relays and cleans up.
type Call struct {
	ID        string
	ServiceID string
	CallerID  string
	CalleeID  string
	State     CallState
	StartedAt time.Time
	UpdatedAt time.Time
}

// Counterpart returns the other party of the call.
func (c *Call) Counterpart(userID string) string {
	if c.CallerID == userID {
		return c.CalleeID
	}
	return c.CallerID
}

func (c *Call) isParty(userID string) bool {
	return c.CallerID == userID || c.CalleeID == userID
}

// CallRegistry holds in-flight calls. Process-local: calls do not survive a
// restart, matching the best-effort model of the rest of the realtime
// layer.
type CallRegistry struct {
	mu      sync.Mutex
	calls   map[string]*Call
	ringTTL time.Duration

	// onExpire is invoked outside the lock for every call the janitor
	// evicts.
	onExpire func(*Call)
}

// NewCallRegistry creates a registry. ringTTL <= 0 selects DefaultRingTTL.
func NewCallRegistry(ringTTL time.Duration) *CallRegistry {
	if ringTTL <= 0 {
		ringTTL = DefaultRingTTL
	}
	return &CallRegistry{
		calls:   make(map[string]*Call),
		ringTTL: ringTTL,
	}
}

// Initiate registers a ringing call from caller to callee.
func (r *CallRegistry) Initiate(serviceID, callerID, calleeID string) *Call {
	now := time.Now()
	call := &Call{
		ID:        uuid.New().String(),
		ServiceID: serviceID,
		CallerID:  callerID,
		CalleeID:  calleeID,
		State:     CallStateRinging,
		StartedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.calls[call.ID] = call
	r.mu.Unlock()

	return call
}

// Accept moves a ringing call to active. Only the callee may accept.
func (r *CallRegistry) Accept(callID, calleeID string) (*Call, error) {
	return r.advance(callID, calleeID, CallStateActive, func(c *Call, actor string) error {
		if c.State != CallStateRinging {
			return ErrCallState
		}
		if c.CalleeID != actor {
			return ErrNotCallParty
		}
		return nil
	})
}

// Reject terminates a ringing call from the callee side.
func (r *CallRegistry) Reject(callID, calleeID string) (*Call, error) {
	return r.advance(callID, calleeID, CallStateRejected, func(c *Call, actor string) error {
		if c.State != CallStateRinging {
			return ErrCallState
		}
		if c.CalleeID != actor {
			return ErrNotCallParty
		}
		return nil
	})
}

// Cancel terminates a ringing call from the caller side.
func (r *CallRegistry) Cancel(callID, callerID string) (*Call, error) {
	return r.advance(callID, callerID, CallStateCancelled, func(c *Call, actor string) error {
		if c.State != CallStateRinging {
			return ErrCallState
		}
		if c.CallerID != actor {
			return ErrNotCallParty
		}
		return nil
	})
}

// End terminates an active call; either party may hang up.
func (r *CallRegistry) End(callID, userID string) (*Call, error) {
	return r.advance(callID, userID, CallStateEnded, func(c *Call, actor string) error {
		if c.State != CallStateActive {
			return ErrCallState
		}
		if !c.isParty(actor) {
			return ErrNotCallParty
		}
		return nil
	})
}

// Get returns a call if the user is one of its parties.
func (r *CallRegistry) Get(callID, userID string) (*Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.calls[callID]
	if !ok {
		return nil, ErrCallNotFound
	}
	if !call.isParty(userID) {
		return nil, ErrNotCallParty
	}

	return call, nil
}

// TerminateFor removes every in-flight call involving the user, returning
// the removed calls so the hub can notify counterparts.
func (r *CallRegistry) TerminateFor(userID string) []*Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	var terminated []*Call
	for id, call := range r.calls {
		if !call.isParty(userID) {
			continue
		}
		call.State = CallStateEnded
		call.UpdatedAt = time.Now()
		delete(r.calls, id)
		terminated = append(terminated, call)
	}

	return terminated
}

// Run sweeps the registry, evicting ringing calls older than the ring TTL.
// Blocks until ctx is cancelled.
func (r *CallRegistry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.ringTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *CallRegistry) sweep() {
	cutoff := time.Now().Add(-r.ringTTL)

	r.mu.Lock()
	var expired []*Call
	for id, call := range r.calls {
		if call.State == CallStateRinging && call.StartedAt.Before(cutoff) {
			call.State = CallStateCancelled
			delete(r.calls, id)
			expired = append(expired, call)
		}
	}
	onExpire := r.onExpire
	r.mu.Unlock()

	if onExpire == nil {
		return
	}
	for _, call := range expired {
		onExpire(call)
	}
}

// advance applies one state transition under the lock, removing the call
// from the registry when it reaches a terminal state.
func (r *CallRegistry) advance(callID, actor string, next CallState, check func(*Call, string) error) (*Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.calls[callID]
	if !ok {
		return nil, ErrCallNotFound
	}

	if err := check(call, actor); err != nil {
		return nil, err
	}

	call.State = next
	call.UpdatedAt = time.Now()

	if next != CallStateActive {
		delete(r.calls, callID)
	}

	return call, nil
}
