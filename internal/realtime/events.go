package realtime

// Client-sent events.
const (
	EventJoin            = "join"
	EventLeave           = "leave"
	EventLocationUpdate  = "location_update"
	EventNewMessage      = "new_message"
	EventCallInitiate    = "call:initiate"
	EventCallAccept      = "call:accept"
	EventCallReject      = "call:reject"
	EventCallCancel      = "call:cancel"
	EventCallEnd         = "call:end"
	EventCallICE         = "call:ice-candidate"
	EventCallToggleMedia = "call:toggle-media"
)

// Server-sent events.
const (
	EventStatusUpdated   = "status_updated"
	EventLocationUpdated = "location_updated"
	EventCallIncoming    = "call:incoming"
	EventCallAccepted    = "call:accepted"
	EventCallRejected    = "call:rejected"
	EventCallCancelled   = "call:cancelled"
	EventCallEnded       = "call:ended"
	EventCallFinished    = "call:finished"
	EventCallFailed      = "call:failed"
)

// LocationPayload carries a live position ping. Never persisted beyond the
// provider geo index.
type LocationPayload struct {
	ServiceID string  `json:"service_id"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
}

// MessagePayload carries a chat message relayed to a service room.
type MessagePayload struct {
	ServiceID string `json:"service_id"`
	From      string `json:"from"`
	FromName  string `json:"from_name,omitempty"`
	Text      string `json:"text"`
}

// CallEventPayload carries call-signaling data. SDP, ICE candidates and
// media flags are relayed opaquely; the server never inspects them.
type CallEventPayload struct {
	CallID    string `json:"call_id"`
	ServiceID string `json:"service_id,omitempty"`
	From      string `json:"from,omitempty"`
	FromName  string `json:"from_name,omitempty"`
	To        string `json:"to,omitempty"`
	SDP       string `json:"sdp,omitempty"`
	Candidate string `json:"candidate,omitempty"`
	Media     string `json:"media,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
