package models

// Progress event types published on a session's channel. Events are transient:
// a subscriber that attaches after an event was published never sees it.
const (
	EventConnected = "connected"
	EventPartial   = "partial"
	EventComplete  = "complete"
	EventError     = "error"
)

// ProgressEvent is the wire format carried over the per-session pub/sub
// channel and relayed verbatim to SSE clients.
type ProgressEvent struct {
	Type         string `json:"type"`
	SessionID    string `json:"session_id,omitempty"`
	ImageBase64  string `json:"image_base64,omitempty"`
	PartialIndex int    `json:"partial_index,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Terminal reports whether the event ends a session's stream.
func (e ProgressEvent) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}
