package session

// Server-to-client event names.
const (
	// EventAck carries the acknowledgment for a client-initiated event.
	EventAck = "ack"

	// EventUserUpdate publishes the full membership array of a session.
	EventUserUpdate = "user-update"

	// EventHostChange names the uuid that now holds host privileges.
	EventHostChange = "host-change"

	// EventSessionEnded tells remaining members the host ended the session for all.
	EventSessionEnded = "session-ended"

	// EventRemovedFromSession tells a member the host removed them.
	EventRemovedFromSession = "removed-from-session"

	// EventReceiveMessage delivers a chat message.
	EventReceiveMessage = "receive-message"

	// EventMessageEdited relays an edit of a previously sent message.
	EventMessageEdited = "message-edited"

	// EventMessageDeleted relays a deletion of a previously sent message.
	EventMessageDeleted = "message-deleted"

	// EventUserTyping and EventUserStopTyping relay typing indicators.
	EventUserTyping     = "user-typing"
	EventUserStopTyping = "user-stop-typing"
)

// Frame is an outbound wire frame. AckID is set only on acknowledgment frames,
// echoing the id the client attached to its request.
type Frame struct {
	Event   string `json:"event"`
	AckID   int64  `json:"ackId,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Conn abstracts a live client connection from the transport layer's point of view.
// Implementations must make Send safe for concurrent use and non-blocking.
type Conn interface {
	// ID returns the transport-level connection identifier.
	ID() string

	// Send queues a frame for delivery. Delivery is best-effort and at-most-once.
	Send(f Frame) error

	// Kick closes the connection because a newer connection took over its identity.
	Kick(reason string)
}

// ErrAck is the failure acknowledgment payload.
type ErrAck struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
}

// OKAck is the plain success acknowledgment payload.
type OKAck struct {
	Success bool `json:"success"`
}

// JoinAck acknowledges create-session and join-session.
type JoinAck struct {
	Success       bool   `json:"success"`
	SessionID     string `json:"sessionID"`
	UUID          string `json:"uuid"`
	IsHost        bool   `json:"isHost"`
	IdentityToken string `json:"identityToken,omitempty"`
	Members       []User `json:"members"`
}

// SendAck acknowledges send-message, echoing the client's correlation id next to
// the authoritative server timestamp.
type SendAck struct {
	Success   bool   `json:"success"`
	MsgID     string `json:"msgID"`
	Timestamp int64  `json:"timestamp"`
}

// HostChangePayload names the new host.
type HostChangePayload struct {
	UUID string `json:"uuid"`
}

// SessionEndedPayload names the session the host ended.
type SessionEndedPayload struct {
	SessionID string `json:"sessionID"`
}

// RemovedPayload names the session a member was removed from.
type RemovedPayload struct {
	SessionID string `json:"sessionID"`
}

// MessagePayload is a relayed chat message. Sender fields are stamped from the
// registry, never trusted from the client payload.
type MessagePayload struct {
	MsgID      string `json:"msgID"`
	RoomID     string `json:"roomID"`
	SenderUUID string `json:"senderUUID"`
	SenderName string `json:"senderName"`
	Color      string `json:"color"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
}

// MessageEditedPayload relays an edit. The server stores no history; last
// relayed edit wins on each client independently.
type MessageEditedPayload struct {
	RoomID  string `json:"roomID"`
	MsgID   string `json:"msgID"`
	NewText string `json:"newText"`
}

// MessageDeletedPayload relays a deletion, carrying the acting user's display name.
type MessageDeletedPayload struct {
	RoomID    string `json:"roomID"`
	MsgID     string `json:"msgID"`
	DeletedBy string `json:"deletedBy"`
}

// TypingPayload relays a typing indicator.
type TypingPayload struct {
	RoomID string `json:"roomID"`
	UUID   string `json:"uuid"`
	Name   string `json:"name"`
}
