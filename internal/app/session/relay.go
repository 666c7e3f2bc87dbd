/*
Package session contains the core presence and coordination logic.

This file implements the message relay: routing send/edit/delete/typing events to
the correct recipient set. A room identifier containing the DM separator names a
private two-party room and resolves to the other participant's personal topic;
anything else is a session code and resolves to the session topic with the sender
excluded. The server stores no message history — edits and deletes are pure
fire-and-forget relays.
*/
package session

import (
	"time"

	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/errs"
	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/validate"
)

// target is a resolved delivery destination.
type target struct {
	topic   string
	exclude string
}

// resolveTargetLocked maps a room identifier to a delivery target for the given
// sender. Senders may only address their own session or a private room they
// participate in. Callers hold c.mu.
func (c *Coordinator) resolveTargetLocked(u *User, roomID string) (target, *errs.CustomError) {
	if validate.IsDMRoom(roomID) {
		first, second, ok := validate.SplitDMRoom(roomID)
		if !ok {
			return target{}, errs.NewError(errs.ErrInvalidParams)
		}

		var other string
		switch u.UUID {
		case first:
			other = second
		case second:
			other = first
		default:
			return target{}, errs.NewError(errs.ErrInvalidParams)
		}

		// Directed delivery goes to the personal topic, reaching the recipient
		// whatever connection they currently hold. The sender's own connection
		// is excluded in case both uuids ever share a topic.
		return target{topic: other, exclude: u.ConnectionID}, nil
	}

	if roomID != u.SessionID {
		return target{}, errs.NewError(errs.ErrInvalidParams)
	}

	return target{topic: roomID, exclude: u.ConnectionID}, nil
}

// SendMessage relays a chat message. Sender identity, display name, and color
// are stamped from the registry, and the timestamp is server-generated; only
// the client-supplied message id is preserved, as a correlation key echoed back
// in the acknowledgment. The sender never receives its own broadcast.
func (c *Coordinator) SendMessage(conn Conn, msgID, roomID, text string) (*SendAck, *errs.CustomError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := c.reg.userByConn(conn.ID())
	if u == nil {
		return nil, errs.NewError(errs.ErrNoSessionBinding)
	}

	tgt, cerr := c.resolveTargetLocked(u, roomID)
	if cerr != nil {
		return nil, cerr
	}

	timestamp := time.Now().UnixMilli()

	c.hub.Publish(tgt.topic, EventReceiveMessage, MessagePayload{
		MsgID:      msgID,
		RoomID:     roomID,
		SenderUUID: u.UUID,
		SenderName: u.Name,
		Color:      u.Color,
		Text:       text,
		Timestamp:  timestamp,
	}, tgt.exclude)

	return &SendAck{Success: true, MsgID: msgID, Timestamp: timestamp}, nil
}

// EditMessage relays an edit. With no history held server-side, the last
// relayed edit wins on each client independently.
func (c *Coordinator) EditMessage(conn Conn, roomID, msgID, newText string) *errs.CustomError {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := c.reg.userByConn(conn.ID())
	if u == nil {
		return errs.NewError(errs.ErrNoSessionBinding)
	}

	tgt, cerr := c.resolveTargetLocked(u, roomID)
	if cerr != nil {
		return cerr
	}

	c.hub.Publish(tgt.topic, EventMessageEdited, MessageEditedPayload{
		RoomID:  roomID,
		MsgID:   msgID,
		NewText: newText,
	}, tgt.exclude)

	return nil
}

// DeleteMessage relays a deletion carrying the acting user's display name.
// Recipients that never received the message treat it as a silent no-op.
func (c *Coordinator) DeleteMessage(conn Conn, roomID, msgID string) *errs.CustomError {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := c.reg.userByConn(conn.ID())
	if u == nil {
		return errs.NewError(errs.ErrNoSessionBinding)
	}

	tgt, cerr := c.resolveTargetLocked(u, roomID)
	if cerr != nil {
		return cerr
	}

	c.hub.Publish(tgt.topic, EventMessageDeleted, MessageDeletedPayload{
		RoomID:    roomID,
		MsgID:     msgID,
		DeletedBy: u.Name,
	}, tgt.exclude)

	return nil
}

// RelayTyping relays a typing indicator. Best-effort: no acknowledgment, no
// state stored beyond the momentary relay.
func (c *Coordinator) RelayTyping(conn Conn, roomID string, typing bool) *errs.CustomError {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := c.reg.userByConn(conn.ID())
	if u == nil {
		return errs.NewError(errs.ErrNoSessionBinding)
	}

	tgt, cerr := c.resolveTargetLocked(u, roomID)
	if cerr != nil {
		return cerr
	}

	event := EventUserTyping
	if !typing {
		event = EventUserStopTyping
	}

	c.hub.Publish(tgt.topic, event, TypingPayload{
		RoomID: roomID,
		UUID:   u.UUID,
		Name:   u.Name,
	}, tgt.exclude)

	return nil
}
