/*
Package session contains the core presence and coordination logic.

This file defines the Gateway, the top-level dispatcher for inbound events. For
every event it resolves the handler by name, applies the validation gate, invokes
the handler, and converts any failure into a {success:false} acknowledgment rather
than letting it propagate — one connection's failure never affects others.
Transport-level disconnects bypass the gate (there is no payload to validate) and
go straight to the grace-period path.
*/
package session

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/errs"
	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/logx"
	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/validate"
)

// Gateway binds inbound events to coordinator operations, wrapping everything
// in authentication and error containment.
type Gateway struct {
	coord  *Coordinator
	logger zerolog.Logger
}

// NewGateway constructs a Gateway in front of the given Coordinator.
func NewGateway(coord *Coordinator) *Gateway {
	return &Gateway{
		coord:  coord,
		logger: logx.Logger().With().Str("component", "Gateway").Logger(),
	}
}

// noAckEvents are fire-and-forget: the client expects no acknowledgment.
var noAckEvents = map[string]struct{}{
	validate.EventTyping:     {},
	validate.EventStopTyping: {},
}

// Dispatch processes one inbound event from a connection. ackID correlates the
// acknowledgment; a zero ackID means the client did not ask for one.
func (g *Gateway) Dispatch(conn Conn, event string, ackID int64, raw json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error().
				Str("event", event).
				Str("conn_id", conn.ID()).
				Interface("panic", r).
				Msg("Recovered from handler panic.")
			g.sendFailure(conn, event, ackID, errs.NewError(errs.ErrUnknown))
		}
	}()

	if !validate.IsKnownEvent(event) {
		g.logger.Warn().Str("event", event).Str("conn_id", conn.ID()).Msg("Unknown event.")
		g.sendFailure(conn, event, ackID, errs.NewError(errs.ErrUnknownEvent))
		return
	}

	// Events other than create/join require an existing identity+session
	// binding on the connection; absence is a protocol rejection, checked
	// before the payload is even decoded.
	if !validate.IsPublic(event) && g.coord.UserByConn(conn.ID()) == nil {
		g.sendFailure(conn, event, ackID, errs.NewError(errs.ErrNoSessionBinding))
		return
	}

	payload, cerr := validate.Clean(event, raw)
	if cerr != nil {
		g.sendFailure(conn, event, ackID, cerr)
		return
	}

	ack, cerr := g.invoke(conn, event, payload)
	if cerr != nil {
		g.sendFailure(conn, event, ackID, cerr)
		return
	}

	if _, skip := noAckEvents[event]; skip || ackID == 0 {
		return
	}

	g.sendAck(conn, ackID, ack)
}

// invoke routes a cleaned event to its coordinator operation and returns the
// success acknowledgment payload.
func (g *Gateway) invoke(conn Conn, event string, p *validate.Payload) (any, *errs.CustomError) {
	switch event {
	case validate.EventCreateSession:
		result, cerr := g.coord.CreateSession(conn, p.ExistingUUID, p.IdentityToken)
		if cerr != nil {
			return nil, cerr
		}
		return joinAck(result), nil

	case validate.EventJoinSession:
		result, cerr := g.coord.JoinSession(conn, p.SessionID, p.ExistingUUID, p.IdentityToken)
		if cerr != nil {
			return nil, cerr
		}
		return joinAck(result), nil

	case validate.EventUpdateUser:
		if cerr := g.coord.UpdateProfile(conn, p.Profile); cerr != nil {
			return nil, cerr
		}
		return OKAck{Success: true}, nil

	case validate.EventLeaveSession:
		if cerr := g.coord.LeaveSession(conn, p.SessionID); cerr != nil {
			return nil, cerr
		}
		return OKAck{Success: true}, nil

	case validate.EventEndSession:
		if cerr := g.coord.EndSession(conn, p.SessionID); cerr != nil {
			return nil, cerr
		}
		return OKAck{Success: true}, nil

	case validate.EventRemoveUser:
		if cerr := g.coord.RemoveUser(conn, p.SessionID, p.UserUUIDToRemove); cerr != nil {
			return nil, cerr
		}
		return OKAck{Success: true}, nil

	case validate.EventTransferHost:
		if cerr := g.coord.TransferHost(conn, p.SessionID, p.NewHostUUID); cerr != nil {
			return nil, cerr
		}
		return OKAck{Success: true}, nil

	case validate.EventSendMessage:
		return deref(g.coord.SendMessage(conn, p.MsgID, p.RoomID, p.Text))

	case validate.EventEditMessage:
		if cerr := g.coord.EditMessage(conn, p.RoomID, p.MsgID, p.NewText); cerr != nil {
			return nil, cerr
		}
		return OKAck{Success: true}, nil

	case validate.EventDeleteMessage:
		if cerr := g.coord.DeleteMessage(conn, p.RoomID, p.MsgID); cerr != nil {
			return nil, cerr
		}
		return OKAck{Success: true}, nil

	case validate.EventTyping:
		return nil, g.coord.RelayTyping(conn, p.RoomID, true)

	case validate.EventStopTyping:
		return nil, g.coord.RelayTyping(conn, p.RoomID, false)
	}

	return nil, errs.NewError(errs.ErrUnknownEvent)
}

// HandleDisconnect forwards a transport-level disconnect to the grace-period path.
func (g *Gateway) HandleDisconnect(conn Conn) {
	g.coord.HandleDisconnect(conn)
}

// sendAck delivers a success acknowledgment frame.
func (g *Gateway) sendAck(conn Conn, ackID int64, payload any) {
	if err := conn.Send(Frame{Event: EventAck, AckID: ackID, Payload: payload}); err != nil {
		g.logger.Warn().Err(err).Str("conn_id", conn.ID()).Msg("Failed to queue acknowledgment.")
	}
}

// sendFailure delivers a failure acknowledgment frame. Typing events expect no
// acknowledgment even on failure, and a zero ackID means none was requested.
func (g *Gateway) sendFailure(conn Conn, event string, ackID int64, cerr *errs.CustomError) {
	if _, skip := noAckEvents[event]; skip || ackID == 0 {
		return
	}

	payload := ErrAck{Success: false, Error: cerr.Message, Code: cerr.Code}
	if err := conn.Send(Frame{Event: EventAck, AckID: ackID, Payload: payload}); err != nil {
		g.logger.Warn().Err(err).Str("conn_id", conn.ID()).Msg("Failed to queue failure acknowledgment.")
	}
}

// joinAck builds the create/join acknowledgment from a join result.
func joinAck(result *JoinResult) JoinAck {
	return JoinAck{
		Success:       true,
		SessionID:     result.User.SessionID,
		UUID:          result.User.UUID,
		IsHost:        result.User.IsHost,
		IdentityToken: result.IdentityToken,
		Members:       result.Members,
	}
}

// deref adapts a (*SendAck, error) pair to the any-typed ack contract without
// returning a typed nil.
func deref(ack *SendAck, cerr *errs.CustomError) (any, *errs.CustomError) {
	if cerr != nil {
		return nil, cerr
	}
	if ack == nil {
		return nil, errs.NewError(errs.ErrUnknown, fmt.Errorf("nil acknowledgment"))
	}
	return *ack, nil
}
