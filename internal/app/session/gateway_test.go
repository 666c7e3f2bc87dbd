package session

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/errs"
	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/validate"
)

func newTestGateway() *Gateway {
	return NewGateway(newTestCoordinator(time.Minute, time.Minute))
}

// lastAck returns the payload of the acknowledgment frame carrying the given id.
func lastAck(t *testing.T, conn *fakeConn, ackID int64) any {
	t.Helper()

	for _, fr := range conn.framesByEvent(EventAck) {
		if fr.AckID == ackID {
			return fr.Payload
		}
	}
	t.Fatalf("No acknowledgment with id %d on %s", ackID, conn.ID())
	return nil
}

func requireErrAck(t *testing.T, conn *fakeConn, ackID int64, wantCode int) {
	t.Helper()

	payload, ok := lastAck(t, conn, ackID).(ErrAck)
	if !ok {
		t.Fatalf("Acknowledgment %d is not a failure payload", ackID)
	}
	if payload.Success {
		t.Errorf("Failure acknowledgment reports success")
	}
	if payload.Code != wantCode {
		t.Errorf("Acknowledgment carries code %d, expected %d", payload.Code, wantCode)
	}
}

func dispatchJoinedConn(t *testing.T, g *Gateway, id string) (*fakeConn, JoinAck) {
	t.Helper()

	conn := newFakeConn(id)
	g.Dispatch(conn, validate.EventCreateSession, 1, nil)

	ack, ok := lastAck(t, conn, 1).(JoinAck)
	if !ok || !ack.Success {
		t.Fatalf("create-session did not produce a successful join acknowledgment")
	}
	conn.reset()
	return conn, ack
}

func TestDispatchUnknownEvent(t *testing.T) {
	g := newTestGateway()
	conn := newFakeConn("conn-a")

	g.Dispatch(conn, "bogus-event", 7, nil)

	requireErrAck(t, conn, 7, errs.ErrUnknownEvent)
}

func TestDispatchRequiresBinding(t *testing.T) {
	g := newTestGateway()
	conn := newFakeConn("conn-a")

	raw := json.RawMessage(`{"msgID":"m1","roomID":"ABC123","context":{"text":"hi"}}`)
	g.Dispatch(conn, validate.EventSendMessage, 3, raw)

	requireErrAck(t, conn, 3, errs.ErrNoSessionBinding)
}

func TestDispatchMissingField(t *testing.T) {
	g := newTestGateway()
	conn := newFakeConn("conn-a")

	// join-session is public, so the gate runs with no binding.
	g.Dispatch(conn, validate.EventJoinSession, 4, json.RawMessage(`{}`))

	requireErrAck(t, conn, 4, errs.ErrMissingField)
}

func TestDispatchCreateThenJoinFlow(t *testing.T) {
	g := newTestGateway()

	connA, ackA := dispatchJoinedConn(t, g, "conn-a")
	if !ackA.IsHost {
		t.Error("Creator acknowledgment lacks host flag")
	}
	if ackA.IdentityToken == "" {
		t.Error("Creator acknowledgment lacks identity token")
	}

	connB := newFakeConn("conn-b")
	raw := json.RawMessage(fmt.Sprintf(`{"sessionID":%q}`, ackA.SessionID))
	g.Dispatch(connB, validate.EventJoinSession, 2, raw)

	ackB, ok := lastAck(t, connB, 2).(JoinAck)
	if !ok || !ackB.Success {
		t.Fatal("join-session did not produce a successful acknowledgment")
	}
	if ackB.IsHost {
		t.Error("Second member acknowledged as host")
	}
	if len(ackB.Members) != 2 {
		t.Errorf("Join acknowledgment lists %d members, expected 2", len(ackB.Members))
	}

	// The session code arrives lowercase; the gate normalizes it.
	connC := newFakeConn("conn-c")
	lower := json.RawMessage(fmt.Sprintf(`{"sessionID":%q}`, "  "+lowercase(ackA.SessionID)+" "))
	g.Dispatch(connC, validate.EventJoinSession, 5, lower)
	if ackC, ok := lastAck(t, connC, 5).(JoinAck); !ok || !ackC.Success {
		t.Error("Join with unnormalized session code failed")
	}

	// Sanity check against the sender conn count.
	if got := len(connA.framesByEvent(EventHostChange)); got != 0 {
		t.Errorf("host-change re-fired on joins: %d frames", got)
	}
}

func lowercase(s string) string {
	b := []byte(s)
	for i, ch := range b {
		if ch >= 'A' && ch <= 'Z' {
			b[i] = ch + ('a' - 'A')
		}
	}
	return string(b)
}

func TestDispatchSendMessageEndToEnd(t *testing.T) {
	g := newTestGateway()

	connA, ackA := dispatchJoinedConn(t, g, "conn-a")

	connB := newFakeConn("conn-b")
	g.Dispatch(connB, validate.EventJoinSession, 1, json.RawMessage(fmt.Sprintf(`{"sessionID":%q}`, ackA.SessionID)))
	connB.reset()

	raw := json.RawMessage(fmt.Sprintf(`{"msgID":"m1","roomID":%q,"context":{"text":" hello "}}`, ackA.SessionID))
	g.Dispatch(connA, validate.EventSendMessage, 9, raw)

	ack, ok := lastAck(t, connA, 9).(SendAck)
	if !ok || !ack.Success || ack.MsgID != "m1" {
		t.Fatalf("send-message acknowledgment wrong: %+v", ack)
	}

	frames := connB.framesByEvent(EventReceiveMessage)
	if len(frames) != 1 {
		t.Fatalf("Recipient got %d message frames, expected 1", len(frames))
	}
	if msg := frames[0].Payload.(MessagePayload); msg.Text != "hello" {
		t.Errorf("Message text not trimmed by the gate: %q", msg.Text)
	}
}

func TestDispatchTypingProducesNoAck(t *testing.T) {
	g := newTestGateway()

	connA, ackA := dispatchJoinedConn(t, g, "conn-a")

	raw := json.RawMessage(fmt.Sprintf(`{"roomID":%q}`, ackA.SessionID))
	g.Dispatch(connA, validate.EventTyping, 11, raw)

	if got := len(connA.framesByEvent(EventAck)); got != 0 {
		t.Errorf("typing produced %d acknowledgment frames, expected none", got)
	}

	// Even an invalid typing payload stays silent.
	g.Dispatch(connA, validate.EventTyping, 12, json.RawMessage(`{}`))
	if got := len(connA.framesByEvent(EventAck)); got != 0 {
		t.Errorf("Failed typing produced %d acknowledgment frames, expected none", got)
	}
}

func TestDispatchZeroAckIDStaysSilent(t *testing.T) {
	g := newTestGateway()

	connA, ackA := dispatchJoinedConn(t, g, "conn-a")

	raw := json.RawMessage(fmt.Sprintf(`{"sessionID":%q}`, ackA.SessionID))
	g.Dispatch(connA, validate.EventLeaveSession, 0, raw)

	if got := len(connA.framesByEvent(EventAck)); got != 0 {
		t.Errorf("Zero ack id produced %d acknowledgment frames", got)
	}
	if g.coord.UserByConn(connA.ID()) != nil {
		t.Error("leave-session did not run despite zero ack id")
	}
}

func TestDispatchMalformedPayload(t *testing.T) {
	g := newTestGateway()
	conn := newFakeConn("conn-a")

	g.Dispatch(conn, validate.EventJoinSession, 6, json.RawMessage(`{not json`))

	requireErrAck(t, conn, 6, errs.ErrInvalidParams)
}

func TestDispatchHostOnlyRejection(t *testing.T) {
	g := newTestGateway()

	_, ackA := dispatchJoinedConn(t, g, "conn-a")

	connB := newFakeConn("conn-b")
	g.Dispatch(connB, validate.EventJoinSession, 1, json.RawMessage(fmt.Sprintf(`{"sessionID":%q}`, ackA.SessionID)))
	connB.reset()

	g.Dispatch(connB, validate.EventEndSession, 2, json.RawMessage(fmt.Sprintf(`{"sessionID":%q}`, ackA.SessionID)))

	requireErrAck(t, connB, 2, errs.ErrNotHost)
}
