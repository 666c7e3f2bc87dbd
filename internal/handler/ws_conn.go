/*
Package handler provides the HTTP surface of the service: routing, the health
endpoint, and the WebSocket upgrade path.

This file defines wsConn, the WebSocket-backed implementation of session.Conn.
It manages the connection lifecycle and the read/write loops: inbound frames are
decoded and dispatched to the Gateway, outbound frames are queued on a buffered
send channel drained by WritePump.
*/
package handler

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ajjacobi12/friend-finder-sub000/internal/app/session"
	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 8192

	// sendQueueSize is the capacity of the outbound frame queue.
	sendQueueSize = 256

	// WsCloseCodeGhostBusted is a custom WebSocket Close Code (4000-4999 range)
	// used to signal the client that its identity was taken over by a newer connection.
	WsCloseCodeGhostBusted = 4001
)

// inboundFrame is the decode target for client frames.
type inboundFrame struct {
	Event   string          `json:"event"`
	AckID   int64           `json:"ackId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// wsConn wraps a WebSocket connection and implements session.Conn.
type wsConn struct {
	// id is the transport-level connection identifier.
	id string

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// gateway receives decoded inbound events and the disconnect notification.
	gateway *session.Gateway

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	// closeOnce guards the send channel against double close.
	closeOnce sync.Once

	// structured logger with connection context.
	logger zerolog.Logger
}

// newWSConn constructs a wsConn around an upgraded connection.
func newWSConn(id string, conn *websocket.Conn, gateway *session.Gateway) *wsConn {
	connLogger := logx.Logger().With().
		Str("conn_id", id).
		Logger()

	return &wsConn{
		id:      id,
		conn:    conn,
		gateway: gateway,
		send:    make(chan []byte, sendQueueSize),
		logger:  connLogger,
	}
}

// ID returns the transport-level connection identifier.
func (c *wsConn) ID() string {
	return c.id
}

// Send marshals the frame and queues it for delivery. The queue never blocks:
// a full queue drops the frame and reports an error.
func (c *wsConn) Send(f session.Frame) error {
	frameBytes, err := json.Marshal(f)
	if err != nil {
		c.logger.Error().Err(err).Str("event", f.Event).Msg("Error marshaling outbound frame.")
		return err
	}

	select {
	case c.send <- frameBytes:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Send queue full, dropping frame.")
		return fmt.Errorf("send queue full")
	}
}

// Kick closes the connection with a custom Close Frame (code 4001) indicating
// that a newer connection took over this identity.
func (c *wsConn) Kick(reason string) {
	c.logger.Warn().
		Int("close_code", WsCloseCodeGhostBusted).
		Str("reason", reason).
		Msg("Kicking connection.")

	closeMessage := websocket.FormatCloseMessage(WsCloseCodeGhostBusted, reason)

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to send kick close message.")
	}

	c.closeSendQueue()
}

// closeSendQueue closes the send channel exactly once, ending WritePump.
func (c *wsConn) closeSendQueue() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// ReadPump reads frames from the WebSocket connection, handles heartbeats
// (Pong), decodes frames, and dispatches them to the Gateway. On exit it
// triggers the disconnect grace path.
func (c *wsConn) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		c.processInboundFrame(frameBytes)
	}
}

// cleanupOnDisconnect runs when ReadPump terminates: the gateway is notified so
// the grace-period path runs, and the underlying connection is closed.
func (c *wsConn) cleanupOnDisconnect() {
	c.logger.Info().Msg("Connection cleanup starting.")

	c.gateway.HandleDisconnect(c)

	c.closeSendQueue()

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Connection close error")
	}
}

// processInboundFrame decodes a raw frame and hands it to the Gateway.
func (c *wsConn) processInboundFrame(frameBytes []byte) {
	var frame inboundFrame

	if err := json.Unmarshal(frameBytes, &frame); err != nil {
		c.logger.Warn().Err(err).
			Bytes("frame_bytes", frameBytes).
			Msg("Client sent invalid JSON")
		return
	}

	if frame.Event == "" {
		c.logger.Warn().Msg("Client sent frame without event name")
		return
	}

	c.gateway.Dispatch(c, frame.Event, frame.AckID, frame.Payload)
}

// WritePump writes frames from the send channel to the WebSocket connection
// and keeps the heartbeat alive with periodic pings.
func (c *wsConn) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error in WritePump")
		}
	}()

	for {
		select {
		case frameBytes, ok := <-c.send:
			if !c.writeQueuedFrame(frameBytes, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one queued frame to the WebSocket.
// Returns true if the WritePump loop should continue.
func (c *wsConn) writeQueuedFrame(frameBytes []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frameBytes); err != nil {
		c.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *wsConn) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
