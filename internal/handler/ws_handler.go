/*
Package handler provides the HTTP surface of the service.

This file contains the WebSocket upgrade handler: rate limiting by client IP,
upgrading the HTTP connection, and starting the connection's read/write loops.
All session semantics happen over the socket; the upgrade itself carries no
parameters.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/errs"
	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/limiter"
	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/logx"
	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/randx"
	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		connID := randx.NewUUID()
		client := newWSConn(connID, conn, deps.Gateway)

		logx.Info("WebSocket connection established", "conn_id", connID)

		go client.WritePump()

		client.ReadPump()
	}
}
