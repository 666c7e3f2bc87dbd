/*
Package session contains the core presence and coordination logic.

This file defines the Coordinator, the single owner of all registry state. Every
mutation — joins, reconnects, profile updates, departures, removals, host
transfers, timer expiries — runs under one mutex, which is what keeps the
"exactly one host per non-empty session" and "one live connection per identity"
invariants observable at all times. Timer callbacks re-acquire the mutex and
re-validate their precondition before acting.
*/
package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajjacobi12/friend-finder-sub000/internal/configs"
	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/auth/identity"
	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/errs"
	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/logx"
	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/randx"
	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/validate"
)

// sessionCodeAttempts bounds how many random codes CreateSession tries before
// giving up on a collision streak.
const sessionCodeAttempts = 5

// Coordinator owns the registry, the timers, and the topic hub, and implements
// every session-mutating operation.
type Coordinator struct {
	// mu serializes all registry access.
	mu sync.Mutex

	reg    *registry
	timers *timerSet
	hub    *TopicHub

	// config holds the presence tunables: grace period, empty-session TTL, capacity.
	config *configs.AppConfig

	// structured logger with Coordinator context.
	logger zerolog.Logger
}

// NewCoordinator constructs a Coordinator around the given topic hub.
func NewCoordinator(cfg *configs.AppConfig, hub *TopicHub) *Coordinator {
	return &Coordinator{
		reg:    newRegistry(),
		timers: newTimerSet(),
		hub:    hub,
		config: cfg,
		logger: logx.Logger().With().Str("component", "Coordinator").Logger(),
	}
}

// JoinResult is the outcome of a successful create or join.
type JoinResult struct {
	User          User
	IdentityToken string
	Members       []User
}

// CreateSession mints a fresh session code and joins the caller to it as its
// first member (and therefore host).
func (c *Coordinator) CreateSession(conn Conn, existingUUID, identityToken string) (*JoinResult, *errs.CustomError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var code string
	for attempt := 0; attempt < sessionCodeAttempts; attempt++ {
		candidate, err := randx.SessionCode()
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to generate session code.")
			return nil, errs.NewError(errs.ErrUnknown)
		}
		if !c.reg.sessionExists(candidate) {
			code = candidate
			break
		}
	}
	if code == "" {
		c.logger.Error().Msg("Exhausted session code attempts. All candidates collided.")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	return c.joinLocked(conn, code, existingUUID, identityToken)
}

// JoinSession joins the caller to an existing session. Joining a nonexistent
// code is a structured "does not exist" failure; joining a full session is
// rejected unless the caller's identity is already counted among its members.
func (c *Coordinator) JoinSession(conn Conn, code, existingUUID, identityToken string) (*JoinResult, *errs.CustomError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.reg.sessionExists(code) {
		return nil, errs.NewError(errs.ErrSessionNotFound)
	}

	uuid := c.resolveIdentity(existingUUID, identityToken)
	if c.reg.memberByUUID(code, uuid) == nil && c.reg.memberCount(code) >= c.config.SessionCapacity {
		return nil, errs.NewError(errs.ErrSessionFull)
	}

	return c.joinLocked(conn, code, uuid, "")
}

// resolveIdentity picks the acting uuid: a verified identity token wins, then a
// well-formed existingUUID, then a freshly minted uuid.
func (c *Coordinator) resolveIdentity(existingUUID, identityToken string) string {
	if identityToken != "" {
		uuid, err := identity.Verify(identityToken, c.config.IdentitySecret)
		if err == nil {
			return uuid
		}
		c.logger.Warn().Err(err).Msg("Ignoring invalid identity token.")
	}

	if existingUUID != "" && randx.IsWellFormedUUID(existingUUID) {
		return existingUUID
	}

	return randx.NewUUID()
}

// joinLocked performs the join-or-create flow for a resolved session code:
// ghost busting, connection binding, host determination, record creation or
// update, topic subscription, timer cancellation, and presence publication.
// Callers hold c.mu.
func (c *Coordinator) joinLocked(conn Conn, code, existingUUID, identityToken string) (*JoinResult, *errs.CustomError) {
	uuid := existingUUID
	if uuid == "" || !randx.IsWellFormedUUID(uuid) {
		uuid = c.resolveIdentity(existingUUID, identityToken)
	}

	u, existed := c.reg.users[uuid]

	// Ghost busting: a User bound to a different connection means a stale
	// connection still represents this identity. Detach it before binding the
	// new one; two live connections must never share a uuid. Best-effort,
	// logged not fatal.
	if existed && u.ConnectionID != conn.ID() {
		c.bustGhostLocked(u)
	}

	// A returning identity joining a different session leaves its old one first.
	if existed && u.SessionID != code {
		c.detachFromSessionLocked(u, conn)
	}

	c.reg.conns[conn.ID()] = &binding{uuid: uuid, conn: conn}

	wasHost := existed && u.IsHost
	currentHost := c.reg.hostOf(code)
	isHost := currentHost == nil || currentHost.UUID == uuid

	if existed {
		u.ConnectionID = conn.ID()
		u.SessionID = code
		u.IsHost = isHost
	} else {
		name, err := randx.PlaceholderName()
		if err != nil {
			name = "Guest"
		}

		u = &User{
			UUID:         uuid,
			ConnectionID: conn.ID(),
			Name:         name,
			Color:        placeholderColor(c.reg.memberCount(code)),
			SessionID:    code,
			IsHost:       isHost,
			JoinedAt:     time.Now(),
		}
		c.reg.users[uuid] = u
	}

	c.reg.sessions[code] = struct{}{}

	c.hub.Subscribe(code, conn)
	c.hub.Subscribe(uuid, conn)

	c.timers.cancelGrace(uuid)
	c.timers.cancelDeletion(code)

	c.publishMembershipLocked(code)
	if isHost && !wasHost {
		c.hub.Publish(code, EventHostChange, HostChangePayload{UUID: uuid}, "")
	}

	token, err := identity.Issue(uuid, c.config.IdentitySecret)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to issue identity token.")
		token = ""
	}

	c.logger.Info().
		Str("session_id", code).
		Str("uuid", uuid).
		Bool("is_host", isHost).
		Bool("reconnect", existed).
		Msg("User joined session.")

	return &JoinResult{
		User:          *u,
		IdentityToken: token,
		Members:       c.reg.snapshotMembers(code),
	}, nil
}

// bustGhostLocked detaches the stale connection still bound to the user's
// identity: unsubscribes it from the session and personal topics, drops its
// binding, and kicks it.
func (c *Coordinator) bustGhostLocked(u *User) {
	oldConnID := u.ConnectionID
	b, ok := c.reg.conns[oldConnID]
	if !ok || b.uuid != u.UUID {
		return
	}

	c.logger.Warn().
		Str("uuid", u.UUID).
		Str("stale_conn_id", oldConnID).
		Msg("Identity already bound to another connection. Detaching ghost.")

	c.hub.Unsubscribe(u.SessionID, oldConnID)
	c.hub.Unsubscribe(u.UUID, oldConnID)
	delete(c.reg.conns, oldConnID)

	b.conn.Kick("Session resumed from another connection.")
}

// detachFromSessionLocked takes a user out of its current session without
// deleting the identity, running election and empty-session handling for the
// session left behind.
func (c *Coordinator) detachFromSessionLocked(u *User, conn Conn) {
	oldCode := u.SessionID
	wasHost := u.IsHost

	c.hub.Unsubscribe(oldCode, conn.ID())
	c.hub.Unsubscribe(oldCode, u.ConnectionID)

	u.SessionID = ""
	u.IsHost = false

	if wasHost {
		c.electHostLocked(oldCode)
	}
	c.publishMembershipLocked(oldCode)
	c.checkEmptyLocked(oldCode)
}

// UserByConn resolves the acting user for a connection. A nil result means the
// connection has no identity+session binding.
func (c *Coordinator) UserByConn(connID string) *User {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := c.reg.userByConn(connID)
	if u == nil {
		return nil
	}
	copied := *u
	return &copied
}

// UpdateProfile records the submitted name and color and marks the user fully
// registered. A color already held by another member of the session is rejected.
func (c *Coordinator) UpdateProfile(conn Conn, profile validate.Profile) *errs.CustomError {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := c.reg.userByConn(conn.ID())
	if u == nil {
		return errs.NewError(errs.ErrNoSessionBinding)
	}

	for _, member := range c.reg.membersOf(u.SessionID) {
		if member.UUID != u.UUID && member.Color == profile.Color {
			return errs.NewError(errs.ErrColorTaken)
		}
	}

	u.Name = profile.Name
	u.Color = profile.Color
	u.IsFullyRegistered = true

	c.publishMembershipLocked(u.SessionID)
	return nil
}

// LeaveSession removes the caller from the session. Leaving as an
// already-removed user succeeds, keeping client state convergent.
func (c *Coordinator) LeaveSession(conn Conn, code string) *errs.CustomError {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := c.reg.userByConn(conn.ID())
	if u == nil || u.SessionID != code {
		// Idempotent: the user is already gone.
		return nil
	}

	c.removeUserLocked(u, "left")
	return nil
}

// EndSession lets the host end the session for everyone: remaining members are
// notified, every record and binding is purged, and the code is forgotten
// immediately.
func (c *Coordinator) EndSession(conn Conn, code string) *errs.CustomError {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := c.reg.userByConn(conn.ID())
	if u == nil || u.SessionID != code {
		return errs.NewError(errs.ErrNoSessionBinding)
	}
	if !u.IsHost {
		return errs.NewError(errs.ErrNotHost)
	}

	c.hub.Publish(code, EventSessionEnded, SessionEndedPayload{SessionID: code}, conn.ID())

	for _, member := range c.reg.membersOf(code) {
		c.purgeUserLocked(member)
	}

	delete(c.reg.sessions, code)
	c.timers.cancelDeletion(code)
	c.hub.DropTopic(code)

	c.logger.Info().Str("session_id", code).Msg("Session ended by host.")
	return nil
}

// RemoveUser lets the host remove another member. The target is notified on its
// personal topic before its records are purged.
func (c *Coordinator) RemoveUser(conn Conn, code, targetUUID string) *errs.CustomError {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := c.reg.userByConn(conn.ID())
	if u == nil || u.SessionID != code {
		return errs.NewError(errs.ErrNoSessionBinding)
	}
	if !u.IsHost {
		return errs.NewError(errs.ErrNotHost)
	}
	if targetUUID == u.UUID {
		return errs.NewError(errs.ErrInvalidParams)
	}

	target := c.reg.memberByUUID(code, targetUUID)
	if target == nil {
		return errs.NewError(errs.ErrUserNotFound)
	}

	c.hub.Publish(targetUUID, EventRemovedFromSession, RemovedPayload{SessionID: code}, "")
	c.removeUserLocked(target, "removed by host")
	return nil
}

// TransferHost lets the host hand host privileges to another member.
func (c *Coordinator) TransferHost(conn Conn, code, newHostUUID string) *errs.CustomError {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := c.reg.userByConn(conn.ID())
	if u == nil || u.SessionID != code {
		return errs.NewError(errs.ErrNoSessionBinding)
	}
	if !u.IsHost {
		return errs.NewError(errs.ErrNotHost)
	}

	target := c.reg.memberByUUID(code, newHostUUID)
	if target == nil {
		return errs.NewError(errs.ErrUserNotFound)
	}
	if target.UUID == u.UUID {
		return nil
	}

	u.IsHost = false
	target.IsHost = true

	c.hub.Publish(code, EventHostChange, HostChangePayload{UUID: target.UUID}, "")
	c.publishMembershipLocked(code)

	c.logger.Info().
		Str("session_id", code).
		Str("from", u.UUID).
		Str("to", target.UUID).
		Msg("Host transferred.")
	return nil
}

// HandleDisconnect is the grace-period entry point for an abrupt transport
// disconnect. The User record survives; a grace timer is armed instead, and a
// best-effort stopped-typing notice is published so clients can clear
// indicators.
func (c *Coordinator) HandleDisconnect(conn Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.reg.conns[conn.ID()]
	if !ok {
		return
	}

	u := c.reg.users[b.uuid]
	if u == nil || u.ConnectionID != conn.ID() {
		// A newer connection superseded this one; only drop the stale binding.
		delete(c.reg.conns, conn.ID())
		return
	}

	code := u.SessionID

	c.hub.Publish(code, EventUserStopTyping, TypingPayload{
		RoomID: code,
		UUID:   u.UUID,
		Name:   u.Name,
	}, conn.ID())

	// The dead connection can't receive anything; take it off the topics but
	// keep the User and its binding until the grace timer decides.
	c.hub.Unsubscribe(code, conn.ID())
	c.hub.Unsubscribe(u.UUID, conn.ID())

	disconnectedConnID := conn.ID()
	uuid := u.UUID

	c.timers.armGrace(uuid, c.config.GracePeriod, func() {
		c.expireGrace(uuid, disconnectedConnID)
	})

	c.logger.Info().
		Str("session_id", code).
		Str("uuid", uuid).
		Dur("grace_period", c.config.GracePeriod).
		Msg("Connection lost. Grace timer armed.")
}

// expireGrace runs when a grace timer fires. The timer raced against
// reconnects, so it first re-reads the User: if the connection that
// disconnected is no longer the bound one, a reconnect superseded this timer
// and nothing happens.
func (c *Coordinator) expireGrace(uuid string, disconnectedConnID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := c.reg.users[uuid]
	if u == nil || u.ConnectionID != disconnectedConnID {
		return
	}

	c.logger.Info().
		Str("session_id", u.SessionID).
		Str("uuid", uuid).
		Msg("Grace period expired without reconnect. Removing user.")

	c.removeUserLocked(u, "grace expired")
}

// expireSession runs when an empty-session deletion timer fires. Arbitrary time
// passed since it was armed, so membership is re-scanned: any member means the
// session lives on. Otherwise the code is forgotten, and any residual user
// records still pointing at it are purged defensively.
func (c *Coordinator) expireSession(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reg.memberCount(code) > 0 {
		return
	}

	delete(c.reg.sessions, code)
	c.hub.DropTopic(code)

	for uuid, u := range c.reg.users {
		if u.SessionID == code {
			c.logger.Warn().
				Str("session_id", code).
				Str("uuid", uuid).
				Msg("Purging residual user record for deleted session.")
			c.purgeUserLocked(u)
		}
	}

	c.logger.Info().Str("session_id", code).Msg("Empty session deleted.")
}

// removeUserLocked deletes a user and its binding, unsubscribes its connection,
// elects a new host if needed, republishes membership, and arms the deletion
// timer if the session emptied out. Callers hold c.mu.
func (c *Coordinator) removeUserLocked(u *User, reason string) {
	code := u.SessionID
	wasHost := u.IsHost

	c.purgeUserLocked(u)

	if wasHost {
		c.electHostLocked(code)
	}

	c.publishMembershipLocked(code)
	c.checkEmptyLocked(code)

	c.logger.Info().
		Str("session_id", code).
		Str("uuid", u.UUID).
		Str("reason", reason).
		Msg("User removed from session.")
}

// purgeUserLocked deletes the user record, its connection binding, its topic
// subscriptions, and any pending grace timer. It does not publish anything.
func (c *Coordinator) purgeUserLocked(u *User) {
	delete(c.reg.users, u.UUID)

	if b, ok := c.reg.conns[u.ConnectionID]; ok && b.uuid == u.UUID {
		delete(c.reg.conns, u.ConnectionID)
	}

	c.hub.Unsubscribe(u.SessionID, u.ConnectionID)
	c.hub.Unsubscribe(u.UUID, u.ConnectionID)

	c.timers.cancelGrace(u.UUID)
}

// electHostLocked promotes a remaining member to host after the previous host
// departed. Selection is deterministic: earliest join time, ties broken by
// lexicographically smallest uuid. With no members left, no election runs.
func (c *Coordinator) electHostLocked(code string) {
	members := c.reg.membersOf(code)
	if len(members) == 0 {
		return
	}

	newHost := members[0]
	newHost.IsHost = true

	c.hub.Publish(code, EventHostChange, HostChangePayload{UUID: newHost.UUID}, "")

	c.logger.Info().
		Str("session_id", code).
		Str("uuid", newHost.UUID).
		Msg("New host elected.")
}

// publishMembershipLocked recomputes the session's membership and publishes it
// to the session topic. Invoked after every mutation that can change
// membership or member fields; there is no batching or debouncing.
func (c *Coordinator) publishMembershipLocked(code string) {
	c.hub.Publish(code, EventUserUpdate, c.reg.snapshotMembers(code), "")
}

// checkEmptyLocked arms (or re-arms) the session deletion timer once membership
// reaches zero.
func (c *Coordinator) checkEmptyLocked(code string) {
	if !c.reg.sessionExists(code) || c.reg.memberCount(code) > 0 {
		return
	}

	c.timers.armDeletion(code, c.config.EmptySessionTTL, func() {
		c.expireSession(code)
	})

	c.logger.Info().
		Str("session_id", code).
		Dur("ttl", c.config.EmptySessionTTL).
		Msg("Session is empty. Deletion timer armed.")
}

// Shutdown stops all pending timers. Connections are closed by the transport layer.
func (c *Coordinator) Shutdown() {
	c.timers.stopAll()
	c.logger.Info().Msg("Coordinator shutdown complete.")
}

// placeholderColor picks a starter color by member index; users replace it when
// they register a profile.
func placeholderColor(index int) string {
	palette := []string{
		"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231", "#911eb4",
		"#46f0f0", "#f032e6", "#bcf60c", "#fabebe", "#008080", "#e6beff",
	}
	return palette[index%len(palette)]
}
