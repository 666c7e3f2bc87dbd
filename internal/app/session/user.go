/*
Package session contains the core presence and coordination logic: the membership
registry, disconnect grace handling, host election, session lifecycle, message
relay, and the gateway that dispatches inbound events to all of them.

This file defines the User record, one per persistent participant identity.
*/
package session

import "time"

// User represents one participant identity.
// At most one User record exists per uuid, and at most one live connection is
// bound to a uuid at a time; within a non-empty session exactly one member has
// IsHost set. JSON tags shape the membership payloads published to clients.
type User struct {
	// UUID is the stable participant identity, preserved across reconnects.
	UUID string `json:"uuid"`

	// ConnectionID is the current transport connection. It changes on reconnect.
	ConnectionID string `json:"-"`

	// Name is the display name, a generated placeholder until the user submits a profile.
	Name string `json:"name"`

	// Color is the member's hex color, unique within a session once registered.
	Color string `json:"color"`

	// SessionID is the 6-character code of the session this user belongs to.
	SessionID string `json:"sessionID"`

	// IsHost marks the member holding host privileges.
	IsHost bool `json:"isHost"`

	// IsFullyRegistered is set once the user has submitted name and color.
	IsFullyRegistered bool `json:"isFullyRegistered"`

	// JoinedAt records when the identity first entered the session.
	// Election order depends on it, so it survives reconnects.
	JoinedAt time.Time `json:"-"`
}
