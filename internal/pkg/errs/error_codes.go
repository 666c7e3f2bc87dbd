/*
Package errs provides custom error types and application-level error code constants.

Codes are grouped by family: 1xxx protocol violations, 2xxx missing or exhausted
resources, 3xxx authorization failures, 5xxx internal errors. The family of a code
determines how the gateway reports it back to the client.
*/
package errs

// 1xxx: Protocol Errors (malformed input, missing identity binding)
const (
	// ErrInvalidParams indicates that a payload field failed validation or cleaning.
	ErrInvalidParams = 1001

	// ErrMissingField indicates that a required payload field was absent.
	ErrMissingField = 1002

	// ErrNoSessionBinding indicates an event that requires an identity+session binding
	// arrived on a connection that has none.
	ErrNoSessionBinding = 1003

	// ErrUnknownEvent indicates the client sent an event name with no registered handler.
	ErrUnknownEvent = 1004

	// ErrRateLimitExceeded indicates that the connection rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrMessageTooLong indicates that message text exceeded the maximum length limit.
	ErrMessageTooLong = 1201
)

// 2xxx: Session and Membership Errors
const (
	// ErrSessionNotFound indicates the session code being joined or operated on does not exist.
	// This is deliberately distinct from ErrUnknown so clients can tell "no such session"
	// apart from a generic failure.
	ErrSessionNotFound = 2103

	// ErrSessionFull indicates the session has reached its capacity of distinct identities.
	ErrSessionFull = 2104

	// ErrUserNotFound indicates the target user of an operation is not a member of the session.
	ErrUserNotFound = 2105

	// ErrColorTaken indicates another session member already uses the requested color.
	ErrColorTaken = 2106
)

// 3xxx: Authorization Errors
const (
	// ErrNotHost indicates a non-host invoked a host-only operation.
	ErrNotHost = 3001

	// ErrSessionReplaced indicates the connection was superseded by a newer connection
	// bound to the same identity.
	ErrSessionReplaced = 3004
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
