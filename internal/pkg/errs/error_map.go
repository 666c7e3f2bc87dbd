/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
acknowledgment failures and the few plain-HTTP error responses.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the client message and, where an
// error can surface over plain HTTP, the HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: Protocol Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrMissingField:      {Code: ErrMissingField, Message: "Missing required field: %s."},
	ErrNoSessionBinding:  {Code: ErrNoSessionBinding, Message: "You are not in a session."},
	ErrUnknownEvent:      {Code: ErrUnknownEvent, Message: "Unknown event."},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrMessageTooLong:    {Code: ErrMessageTooLong, Message: "Message is too long."},

	// 2xxx: Session and Membership Errors
	ErrSessionNotFound: {Code: ErrSessionNotFound, Message: "Session does not exist."},
	ErrSessionFull:     {Code: ErrSessionFull, Message: "This session is full."},
	ErrUserNotFound:    {Code: ErrUserNotFound, Message: "User is not in this session."},
	ErrColorTaken:      {Code: ErrColorTaken, Message: "That color is already in use."},

	// 3xxx: Authorization Errors
	ErrNotHost:         {Code: ErrNotHost, Message: "Only the host can do that."},
	ErrSessionReplaced: {Code: ErrSessionReplaced, Message: "You reconnected from another device."},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
