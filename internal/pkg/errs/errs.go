/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error interface
and carries a business code, a client-friendly message, and an HTTP status code for the
few places where errors surface over plain HTTP instead of a WebSocket acknowledgment.
*/
package errs

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/logx"
)

// CustomError is the error structure used throughout the application.
// It wraps the Go error interface, adding a business code and HTTP status code.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the client-friendly error description.
	Message string

	// Status is the HTTP status code used when the error is returned over plain HTTP.
	Status int
}

// Error implements the standard Go error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d: %s", e.Code, e.Message)
}

// IsProtocol reports whether the error belongs to the protocol-violation family
// (malformed or missing input, or an event arriving without an identity binding).
func (e *CustomError) IsProtocol() bool { return e.Code >= 1000 && e.Code < 2000 }

// IsNotFound reports whether the error belongs to the missing-resource family.
func (e *CustomError) IsNotFound() bool { return e.Code >= 2000 && e.Code < 3000 }

// IsAuthorization reports whether the error belongs to the authorization family
// (a non-host invoking a host-only operation, or a replaced connection).
func (e *CustomError) IsAuthorization() bool { return e.Code >= 3000 && e.Code < 4000 }

// NewError constructs and returns a new *CustomError instance based on a predefined error code.
// The optional details parameter supplies printf-style arguments for message templates.
// If an unknown code is provided, it defaults to returning ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &CustomError{
			Code:    unknownErr.Code,
			Message: unknownErr.Message,
			Status:  unknownErr.Status,
		}
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if code == ErrUnknown && len(details) > 0 {
		if originalErr, ok := details[0].(error); ok {
			logx.Error(
				originalErr,
				"Handling ErrUnknown with underlying error",
			)
		}
	} else if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn(
				"Details provided for error, but message template has no formatting placeholders. Details ignored.",
			)
		}
	}

	return &customErr
}
