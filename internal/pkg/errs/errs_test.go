package errs

import (
	"strings"
	"testing"
)

func TestNewErrorKnownCode(t *testing.T) {
	cerr := NewError(ErrSessionNotFound)
	if cerr.Code != ErrSessionNotFound {
		t.Errorf("Code = %d, expected %d", cerr.Code, ErrSessionNotFound)
	}
	if cerr.Message == "" {
		t.Error("Known code produced an empty message")
	}
	if cerr.Error() == "" {
		t.Error("Error() returned empty string")
	}
}

func TestNewErrorUnknownCodeFallsBack(t *testing.T) {
	cerr := NewError(999999)
	if cerr.Code != ErrUnknown {
		t.Errorf("Unmapped code not normalized to ErrUnknown: %d", cerr.Code)
	}
}

func TestNewErrorFormatsDetails(t *testing.T) {
	cerr := NewError(ErrMissingField, "sessionID")
	if !strings.Contains(cerr.Message, "sessionID") {
		t.Errorf("Detail not interpolated into message: %q", cerr.Message)
	}
}

func TestErrorClassification(t *testing.T) {
	if !NewError(ErrInvalidParams).IsProtocol() {
		t.Error("1xxx code not classified as protocol error")
	}
	if !NewError(ErrSessionNotFound).IsNotFound() {
		t.Error("Session-not-found not classified as not-found")
	}
	if !NewError(ErrUserNotFound).IsNotFound() {
		t.Error("User-not-found not classified as not-found")
	}
	if !NewError(ErrNotHost).IsAuthorization() {
		t.Error("Host-only rejection not classified as authorization")
	}
	if NewError(ErrSessionFull).IsAuthorization() {
		t.Error("Capacity rejection misclassified as authorization")
	}
}
