/*
Package validate implements the validation gate applied to every inbound event.

Each event name maps to a list of required fields, and each field name maps to a
cleaner that either normalizes the raw value or rejects it. A rejection on any
field rejects the whole event before any state is touched. The gate never mutates
registry state; it only produces cleaned payloads.
*/
package validate

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/errs"
	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/randx"
)

// Client-to-server event names.
const (
	EventCreateSession = "create-session"
	EventJoinSession   = "join-session"
	EventUpdateUser    = "update-user"
	EventLeaveSession  = "leave-session"
	EventEndSession    = "end-session"
	EventRemoveUser    = "remove-user"
	EventTransferHost  = "transfer-host"
	EventSendMessage   = "send-message"
	EventEditMessage   = "edit-message"
	EventDeleteMessage = "delete-message"
	EventTyping        = "typing"
	EventStopTyping    = "stop-typing"
)

const (
	// DMSeparator joins the two (lexicographically sorted) participant uuids of a
	// private room identifier. Uuids never contain a colon, so splitting is unambiguous.
	DMSeparator = ":"

	// MaxTextBytes is the maximum allowed size of sanitized message text.
	MaxTextBytes = 5000

	// MaxNameRunes is the maximum display name length after cleaning.
	MaxNameRunes = 24

	// MaxMsgIDLength bounds the client-supplied message correlation id.
	MaxMsgIDLength = 64
)

var (
	htmlTagPattern  = regexp.MustCompile(`<[^>]*>`)
	hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// Profile holds the cleaned profile sub-payload of an update-user event.
type Profile struct {
	Name  string
	Color string
}

// Payload holds the cleaned fields of an inbound event. Only the fields required
// by (or optional for) the event in question are populated.
type Payload struct {
	SessionID        string
	ExistingUUID     string
	IdentityToken    string
	Profile          Profile
	MsgID            string
	RoomID           string
	Text             string
	NewText          string
	UserUUIDToRemove string
	NewHostUUID      string
}

// rawPayload is the decode target for inbound payloads. Pointers distinguish
// "absent" from "present but empty" so required-field checks are exact.
type rawPayload struct {
	SessionID     *string `json:"sessionID"`
	ExistingUUID  *string `json:"existingUUID"`
	IdentityToken *string `json:"identityToken"`
	Profile       *struct {
		Name  *string `json:"name"`
		Color *string `json:"color"`
	} `json:"profile"`
	MsgID   *string `json:"msgID"`
	RoomID  *string `json:"roomID"`
	Context *struct {
		Text *string `json:"text"`
	} `json:"context"`
	NewText          *string `json:"newText"`
	UserUUIDToRemove *string `json:"userUUIDToRemove"`
	NewHostUUID      *string `json:"newHostUUID"`
}

// requiredFields lists, per event, the payload fields that must be present.
// An event name appearing here is a known event; anything else is rejected
// by the gateway before the gate runs.
var requiredFields = map[string][]string{
	EventCreateSession: {},
	EventJoinSession:   {"sessionID"},
	EventUpdateUser:    {"profile"},
	EventLeaveSession:  {"sessionID"},
	EventEndSession:    {"sessionID"},
	EventRemoveUser:    {"sessionID", "userUUIDToRemove"},
	EventTransferHost:  {"sessionID", "newHostUUID"},
	EventSendMessage:   {"msgID", "roomID", "context"},
	EventEditMessage:   {"roomID", "msgID", "newText"},
	EventDeleteMessage: {"roomID", "msgID"},
	EventTyping:        {"roomID"},
	EventStopTyping:    {"roomID"},
}

// publicEvents may arrive on a connection with no identity binding yet.
var publicEvents = map[string]struct{}{
	EventCreateSession: {},
	EventJoinSession:   {},
}

// IsKnownEvent reports whether the event name has a registered field list.
func IsKnownEvent(event string) bool {
	_, ok := requiredFields[event]
	return ok
}

// IsPublic reports whether the event skips the identity binding check
// (no identity exists yet when creating or joining a session).
func IsPublic(event string) bool {
	_, ok := publicEvents[event]
	return ok
}

// Clean validates and normalizes the raw payload of the given event.
// It returns the cleaned payload, or a rejection if any required field is
// absent or any present field fails its cleaner.
func Clean(event string, raw json.RawMessage) (*Payload, *errs.CustomError) {
	required, ok := requiredFields[event]
	if !ok {
		return nil, errs.NewError(errs.ErrUnknownEvent)
	}

	var rp rawPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rp); err != nil {
			return nil, errs.NewError(errs.ErrInvalidParams)
		}
	}

	for _, field := range required {
		if !rp.has(field) {
			return nil, errs.NewError(errs.ErrMissingField, field)
		}
	}

	out := &Payload{}
	for _, field := range cleanOrder {
		if !rp.has(field) {
			continue
		}
		if cerr := fieldCleaners[field](&rp, out); cerr != nil {
			return nil, cerr
		}
	}

	return out, nil
}

// has reports whether the named field is present in the raw payload.
func (rp *rawPayload) has(field string) bool {
	switch field {
	case "sessionID":
		return rp.SessionID != nil
	case "existingUUID":
		return rp.ExistingUUID != nil
	case "identityToken":
		return rp.IdentityToken != nil
	case "profile":
		return rp.Profile != nil
	case "msgID":
		return rp.MsgID != nil
	case "roomID":
		return rp.RoomID != nil
	case "context":
		return rp.Context != nil
	case "newText":
		return rp.NewText != nil
	case "userUUIDToRemove":
		return rp.UserUUIDToRemove != nil
	case "newHostUUID":
		return rp.NewHostUUID != nil
	}
	return false
}

// cleanOrder fixes the order field cleaners run in, so rejections are deterministic.
var cleanOrder = []string{
	"sessionID", "existingUUID", "identityToken", "profile", "msgID",
	"roomID", "context", "newText", "userUUIDToRemove", "newHostUUID",
}

// fieldCleaners maps each field name to its cleaner. A cleaner either writes the
// cleaned value into the output payload or returns a rejection.
var fieldCleaners = map[string]func(rp *rawPayload, out *Payload) *errs.CustomError{
	"sessionID": func(rp *rawPayload, out *Payload) *errs.CustomError {
		code, cerr := CleanSessionCode(*rp.SessionID)
		if cerr != nil {
			return cerr
		}
		out.SessionID = code
		return nil
	},

	// existingUUID is advisory: a malformed value is treated as absent so the
	// registry mints a fresh identity instead of failing the whole join.
	"existingUUID": func(rp *rawPayload, out *Payload) *errs.CustomError {
		out.ExistingUUID = randx.CanonicalUUID(strings.TrimSpace(*rp.ExistingUUID))
		return nil
	},

	"identityToken": func(rp *rawPayload, out *Payload) *errs.CustomError {
		out.IdentityToken = strings.TrimSpace(*rp.IdentityToken)
		return nil
	},

	"profile": func(rp *rawPayload, out *Payload) *errs.CustomError {
		if rp.Profile.Name == nil || rp.Profile.Color == nil {
			return errs.NewError(errs.ErrMissingField, "profile")
		}

		name, cerr := CleanName(*rp.Profile.Name)
		if cerr != nil {
			return cerr
		}

		color, cerr := CleanColor(*rp.Profile.Color)
		if cerr != nil {
			return cerr
		}

		out.Profile = Profile{Name: name, Color: color}
		return nil
	},

	"msgID": func(rp *rawPayload, out *Payload) *errs.CustomError {
		id := strings.TrimSpace(*rp.MsgID)
		if id == "" || len(id) > MaxMsgIDLength {
			return errs.NewError(errs.ErrInvalidParams)
		}
		out.MsgID = id
		return nil
	},

	"roomID": func(rp *rawPayload, out *Payload) *errs.CustomError {
		room, cerr := CleanRoomID(*rp.RoomID)
		if cerr != nil {
			return cerr
		}
		out.RoomID = room
		return nil
	},

	"context": func(rp *rawPayload, out *Payload) *errs.CustomError {
		if rp.Context.Text == nil {
			return errs.NewError(errs.ErrMissingField, "context.text")
		}
		text, cerr := CleanText(*rp.Context.Text)
		if cerr != nil {
			return cerr
		}
		out.Text = text
		return nil
	},

	"newText": func(rp *rawPayload, out *Payload) *errs.CustomError {
		text, cerr := CleanText(*rp.NewText)
		if cerr != nil {
			return cerr
		}
		out.NewText = text
		return nil
	},

	"userUUIDToRemove": func(rp *rawPayload, out *Payload) *errs.CustomError {
		id := randx.CanonicalUUID(strings.TrimSpace(*rp.UserUUIDToRemove))
		if id == "" {
			return errs.NewError(errs.ErrInvalidParams)
		}
		out.UserUUIDToRemove = id
		return nil
	},

	"newHostUUID": func(rp *rawPayload, out *Payload) *errs.CustomError {
		id := randx.CanonicalUUID(strings.TrimSpace(*rp.NewHostUUID))
		if id == "" {
			return errs.NewError(errs.ErrInvalidParams)
		}
		out.NewHostUUID = id
		return nil
	},
}

// CleanSessionCode normalizes a session code to 6 uppercase alphanumeric
// characters, rejecting anything else.
func CleanSessionCode(raw string) (string, *errs.CustomError) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if !randx.IsValidSessionCode(code) {
		return "", errs.NewError(errs.ErrInvalidParams)
	}
	return code, nil
}

// CleanName strips HTML tags, trims whitespace, and bounds the length of a
// display name.
func CleanName(raw string) (string, *errs.CustomError) {
	name := htmlTagPattern.ReplaceAllString(raw, "")
	name = strings.TrimSpace(name)

	if name == "" {
		return "", errs.NewError(errs.ErrInvalidParams)
	}

	runes := []rune(name)
	if len(runes) > MaxNameRunes {
		name = string(runes[:MaxNameRunes])
	}

	return name, nil
}

// CleanColor validates a "#rrggbb" hex color and normalizes it to lowercase.
func CleanColor(raw string) (string, *errs.CustomError) {
	color := strings.TrimSpace(raw)
	if !hexColorPattern.MatchString(color) {
		return "", errs.NewError(errs.ErrInvalidParams)
	}
	return strings.ToLower(color), nil
}

// CleanText trims message text, rejects empty results, and bounds its size.
func CleanText(raw string) (string, *errs.CustomError) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", errs.NewError(errs.ErrInvalidParams)
	}
	if len(text) > MaxTextBytes {
		return "", errs.NewError(errs.ErrMessageTooLong)
	}
	return text, nil
}

// CleanRoomID validates a delivery target: either a session code, or a composite
// private room identifier of two uuids joined by DMSeparator. Private room ids
// are normalized so the lexicographically smaller uuid comes first.
func CleanRoomID(raw string) (string, *errs.CustomError) {
	room := strings.TrimSpace(raw)

	if strings.Contains(room, DMSeparator) {
		first, second, ok := SplitDMRoom(room)
		if !ok {
			return "", errs.NewError(errs.ErrInvalidParams)
		}
		return DMRoomID(first, second), nil
	}

	return CleanSessionCode(room)
}

// SplitDMRoom splits a composite private room identifier into its two
// participant uuids. It reports false if the identifier is not exactly two
// well-formed uuids.
func SplitDMRoom(roomID string) (string, string, bool) {
	parts := strings.Split(roomID, DMSeparator)
	if len(parts) != 2 {
		return "", "", false
	}

	first := randx.CanonicalUUID(parts[0])
	second := randx.CanonicalUUID(parts[1])
	if first == "" || second == "" || first == second {
		return "", "", false
	}

	return first, second, true
}

// DMRoomID builds the canonical private room identifier for two participants:
// their uuids sorted lexicographically and joined with DMSeparator.
func DMRoomID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + DMSeparator + b
}

// IsDMRoom reports whether the given room identifier names a private room.
func IsDMRoom(roomID string) bool {
	return strings.Contains(roomID, DMSeparator)
}
