/*
Package randx provides functions for generating cryptographically secure random identifiers.

It generates fixed-length session codes (uppercase alphanumeric, matching the
normalization applied by the validation gate), participant uuids, and placeholder
display names for users who have not submitted a profile yet.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// CodeChars defines the character set for session codes (0-9, A-Z).
	// Codes are compared after uppercase normalization, so the generator never
	// emits lowercase characters.
	CodeChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// SessionCodeLength is the fixed length of a session code.
	SessionCodeLength = 6

	// placeholderNameLength is the random suffix length for placeholder display names.
	placeholderNameLength = 4
)

// codeCharsLen is the size of the session code character set.
var codeCharsLen = big.NewInt(int64(len(CodeChars)))

// SessionCode generates a session code of SessionCodeLength uppercase alphanumeric
// characters using crypto/rand.
func SessionCode() (string, error) {
	result := make([]byte, SessionCodeLength)

	for i := 0; i < SessionCodeLength; i++ {
		num, err := rand.Int(rand.Reader, codeCharsLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for session code: %v", err)
		}

		result[i] = CodeChars[num.Int64()]
	}

	return string(result), nil
}

// IsValidSessionCode checks if the given string is a well-formed session code:
// exactly SessionCodeLength characters, all from CodeChars.
func IsValidSessionCode(code string) bool {
	if len(code) != SessionCodeLength {
		return false
	}

	for _, char := range code {
		if !strings.ContainsRune(CodeChars, char) {
			return false
		}
	}

	return true
}

// NewUUID mints a fresh random identity uuid.
func NewUUID() string {
	return uuid.New().String()
}

// IsWellFormedUUID reports whether the given string parses as a uuid.
func IsWellFormedUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// CanonicalUUID returns the canonical lowercase form of a uuid, or an empty
// string if it does not parse.
func CanonicalUUID(id string) string {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return ""
	}
	return parsed.String()
}

// PlaceholderName generates a "Guest_XXXX" display name used until the user
// submits a real profile.
func PlaceholderName() (string, error) {
	result := make([]byte, placeholderNameLength)

	for i := 0; i < placeholderNameLength; i++ {
		num, err := rand.Int(rand.Reader, codeCharsLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for placeholder name: %v", err)
		}
		result[i] = CodeChars[num.Int64()]
	}

	return "Guest_" + string(result), nil
}
