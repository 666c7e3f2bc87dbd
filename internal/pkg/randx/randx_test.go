package randx

import (
	"strings"
	"testing"
)

func TestSessionCode(t *testing.T) {
	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		code, err := SessionCode()
		if err != nil {
			t.Fatalf("SessionCode failed: %v", err)
		}
		if len(code) != SessionCodeLength {
			t.Fatalf("Code %q has length %d, expected %d", code, len(code), SessionCodeLength)
		}
		for _, char := range code {
			if !strings.ContainsRune(CodeChars, char) {
				t.Fatalf("Code %q contains invalid character %q", code, char)
			}
		}
		if !IsValidSessionCode(code) {
			t.Fatalf("Generated code %q fails its own validator", code)
		}
		seen[code] = struct{}{}
	}

	// 36^6 codes; 100 draws colliding down to a handful would mean a broken generator.
	if len(seen) < 95 {
		t.Errorf("Only %d distinct codes out of 100 draws", len(seen))
	}
}

func TestIsValidSessionCode(t *testing.T) {
	valid := []string{"ABC123", "000000", "ZZZZZZ"}
	invalid := []string{"", "ABC12", "ABC1234", "abc123", "ABC-12", "ABC 12"}

	for _, code := range valid {
		if !IsValidSessionCode(code) {
			t.Errorf("IsValidSessionCode(%q) = false, expected true", code)
		}
	}
	for _, code := range invalid {
		if IsValidSessionCode(code) {
			t.Errorf("IsValidSessionCode(%q) = true, expected false", code)
		}
	}
}

func TestUUIDHelpers(t *testing.T) {
	id := NewUUID()
	if !IsWellFormedUUID(id) {
		t.Errorf("NewUUID produced malformed uuid %q", id)
	}

	if CanonicalUUID(strings.ToUpper(id)) != id {
		t.Error("CanonicalUUID does not lowercase")
	}
	if CanonicalUUID("not-a-uuid") != "" {
		t.Error("CanonicalUUID accepted garbage")
	}
	if IsWellFormedUUID("") {
		t.Error("Empty string accepted as uuid")
	}
}

func TestPlaceholderName(t *testing.T) {
	name, err := PlaceholderName()
	if err != nil {
		t.Fatalf("PlaceholderName failed: %v", err)
	}
	if !strings.HasPrefix(name, "Guest_") {
		t.Errorf("Placeholder %q lacks Guest_ prefix", name)
	}
	if len(name) != len("Guest_")+4 {
		t.Errorf("Placeholder %q has unexpected length", name)
	}
}
