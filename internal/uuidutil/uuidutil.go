// Package uuidutil normalizes UUID lookup keys.
package uuidutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidUUID is returned for values that do not parse as a UUID.
var ErrInvalidUUID = errors.New("invalid UUID value")

// ParseString parses common UUID string formats (hyphenated, braced, urn:uuid:
// and bare hex) and returns the canonical lower-case form.
func ParseString(raw string) (uuid.UUID, string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("%w: %q", ErrInvalidUUID, raw)
	}
	return parsed, strings.ToLower(parsed.String()), nil
}

// KeyFormat describes how a lookup key relates to the canonical UUID form.
type KeyFormat string

const (
	FormatCanonical    KeyFormat = "canonical"
	FormatNonCanonical KeyFormat = "noncanonical"
	FormatOpaque       KeyFormat = "opaque"
)

// FormatOf classifies raw without altering it. Keys that parse as a UUID but
// differ from the lower-case hyphenated form are FormatNonCanonical.
func FormatOf(raw string) KeyFormat {
	_, canonical, err := ParseString(raw)
	switch {
	case err != nil:
		return FormatOpaque
	case canonical == raw:
		return FormatCanonical
	default:
		return FormatNonCanonical
	}
}
