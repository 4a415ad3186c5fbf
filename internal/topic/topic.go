// Package topic implements the hub's validated identifier types: topic
// names and opaque payload strings.
package topic

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidName is returned when a candidate topic name fails
// construction (spec §4.1).
var ErrInvalidName = errors.New("invalid topic name")

const trimCutset = " \t\n\r"

// Name is a normalized, validated topic identifier. The zero value is
// not a valid Name; construct one with New.
type Name struct {
	s string
}

// New trims leading/trailing whitespace, newline, and carriage return
// from s, then requires the remainder to be non-empty and composed
// only of ASCII alphanumerics and '_'. The stored form is lowercased.
func New(s string) (Name, error) {
	trimmed := strings.Trim(s, trimCutset)
	if trimmed == "" {
		return Name{}, fmt.Errorf("%w: empty after trimming", ErrInvalidName)
	}
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return Name{}, fmt.Errorf("%w: %q contains disallowed character %q", ErrInvalidName, trimmed, r)
		}
	}
	return Name{s: strings.ToLower(trimmed)}, nil
}

// MustNew is like New but panics on error. Intended for tests and
// constant-ish topic names known to be valid at compile time.
func MustNew(s string) Name {
	n, err := New(s)
	if err != nil {
		panic(err)
	}
	return n
}

// String returns the normalized topic name.
func (n Name) String() string {
	return n.s
}

// IsZero reports whether n is the unconstructed zero value.
func (n Name) IsZero() bool {
	return n.s == ""
}

// MarshalJSON encodes the topic name as a JSON string.
func (n Name) MarshalJSON() ([]byte, error) {
	return []byte(`"` + n.s + `"`), nil
}

// UnmarshalJSON decodes and validates a JSON string into a Name.
func (n *Name) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := New(s)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
