package topic

// Payload is an opaque string whose construction trims whitespace,
// newline, and carriage return from both ends; internal content
// (commas, JSON fragments, anything) is preserved verbatim (spec §4.1).
type Payload string

// NewPayload trims the boundary whitespace described above. There is
// no content validation: any string, including the empty one, is a
// valid payload once trimmed.
func NewPayload(s string) Payload {
	return Payload(trimBoundary(s))
}

// String returns the payload's content.
func (p Payload) String() string {
	return string(p)
}

func trimBoundary(s string) string {
	start := 0
	for start < len(s) && isBoundaryByte(s[start]) {
		start++
	}
	end := len(s)
	for end > start && isBoundaryByte(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isBoundaryByte(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}
