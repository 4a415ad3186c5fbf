// Package frame implements the serial-link wire grammar
// `##TOPIC##PAYLOAD\n` (spec §4.3): a one-shot encoder and a
// streaming, partial-read-tolerant decoder.
package frame

import (
	"strings"

	"github.com/OmarEhab007/notification-hub/internal/message"
	"github.com/OmarEhab007/notification-hub/internal/topic"
)

// Encode renders a Message as a raw `##topic##payload\n` frame.
func Encode(m message.Message) []byte {
	var b strings.Builder
	b.WriteString("##")
	b.WriteString(m.Topic.String())
	b.WriteString("##")
	b.WriteString(m.Payload.String())
	b.WriteByte('\n')
	return []byte(b.String())
}

// Event is one outcome of feeding bytes to a Decoder: exactly one of
// Message, Warning, or Err is set for a given line.
type Event struct {
	// Message is set when a line decoded successfully.
	Message *message.Message
	// Warning is set for a line that didn't start with "##" — not an
	// error, just discarded (spec §4.3).
	Warning string
	// Err is set when a "##"-prefixed line failed to parse as a valid
	// topic/payload pair. The decoder stays in sync regardless — the
	// line's LF has already been consumed.
	Err error
}

// Decoder recovers frames from an append-only byte stream fed by
// successive, possibly-partial transport reads.
type Decoder struct {
	buf []byte
}

// NewDecoder returns a Decoder ready to receive bytes via Feed.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends data to the internal buffer and extracts as many
// complete lines (terminated by '\n') as are present, returning one
// Event per line. Bytes after the last '\n' remain buffered for the
// next call, tolerating reads that split a frame at any boundary.
func (d *Decoder) Feed(data []byte) []Event {
	d.buf = append(d.buf, data...)

	var events []Event
	for {
		idx := indexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		line := d.buf[:idx+1]
		d.buf = d.buf[idx+1:]

		if ev, ok := decodeLine(line); ok {
			events = append(events, ev)
		}
	}
	return events
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// decodeLine parses a single "##...\n"-or-not line. ok is always true:
// every line, including an empty one, yields exactly one Event.
func decodeLine(line []byte) (Event, bool) {
	s := string(line)
	if !strings.HasPrefix(s, "##") {
		trimmed := strings.TrimRight(s, "\n\r")
		return Event{Warning: "line does not start with '##': " + trimmed}, true
	}

	rest := s[2:]
	sep := strings.Index(rest, "##")
	if sep < 0 {
		return Event{Err: errMalformed(s)}, true
	}

	topicStr := rest[:sep]
	payloadStr := strings.TrimRight(rest[sep+2:], " \t\n\r")

	t, err := topic.New(topicStr)
	if err != nil {
		return Event{Err: err}, true
	}

	m := message.New(t, topic.NewPayload(payloadStr))
	return Event{Message: &m}, true
}

func errMalformed(line string) error {
	return &malformedFrameError{line: line}
}

type malformedFrameError struct {
	line string
}

func (e *malformedFrameError) Error() string {
	return "frame: malformed \"##\"-prefixed line: " + e.line
}
