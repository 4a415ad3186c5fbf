// Package message defines the hub's wire-level Message record and the
// random subscriber identifiers minted at subscription time.
package message

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/OmarEhab007/notification-hub/internal/topic"
)

// SubscriberID is a 128-bit random identifier minted at each local
// subscription (spec §3 "SubscriberId").
type SubscriberID uuid.UUID

// NewSubscriberID mints a fresh random subscriber identifier.
func NewSubscriberID() SubscriberID {
	return SubscriberID(uuid.New())
}

// String renders the canonical UUID form.
func (s SubscriberID) String() string {
	return uuid.UUID(s).String()
}

// Message is the hub's unit of transport: a topic, the wallclock time
// it was stamped, and an opaque payload (spec §3 "Message").
type Message struct {
	Topic     topic.Name    `json:"topic"`
	Timestamp float64       `json:"timestamp"`
	Payload   topic.Payload `json:"payload"`
}

// New stamps a Message with the current wallclock time expressed as
// seconds since the Unix epoch, matching the float64 timestamp
// contract used by every adapter (spec §3, §4.2).
func New(t topic.Name, p topic.Payload) Message {
	return Message{
		Topic:     t,
		Timestamp: nowSeconds(),
		Payload:   p,
	}
}

// NewFromStrings validates topic and payload text and stamps a new
// Message, mirroring the teacher-language `try_from_str` constructor.
func NewFromStrings(topicStr, payloadStr string) (Message, error) {
	t, err := topic.New(topicStr)
	if err != nil {
		return Message{}, err
	}
	return New(t, topic.NewPayload(payloadStr)), nil
}

// Equal compares two messages by (topic, payload) only — per spec
// §4.2, timestamps are ignored for equality in tests and in any
// deduplication logic built on top of Message.
func (m Message) Equal(other Message) bool {
	return m.Topic == other.Topic && m.Payload == other.Payload
}

// Encode serializes the message as JSON bytes.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses JSON bytes into a Message.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// DecodeString parses a JSON string into a Message.
func DecodeString(s string) (Message, error) {
	return Decode([]byte(s))
}

// nowSeconds is the process's wallclock + monotonic time source,
// expressed in seconds as a float64 (spec §6, "a wall-clock +
// monotonic time source returning seconds as f64").
var nowSeconds = func() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
