// Package wsenvelope implements the externally-tagged JSON wire
// protocol spoken over the WebSocket pub/sub server and client
// adapter (spec §4.4, §6).
package wsenvelope

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OmarEhab007/notification-hub/internal/message"
	"github.com/OmarEhab007/notification-hub/internal/topic"
)

// ErrInvalidEnvelope is returned for malformed JSON or a JSON object
// that isn't one of the five recognized variants.
var ErrInvalidEnvelope = errors.New("wsenvelope: invalid envelope")

// Kind identifies which of the five WS envelope variants a decoded
// Envelope holds.
type Kind int

const (
	KindSubscribe Kind = iota
	KindUnsubscribe
	KindListChannelsReq
	KindListChannelsResponse
	KindData
)

// Envelope is the decoded form of any of the five wire messages.
// Fields are populated according to Kind:
//
//	Subscribe / Unsubscribe:      Topic
//	ListChannelsReq:              (no fields)
//	ListChannelsResponse:         Channels
//	Data:                         Topic, Payload
type Envelope struct {
	Kind     Kind
	Topic    topic.Name
	Payload  topic.Payload
	Channels []string
}

// wire mirrors the externally-tagged shapes byte-for-byte:
//
//	{"Subscribe":"topic"}
//	{"Unsubscribe":"topic"}
//	"ListChannelsReq"
//	{"ListChannelsResponse":["a","b"]}
//	{"Data":["topic","payload"]}
type wire struct {
	Subscribe            *string    `json:"Subscribe,omitempty"`
	Unsubscribe          *string    `json:"Unsubscribe,omitempty"`
	ListChannelsResponse *[]string  `json:"ListChannelsResponse,omitempty"`
	Data                 *[2]string `json:"Data,omitempty"`
}

const listChannelsReqLiteral = `"ListChannelsReq"`

// Encode renders an Envelope in the externally-tagged wire shape.
func Encode(e Envelope) ([]byte, error) {
	switch e.Kind {
	case KindSubscribe:
		s := e.Topic.String()
		return json.Marshal(wire{Subscribe: &s})
	case KindUnsubscribe:
		s := e.Topic.String()
		return json.Marshal(wire{Unsubscribe: &s})
	case KindListChannelsReq:
		return []byte(listChannelsReqLiteral), nil
	case KindListChannelsResponse:
		chans := e.Channels
		if chans == nil {
			chans = []string{}
		}
		return json.Marshal(wire{ListChannelsResponse: &chans})
	case KindData:
		pair := [2]string{e.Topic.String(), e.Payload.String()}
		return json.Marshal(wire{Data: &pair})
	default:
		return nil, fmt.Errorf("wsenvelope: unknown kind %d", e.Kind)
	}
}

// Decode parses the externally-tagged wire shape into an Envelope.
func Decode(data []byte) (Envelope, error) {
	if string(data) == listChannelsReqLiteral {
		return Envelope{Kind: KindListChannelsReq}, nil
	}

	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}

	switch {
	case w.Subscribe != nil:
		t, err := topic.New(*w.Subscribe)
		if err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
		}
		return Envelope{Kind: KindSubscribe, Topic: t}, nil

	case w.Unsubscribe != nil:
		t, err := topic.New(*w.Unsubscribe)
		if err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
		}
		return Envelope{Kind: KindUnsubscribe, Topic: t}, nil

	case w.ListChannelsResponse != nil:
		return Envelope{Kind: KindListChannelsResponse, Channels: *w.ListChannelsResponse}, nil

	case w.Data != nil:
		t, err := topic.New(w.Data[0])
		if err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
		}
		return Envelope{Kind: KindData, Topic: t, Payload: topic.NewPayload(w.Data[1])}, nil

	default:
		return Envelope{}, fmt.Errorf("%w: unrecognized variant", ErrInvalidEnvelope)
	}
}

// ToMessage converts a Data envelope into a Message. It panics if e is
// not a Data envelope — callers must check Kind first.
func (e Envelope) ToMessage() message.Message {
	if e.Kind != KindData {
		panic("wsenvelope: ToMessage called on non-Data envelope")
	}
	return message.New(e.Topic, e.Payload)
}

// FromMessage builds a Data envelope carrying m.
func FromMessage(m message.Message) Envelope {
	return Envelope{Kind: KindData, Topic: m.Topic, Payload: m.Payload}
}
