// Package adapter defines the Adapter Port: the five-operation
// interface the Hub Manager drives every transport (serial, pipe, WS
// client, NATS bridge) through (spec §4.1).
package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/OmarEhab007/notification-hub/internal/message"
	"github.com/OmarEhab007/notification-hub/internal/topic"
)

// Sentinel errors an Adapter's operations report. TimedOut and
// UnexpectedEof reuse the stdlib's own sentinels for the same
// conditions rather than invent new ones, mirroring the teacher's
// reuse of context.DeadlineExceeded in its own runner code.
var (
	ErrInvalidEnvelope = errors.New("adapter: invalid envelope")
	ErrIoFailure       = errors.New("adapter: io failure")
	ErrNoSuchAdapter   = errors.New("adapter: no such adapter")

	// ErrTimedOut is an alias kept for readability at call sites;
	// callers should match it with errors.Is against
	// context.DeadlineExceeded directly too.
	ErrTimedOut      = context.DeadlineExceeded
	ErrUnexpectedEOF = io.ErrUnexpectedEOF
)

// WrapIoFailure wraps an underlying transport error as ErrIoFailure,
// preserving it for errors.Is/As unwrapping.
func WrapIoFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrIoFailure, err)
}

// WrapInvalidEnvelope wraps a decode/validation error as
// ErrInvalidEnvelope.
func WrapInvalidEnvelope(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
}

// Adapter is a single upstream transport — a serial line, a named
// pipe, an outbound WebSocket connection, or a NATS subject — attached
// to the Hub Manager at one fixed index.
//
// Start must not block past spawning its background goroutine(s); it
// is called once, after which the adapter pushes every Message it
// observes into the ingress channel for as long as it stays connected.
type Adapter interface {
	// Send transmits a Message out through this adapter.
	Send(ctx context.Context, m message.Message) error

	// Start begins the adapter's background read loop, forwarding
	// every Message it decodes to ingress. It returns once the read
	// loop goroutine has been spawned, not once the loop exits.
	Start(ctx context.Context, ingress chan<- message.Message) error

	// ListChannels reports the topics this adapter currently believes
	// are active on its side of the transport.
	ListChannels(ctx context.Context) ([]topic.Name, error)

	// Subscribe tells the upstream transport to start forwarding a
	// topic. Called by the Hub Manager only on a channel's first
	// local subscriber (0→1 transition).
	Subscribe(ctx context.Context, t topic.Name) error

	// Unsubscribe tells the upstream transport to stop forwarding a
	// topic. Called by the Hub Manager only when a channel's last
	// local subscriber leaves (1→0 transition).
	Unsubscribe(ctx context.Context, t topic.Name) error
}
