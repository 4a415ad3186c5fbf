// Package wsclient implements the Adapter Port over an outbound
// WebSocket connection to a remote pub/sub peer (spec §4.7).
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/OmarEhab007/notification-hub/internal/adapter"
	"github.com/OmarEhab007/notification-hub/internal/message"
	"github.com/OmarEhab007/notification-hub/internal/topic"
	"github.com/OmarEhab007/notification-hub/internal/wsenvelope"
)

// listChannelsTimeout bounds the round trip of a transient
// ListChannels request/response exchange (spec §4.7 "a 1-second
// timeout").
const listChannelsTimeout = 1 * time.Second

// Adapter dials a remote WebSocket pub/sub server and implements the
// hub's Adapter Port against it. It never reconnects on its own: a
// dropped connection surfaces as an io failure from Send and an
// exited read loop, matching the teacher-language original's
// behavior (spec open question #2).
type Adapter struct {
	url string
	log *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

var _ adapter.Adapter = (*Adapter)(nil)

// New dials url and returns a ready Adapter.
func New(ctx context.Context, url string, log *slog.Logger) (*Adapter, error) {
	if log == nil {
		log = slog.Default()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, adapter.WrapIoFailure(err)
	}
	return &Adapter{
		url:  url,
		log:  log.With("adapter", "wsclient", "url", url),
		conn: conn,
	}, nil
}

// Send publishes m as a Data envelope.
func (a *Adapter) Send(ctx context.Context, m message.Message) error {
	return a.writeEnvelope(wsenvelope.FromMessage(m))
}

func (a *Adapter) writeEnvelope(e wsenvelope.Envelope) error {
	data, err := wsenvelope.Encode(e)
	if err != nil {
		return adapter.WrapInvalidEnvelope(err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return adapter.WrapIoFailure(err)
	}
	return nil
}

// Start spawns a goroutine reading envelopes off the connection: Data
// envelopes are forwarded to ingress, every other variant is logged
// and dropped. The loop exits (without reconnecting) when the
// connection errors or closes.
func (a *Adapter) Start(ctx context.Context, ingress chan<- message.Message) error {
	go a.readLoop(ingress)
	return nil
}

func (a *Adapter) readLoop(ingress chan<- message.Message) {
	for {
		_, data, err := a.conn.ReadMessage()
		if err != nil {
			a.log.Warn("websocket client adapter read loop exiting", "error", err)
			return
		}

		env, err := wsenvelope.Decode(data)
		if err != nil {
			a.log.Warn("discarding unparseable envelope", "error", err)
			continue
		}

		if env.Kind != wsenvelope.KindData {
			a.log.Warn("discarding non-data envelope on inbound stream", "kind", env.Kind)
			continue
		}
		ingress <- env.ToMessage()
	}
}

// isClosedConnErr reports whether err indicates the peer closed the
// stream rather than a genuine transport failure, mirroring the
// ground-truth adapter's split between a closed read stream and an
// I/O error on it.
func isClosedConnErr(err error) bool {
	return errors.Is(err, io.EOF) || websocket.IsUnexpectedCloseError(err)
}

// ListChannels opens a second, transient connection to the same URL,
// sends ListChannelsReq, and waits up to listChannelsTimeout for the
// ListChannelsResponse, per spec §4.7.
func (a *Adapter) ListChannels(ctx context.Context) ([]topic.Name, error) {
	ctx, cancel := context.WithTimeout(ctx, listChannelsTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.url, nil)
	if err != nil {
		return nil, adapter.WrapIoFailure(err)
	}
	defer conn.Close()

	req, err := wsenvelope.Encode(wsenvelope.Envelope{Kind: wsenvelope.KindListChannelsReq})
	if err != nil {
		return nil, adapter.WrapInvalidEnvelope(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
		return nil, adapter.WrapIoFailure(err)
	}

	type result struct {
		names []topic.Name
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if isClosedConnErr(err) {
				resultCh <- result{err: adapter.WrapIoFailure(adapter.ErrUnexpectedEOF)}
				return
			}
			resultCh <- result{err: adapter.WrapIoFailure(err)}
			return
		}
		env, err := wsenvelope.Decode(data)
		if err != nil {
			resultCh <- result{err: adapter.WrapInvalidEnvelope(err)}
			return
		}
		if env.Kind != wsenvelope.KindListChannelsResponse {
			resultCh <- result{err: adapter.WrapInvalidEnvelope(fmt.Errorf("unexpected envelope kind %d", env.Kind))}
			return
		}
		names := make([]topic.Name, 0, len(env.Channels))
		for _, s := range env.Channels {
			t, err := topic.New(s)
			if err != nil {
				continue
			}
			names = append(names, t)
		}
		resultCh <- result{names: names}
	}()

	select {
	case <-ctx.Done():
		return nil, adapter.ErrTimedOut
	case r := <-resultCh:
		return r.names, r.err
	}
}

// Subscribe sends a Subscribe envelope.
func (a *Adapter) Subscribe(ctx context.Context, t topic.Name) error {
	return a.writeEnvelope(wsenvelope.Envelope{Kind: wsenvelope.KindSubscribe, Topic: t})
}

// Unsubscribe sends an Unsubscribe envelope.
func (a *Adapter) Unsubscribe(ctx context.Context, t topic.Name) error {
	return a.writeEnvelope(wsenvelope.Envelope{Kind: wsenvelope.KindUnsubscribe, Topic: t})
}

// Close closes the underlying connection.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn.Close()
}
