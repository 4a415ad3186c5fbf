// Package serialadapter implements the serial/pipe Adapter Port: a
// framed byte-stream transport over a single read/write handle (a
// real serial line) or a pair of named-pipe handles (spec §4.3).
package serialadapter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/OmarEhab007/notification-hub/internal/adapter"
	"github.com/OmarEhab007/notification-hub/internal/frame"
	"github.com/OmarEhab007/notification-hub/internal/message"
	"github.com/OmarEhab007/notification-hub/internal/topic"
)

// readBufSize is the chunk size used for each blocking Read call
// against the underlying handle.
const readBufSize = 4096

// Adapter is a serial or pipe transport speaking the `##TOPIC##PAYLOAD\n`
// line grammar implemented by package frame.
type Adapter struct {
	name   string
	writer io.Writer
	reader io.Reader
	closer io.Closer

	log *slog.Logger

	mu      sync.Mutex
	learned map[topic.Name]struct{}
	writeMu sync.Mutex
}

var _ adapter.Adapter = (*Adapter)(nil)

// Open wraps a single read/write handle — the shape of a real serial
// line, where one file descriptor serves both directions.
func Open(name string, rw io.ReadWriteCloser, log *slog.Logger) *Adapter {
	return newAdapter(name, rw, rw, rw, log)
}

// OpenPipe wraps a pair of separate read and write handles, the shape
// of two named pipes opened independently (one for each direction).
func OpenPipe(name string, writePipe io.WriteCloser, readPipe io.ReadCloser, log *slog.Logger) *Adapter {
	return newAdapter(name, writePipe, readPipe, multiCloser{writePipe, readPipe}, log)
}

func newAdapter(name string, w io.Writer, r io.Reader, c io.Closer, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{
		name:    name,
		writer:  w,
		reader:  r,
		closer:  c,
		log:     log.With("adapter", name),
		learned: make(map[topic.Name]struct{}),
	}
}

type multiCloser struct {
	a, b io.Closer
}

func (m multiCloser) Close() error {
	err1 := m.a.Close()
	err2 := m.b.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Send writes m as a single framed line.
func (a *Adapter) Send(ctx context.Context, m message.Message) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	if _, err := a.writer.Write(frame.Encode(m)); err != nil {
		return adapter.WrapIoFailure(err)
	}
	return nil
}

// Start spawns a goroutine that reads from the underlying handle until
// EOF or error, feeding every decoded frame into ingress and recording
// every topic it observes in the learned-channels set.
func (a *Adapter) Start(ctx context.Context, ingress chan<- message.Message) error {
	go a.readLoop(ctx, ingress)
	return nil
}

func (a *Adapter) readLoop(ctx context.Context, ingress chan<- message.Message) {
	dec := frame.NewDecoder()
	buf := make([]byte, readBufSize)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := a.reader.Read(buf)
		if n > 0 {
			for _, ev := range dec.Feed(buf[:n]) {
				a.handleEvent(ev, ingress)
			}
		}
		if err != nil {
			if err == io.EOF {
				a.log.Info("serial adapter reached end of stream")
			} else {
				a.log.Error("serial adapter read failed", "error", err)
			}
			return
		}
	}
}

func (a *Adapter) handleEvent(ev frame.Event, ingress chan<- message.Message) {
	switch {
	case ev.Message != nil:
		a.mu.Lock()
		a.learned[ev.Message.Topic] = struct{}{}
		a.mu.Unlock()
		ingress <- *ev.Message
	case ev.Warning != "":
		a.log.Warn("discarding non-frame line", "line", ev.Warning)
	case ev.Err != nil:
		a.log.Warn("discarding malformed frame", "error", ev.Err)
	}
}

// ListChannels reports every topic this adapter has observed in an
// inbound frame so far.
func (a *Adapter) ListChannels(ctx context.Context) ([]topic.Name, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]topic.Name, 0, len(a.learned))
	for t := range a.learned {
		out = append(out, t)
	}
	return out, nil
}

// Subscribe is a no-op: a serial/pipe peer receives everything sent
// its way regardless of topic — there is no upstream subscription
// handshake to issue.
func (a *Adapter) Subscribe(ctx context.Context, t topic.Name) error {
	return nil
}

// Unsubscribe is a no-op for the same reason as Subscribe.
func (a *Adapter) Unsubscribe(ctx context.Context, t topic.Name) error {
	return nil
}

// Close releases the underlying handle(s).
func (a *Adapter) Close() error {
	if a.closer == nil {
		return nil
	}
	if err := a.closer.Close(); err != nil {
		return fmt.Errorf("serialadapter: close %s: %w", a.name, err)
	}
	return nil
}
