// Package natsadapter bridges the Adapter Port onto NATS core
// pub/sub (not JetStream): a bonus transport that fans hub messages
// out over a shared NATS subject space, carrying the same best-effort,
// non-durable delivery semantics as every other adapter in this repo.
package natsadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/OmarEhab007/notification-hub/internal/adapter"
	"github.com/OmarEhab007/notification-hub/internal/message"
	"github.com/OmarEhab007/notification-hub/internal/topic"
)

// subjectPrefix namespaces every hub topic under a single wildcard
// subject so one subscription observes every channel.
const subjectPrefix = "hub."

// subjectFor maps a hub topic name onto its NATS subject.
func subjectFor(t topic.Name) string {
	return subjectPrefix + t.String()
}

// topicFromSubject recovers the hub topic name from a received
// subject, stripping the shared prefix.
func topicFromSubject(subject string) (topic.Name, error) {
	return topic.New(strings.TrimPrefix(subject, subjectPrefix))
}

// Adapter bridges the hub onto a NATS core pub/sub connection.
// Deliberately core pub/sub, not JetStream: JetStream's persistence
// and redelivery would grant this adapter durability none of the
// other transports have, and the hub has no durable-log Non-goal
// exception for just one adapter.
type Adapter struct {
	conn *nats.Conn
	log  *slog.Logger

	mu      sync.Mutex
	learned map[topic.Name]struct{}
}

var _ adapter.Adapter = (*Adapter)(nil)

// Connect dials the given NATS URL and returns a ready Adapter.
func Connect(url string, log *slog.Logger) (*Adapter, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("adapter", "nats", "url", url)

	opts := []nats.Option{
		nats.Name("notification-hub"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, adapter.WrapIoFailure(fmt.Errorf("nats connect: %w", err))
	}

	return &Adapter{
		conn:    conn,
		log:     log,
		learned: make(map[topic.Name]struct{}),
	}, nil
}

// Send publishes m on its dedicated NATS subject.
func (a *Adapter) Send(ctx context.Context, m message.Message) error {
	data, err := m.Encode()
	if err != nil {
		return adapter.WrapInvalidEnvelope(err)
	}
	if err := a.conn.Publish(subjectFor(m.Topic), data); err != nil {
		return adapter.WrapIoFailure(err)
	}
	return nil
}

// Start subscribes to the wildcard subject "hub.>" so the adapter
// observes every topic published on the bus without per-topic
// subscription management, forwarding each decoded Message to
// ingress and recording its subject's topic as learned.
func (a *Adapter) Start(ctx context.Context, ingress chan<- message.Message) error {
	_, err := a.conn.Subscribe(subjectPrefix+">", func(msg *nats.Msg) {
		t, err := topicFromSubject(msg.Subject)
		if err != nil {
			a.log.Warn("discarding message on unparseable subject", "subject", msg.Subject, "error", err)
			return
		}

		m, err := message.Decode(msg.Data)
		if err != nil {
			a.log.Warn("discarding unparseable message payload", "subject", msg.Subject, "error", err)
			return
		}

		a.mu.Lock()
		a.learned[t] = struct{}{}
		a.mu.Unlock()

		ingress <- m
	})
	if err != nil {
		return adapter.WrapIoFailure(err)
	}
	return nil
}

// ListChannels reports every topic this adapter has observed a
// message for.
func (a *Adapter) ListChannels(ctx context.Context) ([]topic.Name, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]topic.Name, 0, len(a.learned))
	for t := range a.learned {
		out = append(out, t)
	}
	return out, nil
}

// Subscribe is a no-op: the adapter's single wildcard subscription
// already observes every topic, so there is no per-topic upstream
// subscription to issue.
func (a *Adapter) Subscribe(ctx context.Context, t topic.Name) error {
	return nil
}

// Unsubscribe is a no-op for the same reason as Subscribe.
func (a *Adapter) Unsubscribe(ctx context.Context, t topic.Name) error {
	return nil
}

// Close drains and closes the underlying NATS connection.
func (a *Adapter) Close() error {
	return a.conn.Drain()
}
