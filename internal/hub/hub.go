// Package hub implements the Hub Manager: the central many-to-many
// router that tracks topics, per-topic subscriber sets, and the
// lifecycle coupling between local subscriptions and adapter-level
// subscribe/unsubscribe calls, while fanning a single inbound stream
// out to many per-topic broadcasts under concurrent access (spec §4.6).
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/OmarEhab007/notification-hub/internal/adapter"
	"github.com/OmarEhab007/notification-hub/internal/broadcast"
	"github.com/OmarEhab007/notification-hub/internal/message"
	"github.com/OmarEhab007/notification-hub/internal/topic"
)

// ingressCapacity is the size of the shared inbound channel every
// attached adapter feeds into (spec §4.6 "a process-wide Broadcast of
// capacity 100"). With exactly one consumer — the dispatcher goroutine
// started in Start — a plain buffered channel is the degenerate,
// single-subscriber case of the same broadcast semantics used
// per-topic below, so that's what this is built from rather than
// wrapping a second unnecessary broadcast.Broadcast around it.
const ingressCapacity = broadcast.DefaultCapacity

// Manager is the Hub Manager. Zero value is not usable; construct
// with New.
type Manager struct {
	log *slog.Logger

	mu          sync.Mutex
	channels    map[topic.Name]*broadcast.Broadcast[message.Message]
	subscribers map[topic.Name]map[message.SubscriberID]*broadcast.Receiver[message.Message]

	adapters []adapter.Adapter
	ingress  chan message.Message
	started  bool
}

// New returns a Manager with no adapters attached.
func New(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		log:         log.With("component", "hub"),
		channels:    make(map[topic.Name]*broadcast.Broadcast[message.Message]),
		subscribers: make(map[topic.Name]map[message.SubscriberID]*broadcast.Receiver[message.Message]),
		ingress:     make(chan message.Message, ingressCapacity),
	}
}

// Add attaches an adapter. Order of attachment is observable:
// SendToChannel addresses adapters by zero-based index (spec §4.1 "AdapterRegistry").
// Must be called before Start.
func (m *Manager) Add(a adapter.Adapter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adapters = append(m.adapters, a)
}

// Start begins every attached adapter's read loop, then spawns the
// dispatcher goroutine that drains the shared ingress and forwards
// each message to its topic's broadcast, if any local subscribers
// exist. Silently drops messages for topics with no subscribers.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	adapters := append([]adapter.Adapter(nil), m.adapters...)
	m.mu.Unlock()

	for i, a := range adapters {
		if err := a.Start(ctx, m.ingress); err != nil {
			return fmt.Errorf("hub: start adapter %d: %w", i, err)
		}
	}

	go m.dispatch(ctx)
	return nil
}

func (m *Manager) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-m.ingress:
			if !ok {
				return
			}
			m.mu.Lock()
			b, exists := m.channels[msg.Topic]
			m.mu.Unlock()
			if !exists {
				continue
			}
			b.Publish(msg)
		}
	}
}

// RegisterToChannel subscribes a new local subscriber to t, creating
// a fresh broadcast for the topic if it currently has none. If the
// subscriber set transitions from empty to non-empty, every attached
// adapter's Subscribe is invoked exactly once; any resulting errors
// are joined and returned, but the local subscription itself is never
// rolled back (spec §4.6 "accepting the documented no-rollback
// semantics").
func (m *Manager) RegisterToChannel(ctx context.Context, t topic.Name) (message.SubscriberID, *broadcast.Receiver[message.Message], error) {
	m.mu.Lock()
	b, ok := m.channels[t]
	if !ok {
		b = broadcast.New[message.Message](broadcast.DefaultCapacity)
		m.channels[t] = b
	}
	recv := b.Subscribe()

	id := message.NewSubscriberID()
	subs, ok := m.subscribers[t]
	if !ok {
		subs = make(map[message.SubscriberID]*broadcast.Receiver[message.Message])
		m.subscribers[t] = subs
	}
	subs[id] = recv
	transitionedToFirst := len(subs) == 1

	adapters := append([]adapter.Adapter(nil), m.adapters...)
	m.mu.Unlock()

	if transitionedToFirst {
		if err := m.subscribeAllAdapters(ctx, adapters, t); err != nil {
			return id, recv, err
		}
	}
	return id, recv, nil
}

// UnregisterFromChannel removes a subscriber from t. If the
// subscriber set transitions from non-empty to empty, every attached
// adapter's Unsubscribe is invoked exactly once.
func (m *Manager) UnregisterFromChannel(ctx context.Context, t topic.Name, id message.SubscriberID) error {
	m.mu.Lock()
	b, bOK := m.channels[t]
	subs, sOK := m.subscribers[t]
	var transitionedToEmpty bool
	if bOK && sOK {
		if recv, ok := subs[id]; ok {
			b.Unsubscribe(recv)
			delete(subs, id)
		}
		transitionedToEmpty = len(subs) == 0
		if transitionedToEmpty {
			// A TopicEntry exists iff it has subscribers; once the last
			// one leaves, drop it so a later RegisterToChannel starts a
			// fresh broadcast instead of reusing the drained one.
			b.Close()
			delete(m.channels, t)
			delete(m.subscribers, t)
		}
	}
	adapters := append([]adapter.Adapter(nil), m.adapters...)
	m.mu.Unlock()

	if transitionedToEmpty {
		return m.unsubscribeAllAdapters(ctx, adapters, t)
	}
	return nil
}

func (m *Manager) subscribeAllAdapters(ctx context.Context, adapters []adapter.Adapter, t topic.Name) error {
	var errs []error
	for i, a := range adapters {
		if err := a.Subscribe(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("adapter %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) unsubscribeAllAdapters(ctx context.Context, adapters []adapter.Adapter, t topic.Name) error {
	var errs []error
	for i, a := range adapters {
		if err := a.Unsubscribe(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("adapter %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// ListChannels returns the deduplicated union of every attached
// adapter's ListChannels.
func (m *Manager) ListChannels(ctx context.Context) ([]topic.Name, error) {
	m.mu.Lock()
	adapters := append([]adapter.Adapter(nil), m.adapters...)
	m.mu.Unlock()

	seen := make(map[topic.Name]struct{})
	var errs []error
	for i, a := range adapters {
		names, err := a.ListChannels(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("adapter %d: %w", i, err))
			continue
		}
		for _, n := range names {
			seen[n] = struct{}{}
		}
	}

	out := make([]topic.Name, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	return out, errors.Join(errs...)
}

// SendToChannel dispatches m to the adapter at adapterIndex.
// ErrNoSuchAdapter is returned for an out-of-range index — the spec's
// corrected behavior, replacing the source's silent ignore (spec §4.6
// "Publish to adapter").
func (m *Manager) SendToChannel(ctx context.Context, msg message.Message, adapterIndex int) error {
	m.mu.Lock()
	if adapterIndex < 0 || adapterIndex >= len(m.adapters) {
		m.mu.Unlock()
		return fmt.Errorf("hub: adapter index %d: %w", adapterIndex, adapter.ErrNoSuchAdapter)
	}
	a := m.adapters[adapterIndex]
	m.mu.Unlock()

	return a.Send(ctx, msg)
}

// Publish implements wsserver.Ingress: it feeds a message directly
// into the same ingress path an adapter would use, so messages
// published by a WebSocket server peer fan out through the same
// per-topic broadcasts as anything arriving over serial, pipe, or
// NATS.
func (m *Manager) Publish(msg message.Message) {
	select {
	case m.ingress <- msg:
	default:
		m.log.Warn("ingress full, dropping message", "topic", msg.Topic.String())
	}
}
