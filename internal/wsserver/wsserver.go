// Package wsserver implements the WebSocket pub/sub server: clients
// connect, subscribe to topics, publish data, and list active
// channels over the externally-tagged envelope protocol (spec §4.4,
// §5).
package wsserver

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/OmarEhab007/notification-hub/internal/message"
	"github.com/OmarEhab007/notification-hub/internal/queue"
	"github.com/OmarEhab007/notification-hub/internal/topic"
	"github.com/OmarEhab007/notification-hub/internal/wsenvelope"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Ingress is satisfied by anything that accepts a locally-published
// Message for the Hub Manager to fan out upstream — the Hub's own
// broadcast ingress channel in production.
type Ingress interface {
	Publish(m message.Message)
}

// Server is the WebSocket pub/sub server. Each connected peer is
// identified by its remote address (spec §4.4's SocketAddr keying)
// and gets its own unbounded outbound queue.
type Server struct {
	log     *slog.Logger
	ingress Ingress

	mu    sync.Mutex
	peers map[string]*peer
	// channels maps topic -> set of peer addresses subscribed to it.
	// Entries are never pruned once a topic has had a subscriber, even
	// after every peer unsubscribes or disconnects (spec open question
	// #3 resolution: the server never prunes empty topic entries).
	channels map[topic.Name]map[string]struct{}
}

type peer struct {
	addr  string
	conn  *websocket.Conn
	queue *queue.Queue[wsenvelope.Envelope]
}

// New returns a ready Server. ingress receives every Data envelope any
// connected peer publishes.
func New(ingress Ingress, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		log:      log.With("component", "wsserver"),
		ingress:  ingress,
		peers:    make(map[string]*peer),
		channels: make(map[topic.Name]map[string]struct{}),
	}
}

// ServeHTTP upgrades the request to a WebSocket connection and runs
// that peer's read/write pumps until disconnect.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.handleConnection(conn)
}

func (s *Server) handleConnection(conn *websocket.Conn) {
	addr := conn.RemoteAddr().String()
	p := &peer{addr: addr, conn: conn, queue: queue.New[wsenvelope.Envelope]()}

	s.mu.Lock()
	s.peers[addr] = p
	s.mu.Unlock()

	s.log.Info("peer connected", "addr", addr)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.writePump(p)
	}()
	go func() {
		defer wg.Done()
		s.readPump(p)
	}()
	wg.Wait()

	s.disconnect(addr)
}

func (s *Server) readPump(p *peer) {
	defer p.queue.Close()

	p.conn.SetReadLimit(maxMessageSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}

		env, err := wsenvelope.Decode(data)
		if err != nil {
			s.log.Warn("discarding unparseable envelope", "addr", p.addr, "error", err)
			continue
		}
		s.dispatch(p, env)
	}
}

func (s *Server) dispatch(p *peer, env wsenvelope.Envelope) {
	switch env.Kind {
	case wsenvelope.KindSubscribe:
		s.subscribe(p.addr, env.Topic)
	case wsenvelope.KindUnsubscribe:
		s.unsubscribe(p.addr, env.Topic)
	case wsenvelope.KindData:
		s.ensureChannel(env.Topic)
		s.broadcastToTopic(env.Topic, env, p.addr)
		s.ingress.Publish(env.ToMessage())
	case wsenvelope.KindListChannelsReq:
		p.queue.Push(wsenvelope.Envelope{
			Kind:     wsenvelope.KindListChannelsResponse,
			Channels: s.listChannels(),
		})
	case wsenvelope.KindListChannelsResponse:
		// A peer is never expected to send us this variant; ignore it
		// rather than treat it as an error.
	}
}

func (s *Server) subscribe(addr string, t topic.Name) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.ensureChannelLocked(t)
	set[addr] = struct{}{}
}

// ensureChannel records t as a known topic, creating an empty peer set
// for it if this is the topic's first sighting (spec §4.8: a Data
// publish alone is enough to make a topic visible to ListChannels).
func (s *Server) ensureChannel(t topic.Name) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureChannelLocked(t)
}

func (s *Server) ensureChannelLocked(t topic.Name) map[string]struct{} {
	set, ok := s.channels[t]
	if !ok {
		set = make(map[string]struct{})
		s.channels[t] = set
	}
	return set
}

func (s *Server) unsubscribe(addr string, t topic.Name) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set, ok := s.channels[t]; ok {
		delete(set, addr)
	}
}

// broadcastToTopic delivers env to every peer subscribed to t except
// excludeAddr — the publisher's own connection never receives its own
// publication back (spec §4.4).
func (s *Server) broadcastToTopic(t topic.Name, env wsenvelope.Envelope, excludeAddr string) {
	s.mu.Lock()
	subscribers := s.channels[t]
	targets := make([]*peer, 0, len(subscribers))
	for addr := range subscribers {
		if addr == excludeAddr {
			continue
		}
		if p, ok := s.peers[addr]; ok {
			targets = append(targets, p)
		}
	}
	s.mu.Unlock()

	for _, p := range targets {
		p.queue.Push(env)
	}
}

func (s *Server) listChannels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.channels))
	for t := range s.channels {
		names = append(names, t.String())
	}
	return names
}

func (s *Server) writePump(p *peer) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			env, ok := p.queue.Pop()
			if !ok {
				return
			}
			data, err := wsenvelope.Encode(env)
			if err != nil {
				s.log.Warn("failed to encode outbound envelope", "addr", p.addr, "error", err)
				continue
			}
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				p.queue.Close()
				return
			}
		}
	}
}

// disconnect removes a peer from every topic it was subscribed to
// (but leaves the topic entries themselves in place) and drops its
// connection record.
func (s *Server) disconnect(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, set := range s.channels {
		delete(set, addr)
	}
	if p, ok := s.peers[addr]; ok {
		p.conn.Close()
		delete(s.peers, addr)
	}
	s.log.Info("peer disconnected", "addr", addr)
}

// PeerCount reports the number of currently connected peers, for
// diagnostics / the admin surface.
func (s *Server) PeerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// ListChannels reports every topic this server has ever seen a
// subscription or a Data publish for.
func (s *Server) ListChannels() []string {
	return s.listChannels()
}
