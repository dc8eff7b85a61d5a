// Package hub connects WebSocket clients to their diagram servers.
package hub

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"diagramd/internal/action"
	"diagramd/internal/domain"
	"diagramd/internal/server"
)

// ServerFactory creates the diagram server for a new client id
type ServerFactory func(clientID string) (*server.DiagramServer, error)

// Config tunes connection handling and server eviction
type Config struct {
	// IdleTimeout is how long a server survives without a connection
	IdleTimeout time.Duration
	// SendBuffer is the number of outbound frames queued per connection
	SendBuffer int
	WriteWait  time.Duration
	PongWait   time.Duration
	// MaxMessageSize limits inbound frames in bytes
	MaxMessageSize int64
}

// DefaultConfig returns the configuration used for zero values
func DefaultConfig() Config {
	return Config{
		IdleTimeout:    2 * time.Minute,
		SendBuffer:     256,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		MaxMessageSize: 8 << 20,
	}
}

// Hub owns the diagram servers of all clients. Servers outlive their
// connection so a reconnecting client with the same id resumes its session.
type Hub struct {
	codec    *action.Codec
	factory  ServerFactory
	cfg      Config
	upgrader websocket.Upgrader

	mu      sync.Mutex
	entries map[string]*entry
	conns   map[*conn]struct{}
	now     func() time.Time
}

type entry struct {
	server     *server.DiagramServer
	conn       *conn
	lastAccess time.Time
}

// New creates a hub. Zero config fields take their defaults.
func New(codec *action.Codec, factory ServerFactory, cfg Config) *Hub {
	def := DefaultConfig()
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	return &Hub{
		codec:   codec,
		factory: factory,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// diagram clients are served from other origins during development
			CheckOrigin: func(*http.Request) bool { return true },
		},
		entries: make(map[string]*entry),
		conns:   make(map[*conn]struct{}),
		now:     time.Now,
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Warningf("[hub] upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	c := newConn(h, ws)
	h.mu.Lock()
	h.conns[c] = struct{}{}
	total := len(h.conns)
	h.mu.Unlock()
	glog.Infof("[hub] connection from %s (total: %d)", r.RemoteAddr, total)

	go c.writePump()
	c.readLoop()
}

// Server returns the server of a client, creating it on first use
func (h *Hub) Server(clientID string) (*server.DiagramServer, error) {
	return h.attach(clientID, nil)
}

// Lookup returns the server of a client if it exists
func (h *Hub) Lookup(clientID string) (*server.DiagramServer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[clientID]
	if !ok {
		return nil, false
	}
	e.lastAccess = h.now()
	return e.server, true
}

// attach returns the server of clientID and, if c is not nil, routes the
// server's outbound messages to c
func (h *Hub) attach(clientID string, c *conn) (*server.DiagramServer, error) {
	h.mu.Lock()
	e, ok := h.entries[clientID]
	if ok {
		e.lastAccess = h.now()
		if c != nil && e.conn != c {
			e.conn = c
			e.server.SetRemoteEndpoint(c.endpoint)
		}
		h.mu.Unlock()
		return e.server, nil
	}
	h.mu.Unlock()

	s, err := h.factory(clientID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.entries[clientID]; ok {
		// lost a creation race
		s.Close()
		s = existing.server
		e = existing
	} else {
		e = &entry{server: s}
		h.entries[clientID] = e
		glog.Infof("[hub] created server for %s (servers: %d)", clientID, len(h.entries))
	}
	e.lastAccess = h.now()
	if c != nil && e.conn != c {
		e.conn = c
		s.SetRemoteEndpoint(c.endpoint)
	}
	return s, nil
}

// detach unbinds every server routed to c
func (h *Hub) detach(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
	now := h.now()
	for _, e := range h.entries {
		if e.conn == c {
			e.conn = nil
			e.lastAccess = now
			e.server.SetRemoteEndpoint(nil)
		}
	}
	glog.Infof("[hub] connection closed (total: %d)", len(h.conns))
}

// Sweep closes and removes servers without a connection that were not
// accessed since IdleTimeout before now. It returns the number removed.
func (h *Hub) Sweep(now time.Time) int {
	h.mu.Lock()
	var expired []*server.DiagramServer
	for id, e := range h.entries {
		if e.conn == nil && now.Sub(e.lastAccess) > h.cfg.IdleTimeout {
			expired = append(expired, e.server)
			delete(h.entries, id)
		}
	}
	h.mu.Unlock()

	for _, s := range expired {
		s.Close()
		glog.V(1).Infof("[hub] evicted idle server %s", s.ClientID())
	}
	return len(expired)
}

// Run sweeps idle servers until ctx is done, then closes the hub
func (h *Hub) Run(ctx context.Context) error {
	interval := h.cfg.IdleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.Close()
			return nil
		case <-ticker.C:
			if n := h.Sweep(h.now()); n > 0 {
				glog.Infof("[hub] evicted %d idle servers", n)
			}
		}
	}
}

// UpdateAll sends a copy of root to every server as a model update
func (h *Hub) UpdateAll(root *domain.Element) {
	h.mu.Lock()
	servers := make([]*server.DiagramServer, 0, len(h.entries))
	for _, e := range h.entries {
		servers = append(servers, e.server)
	}
	h.mu.Unlock()

	for _, s := range servers {
		if err := s.UpdateModel(domain.Clone(root)); err != nil {
			glog.Errorf("[hub] updating %s: %v", s.ClientID(), err)
		}
	}
	glog.Infof("[hub] pushed model %s to %d servers", root.ID, len(servers))
}

// Close disconnects every client and closes every server
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	entries := h.entries
	h.entries = make(map[string]*entry)
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
	for _, e := range entries {
		e.server.Close()
	}
}

// ServerStats describes one client's server
type ServerStats struct {
	ClientID  string `json:"clientId"`
	Revision  int    `json:"revision"`
	ModelType string `json:"modelType"`
	Connected bool   `json:"connected"`
	Pending   int    `json:"pendingRequests"`
}

// Stats is a snapshot of the hub
type Stats struct {
	Connections int           `json:"connections"`
	Servers     []ServerStats `json:"servers"`
}

// Stats returns the current connections and servers ordered by client id
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	st := Stats{Connections: len(h.conns), Servers: make([]ServerStats, 0, len(h.entries))}
	for id, e := range h.entries {
		st.Servers = append(st.Servers, ServerStats{
			ClientID:  id,
			Connected: e.conn != nil,
			Revision:  e.server.Revision(),
			ModelType: e.server.Model().Type,
			Pending:   e.server.PendingRequests(),
		})
	}
	h.mu.Unlock()
	sort.Slice(st.Servers, func(i, j int) bool { return st.Servers[i].ClientID < st.Servers[j].ClientID })
	return st
}
