package sse

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/kbukum/phrame/logger"
)

// Event is one server-sent event. Name is written as the "event:" field
// when set.
type Event struct {
	Name string
	Data []byte
}

// Client is a connected browser. Its id has the form "role:uuid", e.g.
// "frame:3b1f...", so broadcasts can target a role with a glob.
type Client struct {
	id     string
	role   string
	events chan Event
	log    *logger.Logger
}

const clientBuffer = 64

// NewClient creates a client with the given id.
func NewClient(id string) *Client {
	role, _, _ := strings.Cut(id, ":")
	return &Client{id: id, role: role, events: make(chan Event, clientBuffer), log: logger.Nop()}
}

// ID returns the client's unique identifier.
func (c *Client) ID() string { return c.id }

// Role returns the part of the id before the colon.
func (c *Client) Role() string { return c.role }

// Events returns the channel the handler streams from.
func (c *Client) Events() <-chan Event { return c.events }

// Send queues ev for the client. It returns false and drops the event when
// the client is too slow to keep up.
func (c *Client) Send(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	default:
		c.log.Warn("client buffer full, dropping event", logger.Fields("client_id", c.id, "event", ev.Name))
		return false
	}
}

func (c *Client) close() { close(c.events) }

type message struct {
	pattern string
	event   Event
}

// Hub routes events to connected clients. All client bookkeeping happens
// on the Run goroutine; the map is also read under mu for inspection.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	log        *logger.Logger
}

// NewHub creates a hub. Call Run to start it.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
		log:        log.WithComponent("sse"),
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case c := <-h.register:
			c.log = h.log
			h.mu.Lock()
			if old, ok := h.clients[c.id]; ok {
				old.close()
			}
			h.clients[c.id] = c
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client registered", logger.Fields("client_id", c.id, "total_clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[c.id]; ok && cur == c {
				delete(h.clients, c.id)
				c.close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client unregistered", logger.Fields("client_id", c.id, "total_clients", n))

		case m := <-h.broadcast:
			h.deliver(m)
		}
	}
}

// Stop closes every client and makes Run return. Safe to call multiple times.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
}

// Register adds c. It returns false when the hub is stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c and closes its channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastToPattern queues ev for every client whose id matches the glob
// pattern, e.g. "frame:*" or "*".
func (h *Hub) BroadcastToPattern(pattern string, ev Event) {
	select {
	case h.broadcast <- message{pattern: pattern, event: ev}:
	case <-h.done:
	}
}

func (h *Hub) deliver(m message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for id, c := range h.clients {
		matched, err := filepath.Match(m.pattern, id)
		if err != nil {
			h.log.Error("bad pattern", logger.Fields("pattern", m.pattern, "error", err.Error()))
			return
		}
		if matched && c.Send(m.event) {
			sent++
		}
	}
	h.log.Debug("broadcast", logger.Fields("event", m.event.Name, "pattern", m.pattern, "match_count", sent))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ClientIDs returns the ids of the connected clients.
func (h *Hub) ClientIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}
