package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Event is the wire envelope in both directions. Seq is a per-group
// monotonic counter stamped on group-scoped events so a client that missed
// a broadcast can spot the gap and resync with a session fetch.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
	Seq  uint64      `json:"seq,omitempty"`
}

// Conn is the slice of a websocket connection the hub writes through.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one live connection with a stable identity that other group
// members can refer to in join/leave notices.
type Client struct {
	ID   string
	conn Conn
	mu   sync.Mutex
}

func NewClient(conn Conn) *Client {
	return &Client{ID: uuid.NewString(), conn: conn}
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub tracks which connections are subscribed to which session code.
// Delivery is fire and forget: a failed write evicts the connection and
// nothing is retried.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*Client]bool
	seq    map[string]uint64
}

func NewHub() *Hub {
	return &Hub{
		groups: make(map[string]map[*Client]bool),
		seq:    make(map[string]uint64),
	}
}

func (h *Hub) Join(code string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.groups[code] == nil {
		h.groups[code] = make(map[*Client]bool)
	}
	h.groups[code][c] = true
	log.Printf("ws: client %s joined session %s (total: %d)", c.ID, code, len(h.groups[code]))
}

func (h *Hub) Leave(code string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.groups[code]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.groups, code)
			delete(h.seq, code)
		}
		log.Printf("ws: client %s left session %s", c.ID, code)
	}
}

// Broadcast sends to every member of the group, sender included.
func (h *Hub) Broadcast(code string, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliver(code, nil, ev)
}

// BroadcastExcept sends to every member of the group but the given one.
// The event still consumes a sequence number: the excluded client is the
// sender, who can account for its own event.
func (h *Hub) BroadcastExcept(code string, except *Client, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliver(code, except, ev)
}

// SendTo unicasts to one client. The event carries the group's current
// sequence number without advancing it, so a joiner learns the baseline
// without punching a gap into everyone else's stream.
func (h *Hub) SendTo(c *Client, code string, ev Event) {
	h.mu.Lock()
	ev.Seq = h.seq[code]
	h.mu.Unlock()

	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("ws: marshal error: %v", err)
		return
	}
	if err := c.write(data); err != nil {
		log.Printf("ws: write error to %s: %v", c.ID, err)
	}
}

// deliver assumes h.mu is held for writing.
func (h *Hub) deliver(code string, except *Client, ev Event) {
	conns, ok := h.groups[code]
	if !ok {
		return
	}

	h.seq[code]++
	ev.Seq = h.seq[code]

	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("ws: marshal error: %v", err)
		return
	}

	for c := range conns {
		if c == except {
			continue
		}
		if err := c.write(data); err != nil {
			log.Printf("ws: write error to %s: %v", c.ID, err)
			c.conn.Close()
			delete(conns, c)
		}
	}
}
