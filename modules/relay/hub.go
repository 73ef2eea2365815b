// Package relay implements the live side of the backend: the connection
// hub with room subscriptions and fan-out, and the publish operation that
// broadcasts first and hands persistence to the event bus.
package relay

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Conn is the transport surface the hub writes to. *websocket.Conn satisfies
// it; tests use fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Envelope is the wire frame of the live channel: a named event with a raw
// JSON payload.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// client is one live connection, bound to an authenticated user and a set of
// subscribed rooms. Destroyed on disconnect; never persisted.
type client struct {
	id      string
	userID  string
	conn    Conn
	writeMu sync.Mutex
	rooms   map[string]bool
}

// Hub manages live connections, their room subscriptions, and event fan-out.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client         // connID -> client
	rooms   map[string]map[string]bool // roomID -> set of connIDs
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]bool),
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(connID, userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[connID] = &client{
		id:     connID,
		userID: userID,
		conn:   conn,
		rooms:  make(map[string]bool),
	}
	log.Printf("[relay] Connection %s registered (user %s). Total connections: %d", connID, userID, len(h.clients))
}

// Unregister removes a connection and all of its room subscriptions. Further
// fan-out simply no longer reaches it; in-flight operations are unaffected.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok {
		return
	}
	for roomID := range c.rooms {
		delete(h.rooms[roomID], connID)
		if len(h.rooms[roomID]) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(h.clients, connID)
	log.Printf("[relay] Connection %s unregistered. Total connections: %d", connID, len(h.clients))
}

// Subscribe adds the connection to each room's live subscriber set. Room
// membership is not re-validated here: the caller supplies only rooms it
// legitimately fetched through the REST layer.
func (h *Hub) Subscribe(connID string, roomIDs []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok {
		return
	}
	for _, roomID := range roomIDs {
		if roomID == "" {
			continue
		}
		c.rooms[roomID] = true
		if h.rooms[roomID] == nil {
			h.rooms[roomID] = make(map[string]bool)
		}
		h.rooms[roomID][connID] = true
	}
	log.Printf("[relay] Connection %s subscribed to %d rooms", connID, len(roomIDs))
}

// BroadcastRoom sends an event to every live subscriber of the room except
// the excluded connection (the sender). Returns the number of connections
// written to.
func (h *Hub) BroadcastRoom(roomID, excludeConnID, event string, payload any) int {
	data, err := marshalEnvelope(event, payload)
	if err != nil {
		log.Printf("[relay] Failed to marshal %s broadcast: %v", event, err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for connID := range h.rooms[roomID] {
		if connID == excludeConnID {
			continue
		}
		if c, ok := h.clients[connID]; ok {
			if h.send(c, data) {
				sent++
			}
		}
	}
	return sent
}

// BroadcastAll sends an event to every live connection except the excluded
// one. Used for global presence notifications.
func (h *Hub) BroadcastAll(excludeConnID, event string, payload any) int {
	data, err := marshalEnvelope(event, payload)
	if err != nil {
		log.Printf("[relay] Failed to marshal %s broadcast: %v", event, err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for connID, c := range h.clients {
		if connID == excludeConnID {
			continue
		}
		if h.send(c, data) {
			sent++
		}
	}
	return sent
}

// Send writes an event to a single connection.
func (h *Hub) Send(connID, event string, payload any) {
	data, err := marshalEnvelope(event, payload)
	if err != nil {
		log.Printf("[relay] Failed to marshal %s message: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if c, ok := h.clients[connID]; ok {
		h.send(c, data)
	}
}

// SendError writes an error envelope to a single connection.
func (h *Hub) SendError(connID, msg string) {
	data, err := json.Marshal(Envelope{Event: "error", Error: msg})
	if err != nil {
		log.Printf("[relay] Failed to marshal error message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if c, ok := h.clients[connID]; ok {
		h.send(c, data)
	}
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSubscriberCount returns the number of live subscribers of a room.
func (h *Hub) RoomSubscriberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// CloseAll closes every live connection. Used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.clients {
		_ = c.conn.Close()
	}
	h.clients = make(map[string]*client)
	h.rooms = make(map[string]map[string]bool)
}

func (h *Hub) send(c *client, data []byte) bool {
	// Fan-out runs under the hub's shared read lock, so broadcasts from
	// different goroutines can reach the same connection at once. The
	// transport allows only one concurrent writer per connection.
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[relay] Failed to send to connection %s: %v", c.id, err)
		return false
	}
	return true
}

func marshalEnvelope(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Payload: data})
}
