package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hydronom-sim/internal/telemetry"
)

const (
	writeWait = 2 * time.Second
	// sendBuffer is how many frames a client may fall behind before it is dropped.
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// frame is the envelope sent to live-feed clients.
type frame struct {
	Type      string            `json:"type"`
	VehicleID string            `json:"vehicleId,omitempty"`
	Data      *telemetry.Record `json:"data,omitempty"`
}

// client owns one connection. Only its write loop touches conn for writes.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts every record it receives to connected websocket clients.
// It satisfies the feeder's record writer interface. Write never blocks on
// the network: frames are queued per client and a full queue drops the client.
type Hub struct {
	vehicleID string

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates a Hub that greets clients with vehicleID.
func NewHub(vehicleID string) *Hub {
	return &Hub{vehicleID: vehicleID, clients: make(map[*client]struct{})}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request, queues the hello frame and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hello, err := json.Marshal(frame{Type: "hello", VehicleID: h.vehicleID})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	c.send <- hello
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	slog.Debug("websocket client connected", "remote", r.RemoteAddr)

	go h.writeLoop(c)
	go func() {
		defer h.drop(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Write queues rec as a telemetry frame for every client.
func (h *Hub) Write(rec telemetry.Record) error {
	b, err := json.Marshal(frame{Type: "telemetry", Data: &rec})
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			slog.Debug("dropping slow websocket client", "remote", c.remote())
			h.removeLocked(c)
		}
	}
	return nil
}

// Close disconnects every client. Each write loop sends a going-away frame
// before closing its connection.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
	return nil
}

// writeLoop drains c.send until the hub closes it or a write fails.
func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for b := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			slog.Debug("dropping websocket client", "remote", c.remote(), "err", err)
			h.drop(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed stopped"),
		time.Now().Add(writeWait))
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// removeLocked must be called with h.mu held.
func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (c *client) remote() string {
	if c.conn == nil {
		return ""
	}
	return c.conn.RemoteAddr().String()
}
