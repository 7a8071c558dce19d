package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

const writeWait = 5 * time.Second

// message is the reload channel's wire format.
type message struct {
	Type   string `json:"type"` // "hello" or "reload"
	Client string `json:"client,omitempty"`
}

// Hub tracks the browsers connected to the reload channel.
type Hub struct {
	mu       sync.Mutex
	clients  map[string]*websocket.Conn
	upgrader websocket.Upgrader
	gauge    prometheus.Gauge
	logger   *slog.Logger
}

// NewHub creates an empty Hub. gauge tracks the number of clients.
// checkOrigin decides which pages may connect; nil allows same-origin
// pages only.
func NewHub(gauge prometheus.Gauge, checkOrigin func(*http.Request) bool, logger *slog.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]*websocket.Conn),
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		gauge:    gauge,
		logger:   logger,
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and holds the connection until the client
// goes away. Clients only listen; anything they send is discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", "error", err)
		return
	}

	id := h.add(conn)
	defer h.remove(id)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read", "client", id, "error", err)
			}
			return
		}
	}
}

func (h *Hub) add(conn *websocket.Conn) string {
	id := uuid.NewString()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[id] = conn
	h.gauge.Inc()
	h.send(id, conn, message{Type: "hello", Client: id})
	h.logger.Debug("reload client connected", "client", id)
	return id
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(id)
}

// drop closes and forgets a client. Callers hold h.mu.
func (h *Hub) drop(id string) {
	conn, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	h.gauge.Dec()
	conn.Close()
	h.logger.Debug("reload client disconnected", "client", id)
}

// send writes msg to one client, dropping it on failure. Callers hold h.mu,
// which also serializes writes per connection.
func (h *Hub) send(id string, conn *websocket.Conn, msg message) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("websocket write", "client", id, "error", err)
		h.drop(id)
	}
}

// BroadcastReload tells every client to render its page again.
func (h *Hub) BroadcastReload() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.clients {
		h.send(id, conn, message{Type: "reload"})
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.clients {
		h.drop(id)
	}
}
