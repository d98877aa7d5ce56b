package dashboard

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// upgrader promotes HTTP connections to WebSocket. Origin checking is
// deferred to the auth middleware in front of the dashboard route.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub tracks connected dashboard clients and fans broadcasts out to them.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With(slog.String("component", "dashboard_hub")),
		clients: make(map[*client]struct{}),
	}
}

// ServeWS upgrades the request and registers the connection with the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(conn)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("dashboard client connected",
		"remote_addr", conn.RemoteAddr().String(),
		"client_count", count)

	go c.writeLoop(func() { h.remove(c) })
	go c.readLoop()
}

// Broadcast sends a message to every connected client. Clients whose send
// buffer is full are disconnected.
func (h *Hub) Broadcast(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- message:
		default:
			// Client can't keep up.
			delete(h.clients, c)
			c.close()
			h.logger.Warn("dropped slow dashboard client",
				"remote_addr", c.conn.RemoteAddr().String())
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Shutdown disconnects all clients and refuses new ones. Closing the
// connections is immediate, so there is no deadline to honor.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()

	h.logger.Info("dashboard hub shut down")
}

// remove unregisters a client after its write loop exits.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()

	if ok {
		c.close()
		h.logger.Info("dashboard client disconnected",
			"remote_addr", c.conn.RemoteAddr().String())
	}
}
