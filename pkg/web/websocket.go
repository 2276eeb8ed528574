package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dbehnke/mavtrap/pkg/events"
	"github.com/dbehnke/mavtrap/pkg/logger"
)

const (
	clientQueue  = 256
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
)

// Event is one message pushed to dashboard clients
type Event struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`

	// eventType is the recorded event type for "event" messages, used for
	// per-client filtering
	eventType string
}

// Marshal converts an event to JSON bytes
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Client is one connected dashboard
type Client struct {
	ID       string
	conn     *websocket.Conn
	messages chan []byte
	// types limits the recorded events the client receives; empty means all
	types map[string]bool
}

func (c *Client) wants(ev Event) bool {
	if ev.eventType == "" || len(c.types) == 0 {
		return true
	}
	return c.types[ev.eventType]
}

// WebSocketHub fans recorded events out to dashboard clients
type WebSocketHub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *logger.Logger
	mu         sync.RWMutex
}

// NewWebSocketHub creates a new WebSocket hub
func NewWebSocketHub(log *logger.Logger) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, clientQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     log.WithComponent("web.ws"),
	}
}

// Run owns the client set until ctx is cancelled
func (h *WebSocketHub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("Dashboard client connected",
				logger.String("client_id", client.ID),
				logger.Int("types", len(client.types)))

		case client := <-h.unregister:
			h.remove(client)

		case event := <-h.broadcast:
			h.fanOut(event)

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.messages)
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

func (h *WebSocketHub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.messages)
	h.logger.Debug("Dashboard client disconnected", logger.String("client_id", client.ID))
}

// fanOut queues event for every interested client. A client whose queue is
// full is disconnected rather than slowing down the others.
func (h *WebSocketHub) fanOut(event Event) {
	data, err := event.Marshal()
	if err != nil {
		h.logger.Error("Failed to marshal dashboard message", logger.Error(err))
		return
	}

	var slow []*Client
	h.mu.RLock()
	for client := range h.clients {
		if !client.wants(event) {
			continue
		}
		select {
		case client.messages <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("Dashboard client too slow, disconnecting", logger.String("client_id", client.ID))
		h.remove(client)
	}
}

// Broadcast queues a message for all clients without blocking
func (h *WebSocketHub) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("Broadcast channel full, dropping message",
			logger.String("type", event.Type))
	}
}

// Name implements events.Sink
func (h *WebSocketHub) Name() string {
	return "websocket"
}

// Write implements events.Sink
func (h *WebSocketHub) Write(_ context.Context, ev events.Event) error {
	h.Broadcast(Event{
		Type:      "event",
		Timestamp: ev.Time,
		Data: map[string]interface{}{
			"event":   ev,
			"summary": ev.Summary(),
		},
		eventType: ev.Type,
	})
	return nil
}

// parseTypes reads ?types=command,request
func parseTypes(r *http.Request) map[string]bool {
	raw := r.URL.Query().Get("types")
	if raw == "" {
		return nil
	}
	types := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types[t] = true
		}
	}
	return types
}

// Handler upgrades /ws requests and serves the client until it goes away
func (h *WebSocketHub) Handler() http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error
			return
		}
		client := &Client{
			ID:       uuid.NewString(),
			conn:     conn,
			messages: make(chan []byte, clientQueue),
			types:    parseTypes(r),
		}
		select {
		case h.register <- client:
		case <-h.done:
			_ = conn.Close()
			return
		}

		go h.readPump(client)
		go writePump(client)
	})
}

// readPump discards client input and notices when the client leaves
func (h *WebSocketHub) readPump(client *Client) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
		_ = client.conn.Close()
	}()

	client.conn.SetReadLimit(1024)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump sends queued messages and keepalive pings
func writePump(client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.messages:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// GetClientCount returns the number of connected clients
func (h *WebSocketHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastStatusUpdate pushes the periodic status payload
func (h *WebSocketHub) BroadcastStatusUpdate(status map[string]interface{}) {
	h.Broadcast(Event{
		Type:      "status_update",
		Timestamp: time.Now(),
		Data:      status,
	})
}
