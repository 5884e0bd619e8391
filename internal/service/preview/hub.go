// Package preview streams annotated frames and sighting notifications to
// websocket viewers.
package preview

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"agrovision/internal/logger"
)

const (
	writeWait      = 5 * time.Second
	clientBuffer   = 8
	broadcastQueue = 16
)

// Message is the JSON envelope sent to viewers.
type Message struct {
	Type     string `json:"type"` // "frame" or "sighting"
	Image    string `json:"image,omitempty"`
	MarkerID *int   `json:"marker,omitempty"`
	At       string `json:"at,omitempty"` // RFC 3339, UTC
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps the set of connected viewers and fans messages out to them.
// Publishing never blocks: messages are dropped for a full hub or a slow
// viewer.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, broadcastQueue),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is canceled, then
// disconnects every viewer.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mutex.Unlock()
			h.logger.Info("Preview hub stopped")
			return

		case c := <-h.register:
			h.mutex.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer connected. Total: %d", total)

		case c := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer disconnected. Total: %d", total)

		case message := <-h.broadcast:
			h.mutex.RLock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					h.logger.Debug("Viewer too slow, message dropped")
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// Serve registers conn and blocks reading from it until the viewer goes
// away or the hub stops. The connection is closed on return.
func (h *Hub) Serve(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("Viewer disconnected normally")
			} else {
				h.logger.Debug("Viewer read ended: %v", err)
			}
			break
		}
	}

	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Warning("Error sending to viewer: %v", err)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Broadcast queues a raw message for every viewer.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Debug("Preview hub busy, message dropped")
	}
}

// PublishFrame sends an annotated JPEG frame to viewers.
func (h *Hub) PublishFrame(jpeg []byte) {
	h.publish(Message{Type: "frame", Image: base64.StdEncoding.EncodeToString(jpeg)})
}

// NotifySighting tells viewers that a marker was confirmed.
func (h *Hub) NotifySighting(markerID int, at time.Time) {
	h.publish(Message{Type: "sighting", MarkerID: &markerID, At: at.UTC().Format(time.RFC3339Nano)})
}

func (h *Hub) publish(msg Message) {
	if h.ClientCount() == 0 {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Error encoding preview message: %v", err)
		return
	}
	h.Broadcast(data)
}

// ClientCount returns the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
