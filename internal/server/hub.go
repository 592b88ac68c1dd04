package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/linkmeir/linkvault/internal/logging"
	"github.com/linkmeir/linkvault/internal/remote"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Clients authenticate with a bearer token, not cookies, so cross
	// origin dials carry no ambient credentials.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient is one watch connection.
type wsClient struct {
	uid  string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub fans accepted vault writes out to each identity's open watch
// connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*wsClient]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*wsClient]struct{})}
}

// Serve upgrades the request to a websocket, delivers the snapshot event
// and keeps the connection registered until it drops.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, uid string, snapshot remote.WatchEvent) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	client := &wsClient{
		uid:  uid,
		conn: conn,
		send: make(chan []byte, 16),
		hub:  h,
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		logging.Error("failed to encode snapshot event", err)
		conn.Close()
		return
	}
	client.send <- payload

	h.register(client)
	logging.Debug("watch client connected", map[string]interface{}{"uid": uid})

	go client.writePump()
	go client.readPump()
}

// Broadcast delivers an event to every open connection for uid. A client
// whose send buffer is full is dropped rather than allowed to stall the
// writer.
func (h *Hub) Broadcast(uid string, event remote.WatchEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logging.Error("failed to encode watch event", err)
		return
	}

	h.mu.Lock()
	for client := range h.clients[uid] {
		select {
		case client.send <- payload:
		default:
			delete(h.clients[uid], client)
			close(client.send)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	if h.clients[c.uid] == nil {
		h.clients[c.uid] = make(map[*wsClient]struct{})
	}
	h.clients[c.uid][c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c.uid][c]; ok {
		delete(h.clients[c.uid], c)
		close(c.send)
	}
	if len(h.clients[c.uid]) == 0 {
		delete(h.clients, c.uid)
	}
	h.mu.Unlock()
}

// readPump drains the connection so pings and close frames are processed.
// The watch feed is one-way; inbound messages are discarded.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("watch client read error", map[string]interface{}{
					"uid":   c.uid,
					"error": err.Error(),
				})
			}
			return
		}
	}
}

// writePump serializes all writes to the connection and keeps it alive
// with periodic pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
