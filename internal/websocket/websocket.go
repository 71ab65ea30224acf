// Package websocket serves live consumers of the query cache: browsers
// subscribe to cache keys and receive every settled update and invalidation.
package websocket

import (
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/paredao/internal/auth"
	"github.com/abrezinsky/paredao/internal/logger"
	"github.com/abrezinsky/paredao/internal/query"
	"github.com/abrezinsky/paredao/internal/services"
)

// Message types
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypeUpdate      = "update"
	TypeInvalidated = "invalidated"
	TypeError       = "error"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// Message is a frame sent to the browser
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Request is a frame received from the browser.
// Key is a cache key in display form, e.g. "result/e1".
type Request struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

// Update is the payload of an update message
type Update struct {
	Key    string `json:"key"`
	Status string `json:"status"`
	Stale  bool   `json:"stale"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	log        logger.Logger
	live       services.LiveServicer
	upgrader   websocket.Upgrader
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mutex      sync.RWMutex
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	token string
	send  chan Message

	mu     sync.Mutex
	closed bool
	subs   map[string]func()
}

// New creates a hub. Connections from origins outside allowedOrigins are
// refused; an empty list accepts same-host origins only.
func New(log logger.Logger, live services.LiveServicer, allowedOrigins []string) *Hub {
	h := &Hub{
		log:        log,
		live:       live,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
				return true
			}
			return slices.Contains(allowedOrigins, origin)
		}
	}
	return h
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

// Stop ends the main loop and disconnects every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.close()
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client connected", "total_clients", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client disconnected", "total_clients", total)

		case message := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.clients {
				if !client.deliver(message) {
					// send buffer full
					go h.drop(client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// BroadcastMessage sends a message to all connected clients. It never
// blocks; the message is dropped when the hub is backed up.
func (h *Hub) BroadcastMessage(msgType string, payload any) {
	select {
	case h.broadcast <- Message{Type: msgType, Payload: payload}:
	default:
		h.log.Warn("WebSocket broadcast dropped", "type", msgType)
	}
}

// Invalidated tells every client that key went stale. Registered as the
// query cache's invalidate hook.
func (h *Hub) Invalidated(key query.Key) {
	h.BroadcastMessage(TypeInvalidated, map[string]string{"key": key.Display()})
}

func updateMessage(e query.Entry) Message {
	u := Update{Key: e.Key.Display(), Status: string(e.Status), Stale: e.Stale}
	if e.HasValue {
		u.Data = e.Value
	}
	if e.Err != nil {
		u.Error = e.Err.Error()
	}
	return Message{Type: TypeUpdate, Payload: u}
}

func errorMessage(key, reason string) Message {
	return Message{Type: TypeError, Payload: map[string]string{"key": key, "error": reason}}
}

// deliver queues msg without blocking. It reports false when the buffer is full.
func (c *Client) deliver(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close stops every subscription and ends writePump
func (c *Client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	stops := make([]func(), 0, len(c.subs))
	for key, stop := range c.subs {
		stops = append(stops, stop)
		delete(c.subs, key)
	}
	c.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
}

func (c *Client) subscribe(raw string) {
	c.mu.Lock()
	_, exists := c.subs[raw]
	closed := c.closed
	c.mu.Unlock()
	if exists || closed {
		return
	}

	stop, err := c.hub.live.Watch(c.token, query.ParseKey(raw), func(e query.Entry) {
		c.deliver(updateMessage(e))
	})
	if err != nil {
		c.hub.log.Debug("WebSocket subscription refused", "key", raw, "error", err)
		c.deliver(errorMessage(raw, err.Error()))
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		stop()
		return
	}
	c.subs[raw] = stop
	c.mu.Unlock()
}

func (c *Client) unsubscribe(raw string) {
	c.mu.Lock()
	stop, ok := c.subs[raw]
	delete(c.subs, raw)
	c.mu.Unlock()
	if ok {
		stop()
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}

		var req Request
		if err := json.Unmarshal(message, &req); err != nil {
			c.deliver(errorMessage("", "malformed message"))
			continue
		}
		switch req.Type {
		case TypeSubscribe:
			c.subscribe(req.Key)
		case TypeUnsubscribe:
			c.unsubscribe(req.Key)
		default:
			c.hub.log.Debug("Received message", "type", req.Type)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
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
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.log.Debug("WebSocket write failed", "error", err)
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

// ServeWs handles websocket requests from clients. The session cookie, when
// present, authorizes subscriptions to private keys.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:   h,
		conn:  conn,
		token: auth.TokenFromRequest(r),
		send:  make(chan Message, sendBuffer),
		subs:  make(map[string]func()),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
