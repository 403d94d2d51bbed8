package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/playmatatu/minigolf/internal/game"
	"github.com/rs/zerolog/log"
)

const (
	writeWait   = 10 * time.Second
	pingPeriod  = 30 * time.Second
	pongWait    = 60 * time.Second
	sendBuffer  = 256
	maxReadSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by middleware.WebSocketCORSCheck before the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one WebSocket connection. A nil session means a lobby client that
// only receives events.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	session *game.Session
	send    chan []byte
}

func (c *Client) room() string {
	if c.session == nil {
		return ""
	}
	return c.session.ID
}

// Hub fans frames and events out to the clients watching each session. It
// implements game.Observer.
type Hub struct {
	rooms      map[string]map[*Client]bool // session ID -> clients; "" is the lobby
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	// Set once a Redis subscriber feeds the lobby, so local events are not
	// delivered twice.
	lobbyRemote bool
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, room := range h.rooms {
				for c := range room {
					c.conn.Close()
				}
			}
			h.rooms = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			close(h.done)
			return

		case c := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[c.room()]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[c.room()] = room
			}
			room[c] = true
			size := len(room)
			h.mu.Unlock()
			log.Info().Str("session", c.room()).Int("clients", size).Msg("[WS] client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[c.room()]; ok && room[c] {
				delete(room, c)
				close(c.send)
				if len(room) == 0 {
					delete(h.rooms, c.room())
				}
			}
			h.mu.Unlock()
			log.Info().Str("session", c.room()).Msg("[WS] client disconnected")
		}
	}
}

// RoomSize is the number of clients watching sessionID ("" for the lobby).
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// Message is the envelope for both directions.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outgoing struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// Broadcast sends message to every client in a room.
func (h *Hub) Broadcast(room string, message interface{}) {
	if h.RoomSize(room) == 0 {
		return
	}
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Msg("[WS] marshal failed")
		return
	}
	h.broadcastRaw(room, data)
}

func (h *Hub) broadcastRaw(room string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[room] {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("session", room).Msg("[WS] client send buffer full, dropping message")
		}
	}
}

// Frame implements game.Observer.
func (h *Hub) Frame(sessionID string, snap *game.Snapshot) {
	h.Broadcast(sessionID, outgoing{Type: "frame", SessionID: sessionID, Data: snap})
}

// Event implements game.Observer.
func (h *Hub) Event(sessionID string, e game.Event) {
	msg := outgoing{Type: "event", SessionID: sessionID, Data: e}
	h.Broadcast(sessionID, msg)

	h.mu.RLock()
	remote := h.lobbyRemote
	h.mu.RUnlock()
	if !remote {
		h.Broadcast("", msg)
	}
}

var _ game.Observer = (*Hub)(nil)

// Serve upgrades the request and attaches the connection to sess, or to the
// lobby when sess is nil.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sess *game.Session) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("[WS] upgrade failed")
		return
	}

	c := &Client{hub: h, conn: conn, session: sess, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	if sess != nil {
		if snap := sess.Snapshot(); snap != nil {
			c.sendJSON(outgoing{Type: "frame", SessionID: sess.ID, Data: snap})
		}
	}

	go c.writePump()
	go c.readPump()
}

type hitData struct {
	Aim   float64 `json:"aim"`
	Power float64 `json:"power"`
}

type timeScaleData struct {
	Scale float64 `json:"scale"`
}

// readPump handles client messages until the connection drops.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxReadSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("session", c.room()).Msg("[WS] read error")
			}
			return
		}
		c.handle(raw)
	}
}

func (c *Client) handle(raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("invalid message")
		return
	}
	if c.session == nil {
		c.sendError("lobby connections are read-only")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	switch msg.Type {
	case "hit":
		var d hitData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			c.sendError("invalid hit data")
			return
		}
		if err := c.session.Hit(ctx, d.Aim, d.Power); err != nil {
			c.sendError(err.Error())
		}
	case "time_scale":
		var d timeScaleData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			c.sendError("invalid time_scale data")
			return
		}
		if err := c.session.SetTimeScale(ctx, d.Scale); err != nil {
			c.sendError(err.Error())
		}
	case "ping":
		c.sendJSON(outgoing{Type: "pong"})
	default:
		c.sendError("unknown message type: " + msg.Type)
	}
}

// writePump writes messages to the WebSocket connection
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().Err(err).Str("session", c.room()).Msg("[WS] write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.hub.done:
			return
		}
	}
}

func (c *Client) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.sendJSON(outgoing{Type: "error", Message: message})
}
