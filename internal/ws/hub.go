package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cricfever/backend/internal/metrics"
	"github.com/cricfever/backend/internal/room"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// WSMessage is the envelope for every client-to-server message.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client is one connected participant.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	playerID string
	send     chan []byte
}

// Hub maintains the set of active clients and delivers room-layer messages
// to them. It implements room.Sender.
type Hub struct {
	clients    map[string]*Client // playerID -> Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	manager *room.Manager
	rec     *metrics.Recorder
}

func NewHub(rec *metrics.Recorder) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rec:        rec,
	}
}

// SetManager wires the room layer. The hub is the manager's Sender, so the
// two are constructed in sequence; call before Run.
func (h *Hub) SetManager(m *room.Manager) { h.manager = m }

// ToPlayer sends a message to a specific player. Satisfies room.Sender.
func (h *Hub) ToPlayer(playerID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] marshal error for player %s: %v", playerID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, exists := h.clients[playerID]; exists {
		select {
		case client.send <- data:
		default:
			log.Printf("[WS] dropped message for player %s (buffer full)", playerID)
		}
	}
}

// Run owns the client registry. A second connection for the same player
// replaces the first; the old one gets a close frame.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if old, exists := h.clients[client.playerID]; exists {
				log.Printf("[WS] player %s reconnecting - closing old connection", client.playerID)
				old.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by new connection"),
					time.Now().Add(5*time.Second))
				old.conn.Close()
				select {
				case <-old.send:
				default:
					close(old.send)
				}
				// The replaced connection never reaches unregister (the
				// cur == client guard skips it), so settle its side of the
				// gauge here.
				h.rec.ClientDisconnected()
			}
			h.clients[client.playerID] = client
			h.mu.Unlock()

			h.rec.ClientConnected()
			log.Printf("[WS] player %s connected", client.playerID)

		case client := <-h.unregister:
			h.mu.Lock()
			cur, ok := h.clients[client.playerID]
			if ok && cur == client {
				delete(h.clients, client.playerID)
				select {
				case <-client.send:
				default:
					close(client.send)
				}
			}
			h.mu.Unlock()

			if ok && cur == client {
				h.rec.ClientDisconnected()
				log.Printf("[WS] player %s disconnected", client.playerID)
				h.manager.HandleDisconnect(client.playerID)
			}
		}
	}
}

// writePump writes messages to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Channel closed — connection is being replaced or cleaned up.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] write error for player %s: %v", c.playerID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] ping error for player %s: %v", c.playerID, err)
				return
			}
		}
	}
}

// readPump reads messages until the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] unexpected close for player %s: %v", c.playerID, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) sendError(message string) {
	data, _ := json.Marshal(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
	select {
	case c.send <- data:
	default:
	}
}
