// internal/httpserver/hub.go
//
// WebSocket fan-out of engine events.
// Responsibilities:
//   - Track connected clients per game ID.
//   - Deliver each game's events to its clients without ever blocking the engine.
//   - Drop slow clients and disconnect everyone when a game is evicted.
//
// Notes:
//   - The hub's maps are owned by the Run goroutine; everything else talks
//     to it through channels.
//   - Clients are receive-only. Inbound frames are read and discarded so that
//     close and pong frames get processed.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/tradeloop/internal/game"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

// Message is the JSON envelope for every frame sent to a client.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	Sender  string `json:"sender"` // game ID the event belongs to
}

// client is one WebSocket connection watching one game.
type client struct {
	hub    *Hub
	gameID string
	conn   *websocket.Conn
	send   chan []byte
}

type envelope struct {
	gameID string
	data   []byte
}

// Hub maintains the set of active clients and routes messages by game ID.
type Hub struct {
	clients    map[string]map[*client]bool
	publish    chan envelope
	register   chan *client
	unregister chan *client
	closeGame  chan string
	done       chan struct{} // closed when Run returns
	upgrader   websocket.Upgrader
}

// NewHub constructs a Hub. allowedOrigin is matched against the Origin
// header on upgrade; an empty value allows any origin.
func NewHub(allowedOrigin string) *Hub {
	return &Hub{
		clients:    make(map[string]map[*client]bool),
		publish:    make(chan envelope, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		closeGame:  make(chan string, 16),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				o := r.Header.Get("Origin")
				return allowedOrigin == "" || o == "" || o == allowedOrigin
			},
		},
	}
}

// Run owns the client registry until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for id := range h.clients {
				h.dropGame(id)
			}
			return nil

		case c := <-h.register:
			if h.clients[c.gameID] == nil {
				h.clients[c.gameID] = make(map[*client]bool)
			}
			h.clients[c.gameID][c] = true
			log.Debug().Str("gameId", c.gameID).Msg("ws client registered")

		case c := <-h.unregister:
			if set, ok := h.clients[c.gameID]; ok && set[c] {
				delete(set, c)
				close(c.send)
				if len(set) == 0 {
					delete(h.clients, c.gameID)
				}
			}

		case id := <-h.closeGame:
			h.dropGame(id)

		case env := <-h.publish:
			for c := range h.clients[env.gameID] {
				select {
				case c.send <- env.data:
				default:
					log.Warn().Str("gameId", env.gameID).Msg("ws client too slow, dropping")
					delete(h.clients[env.gameID], c)
					close(c.send)
				}
			}
		}
	}
}

func (h *Hub) dropGame(id string) {
	for c := range h.clients[id] {
		close(c.send)
	}
	delete(h.clients, id)
}

// Publish queues a message for a game's clients. It never blocks; when the
// hub is saturated the message is dropped and logged.
func (h *Hub) Publish(gameID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("type", msg.Type).Msg("ws marshal")
		return
	}
	select {
	case h.publish <- envelope{gameID: gameID, data: data}:
	default:
		log.Warn().Str("gameId", gameID).Str("type", msg.Type).Msg("ws hub saturated, event dropped")
	}
}

// CloseGame disconnects every client of a game.
func (h *Hub) CloseGame(gameID string) {
	select {
	case h.closeGame <- gameID:
	default:
	}
}

// Listener returns a game.Listener that publishes a game's events.
func (h *Hub) Listener(gameID string) game.Listener {
	return game.ListenerFunc(func(ev game.Event) {
		h.Publish(gameID, Message{Type: string(ev.Type), Payload: ev.Payload, Sender: gameID})
	})
}

// serveWs upgrades the request and attaches the connection to gameID.
func (h *Hub) serveWs(w http.ResponseWriter, r *http.Request, gameID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("ws upgrade")
		return
	}
	c := &client{hub: h, gameID: gameID, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("gameId", c.gameID).Msg("ws read")
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
