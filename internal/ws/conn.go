package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"ai-agent-portal/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4 * 1024

	// Time allowed for a connection to send its join event before being closed
	joinWait = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin checks are handled by the CORS layer
	},
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// Conn is one live websocket connection. It stays anonymous until its join
// event is verified; only then is it registered with the hub. The send channel
// is never closed; shutdown is signaled through done so a concurrent sendEvent
// can never hit a closed channel.
type Conn struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	clientID  uint
	joined    bool
}

// shutdown signals both pumps to exit. Safe to call from any goroutine, any
// number of times.
func (c *Conn) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

// joinContent is the expected content of a join event
type joinContent struct {
	Token string `json:"token"`
}

// ServeWs upgrades an HTTP request to a websocket connection and starts its pumps
func ServeWs(hub *Hub, c *gin.Context) {
	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.LogError(err, "Failed to upgrade websocket connection")
		return
	}

	conn := &Conn{
		hub:  hub,
		conn: wsConn,
		send: make(chan []byte, 64),
		done: make(chan struct{}),
	}

	go conn.writePump()
	go conn.readPump()
}

func (c *Conn) readPump() {
	defer func() {
		if c.joined {
			c.hub.unregister <- c
		} else {
			c.shutdown()
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(joinWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("Websocket read error", "error", err.Error())
			}
			return
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			c.sendEvent("error", map[string]string{"message": "invalid event format"})
			continue
		}

		switch event.Type {
		case "join":
			c.handleJoin(event)
		case "ping":
			c.sendEvent("pong", nil)
		default:
			// The channel is push-only after joining; other event types are ignored
		}
	}
}

// handleJoin verifies the join token and registers the connection under the
// token's client identity. A second join on the same connection is ignored.
func (c *Conn) handleJoin(event Event) {
	if c.joined {
		return
	}

	contentBytes, err := json.Marshal(event.Content)
	if err != nil {
		c.sendEvent("error", map[string]string{"message": "invalid join content"})
		return
	}

	var join joinContent
	if err := json.Unmarshal(contentBytes, &join); err != nil || join.Token == "" {
		c.sendEvent("error", map[string]string{"message": "join requires a token"})
		return
	}

	claims, err := c.hub.jwtService.ValidateToken(join.Token)
	if err != nil || !claims.HasRole(jwt.RoleClient) {
		c.sendEvent("error", map[string]string{"message": "invalid or expired token"})
		return
	}

	c.clientID = claims.UserID
	c.joined = true
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.hub.register <- c

	c.sendEvent("joined", map[string]uint{"clientId": c.clientID})
}

func (c *Conn) sendEvent(eventType string, content interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Content: content})
	if err != nil {
		return
	}

	select {
	case c.send <- payload:
	case <-c.done:
	default:
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

			// Flush any queued events as separate frames
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
