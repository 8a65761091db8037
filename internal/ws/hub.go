// Package ws maintains the live-connection registry that pushes resolved chat
// responses back to browsers. Connections are keyed by client identity; one
// client may hold several open connections (tabs, devices) at once.
package ws

import (
	"encoding/json"

	"ai-agent-portal/backend/pkg/jwt"
	"ai-agent-portal/backend/pkg/logger"
)

// Event is the envelope for every frame sent over the channel
type Event struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}

// ResponseEvent carries a resolved chat response to the owning client
type ResponseEvent struct {
	MessageID uint   `json:"messageId"`
	AgentID   uint   `json:"agentId"`
	Response  string `json:"response"`
}

// delivery addresses a marshaled event to every connection of one client
type delivery struct {
	clientID uint
	payload  []byte
}

// Hub owns the registry mapping client identity to live connections. All
// registry mutations and broadcasts run on the hub goroutine, so register,
// unregister, and Deliver are safe to call concurrently.
type Hub struct {
	connections map[uint]map[*Conn]struct{}
	register    chan *Conn
	unregister  chan *Conn
	deliveries  chan delivery
	jwtService  *jwt.Service
	log         *logger.Logger
}

// NewHub creates a hub; connections authenticate their join events against jwtService
func NewHub(jwtService *jwt.Service, log *logger.Logger) *Hub {
	return &Hub{
		connections: make(map[uint]map[*Conn]struct{}),
		register:    make(chan *Conn),
		unregister:  make(chan *Conn),
		deliveries:  make(chan delivery, 64),
		jwtService:  jwtService,
		log:         log,
	}
}

// Run processes registrations and deliveries until the process exits.
// Start it once, in its own goroutine, at server startup.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			set, ok := h.connections[conn.clientID]
			if !ok {
				set = make(map[*Conn]struct{})
				h.connections[conn.clientID] = set
			}
			set[conn] = struct{}{}
			h.log.Info("Connection joined", "client_id", conn.clientID, "connections", len(set))

		case conn := <-h.unregister:
			if set, ok := h.connections[conn.clientID]; ok {
				if _, registered := set[conn]; registered {
					delete(set, conn)
					if len(set) == 0 {
						delete(h.connections, conn.clientID)
					}
					h.log.Info("Connection left", "client_id", conn.clientID)
				}
			}
			// Signal rather than close(conn.send): the connection's own
			// goroutines may still be writing to the channel.
			conn.shutdown()

		case d := <-h.deliveries:
			set, ok := h.connections[d.clientID]
			if !ok {
				// No live connection: the event is dropped, the stored
				// message remains visible via the history endpoint.
				continue
			}
			for conn := range set {
				select {
				case conn.send <- d.payload:
				default:
					// Slow consumer; drop it rather than block the broadcast
					delete(set, conn)
					conn.shutdown()
					h.log.Warn("Connection dropped due to blocked send buffer", "client_id", d.clientID)
				}
			}
			if len(set) == 0 {
				delete(h.connections, d.clientID)
			}
		}
	}
}

// Deliver broadcasts a response event to every connection registered for the
// given client identity. Clients with no registered connection miss the push.
func (h *Hub) Deliver(clientID uint, event ResponseEvent) {
	payload, err := json.Marshal(Event{Type: "response", Content: event})
	if err != nil {
		h.log.LogError(err, "Failed to marshal response event", "client_id", clientID)
		return
	}

	h.deliveries <- delivery{clientID: clientID, payload: payload}
}
