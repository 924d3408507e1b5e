// Package hub is the real-time fan-out channel between the bridge and the
// dashboards. It speaks a small JSON event protocol over WebSocket:
//
//	server -> client: {"event": "get_data", "data": <query response>}
//	server -> client: {"event": "relay_feedback", "data": {...}}
//	client -> server: {"event": "relay", "data": {"id": "2", "message": "..."}}
//
// Broadcasts are fire-and-forget: a slow client gets its messages dropped,
// never the ingestion path blocked.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/duckception/wbudowane-backend/internal/metrics"
)

// Event is the wire envelope for both directions.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RelayCommand is the payload of an inbound "relay" event; Message is passed
// through to the actuator topic untouched.
type RelayCommand struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// SnapshotFunc builds the initial get_data payload for a freshly connected
// dashboard watching one room.
type SnapshotFunc func(ctx context.Context, roomID string) (any, error)

// RelayFunc forwards an actuator command to the broker.
type RelayFunc func(cmd RelayCommand)

type Hub struct {
	logger   *slog.Logger
	snapshot SnapshotFunc
	relay    RelayFunc

	upgrader websocket.Upgrader

	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	// done is closed when Run returns, releasing anything still trying
	// to hand the hub a client.
	done chan struct{}
}

func NewHub(logger *slog.Logger, snapshot SnapshotFunc, relay RelayFunc) *Hub {
	return &Hub{
		logger:   logger,
		snapshot: snapshot,
		relay:    relay,
		upgrader: websocket.Upgrader{
			// Dashboards are served from a different origin in the
			// compose stack; access control is out of scope here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

// Run owns the client set. Single goroutine, so no locking around the map.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	clients := make(map[*client]struct{})

	for {
		select {
		case c := <-h.register:
			clients[c] = struct{}{}
			metrics.ConnectedClients.Inc()

		case c := <-h.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.send)
				metrics.ConnectedClients.Dec()
			}

		case msg := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					// Client can't keep up; drop the message for it.
				}
			}

		case <-ctx.Done():
			for c := range clients {
				close(c.send)
			}
			return
		}
	}
}

// Publish fans an event out to every connected client. It never blocks and
// never reports delivery; that is the contract ingestion relies on.
func (h *Hub) Publish(event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Cannot marshal event payload", "event", event, "error", err)
		return
	}
	msg, err := json.Marshal(Event{Event: event, Data: raw})
	if err != nil {
		h.logger.Error("Cannot marshal event envelope", "event", event, "error", err)
		return
	}

	select {
	case h.broadcast <- msg:
		metrics.EventsPublished.WithLabelValues(event).Inc()
	default:
		h.logger.Warn("Broadcast queue full, event dropped", "event", event)
	}
}

// ServeWS upgrades a dashboard connection. The room the client watches comes
// from the ?id= query parameter; the first thing the client receives is a
// full get_data snapshot for that room.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("id")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	c := newClient(conn)

	// The snapshot is queued before the hub learns about the client. From
	// registration on, Run owns c.send (and closes it on unregister), so
	// queueing from this goroutine any later could hit a closed channel
	// if the client disconnects while the query is in flight.
	snapshot, err := h.snapshot(r.Context(), roomID)
	if err != nil {
		// The client still connects and receives live updates; it
		// just starts without history.
		h.logger.Error("Initial snapshot failed", "room", roomID, "error", err)
	} else {
		c.sendEvent(h.logger, "get_data", snapshot)
	}

	select {
	case h.register <- c:
	case <-h.done:
		// Hub already shut down; nobody will service this client.
		conn.Close()
		return
	}
	h.logger.Info("Dashboard connected", "room", roomID, "remote", conn.RemoteAddr())

	go c.writePump()
	go c.readPump(h)
}

func (h *Hub) handleInbound(msg []byte) {
	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		h.logger.Warn("Ignoring malformed client event", "error", err)
		return
	}

	switch ev.Event {
	case "relay":
		var cmd RelayCommand
		if err := json.Unmarshal(ev.Data, &cmd); err != nil {
			h.logger.Warn("Ignoring malformed relay command", "error", err)
			return
		}
		h.relay(cmd)
	default:
		h.logger.Warn("Unknown client event", "event", ev.Event)
	}
}
