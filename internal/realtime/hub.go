// Package realtime delivers row-change events to connected clients over
// WebSockets. It is a hub-and-spoke fan-out: handlers publish an event for a
// topic, and every client subscribed to that topic receives it. Topics are
// per-user per-table, so a client only ever sees its own rows. Ordering is
// delivery order within a topic; nothing is guaranteed across topics.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Change names the kind of row change an event describes.
type Change string

const (
	ChangeInsert Change = "INSERT"
	ChangeUpdate Change = "UPDATE"
	ChangeDelete Change = "DELETE"
)

// Event is a single row-change notification.
type Event struct {
	Change    Change          `json:"change"`
	Table     string          `json:"table"`
	RowID     string          `json:"rowId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Per-user topic names, one per table a client can watch.
func AppointmentsTopic(userID string) string  { return "appointments:" + userID }
func MessagesTopic(userID string) string      { return "messages:" + userID }
func NotificationsTopic(userID string) string { return "notifications:" + userID }

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is one connected subscriber.
type Client struct {
	Topics []string
	Send   chan []byte
	conn   Conn
}

// Hub tracks clients by topic. All operations are safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	log     zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		log:     log,
	}
}

// Register adds a client and subscribes it to its topics.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, topic := range client.Topics {
		if h.clients[topic] == nil {
			h.clients[topic] = make(map[*Client]struct{})
		}
		h.clients[topic][client] = struct{}{}
	}
}

// Unregister removes a client from all its topics and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	registered := false
	for _, topic := range client.Topics {
		if subscribers, ok := h.clients[topic]; ok {
			if _, ok := subscribers[client]; ok {
				registered = true
				delete(subscribers, client)
				if len(subscribers) == 0 {
					delete(h.clients, topic)
				}
			}
		}
	}
	if registered {
		close(client.Send)
	}
}

// Publish sends the event to every client subscribed to the topic. Clients
// with a full send buffer are skipped rather than blocking the publisher.
func (h *Hub) Publish(topic string, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("topic", topic).Msg("marshal realtime event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[topic] {
		select {
		case client.Send <- data:
		default:
			h.log.Warn().Str("topic", topic).Msg("dropping event for slow realtime client")
		}
	}
}

// Subscribers returns how many clients are subscribed to the topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// PublishRow marshals the row and publishes it on the topic, logging rather
// than failing when the row cannot be encoded.
func (h *Hub) PublishRow(topic, table string, change Change, rowID string, row interface{}) {
	data, err := json.Marshal(row)
	if err != nil {
		h.log.Error().Err(err).Str("table", table).Msg("marshal realtime row")
		data = nil
	}
	h.Publish(topic, Event{
		Change: change,
		Table:  table,
		RowID:  rowID,
		Data:   data,
	})
}
