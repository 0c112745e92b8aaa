package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/lumen-tutoring/booking-backend/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	// EventBookingUpdated is pushed to watchers after every committed change.
	EventBookingUpdated = "booking_updated"
)

// Hub maintains booking_id -> set of connections and broadcasts status changes.
// Uses Redis pub/sub for horizontal scaling when a publisher is configured.
type Hub struct {
	// bookingID -> map[clientID]*Client
	bookings map[string]map[string]*Client
	subs     map[string]func() // cancel Redis subscription per booking
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishBookingEvent(bookingID string, event string, payload []byte) error
}

// RedisSubscriber subscribes to booking channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeBooking(bookingID string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. Both Redis arguments may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		bookings: make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to a booking room. Starts Redis subscription for this booking if first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.bookings[c.BookingID] == nil {
		h.bookings[c.BookingID] = make(map[string]*Client)
		if h.redisSub != nil {
			bookingID := c.BookingID
			cancel, err := h.redisSub.SubscribeBooking(bookingID, func(event string, payload []byte) {
				h.Broadcast(bookingID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[bookingID] = cancel
			} else {
				h.logger.Warn("redis subscribe failed", zap.String("booking_id", bookingID), zap.Error(err))
			}
		}
	}
	h.bookings[c.BookingID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client watching booking", zap.String("client_id", c.ID), zap.String("booking_id", c.BookingID))
}

// Unregister removes a client from a booking room. Cancels Redis subscription when last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.bookings[c.BookingID]; ok {
		if _, present := m[c.ID]; present {
			delete(m, c.ID)
			close(c.send)
		}
		if len(m) == 0 {
			delete(h.bookings, c.BookingID)
			if cancel, ok := h.subs[c.BookingID]; ok {
				cancel()
				delete(h.subs, c.BookingID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left booking", zap.String("client_id", c.ID), zap.String("booking_id", c.BookingID))
}

// Broadcast sends a message to all local clients watching a booking.
func (h *Hub) Broadcast(bookingID string, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.bookings[bookingID] {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Publish delivers an event to every instance. With Redis the subscriber callback performs
// the local broadcast, so local clients receive it exactly once.
func (h *Hub) Publish(bookingID string, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.redis != nil {
		err := h.redis.PublishBookingEvent(bookingID, event, data)
		if err == nil {
			return
		}
		h.logger.Warn("redis publish failed, broadcasting locally", zap.String("booking_id", bookingID), zap.Error(err))
	}
	h.Broadcast(bookingID, event, json.RawMessage(data))
}

// BookingChanged implements bookings.EventSink.
func (h *Hub) BookingChanged(_ context.Context, _ string, b *models.Booking) {
	h.Publish(b.BookingID, EventBookingUpdated, b)
}

// Watchers returns the number of connected clients for a booking.
func (h *Hub) Watchers(bookingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.bookings[bookingID])
}
