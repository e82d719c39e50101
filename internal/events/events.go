// Package events carries reservation state changes to external collaborators.
// Delivery is fire-and-forget: a failing or slow subscriber never affects the
// operation that produced the event.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types published by the reservation service.
const (
	TypeReservationCreated   = "reservation.created"
	TypeReservationConfirmed = "reservation.confirmed"
	TypeReservationCancelled = "reservation.cancelled"
	TypeReservationCompleted = "reservation.completed"
	TypeReservationUpdated   = "reservation.updated"
)

// Event is a lightweight domain event.
type Event struct {
	ID        string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// ReservationEvent is the payload for every reservation state change.
type ReservationEvent struct {
	ReservationID string `json:"reservation_id"`
	SpaceID       int64  `json:"space_id"`
	NewStatus     string `json:"new_status"`
	Recipient     int64  `json:"recipient"`
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for every reservation event type.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	for _, t := range []string{
		TypeReservationCreated,
		TypeReservationConfirmed,
		TypeReservationCancelled,
		TypeReservationCompleted,
		TypeReservationUpdated,
	} {
		b.Subscribe(t, handler)
	}
}

// Publish notifies subscribers of the event type. Handler errors are
// swallowed; the caller has already committed its state change.
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON marshals payload and publishes it under eventType.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	b.Publish(Event{Type: eventType, Payload: data})
	return nil
}
