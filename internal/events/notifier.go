package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Notifier consumes reservation events and hands them to an external
// delivery collaborator, best-effort. Events are queued and dispatched from
// a single goroutine under a token-bucket rate limit so a burst of state
// changes cannot flood the downstream channel.
type Notifier struct {
	deliver func(ctx context.Context, event Event, payload ReservationEvent) error
	limiter *rate.Limiter
	logger  zerolog.Logger

	queue chan Event
	wg    sync.WaitGroup
}

// NotifierConfig tunes the dispatcher.
type NotifierConfig struct {
	Rate      float64 // deliveries per second
	Burst     int
	QueueSize int
}

// DefaultNotifierConfig returns the default dispatcher settings.
func DefaultNotifierConfig() NotifierConfig {
	return NotifierConfig{Rate: 20, Burst: 30, QueueSize: 256}
}

// LogDelivery is the default delivery function: it records the notification
// in the log. Real deliveries (mail, messengers) plug in the same way.
func LogDelivery(logger zerolog.Logger) func(ctx context.Context, event Event, payload ReservationEvent) error {
	return func(_ context.Context, event Event, payload ReservationEvent) error {
		logger.Info().
			Str("event_id", event.ID).
			Str("type", event.Type).
			Str("reservation_id", payload.ReservationID).
			Str("new_status", payload.NewStatus).
			Int64("recipient", payload.Recipient).
			Msg("notification dispatched")
		return nil
	}
}

// NewNotifier creates a dispatcher and subscribes it to every reservation
// event on bus.
func NewNotifier(bus *EventBus, cfg NotifierConfig, deliver func(ctx context.Context, event Event, payload ReservationEvent) error, logger zerolog.Logger) *Notifier {
	if cfg.Rate <= 0 {
		cfg.Rate = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 30
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	n := &Notifier{
		deliver: deliver,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		logger:  logger.With().Str("component", "notifier").Logger(),
		queue:   make(chan Event, cfg.QueueSize),
	}
	bus.SubscribeAll(n.enqueue)
	return n
}

// enqueue accepts an event without blocking the publisher. A full queue
// drops the event: notifications are best-effort.
func (n *Notifier) enqueue(event Event) error {
	select {
	case n.queue <- event:
	default:
		n.logger.Warn().Str("type", event.Type).Msg("notification queue full, dropping event")
	}
	return nil
}

// Start runs the dispatch loop until ctx is cancelled.
func (n *Notifier) Start(ctx context.Context) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-n.queue:
				n.dispatch(ctx, event)
			}
		}
	}()
}

// Wait blocks until the dispatch loop has stopped.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) dispatch(ctx context.Context, event Event) {
	if err := n.limiter.Wait(ctx); err != nil {
		return
	}
	var payload ReservationEvent
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		n.logger.Error().Err(err).Str("event_id", event.ID).Msg("bad event payload")
		return
	}
	if err := n.deliver(ctx, event, payload); err != nil {
		n.logger.Warn().Err(err).Str("event_id", event.ID).Msg("notification delivery failed")
	}
}
