package events

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNotifier_DeliversPublishedEvents(t *testing.T) {
	bus := NewEventBus()
	logger := zerolog.New(io.Discard)

	var mu sync.Mutex
	var got []ReservationEvent
	delivered := make(chan struct{}, 10)

	n := NewNotifier(bus, NotifierConfig{Rate: 1000, Burst: 100, QueueSize: 10},
		func(_ context.Context, _ Event, payload ReservationEvent) error {
			mu.Lock()
			got = append(got, payload)
			mu.Unlock()
			delivered <- struct{}{}
			return nil
		}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n.Start(ctx)

	assert.NoError(t, bus.PublishJSON(TypeReservationCreated, ReservationEvent{
		ReservationID: "r1", SpaceID: 1, NewStatus: "pending", Recipient: 7,
	}))
	assert.NoError(t, bus.PublishJSON(TypeReservationCancelled, ReservationEvent{
		ReservationID: "r1", SpaceID: 1, NewStatus: "cancelled", Recipient: 7,
	}))

	for i := 0; i < 2; i++ {
		select {
		case <-delivered:
		case <-time.After(2 * time.Second):
			t.Fatal("notification not delivered in time")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].ReservationID)

	cancel()
	n.Wait()
}

func TestNotifier_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	bus := NewEventBus()
	logger := zerolog.New(io.Discard)

	// Dispatcher never started, so the queue only fills.
	NewNotifier(bus, NotifierConfig{Rate: 1, Burst: 1, QueueSize: 2},
		func(context.Context, Event, ReservationEvent) error { return nil }, logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			_ = bus.PublishJSON(TypeReservationCreated, ReservationEvent{ReservationID: "r1"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a full notification queue")
	}
}
