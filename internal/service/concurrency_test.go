package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/dramirezdlp99/sistema-reservas/internal/booking"
	"github.com/dramirezdlp99/sistema-reservas/internal/models"
	"github.com/dramirezdlp99/sistema-reservas/internal/repository"
)

// memStore is a deliberately naive in-memory store: FindConflict and
// CreateReservation are separate steps with a sleep between them, so without
// the slot lock two concurrent requests would both see a free slot and both
// insert. The double-booking tests below only pass because the service
// serializes the check-then-write sequence.
type memStore struct {
	mu           sync.Mutex
	space        models.Space
	reservations map[string]models.Reservation
	raceWindow   time.Duration
}

func newMemStore() *memStore {
	return &memStore{
		space:        models.Space{ID: 1, Name: "Sala A", Active: true},
		reservations: make(map[string]models.Reservation),
		raceWindow:   2 * time.Millisecond,
	}
}

func (s *memStore) GetSpace(ctx context.Context, id int64) (*models.Space, error) {
	if id != s.space.ID {
		return nil, booking.ErrSpaceNotFound
	}
	sp := s.space
	return &sp, nil
}

func (s *memStore) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return &r, nil
}

func (s *memStore) FindConflict(ctx context.Context, spaceID int64, date, start, end, excludeID string) (*models.Reservation, error) {
	s.mu.Lock()
	var found *models.Reservation
	for _, r := range s.reservations {
		if r.ID == excludeID || r.SpaceID != spaceID || r.Date != date || !r.IsActive() {
			continue
		}
		if models.Overlaps(start, end, r.StartTime, r.EndTime) {
			cp := r
			found = &cp
			break
		}
	}
	s.mu.Unlock()

	// Widen the gap between the availability check and the insert.
	time.Sleep(s.raceWindow)
	return found, nil
}

func (s *memStore) CreateReservation(ctx context.Context, r *models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Version = 1
	s.reservations[r.ID] = *r
	return nil
}

func (s *memStore) UpdateReservationInterval(ctx context.Context, r *models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reservations[r.ID]
	if !ok {
		return booking.ErrNotFound
	}
	if cur.Version != r.Version {
		return booking.ErrConcurrency
	}
	r.Version++
	s.reservations[r.ID] = *r
	return nil
}

func (s *memStore) UpdateReservationStatus(ctx context.Context, id string, version int64, status string, confirmedBy *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reservations[id]
	if !ok {
		return booking.ErrNotFound
	}
	if cur.Version != version {
		return booking.ErrConcurrency
	}
	cur.Status = status
	if confirmedBy != nil {
		cur.ConfirmedBy = confirmedBy
	}
	cur.Version++
	s.reservations[id] = cur
	return nil
}

func (s *memStore) ListReservations(ctx context.Context, f models.ReservationFilter) ([]models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reservation
	for _, r := range s.reservations {
		out = append(out, r)
	}
	return out, nil
}

func (s *memStore) ListUpcomingByRequester(ctx context.Context, requesterID int64, fromDate string, limit int) ([]models.Reservation, error) {
	return nil, nil
}

func (s *memStore) ListSpaceCalendar(ctx context.Context, spaceID int64, fromDate, toDate string) ([]models.Reservation, error) {
	return nil, nil
}

func (s *memStore) CountActiveByRequester(ctx context.Context, requesterID int64, fromDate string) (int, error) {
	return 0, nil
}

func (s *memStore) CompleteElapsed(ctx context.Context, now time.Time) ([]models.Reservation, error) {
	return nil, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations)
}

func TestConcurrentCreate_SingleWinner(t *testing.T) {
	store := newMemStore()
	bus := &recordingBus{}
	logger := zerolog.New(io.Discard)
	svc := NewReservationService(store, repository.NewLocalLocker(), bus, Policy{LockWait: 5 * time.Second}, &logger)
	svc.now = func() time.Time { return testNow }

	const workers = 8
	results := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(requester int64) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), booking.Draft{
				SpaceID:     1,
				RequesterID: requester,
				Date:        "2026-06-02",
				StartTime:   "09:00",
				EndTime:     "10:00",
			})
			results <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case booking.IsConflict(err):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, wins, "exactly one request may win the slot")
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, 1, store.count())
}

func TestConcurrentCreate_DisjointSlots(t *testing.T) {
	store := newMemStore()
	bus := &recordingBus{}
	logger := zerolog.New(io.Discard)
	svc := NewReservationService(store, repository.NewLocalLocker(), bus, Policy{LockWait: 5 * time.Second}, &logger)
	svc.now = func() time.Time { return testNow }

	const workers = 6
	results := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(hour int) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), booking.Draft{
				SpaceID:     1,
				RequesterID: 1,
				Date:        "2026-06-02",
				StartTime:   fmt.Sprintf("%02d:00", hour),
				EndTime:     fmt.Sprintf("%02d:00", hour+1),
			})
			results <- err
		}(9 + i)
	}
	wg.Wait()
	close(results)

	for err := range results {
		assert.NoError(t, err)
	}
	assert.Equal(t, workers, store.count())
}
