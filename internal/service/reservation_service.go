// Package service implements the reservation engine: validation, conflict
// detection, state transitions and the concurrency discipline around them.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dramirezdlp99/sistema-reservas/internal/booking"
	"github.com/dramirezdlp99/sistema-reservas/internal/events"
	"github.com/dramirezdlp99/sistema-reservas/internal/metrics"
	"github.com/dramirezdlp99/sistema-reservas/internal/models"
	"github.com/dramirezdlp99/sistema-reservas/internal/repository"
)

// Store is the persistence boundary the reservation engine writes through.
// *database.DB satisfies it.
type Store interface {
	GetSpace(ctx context.Context, id int64) (*models.Space, error)
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	FindConflict(ctx context.Context, spaceID int64, date, start, end, excludeID string) (*models.Reservation, error)
	CreateReservation(ctx context.Context, r *models.Reservation) error
	UpdateReservationInterval(ctx context.Context, r *models.Reservation) error
	UpdateReservationStatus(ctx context.Context, id string, version int64, status string, confirmedBy *int64) error
	ListReservations(ctx context.Context, f models.ReservationFilter) ([]models.Reservation, error)
	ListUpcomingByRequester(ctx context.Context, requesterID int64, fromDate string, limit int) ([]models.Reservation, error)
	ListSpaceCalendar(ctx context.Context, spaceID int64, fromDate, toDate string) ([]models.Reservation, error)
	CountActiveByRequester(ctx context.Context, requesterID int64, fromDate string) (int, error)
	CompleteElapsed(ctx context.Context, now time.Time) ([]models.Reservation, error)
}

// Publisher emits reservation events after committed state changes.
type Publisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Policy carries the configurable booking rules. Zero values disable the
// optional limits.
type Policy struct {
	MaxAdvanceDays   int
	MaxActivePerUser int
	LockWait         time.Duration
	Retries          int
}

// ReservationService orchestrates create/edit/cancel/confirm/complete for
// reservations. Every slot-mutating operation runs under the per-(space,date)
// lock so the conflict check and the write form one atomic unit.
type ReservationService struct {
	store  Store
	locker repository.Locker
	bus    Publisher
	policy Policy
	logger zerolog.Logger

	now func() time.Time
}

// NewReservationService wires the reservation engine.
func NewReservationService(store Store, locker repository.Locker, bus Publisher, policy Policy, logger *zerolog.Logger) *ReservationService {
	if policy.LockWait <= 0 {
		policy.LockWait = 2 * time.Second
	}
	if policy.Retries <= 0 {
		policy.Retries = 3
	}
	return &ReservationService{
		store:  store,
		locker: locker,
		bus:    bus,
		policy: policy,
		logger: logger.With().Str("component", "reservations").Logger(),
		now:    time.Now,
	}
}

// Create validates a reservation draft and persists it. The initial status
// is pending, advanced immediately to confirmed when the draft asks for
// auto-confirmation; auto-confirmation never records a confirmer.
func (s *ReservationService) Create(ctx context.Context, draft booking.Draft) (*models.Reservation, error) {
	now := s.now()
	if err := booking.ValidateInterval(draft.Date, draft.StartTime, draft.EndTime, now); err != nil {
		metrics.IncValidationFailure(failureReason(err))
		return nil, err
	}
	if err := booking.ValidateAdvance(draft.Date, now, s.policy.MaxAdvanceDays); err != nil {
		metrics.IncValidationFailure(failureReason(err))
		return nil, err
	}

	space, err := s.store.GetSpace(ctx, draft.SpaceID)
	if err != nil {
		return nil, err
	}
	if !space.Active {
		metrics.IncValidationFailure(failureReason(booking.ErrInactiveSpace))
		return nil, booking.ErrInactiveSpace
	}

	if s.policy.MaxActivePerUser > 0 {
		count, err := s.store.CountActiveByRequester(ctx, draft.RequesterID, now.Format(models.DateLayout))
		if err != nil {
			return nil, err
		}
		if count >= s.policy.MaxActivePerUser {
			metrics.IncValidationFailure(failureReason(booking.ErrTooManyActive))
			return nil, booking.ErrTooManyActive
		}
	}

	res := &models.Reservation{
		ID:          uuid.NewString(),
		SpaceID:     draft.SpaceID,
		RequesterID: draft.RequesterID,
		Date:        draft.Date,
		StartTime:   draft.StartTime,
		EndTime:     draft.EndTime,
		Reason:      draft.Reason,
		Description: draft.Description,
		Status:      booking.InitialStatus(draft.AutoConfirm),
		AutoConfirm: draft.AutoConfirm,
	}

	err = s.withRetry(ctx, func() error {
		return s.withSlotLock(ctx, draft.SpaceID, draft.Date, func(ctx context.Context) error {
			conflict, err := s.store.FindConflict(ctx, draft.SpaceID, draft.Date, draft.StartTime, draft.EndTime, res.ID)
			if err != nil {
				return err
			}
			if conflict != nil {
				return conflictError(conflict)
			}
			return s.store.CreateReservation(ctx, res)
		})
	})
	if err != nil {
		if booking.IsConflict(err) {
			metrics.IncValidationFailure("conflict")
		}
		return nil, err
	}

	metrics.IncReservationCreated(res.Status)
	s.publish(events.TypeReservationCreated, res)
	s.logger.Info().
		Str("reservation_id", res.ID).
		Int64("space_id", res.SpaceID).
		Str("date", res.Date).
		Str("status", res.Status).
		Msg("reservation created")
	return res, nil
}

// EditInput carries the changeable fields of a reservation. Nil pointers
// leave the stored value untouched. The space and requester references are
// immutable; rebooking a different space is cancel + create.
type EditInput struct {
	Date        *string
	StartTime   *string
	EndTime     *string
	Reason      *string
	Description *string
}

// Edit rewrites the booked slot of a pending or confirmed future
// reservation, re-running the full validation against the new interval. The
// active flag of the space is deliberately not rechecked: deactivating a
// space does not strand bookings already on it.
func (s *ReservationService) Edit(ctx context.Context, id string, actor booking.Actor, in EditInput) (*models.Reservation, error) {
	now := s.now()

	var updated *models.Reservation
	err := s.withRetry(ctx, func() error {
		r, err := s.store.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if actor.ID != r.RequesterID && !actor.IsAdmin() {
			return booking.ErrPermissionDenied
		}
		if r.IsTerminal() {
			return booking.ErrAlreadyTerminal
		}
		if !booking.CanEdit(r, now) {
			return booking.ErrEditNotAllowed
		}

		next := *r
		if in.Date != nil {
			next.Date = *in.Date
		}
		if in.StartTime != nil {
			next.StartTime = *in.StartTime
		}
		if in.EndTime != nil {
			next.EndTime = *in.EndTime
		}
		if in.Reason != nil {
			next.Reason = *in.Reason
		}
		if in.Description != nil {
			next.Description = *in.Description
		}

		if err := booking.ValidateInterval(next.Date, next.StartTime, next.EndTime, now); err != nil {
			metrics.IncValidationFailure(failureReason(err))
			return err
		}
		if err := booking.ValidateAdvance(next.Date, now, s.policy.MaxAdvanceDays); err != nil {
			metrics.IncValidationFailure(failureReason(err))
			return err
		}

		err = s.withSlotLock(ctx, next.SpaceID, next.Date, func(ctx context.Context) error {
			conflict, err := s.store.FindConflict(ctx, next.SpaceID, next.Date, next.StartTime, next.EndTime, next.ID)
			if err != nil {
				return err
			}
			if conflict != nil {
				return conflictError(conflict)
			}
			return s.store.UpdateReservationInterval(ctx, &next)
		})
		if err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		if booking.IsConflict(err) {
			metrics.IncValidationFailure("conflict")
		}
		return nil, err
	}

	s.publish(events.TypeReservationUpdated, updated)
	s.logger.Info().Str("reservation_id", id).Msg("reservation rescheduled")
	return updated, nil
}

// Confirm approves a pending reservation on behalf of an administrator and
// records who confirmed it. Confirming an already confirmed reservation is
// an informational no-op: changed is false and the record stays untouched.
func (s *ReservationService) Confirm(ctx context.Context, id string, actor booking.Actor) (r *models.Reservation, changed bool, err error) {
	err = s.withRetry(ctx, func() error {
		cur, err := s.store.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		ch, err := booking.Confirm(cur, actor)
		if err != nil {
			return err
		}
		if ch {
			if err := s.store.UpdateReservationStatus(ctx, cur.ID, cur.Version, cur.Status, cur.ConfirmedBy); err != nil {
				return err
			}
			cur.Version++
		}
		r, changed = cur, ch
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		metrics.IncAdminDecision("confirmed")
		s.publish(events.TypeReservationConfirmed, r)
		s.logger.Info().Str("reservation_id", id).Int64("confirmed_by", actor.ID).Msg("reservation confirmed")
	}
	return r, changed, nil
}

// Cancel moves a pending or confirmed reservation to cancelled. The original
// requester and administrators may cancel; nobody else.
func (s *ReservationService) Cancel(ctx context.Context, id string, actor booking.Actor) (*models.Reservation, error) {
	var cancelled *models.Reservation
	err := s.withRetry(ctx, func() error {
		cur, err := s.store.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if err := booking.Cancel(cur, actor); err != nil {
			return err
		}
		if err := s.store.UpdateReservationStatus(ctx, cur.ID, cur.Version, cur.Status, nil); err != nil {
			return err
		}
		cur.Version++
		cancelled = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncReservationCancelled()
	if actor.IsAdmin() && actor.ID != cancelled.RequesterID {
		metrics.IncAdminDecision("cancelled")
	}
	s.publish(events.TypeReservationCancelled, cancelled)
	s.logger.Info().Str("reservation_id", id).Int64("actor", actor.ID).Msg("reservation cancelled")
	return cancelled, nil
}

// CompleteElapsed closes every confirmed reservation whose interval has
// passed. Driven by the periodic sweeper, not exposed to end users.
func (s *ReservationService) CompleteElapsed(ctx context.Context) (int, error) {
	completed, err := s.store.CompleteElapsed(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for i := range completed {
		s.publish(events.TypeReservationCompleted, &completed[i])
	}
	if len(completed) > 0 {
		metrics.AddReservationCompleted(len(completed))
		s.logger.Info().Int("count", len(completed)).Msg("elapsed reservations completed")
	}
	return len(completed), nil
}

// Get returns one reservation.
func (s *ReservationService) Get(ctx context.Context, id string) (*models.Reservation, error) {
	return s.store.GetReservation(ctx, id)
}

// List returns reservations matching the filter.
func (s *ReservationService) List(ctx context.Context, f models.ReservationFilter) ([]models.Reservation, error) {
	return s.store.ListReservations(ctx, f)
}

// Upcoming returns the requester's future pending and confirmed reservations.
func (s *ReservationService) Upcoming(ctx context.Context, requesterID int64, limit int) ([]models.Reservation, error) {
	return s.store.ListUpcomingByRequester(ctx, requesterID, s.now().Format(models.DateLayout), limit)
}

// Calendar returns the active reservations occupying a space in a date range.
func (s *ReservationService) Calendar(ctx context.Context, spaceID int64, fromDate, toDate string) ([]models.Reservation, error) {
	return s.store.ListSpaceCalendar(ctx, spaceID, fromDate, toDate)
}

// withSlotLock runs fn while holding the (space, date) lock. Acquisition is
// bounded by the configured lock wait.
func (s *ReservationService) withSlotLock(ctx context.Context, spaceID int64, date string, fn func(context.Context) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.policy.LockWait)
	defer cancel()

	release, err := s.locker.Acquire(lockCtx, repository.SlotKey(spaceID, date))
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// withRetry runs op, retrying only concurrency conflicts, with linear
// backoff. Every other error is surfaced immediately.
func (s *ReservationService) withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt <= s.policy.Retries; attempt++ {
		if attempt > 0 {
			metrics.IncConcurrencyRetry()
			select {
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err = op()
		if !booking.Retryable(err) {
			return err
		}
	}
	return err
}

// publish emits a reservation event, best-effort.
func (s *ReservationService) publish(eventType string, r *models.Reservation) {
	err := s.bus.PublishJSON(eventType, events.ReservationEvent{
		ReservationID: r.ID,
		SpaceID:       r.SpaceID,
		NewStatus:     r.Status,
		Recipient:     r.RequesterID,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("type", eventType).Msg("event publish failed")
	}
}

func conflictError(c *models.Reservation) error {
	return &booking.ConflictError{
		SpaceID:   c.SpaceID,
		Date:      c.Date,
		StartTime: c.StartTime,
		EndTime:   c.EndTime,
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, booking.ErrPastDate):
		return "past_date"
	case errors.Is(err, booking.ErrInvertedInterval):
		return "inverted_interval"
	case errors.Is(err, booking.ErrInactiveSpace):
		return "inactive_space"
	case errors.Is(err, booking.ErrTooFarAhead):
		return "too_far_ahead"
	case errors.Is(err, booking.ErrTooManyActive):
		return "too_many_active"
	default:
		return "invalid"
	}
}
