// Package booking governs the reservation lifecycle: which status transitions
// are legal, who may trigger them, and which errors they raise. Statuses are
// never mutated as a side effect of persistence; every change goes through an
// explicit transition function here.
package booking

import (
	"time"

	"github.com/dramirezdlp99/sistema-reservas/internal/models"
)

// Role is the capability an actor carries into a transition call. It is
// decided once at the boundary and passed in, never inferred downstream.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Actor identifies who is requesting a transition.
type Actor struct {
	ID   int64
	Role Role
}

// IsAdmin reports whether the actor holds administrative capability.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// transitions lists the legal status transitions. Cancelled and completed are
// terminal.
var transitions = map[string][]string{
	models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusCancelled, models.StatusCompleted},
	models.StatusCancelled: {},
	models.StatusCompleted: {},
}

// CanTransition checks if moving from one status to another is allowed.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// InitialStatus computes the status of a newly created reservation. With
// auto-confirmation the reservation skips administrative approval; the
// confirmer field stays empty in that case.
func InitialStatus(autoConfirm bool) string {
	if autoConfirm {
		return models.StatusConfirmed
	}
	return models.StatusPending
}

// Confirm advances a pending reservation to confirmed on behalf of an
// administrator, recording who confirmed it. Confirming an already-confirmed
// reservation is an informational no-op (changed=false); confirming a
// terminal reservation fails with ErrAlreadyTerminal.
func Confirm(r *models.Reservation, actor Actor) (changed bool, err error) {
	if !actor.IsAdmin() {
		return false, ErrPermissionDenied
	}
	switch r.Status {
	case models.StatusPending:
		r.Status = models.StatusConfirmed
		id := actor.ID
		r.ConfirmedBy = &id
		return true, nil
	case models.StatusConfirmed:
		// Already processed: not an error, nothing to do.
		return false, nil
	default:
		return false, ErrAlreadyTerminal
	}
}

// Cancel moves a pending or confirmed reservation to cancelled. Only the
// original requester or an administrator may cancel.
func Cancel(r *models.Reservation, actor Actor) error {
	if actor.ID != r.RequesterID && !actor.IsAdmin() {
		return ErrPermissionDenied
	}
	if r.IsTerminal() {
		return ErrAlreadyTerminal
	}
	r.Status = models.StatusCancelled
	return nil
}

// Complete closes a confirmed reservation whose interval has fully elapsed.
// It is system-driven, not exposed to end users. Returns false when the
// reservation is not eligible.
func Complete(r *models.Reservation, now time.Time) bool {
	if r.Status != models.StatusConfirmed || !r.Elapsed(now) {
		return false
	}
	r.Status = models.StatusCompleted
	return true
}

// CanEdit reports whether the reservation's interval may still be changed:
// it must be pending or confirmed and its date must not have passed. The
// requester-or-admin rule applies on top of this.
func CanEdit(r *models.Reservation, now time.Time) bool {
	if r.IsTerminal() {
		return false
	}
	return r.Date >= now.Format(models.DateLayout)
}
