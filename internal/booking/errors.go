package booking

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by validation and transitions. All are scoped to a
// single request; none is fatal to the process.
var (
	ErrPastDate         = errors.New("reservation date is in the past")
	ErrInvertedInterval = errors.New("end time must be after start time")
	ErrInactiveSpace    = errors.New("space is not active")
	ErrAlreadyTerminal  = errors.New("reservation is cancelled or completed")
	ErrPermissionDenied = errors.New("actor lacks permission for this operation")
	ErrNotFound         = errors.New("reservation not found")
	ErrSpaceNotFound    = errors.New("space not found")
	ErrEditNotAllowed   = errors.New("reservation can no longer be edited")
	ErrTooFarAhead      = errors.New("reservation date exceeds the advance window")
	ErrTooManyActive    = errors.New("requester has too many active reservations")

	// ErrConcurrency signals lock or transaction contention. It is the only
	// error the service retries before surfacing it to the caller.
	ErrConcurrency = errors.New("concurrent booking conflict, retry")
)

// ConflictError reports a schedule collision, carrying the interval already
// occupying the slot so callers can build a useful message.
type ConflictError struct {
	SpaceID   int64
	Date      string
	StartTime string
	EndTime   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("space already reserved from %s to %s on %s", e.StartTime, e.EndTime, e.Date)
}

// IsConflict checks whether err is a schedule conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// Retryable reports whether the operation that produced err may be retried.
func Retryable(err error) bool {
	return errors.Is(err, ErrConcurrency)
}
