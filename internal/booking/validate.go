package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/dramirezdlp99/sistema-reservas/internal/models"
)

// ErrBadFormat wraps malformed date or time inputs.
var ErrBadFormat = errors.New("malformed date or time")

// Draft holds the fields of a reservation before validation.
type Draft struct {
	SpaceID     int64
	RequesterID int64
	Date        string
	StartTime   string
	EndTime     string
	Reason      string
	Description string
	AutoConfirm bool
}

// ValidateInterval runs the temporal sanity checks on a requested slot, in
// order, failing on the first violated rule:
//
//  1. the date must not be in the past relative to now
//  2. the end time must be after the start time
//
// Formats are checked first so later comparisons are meaningful. The overlap
// check against existing reservations is composed on top by the service; it
// needs a transactionally consistent repository view and does not belong here.
func ValidateInterval(date, start, end string, now time.Time) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return fmt.Errorf("%w: date %q, expected YYYY-MM-DD", ErrBadFormat, date)
	}
	if _, err := time.Parse(models.TimeLayout, start); err != nil {
		return fmt.Errorf("%w: start time %q, expected HH:MM", ErrBadFormat, start)
	}
	if _, err := time.Parse(models.TimeLayout, end); err != nil {
		return fmt.Errorf("%w: end time %q, expected HH:MM", ErrBadFormat, end)
	}

	if date < now.Format(models.DateLayout) {
		return ErrPastDate
	}
	if end <= start {
		return ErrInvertedInterval
	}
	return nil
}

// ValidateAdvance enforces the optional maximum advance window. A zero
// maxDays disables the check.
func ValidateAdvance(date string, now time.Time, maxDays int) error {
	if maxDays <= 0 {
		return nil
	}
	limit := now.AddDate(0, 0, maxDays).Format(models.DateLayout)
	if date > limit {
		return ErrTooFarAhead
	}
	return nil
}
