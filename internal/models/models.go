// Package models defines the persistent domain records of the reservation system.
package models

import "time"

// Reservation statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	// DateLayout is the calendar-day format used across the system.
	DateLayout = "2006-01-02"
	// TimeLayout is the time-of-day format. Zero-padded, so lexicographic
	// comparison of two values matches chronological order.
	TimeLayout = "15:04"
)

// SpaceType groups spaces by kind (classroom, lab, auditorium).
// Capacity bounds are advisory metadata.
type SpaceType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MinCapacity int    `json:"min_capacity"`
	MaxCapacity int    `json:"max_capacity"`
}

// Space is a bookable physical space.
type Space struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	TypeID      int64     `json:"type_id"`
	Code        string    `json:"code"`
	Capacity    int       `json:"capacity"`
	Location    string    `json:"location"`
	Description string    `json:"description,omitempty"`
	Equipment   string    `json:"equipment,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Reservation is a requester's claim on a space for one date and time interval.
// The interval is half-open [StartTime, EndTime): a reservation ending at 10:00
// does not collide with one starting at 10:00.
type Reservation struct {
	ID          string    `json:"id"`
	SpaceID     int64     `json:"space_id"`
	RequesterID int64     `json:"requester_id"`
	Date        string    `json:"date"`       // DateLayout
	StartTime   string    `json:"start_time"` // TimeLayout
	EndTime     string    `json:"end_time"`   // TimeLayout
	Reason      string    `json:"reason"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	AutoConfirm bool      `json:"auto_confirm"`
	ConfirmedBy *int64    `json:"confirmed_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int64     `json:"version"`
}

// IsActive reports whether the reservation still occupies its slot.
// Cancelled and completed reservations are outside the overlap universe.
func (r *Reservation) IsActive() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

// IsTerminal reports whether the reservation reached a final status.
func (r *Reservation) IsTerminal() bool {
	return r.Status == StatusCancelled || r.Status == StatusCompleted
}

// OverlapsWith checks whether this reservation collides with another one on
// the same space and date, under half-open interval semantics.
func (r *Reservation) OverlapsWith(other *Reservation) bool {
	if r.SpaceID != other.SpaceID || r.Date != other.Date {
		return false
	}
	return Overlaps(r.StartTime, r.EndTime, other.StartTime, other.EndTime)
}

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) intersect.
// Times are TimeLayout strings, compared lexicographically.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	return aStart < bEnd && aEnd > bStart
}

// EndInstant returns the wall-clock moment the reservation ends, in loc.
func (r *Reservation) EndInstant(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, r.Date+" "+r.EndTime, loc)
}

// Elapsed reports whether the reservation's interval has fully passed at now.
func (r *Reservation) Elapsed(now time.Time) bool {
	end, err := r.EndInstant(now.Location())
	if err != nil {
		return false
	}
	return !now.Before(end)
}

// ReservationFilter narrows reservation listings. Zero values mean no filter.
type ReservationFilter struct {
	SpaceID     int64
	RequesterID int64
	Date        string
	Status      string
	Limit       int
}
