package schedule

import "errors"

// ErrEmptyInterval is returned when end is not after start.
var ErrEmptyInterval = errors.New("end_time must be later than start_time")

// Booking policy.  Both ends of a reservation must fall inside business
// hours; the end may equal CloseAt.
var (
	OpenAt  = MustTimeOfDay("09:00")
	CloseAt = MustTimeOfDay("18:00")
)

const (
	MinDurationMinutes = 30
	MaxDurationMinutes = 480
)

// Duration returns end - start in minutes.
func Duration(start, end TimeOfDay) int { return int(end - start) }

// WithinBusinessHours reports whether [start, end) lies inside
// [OpenAt, CloseAt].
func WithinBusinessHours(start, end TimeOfDay) bool {
	return start >= OpenAt && start <= CloseAt && end >= OpenAt && end <= CloseAt
}

// DurationAllowed reports whether a booking of the given length is
// accepted.
func DurationAllowed(minutes int) bool {
	return minutes >= MinDurationMinutes && minutes <= MaxDurationMinutes
}
