// Package schedule holds the pure booking rules of the service: parsing
// of dates and times of day, half-open interval overlap, the business
// hour and duration policy, and the projection of a room's displayed
// status from its reservations.  Nothing in this package performs I/O;
// "now" is always supplied by a Clock.
package schedule

import "time"

// DateLayout is the wire and storage layout of reservation dates.
const DateLayout = "2006-01-02"

// Clock supplies the current time.  Services take a Clock instead of
// calling time.Now so that "today" can be pinned in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location.  A nil Location
// means time.Local.
type SystemClock struct {
	Location *time.Location
}

// Now returns the current time in the clock's location.
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return time.Time(c) }

// Today formats the date part of now.
func Today(now time.Time) string { return now.Format(DateLayout) }

// TimeOf returns the time of day of now, truncated to the minute.
func TimeOf(now time.Time) TimeOfDay {
	return TimeOfDay(now.Hour()*60 + now.Minute())
}
