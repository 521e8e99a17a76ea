package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidTime = errors.New("invalid time, expected HH:MM")
)

// TimeOfDay is a wall-clock time expressed in minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay accepts H:MM or HH:MM between 00:00 and 23:59.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) < 1 || len(hh) > 2 || len(mm) != 2 {
		return 0, ErrInvalidTime
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, ErrInvalidTime
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, ErrInvalidTime
	}
	return TimeOfDay(h*60 + m), nil
}

// MustTimeOfDay is ParseTimeOfDay for literals known to be valid.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(fmt.Sprintf("schedule: bad time literal %q", s))
	}
	return t
}

// String renders the zero-padded HH:MM form stored in the database.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// NormalizeTime parses s and returns its zero-padded form.
func NormalizeTime(s string) (string, error) {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

// ParseDate validates a YYYY-MM-DD calendar date.  Dates that do not
// exist, such as 2025-02-30, are rejected.
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(DateLayout) {
		return "", ErrInvalidDate
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil || d.Format(DateLayout) != s {
		return "", ErrInvalidDate
	}
	return s, nil
}

// Slot is a candidate or existing booking interval on one date.
type Slot struct {
	Date  string
	Start TimeOfDay
	End   TimeOfDay
}

// ParseSlot validates all three parts of a slot.  The returned error
// joins every problem found.
func ParseSlot(date, start, end string) (Slot, error) {
	var errs []error
	d, err := ParseDate(date)
	if err != nil {
		errs = append(errs, err)
	}
	s, err := ParseTimeOfDay(start)
	if err != nil {
		errs = append(errs, fmt.Errorf("start_time: %w", err))
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		errs = append(errs, fmt.Errorf("end_time: %w", err))
	}
	if len(errs) == 0 && s >= e {
		errs = append(errs, ErrEmptyInterval)
	}
	if len(errs) > 0 {
		return Slot{}, errors.Join(errs...)
	}
	return Slot{Date: d, Start: s, End: e}, nil
}

// Minutes is the length of the slot.
func (s Slot) Minutes() int { return Duration(s.Start, s.End) }
