package schedule

import "github.com/iliyamo/meeting-room-reservation/internal/model"

// Overlaps reports whether [s1, e1) and [s2, e2) share at least one
// minute.  Adjacent intervals do not overlap.
func Overlaps(s1, e1, s2, e2 TimeOfDay) bool {
	return s1 < e2 && s2 < e1
}

// Interval returns the parsed slot of a stored reservation.  ok is false
// when the stored times cannot be parsed.
func Interval(r model.Reservation) (start, end TimeOfDay, ok bool) {
	s, err := ParseTimeOfDay(r.StartTime)
	if err != nil {
		return 0, 0, false
	}
	e, err := ParseTimeOfDay(r.EndTime)
	if err != nil {
		return 0, 0, false
	}
	return s, e, true
}

// FindConflict returns the first reservation in existing whose interval
// overlaps [start, end).  A reservation with ID excludeID is ignored, so
// an update is never in conflict with itself; pass 0 to exclude nothing.
// Callers are expected to pass the reservations of one room and date.
func FindConflict(existing []model.Reservation, start, end TimeOfDay, excludeID uint64) (model.Reservation, bool) {
	for _, r := range existing {
		if excludeID != 0 && r.ID == excludeID {
			continue
		}
		s, e, ok := Interval(r)
		if !ok {
			continue
		}
		if Overlaps(start, end, s, e) {
			return r, true
		}
	}
	return model.Reservation{}, false
}

// HasConflict reports whether [start, end) overlaps any reservation in
// existing other than excludeID.
func HasConflict(existing []model.Reservation, start, end TimeOfDay, excludeID uint64) bool {
	_, found := FindConflict(existing, start, end, excludeID)
	return found
}

// Contains reports whether the reservation is running at t.
func Contains(r model.Reservation, t TimeOfDay) bool {
	s, e, ok := Interval(r)
	return ok && s <= t && t < e
}
