package schedule

import (
	"time"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// StatusNow derives the status shown for a room right now from today's
// reservations of that room.  A room under maintenance is always shown
// as such, whatever its bookings.
func StatusNow(room model.Room, todays []model.Reservation, now time.Time) model.RoomStatus {
	if room.Status == model.RoomMaintenance {
		return model.RoomMaintenance
	}
	today := Today(now)
	t := TimeOf(now)
	for _, r := range todays {
		if r.Date != "" && r.Date != today {
			continue
		}
		if Contains(r, t) {
			return model.RoomOccupied
		}
	}
	return model.RoomAvailable
}

// StatusForSlot derives the status of a room for a requested slot from
// all reservations of that room on slot.Date.
//
//   - an overlapping reservation is running right now (today only): occupied
//   - any other overlapping reservation: unavailable
//   - no overlap but the slot already ended today: unavailable
//   - otherwise: available
//
// A room under maintenance cannot be booked and is reported unavailable.
func StatusForSlot(room model.Room, slot Slot, reservations []model.Reservation, now time.Time) model.RoomStatus {
	if room.Status == model.RoomMaintenance {
		return model.RoomUnavailable
	}
	isToday := slot.Date == Today(now)
	t := TimeOf(now)
	conflicted := false
	for _, r := range reservations {
		s, e, ok := Interval(r)
		if !ok || !Overlaps(slot.Start, slot.End, s, e) {
			continue
		}
		if isToday && s <= t && t < e {
			return model.RoomOccupied
		}
		conflicted = true
	}
	if conflicted {
		return model.RoomUnavailable
	}
	if isToday && slot.End <= t {
		return model.RoomUnavailable
	}
	return model.RoomAvailable
}
