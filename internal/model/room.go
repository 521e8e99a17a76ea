package model

import "time"

// RoomStatus is the status of a meeting room.  Only available, occupied
// and maintenance are ever persisted; unavailable is a projected value
// returned for slot queries.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
	RoomUnavailable RoomStatus = "unavailable"
)

// PersistableStatuses lists the administrative states accepted by the
// rooms.status column.
var PersistableStatuses = []RoomStatus{RoomAvailable, RoomOccupied, RoomMaintenance}

// Valid reports whether s may be stored on a room.
func (s RoomStatus) Valid() bool {
	for _, p := range PersistableStatuses {
		if s == p {
			return true
		}
	}
	return false
}

// Room represents a bookable meeting room as stored in the `rooms` table.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – globally unique room name.
//  Capacity  – number of seats, always positive.
//  Location  – free text location (floor, building).
//  Status    – administrative status; the value returned to clients is
//              recomputed from reservations on every read.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Room struct {
	ID        uint64     `json:"id"`         // rooms.id
	Name      string     `json:"name"`       // rooms.name
	Capacity  int        `json:"capacity"`   // rooms.capacity
	Location  string     `json:"location"`   // rooms.location
	Status    RoomStatus `json:"status"`     // rooms.status
	CreatedAt time.Time  `json:"created_at"` // rooms.created_at
	UpdatedAt time.Time  `json:"updated_at"` // rooms.updated_at
}

// RoomPatch carries the fields of a partial room update.  Nil pointers
// leave the stored value untouched.
type RoomPatch struct {
	Name     *string
	Capacity *int
	Location *string
	Status   *RoomStatus
}

// Empty reports whether the patch changes nothing.
func (p RoomPatch) Empty() bool {
	return p.Name == nil && p.Capacity == nil && p.Location == nil && p.Status == nil
}
