package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reservation records a booking of a room for a time slot on one date.
// Slots are half-open: a reservation ending at 10:00 does not overlap
// one starting at 10:00.
//
// Fields:
//  ID            – primary key identifier.
//  RoomID        – booked room.
//  RoomName      – denormalised rooms.name for display.
//  Date          – calendar date, YYYY-MM-DD.
//  StartTime     – HH:MM, inclusive.
//  EndTime       – HH:MM, exclusive.
//  Purpose       – why the room is booked.
//  Requester     – who booked it.
//  WalletAddress – ledger account that paid the booking fee, if any.
//  KJBBurned     – fee burned for the booking, if any.
//  BurnTxHash    – ledger transaction of the burn, if any.
//  CreatedAt     – creation timestamp.
type Reservation struct {
	ID            uint64              `json:"id"`
	RoomID        uint64              `json:"room_id"`
	RoomName      string              `json:"room_name,omitempty"`
	Date          string              `json:"date"`
	StartTime     string              `json:"start_time"`
	EndTime       string              `json:"end_time"`
	Purpose       string              `json:"purpose"`
	Requester     string              `json:"requester"`
	WalletAddress *string             `json:"wallet_address,omitempty"`
	KJBBurned     decimal.NullDecimal `json:"kjb_burned"`
	BurnTxHash    *string             `json:"burn_tx_hash,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// Paid reports whether the reservation was created through the token
// payment flow.
func (r *Reservation) Paid() bool {
	return r.WalletAddress != nil && *r.WalletAddress != ""
}

// ReservationPatch carries the fields of a partial reservation update.
// The room of a reservation cannot be changed.
type ReservationPatch struct {
	Date      *string
	StartTime *string
	EndTime   *string
	Purpose   *string
	Requester *string
}

// Empty reports whether the patch changes nothing.
func (p ReservationPatch) Empty() bool {
	return p.Date == nil && p.StartTime == nil && p.EndTime == nil && p.Purpose == nil && p.Requester == nil
}

// TouchesSlot reports whether the patch moves the reservation in time.
func (p ReservationPatch) TouchesSlot() bool {
	return p.Date != nil || p.StartTime != nil || p.EndTime != nil
}
