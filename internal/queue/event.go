// Package queue carries reservation lifecycle events over RabbitMQ: a
// publisher used by the service layer and a background consumer that
// keeps an append-only audit log of them.
package queue

import (
	"time"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// QueueName is the durable queue all reservation events go to.
const QueueName = "reservation.events"

// Event types.
const (
	EventCreated         = "reservation.created"
	EventUpdated         = "reservation.updated"
	EventCancelled       = "reservation.cancelled"
	EventPaymentOrphaned = "reservation.payment_orphaned"
)

// ReservationEvent is published after a reservation changes.  It holds
// enough to audit the change without reading the database.
type ReservationEvent struct {
	Type          string `json:"type"`
	ReservationID uint64 `json:"reservation_id,omitempty"`
	RoomID        uint64 `json:"room_id"`
	RoomName      string `json:"room_name,omitempty"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Requester     string `json:"requester"`
	WalletAddress string `json:"wallet_address,omitempty"`
	KJBBurned     string `json:"kjb_burned,omitempty"`
	BurnTxHash    string `json:"burn_tx_hash,omitempty"`
	Error         string `json:"error,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// NewReservationEvent builds an event of the given type from r.
func NewReservationEvent(typ string, r *model.Reservation, at time.Time) ReservationEvent {
	ev := ReservationEvent{
		Type:          typ,
		ReservationID: r.ID,
		RoomID:        r.RoomID,
		RoomName:      r.RoomName,
		Date:          r.Date,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Requester:     r.Requester,
		OccurredAt:    at.UTC().Format(time.RFC3339),
	}
	if r.WalletAddress != nil {
		ev.WalletAddress = *r.WalletAddress
	}
	if r.KJBBurned.Valid {
		ev.KJBBurned = r.KJBBurned.Decimal.String()
	}
	if r.BurnTxHash != nil {
		ev.BurnTxHash = *r.BurnTxHash
	}
	return ev
}
