package service

import (
	"context"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/queue"
)

// RoomStore is the room persistence used by the services.  It is
// implemented by repository.RoomRepo.
type RoomStore interface {
	FindByID(ctx context.Context, id uint64) (*model.Room, error)
	FindByName(ctx context.Context, name string) (*model.Room, error)
	List(ctx context.Context) ([]model.Room, error)
	Create(ctx context.Context, rm *model.Room) error
	Update(ctx context.Context, id uint64, p model.RoomPatch) (*model.Room, error)
	UpdateStatus(ctx context.Context, id uint64, status model.RoomStatus) (*model.Room, error)
	Delete(ctx context.Context, id uint64) error
	CountReservations(ctx context.Context, roomID uint64) (int, error)
}

// ReservationStore is the reservation persistence used by the services.
// Create and Update must re-check for overlaps atomically with the write
// and fail with repository.ErrConflict.
type ReservationStore interface {
	FindByID(ctx context.Context, id uint64) (*model.Reservation, error)
	ListByRoomAndDate(ctx context.Context, roomID uint64, date string) ([]model.Reservation, error)
	ListByDate(ctx context.Context, date string) ([]model.Reservation, error)
	ListAll(ctx context.Context) ([]model.Reservation, error)
	ListUpcoming(ctx context.Context, from string, limit int) ([]model.Reservation, error)
	Create(ctx context.Context, res *model.Reservation) error
	Update(ctx context.Context, id uint64, p model.ReservationPatch) (*model.Reservation, error)
	Delete(ctx context.Context, id uint64) error
}

// EventPublisher delivers reservation events.  Failures never fail the
// operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}
