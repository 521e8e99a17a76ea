package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/repository"
	"github.com/iliyamo/meeting-room-reservation/internal/schedule"
)

// RoomService manages rooms and projects their displayed status from
// reservations.  The stored status is only an administrative flag; what
// clients see is recomputed on every read.
type RoomService struct {
	Rooms        RoomStore
	Reservations ReservationStore
	Clock        schedule.Clock
	Log          *logrus.Logger
}

// RoomInput is the body of a room create or update.  On update nil
// fields are left unchanged.
type RoomInput struct {
	Name     *string
	Capacity *int
	Location *string
	Status   *string
}

func (s *RoomService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *RoomService) log() *logrus.Entry {
	l := s.Log
	if l == nil {
		l = logrus.StandardLogger()
	}
	return l.WithField("component", "room-service")
}

// SlotQuery parses the optional date/startTime/endTime filter of a room
// listing.  All three must be given together; none means "now".
func SlotQuery(date, start, end string) (*schedule.Slot, error) {
	if date == "" && start == "" && end == "" {
		return nil, nil
	}
	if date == "" || start == "" || end == "" {
		return nil, invalid("date, startTime and endTime must be provided together")
	}
	slot, err := schedule.ParseSlot(date, start, end)
	if err != nil {
		var v validator
		if errors.Is(err, schedule.ErrInvalidDate) {
			v.add("date must be a valid YYYY-MM-DD date")
		}
		if errors.Is(err, schedule.ErrInvalidTime) {
			v.add("startTime and endTime must be valid HH:MM times")
		}
		if errors.Is(err, schedule.ErrEmptyInterval) {
			v.add("endTime must be later than startTime")
		}
		return nil, v.err()
	}
	return &slot, nil
}

// ListWithStatus returns every room with its projected status.  With a
// nil slot the status is the one right now; otherwise it is the status
// for that slot.
func (s *RoomService) ListWithStatus(ctx context.Context, slot *schedule.Slot) ([]model.Room, error) {
	rooms, err := s.Rooms.List(ctx)
	if err != nil {
		return nil, storageErr("list rooms", err)
	}
	now := s.now()
	date := schedule.Today(now)
	if slot != nil {
		date = slot.Date
	}
	all, err := s.Reservations.ListByDate(ctx, date)
	if err != nil {
		return nil, storageErr("list reservations", err)
	}
	byRoom := make(map[uint64][]model.Reservation)
	for _, r := range all {
		byRoom[r.RoomID] = append(byRoom[r.RoomID], r)
	}
	for i := range rooms {
		rooms[i].Status = s.project(rooms[i], slot, byRoom[rooms[i].ID], now)
	}
	return rooms, nil
}

func (s *RoomService) project(rm model.Room, slot *schedule.Slot, rs []model.Reservation, now time.Time) model.RoomStatus {
	if slot == nil {
		return schedule.StatusNow(rm, rs, now)
	}
	return schedule.StatusForSlot(rm, *slot, rs, now)
}

// GetWithStatus returns one room with its status right now.
func (s *RoomService) GetWithStatus(ctx context.Context, id uint64) (*model.Room, error) {
	rm, err := s.Rooms.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr("find room", err)
	}
	now := s.now()
	todays, err := s.Reservations.ListByRoomAndDate(ctx, id, schedule.Today(now))
	if err != nil {
		return nil, storageErr("list reservations", err)
	}
	rm.Status = schedule.StatusNow(*rm, todays, now)
	return rm, nil
}

// Available returns the rooms whose status right now is available.
func (s *RoomService) Available(ctx context.Context) ([]model.Room, error) {
	return s.filter(ctx, func(rm model.Room) bool { return rm.Status == model.RoomAvailable })
}

// ByCapacity returns the rooms seating at least min people.
func (s *RoomService) ByCapacity(ctx context.Context, min int) ([]model.Room, error) {
	if min <= 0 {
		return nil, invalid("minCapacity must be a positive integer")
	}
	return s.filter(ctx, func(rm model.Room) bool { return rm.Capacity >= min })
}

// ByLocation returns the rooms whose location contains loc, ignoring case.
func (s *RoomService) ByLocation(ctx context.Context, loc string) ([]model.Room, error) {
	loc = strings.ToLower(strings.TrimSpace(loc))
	if loc == "" {
		return nil, invalid("location is required")
	}
	return s.filter(ctx, func(rm model.Room) bool {
		return strings.Contains(strings.ToLower(rm.Location), loc)
	})
}

func (s *RoomService) filter(ctx context.Context, keep func(model.Room) bool) ([]model.Room, error) {
	rooms, err := s.ListWithStatus(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]model.Room, 0, len(rooms))
	for _, rm := range rooms {
		if keep(rm) {
			out = append(out, rm)
		}
	}
	return out, nil
}

func validateRoom(in RoomInput, create bool) (model.RoomPatch, error) {
	var v validator
	var p model.RoomPatch
	if in.Name != nil || create {
		name := ""
		if in.Name != nil {
			name = strings.TrimSpace(*in.Name)
		}
		v.check(name != "", "name is required")
		p.Name = &name
	}
	if in.Capacity != nil || create {
		c := 0
		if in.Capacity != nil {
			c = *in.Capacity
		}
		v.check(c > 0, "capacity must be a positive integer")
		p.Capacity = &c
	}
	if in.Location != nil || create {
		loc := ""
		if in.Location != nil {
			loc = strings.TrimSpace(*in.Location)
		}
		v.check(loc != "", "location is required")
		p.Location = &loc
	}
	if in.Status != nil {
		st := model.RoomStatus(strings.TrimSpace(*in.Status))
		v.check(st.Valid(), "status must be one of available, occupied, maintenance")
		p.Status = &st
	}
	return p, v.err()
}

// Create adds a room.  The status defaults to available.
func (s *RoomService) Create(ctx context.Context, in RoomInput) (*model.Room, error) {
	p, err := validateRoom(in, true)
	if err != nil {
		return nil, err
	}
	if err := s.checkNameFree(ctx, *p.Name, 0); err != nil {
		return nil, err
	}
	rm := &model.Room{Name: *p.Name, Capacity: *p.Capacity, Location: *p.Location, Status: model.RoomAvailable}
	if p.Status != nil {
		rm.Status = *p.Status
	}
	if err := s.Rooms.Create(ctx, rm); err != nil {
		return nil, storageErr("create room", err)
	}
	s.log().WithFields(logrus.Fields{"room_id": rm.ID, "name": rm.Name}).Info("room created")
	return rm, nil
}

// Update changes the given fields of a room.
func (s *RoomService) Update(ctx context.Context, id uint64, in RoomInput) (*model.Room, error) {
	p, err := validateRoom(in, false)
	if err != nil {
		return nil, err
	}
	if p.Empty() {
		return nil, invalid("no fields to update")
	}
	if p.Name != nil {
		if err := s.checkNameFree(ctx, *p.Name, id); err != nil {
			return nil, err
		}
	}
	rm, err := s.Rooms.Update(ctx, id, p)
	if err != nil {
		return nil, storageErr("update room", err)
	}
	s.log().WithField("room_id", id).Info("room updated")
	return rm, nil
}

// UpdateStatus sets the administrative status of a room.
func (s *RoomService) UpdateStatus(ctx context.Context, id uint64, status string) (*model.Room, error) {
	st := model.RoomStatus(strings.TrimSpace(status))
	if !st.Valid() {
		return nil, invalid("status must be one of available, occupied, maintenance")
	}
	rm, err := s.Rooms.UpdateStatus(ctx, id, st)
	if err != nil {
		return nil, storageErr("update room status", err)
	}
	s.log().WithFields(logrus.Fields{"room_id": id, "status": st}).Info("room status changed")
	return rm, nil
}

// checkNameFree fails when another room than self already uses name.
// The unique index still decides races between concurrent writers.
func (s *RoomService) checkNameFree(ctx context.Context, name string, self uint64) error {
	other, err := s.Rooms.FindByName(ctx, name)
	switch {
	case errors.Is(err, repository.ErrRoomNotFound):
		return nil
	case err != nil:
		return storageErr("find room by name", err)
	case other.ID != self:
		return rule(repository.ErrDuplicateName)
	}
	return nil
}

// Delete removes a room that has no reservations.
func (s *RoomService) Delete(ctx context.Context, id uint64) error {
	n, err := s.Rooms.CountReservations(ctx, id)
	if err != nil {
		return storageErr("count room reservations", err)
	}
	if n > 0 {
		return rule(fmt.Errorf("%w: %d", repository.ErrHasReservations, n))
	}
	if err := s.Rooms.Delete(ctx, id); err != nil {
		return storageErr("delete room", err)
	}
	s.log().WithField("room_id", id).Info("room deleted")
	return nil
}
