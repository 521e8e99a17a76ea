// Package mocks provides in-memory stores and a testify mock of the
// ledger gateway for service and handler tests.
package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/meeting-room-reservation/internal/ledger"
	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/queue"
	"github.com/iliyamo/meeting-room-reservation/internal/repository"
	"github.com/iliyamo/meeting-room-reservation/internal/schedule"
	"github.com/iliyamo/meeting-room-reservation/internal/service"
)

var (
	_ service.RoomStore        = RoomStore{}
	_ service.ReservationStore = ReservationStore{}
	_ service.EventPublisher   = (*Publisher)(nil)
	_ ledger.Gateway           = (*Gateway)(nil)
)

// Store keeps rooms and reservations in memory and checks conflicts
// under one mutex, like the MySQL store does under its room row lock.
type Store struct {
	mu           sync.Mutex
	rooms        map[uint64]model.Room
	reservations map[uint64]model.Reservation
	nextRoom     uint64
	nextRes      uint64

	FailCreate error
}

func NewStore() *Store {
	return &Store{rooms: map[uint64]model.Room{}, reservations: map[uint64]model.Reservation{}}
}

func (m *Store) AddRoom(name string, capacity int, location string, status model.RoomStatus) model.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRoom++
	rm := model.Room{ID: m.nextRoom, Name: name, Capacity: capacity, Location: location, Status: status}
	m.rooms[rm.ID] = rm
	return rm
}

func (m *Store) AddReservation(r model.Reservation) model.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRes++
	r.ID = m.nextRes
	r.RoomName = m.rooms[r.RoomID].Name
	m.reservations[r.ID] = r
	return r
}

func (m *Store) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reservations)
}

type RoomStore struct{ *Store }

func (s RoomStore) FindByID(_ context.Context, id uint64) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rm, ok := s.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return &rm, nil
}

func (s RoomStore) FindByName(_ context.Context, name string) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rm := range s.rooms {
		if rm.Name == name {
			return &rm, nil
		}
	}
	return nil, repository.ErrRoomNotFound
}

func (s RoomStore) List(context.Context) ([]model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Room, 0, len(s.rooms))
	for _, rm := range s.rooms {
		out = append(out, rm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s RoomStore) Create(_ context.Context, rm *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.rooms {
		if other.Name == rm.Name {
			return repository.ErrDuplicateName
		}
	}
	s.nextRoom++
	rm.ID = s.nextRoom
	s.rooms[rm.ID] = *rm
	return nil
}

func (s RoomStore) Update(_ context.Context, id uint64, p model.RoomPatch) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rm, ok := s.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	if p.Name != nil {
		rm.Name = *p.Name
	}
	if p.Capacity != nil {
		rm.Capacity = *p.Capacity
	}
	if p.Location != nil {
		rm.Location = *p.Location
	}
	if p.Status != nil {
		rm.Status = *p.Status
	}
	s.rooms[id] = rm
	return &rm, nil
}

func (s RoomStore) UpdateStatus(ctx context.Context, id uint64, st model.RoomStatus) (*model.Room, error) {
	return s.Update(ctx, id, model.RoomPatch{Status: &st})
}

func (s RoomStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return repository.ErrRoomNotFound
	}
	for _, r := range s.reservations {
		if r.RoomID == id {
			return repository.ErrHasReservations
		}
	}
	delete(s.rooms, id)
	return nil
}

func (s RoomStore) CountReservations(_ context.Context, id uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.reservations {
		if r.RoomID == id {
			n++
		}
	}
	return n, nil
}

type ReservationStore struct{ *Store }

func (s ReservationStore) FindByID(_ context.Context, id uint64) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	return &r, nil
}

func (s ReservationStore) filter(keep func(model.Reservation) bool) []model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Reservation{}
	for _, r := range s.reservations {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

func (s ReservationStore) ListByRoomAndDate(_ context.Context, roomID uint64, date string) ([]model.Reservation, error) {
	return s.filter(func(r model.Reservation) bool { return r.RoomID == roomID && r.Date == date }), nil
}

func (s ReservationStore) ListByDate(_ context.Context, date string) ([]model.Reservation, error) {
	return s.filter(func(r model.Reservation) bool { return r.Date == date }), nil
}

func (s ReservationStore) ListAll(context.Context) ([]model.Reservation, error) {
	return s.filter(func(model.Reservation) bool { return true }), nil
}

func (s ReservationStore) ListUpcoming(_ context.Context, from string, limit int) ([]model.Reservation, error) {
	out := s.filter(func(r model.Reservation) bool { return r.Date >= from })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// conflictLocked must be called with mu held.
func (s ReservationStore) conflictLocked(roomID uint64, date, start, end string, exclude uint64) error {
	var same []model.Reservation
	for _, r := range s.reservations {
		if r.RoomID == roomID && r.Date == date {
			same = append(same, r)
		}
	}
	if hit, found := schedule.FindConflict(same, schedule.MustTimeOfDay(start), schedule.MustTimeOfDay(end), exclude); found {
		return fmt.Errorf("%w: overlaps reservation %d", repository.ErrConflict, hit.ID)
	}
	return nil
}

func (s ReservationStore) Create(_ context.Context, res *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreate != nil {
		return s.FailCreate
	}
	rm, ok := s.rooms[res.RoomID]
	if !ok {
		return repository.ErrRoomNotFound
	}
	if err := s.conflictLocked(res.RoomID, res.Date, res.StartTime, res.EndTime, 0); err != nil {
		return err
	}
	s.nextRes++
	res.ID = s.nextRes
	res.RoomName = rm.Name
	res.CreatedAt = time.Now()
	s.reservations[res.ID] = *res
	return nil
}

func (s ReservationStore) Update(_ context.Context, id uint64, p model.ReservationPatch) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.StartTime != nil {
		r.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		r.EndTime = *p.EndTime
	}
	if p.Purpose != nil {
		r.Purpose = *p.Purpose
	}
	if p.Requester != nil {
		r.Requester = *p.Requester
	}
	if p.TouchesSlot() {
		if err := s.conflictLocked(r.RoomID, r.Date, r.StartTime, r.EndTime, id); err != nil {
			return nil, err
		}
	}
	s.reservations[id] = r
	return &r, nil
}

func (s ReservationStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[id]; !ok {
		return repository.ErrReservationNotFound
	}
	delete(s.reservations, id)
	return nil
}

// Gateway is a testify mock of ledger.Gateway.
type Gateway struct{ mock.Mock }

func (m *Gateway) receipt(args mock.Arguments) (*ledger.Receipt, error) {
	rc, _ := args.Get(0).(*ledger.Receipt)
	return rc, args.Error(1)
}

func (m *Gateway) Balance(ctx context.Context, address string) (*ledger.Balance, error) {
	args := m.Called(ctx, address)
	b, _ := args.Get(0).(*ledger.Balance)
	return b, args.Error(1)
}

func (m *Gateway) Unlock(ctx context.Context, address, password string, d time.Duration) error {
	return m.Called(ctx, address, password, d).Error(0)
}

func (m *Gateway) Burn(ctx context.Context, address, password string, amount decimal.Decimal) (*ledger.Receipt, error) {
	return m.receipt(m.Called(ctx, address, password, amount))
}

func (m *Gateway) Transfer(ctx context.Context, from, to, password string, amount decimal.Decimal) (*ledger.Receipt, error) {
	return m.receipt(m.Called(ctx, from, to, password, amount))
}

func (m *Gateway) ClaimGrant(ctx context.Context, address, password string) (*ledger.Receipt, error) {
	return m.receipt(m.Called(ctx, address, password))
}

func (m *Gateway) HasClaimedGrant(ctx context.Context, address string) (bool, error) {
	args := m.Called(ctx, address)
	return args.Bool(0), args.Error(1)
}

func (m *Gateway) Stats(ctx context.Context) (*ledger.Stats, error) {
	args := m.Called(ctx)
	st, _ := args.Get(0).(*ledger.Stats)
	return st, args.Error(1)
}

func (m *Gateway) ContractInfo(ctx context.Context) (*ledger.ContractInfo, error) {
	args := m.Called(ctx)
	info, _ := args.Get(0).(*ledger.ContractInfo)
	return info, args.Error(1)
}

// Publisher keeps every published event.
type Publisher struct {
	mu     sync.Mutex
	events []queue.ReservationEvent
}

func (p *Publisher) Publish(_ context.Context, ev queue.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *Publisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// AmountEq matches a decimal argument numerically.
func AmountEq(want int64) interface{} {
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(want)) })
}
