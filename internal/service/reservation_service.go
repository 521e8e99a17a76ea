package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/meeting-room-reservation/internal/ledger"
	"github.com/iliyamo/meeting-room-reservation/internal/metrics"
	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/queue"
	"github.com/iliyamo/meeting-room-reservation/internal/repository"
	"github.com/iliyamo/meeting-room-reservation/internal/schedule"
)

// DefaultRatePerHour is the booking fee per hour when none is configured.
var DefaultRatePerHour = decimal.NewFromInt(10)

const (
	DefaultUpcomingLimit = 10
	maxUpcomingLimit     = 100
	publishTimeout       = 3 * time.Second
)

// ReservationService implements the reservation lifecycle: validation,
// policy, conflict checks and the optional token-burn payment.
type ReservationService struct {
	Rooms        RoomStore
	Reservations ReservationStore
	Ledger       ledger.Gateway
	Events       EventPublisher
	Clock        schedule.Clock
	RatePerHour  decimal.Decimal
	Log          *logrus.Logger
}

// CreateReservationInput is a booking request.  WalletAddress opts into
// paying the booking fee by burning tokens; Password then unlocks it.
type CreateReservationInput struct {
	RoomID        uint64
	Date          string
	StartTime     string
	EndTime       string
	Purpose       string
	Requester     string
	WalletAddress string
	Password      string
}

// Availability is the answer of CheckAvailability.
type Availability struct {
	Available          bool        `json:"available"`
	Room               *model.Room `json:"room"`
	RequestedDate      string      `json:"requestedDate"`
	RequestedStartTime string      `json:"requestedStartTime"`
	RequestedEndTime   string      `json:"requestedEndTime"`
}

func (s *ReservationService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *ReservationService) log() *logrus.Entry {
	l := s.Log
	if l == nil {
		l = logrus.StandardLogger()
	}
	return l.WithField("component", "reservation-service")
}

func (s *ReservationService) rate() decimal.Decimal {
	if s.RatePerHour.IsPositive() {
		return s.RatePerHour
	}
	return DefaultRatePerHour
}

func (s *ReservationService) gateway() ledger.Gateway {
	if s.Ledger == nil {
		return ledger.Disabled{}
	}
	return s.Ledger
}

func (s *ReservationService) publish(ctx context.Context, typ string, res *model.Reservation, cause error) {
	if s.Events == nil {
		return
	}
	ev := queue.NewReservationEvent(typ, res, s.now())
	if cause != nil {
		ev.Error = cause.Error()
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.Events.Publish(pctx, ev); err != nil {
		s.log().WithError(err).WithField("event", typ).Warn("publish reservation event")
	}
}

func reject(reason string, err error) error {
	metrics.IncReservationRejected(reason)
	return err
}

// validateCreate checks the structure of in and returns the parsed slot.
func (s *ReservationService) validateCreate(in *CreateReservationInput) (schedule.Slot, error) {
	var v validator
	var slot schedule.Slot

	v.check(in.RoomID > 0, "room_id is required")
	date, dateErr := schedule.ParseDate(in.Date)
	if dateErr != nil {
		v.add("date must be a valid YYYY-MM-DD date")
	}
	start, startErr := schedule.ParseTimeOfDay(in.StartTime)
	if startErr != nil {
		v.add("start_time must be a valid HH:MM time")
	}
	end, endErr := schedule.ParseTimeOfDay(in.EndTime)
	if endErr != nil {
		v.add("end_time must be a valid HH:MM time")
	}
	if startErr == nil && endErr == nil && start >= end {
		v.add("end_time must be later than start_time")
	}
	v.check(strings.TrimSpace(in.Purpose) != "", "purpose is required")
	v.check(strings.TrimSpace(in.Requester) != "", "requester is required")
	if dateErr == nil && date < schedule.Today(s.now()) {
		v.add("date must not be in the past")
	}
	if in.WalletAddress != "" {
		v.check(ledger.ValidAddress(in.WalletAddress), "wallet_address must be a 0x-prefixed 40 hex digit address")
		v.check(in.Password != "", "password is required when wallet_address is set")
	}
	if err := v.err(); err != nil {
		return slot, err
	}
	return schedule.Slot{Date: date, Start: start, End: end}, nil
}

// Create books a room.  With a wallet address the fee is burned first
// and the reservation is stored only after the burn is mined.  A burn
// is never retried.
func (s *ReservationService) Create(ctx context.Context, in CreateReservationInput) (*model.Reservation, error) {
	slot, err := s.validateCreate(&in)
	if err != nil {
		return nil, reject("validation", err)
	}

	room, err := s.Rooms.FindByID(ctx, in.RoomID)
	if err != nil {
		return nil, reject("not_found", storageErr("find room", err))
	}
	if room.Status != model.RoomAvailable {
		return nil, reject("room_unavailable", rule(fmt.Errorf("%w: %s is %s", ErrRoomUnavailable, room.Name, room.Status)))
	}
	if !schedule.WithinBusinessHours(slot.Start, slot.End) {
		return nil, reject("out_of_hours", rule(ErrOutOfHours))
	}
	if !schedule.DurationAllowed(slot.Minutes()) {
		return nil, reject("duration", rule(fmt.Errorf("%w: got %d", ErrDuration, slot.Minutes())))
	}

	existing, err := s.Reservations.ListByRoomAndDate(ctx, room.ID, slot.Date)
	if err != nil {
		return nil, storageErr("list reservations", err)
	}
	if hit, found := schedule.FindConflict(existing, slot.Start, slot.End, 0); found {
		return nil, reject("conflict", fmt.Errorf("%w: overlaps %s-%s booked by %s",
			ErrConflict, hit.StartTime, hit.EndTime, hit.Requester))
	}

	res := &model.Reservation{
		RoomID:    room.ID,
		Date:      slot.Date,
		StartTime: slot.Start.String(),
		EndTime:   slot.End.String(),
		Purpose:   strings.TrimSpace(in.Purpose),
		Requester: strings.TrimSpace(in.Requester),
	}

	paid := in.WalletAddress != ""
	if paid {
		// The burn and the insert that follows must not be abandoned
		// when the client goes away; the gateway bounds them instead.
		ctx = context.WithoutCancel(ctx)
		fee := ledger.Fee(slot.Minutes(), s.rate())
		receipt, err := s.gateway().Burn(ctx, in.WalletAddress, in.Password, fee)
		if err != nil {
			metrics.IncTokenBurn(burnResult(err))
			s.log().WithError(err).WithFields(logrus.Fields{
				"wallet": in.WalletAddress, "amount": fee.String(), "room_id": room.ID,
			}).Warn("booking fee burn failed")
			return nil, reject("payment", paymentErr(err))
		}
		metrics.IncTokenBurn("success")
		wallet, tx := in.WalletAddress, receipt.TxHash
		res.WalletAddress = &wallet
		res.BurnTxHash = &tx
		res.KJBBurned = decimal.NewNullDecimal(fee)
	}

	if err := s.Reservations.Create(ctx, res); err != nil {
		if paid {
			return nil, s.orphaned(ctx, res, err)
		}
		if errors.Is(err, repository.ErrConflict) {
			metrics.IncReservationRejected("conflict")
		}
		return nil, storageErr("create reservation", err)
	}

	metrics.IncReservationCreated(paid)
	s.log().WithFields(logrus.Fields{
		"reservation_id": res.ID, "room_id": res.RoomID, "date": res.Date,
		"start": res.StartTime, "end": res.EndTime, "paid": paid,
	}).Info("reservation created")
	s.publish(ctx, queue.EventCreated, res, nil)
	return res, nil
}

// orphaned reports a burn that went through for a reservation that was
// then not stored.  Nothing is refunded.
func (s *ReservationService) orphaned(ctx context.Context, res *model.Reservation, cause error) error {
	metrics.IncPaymentOrphaned()
	s.log().WithError(cause).WithFields(logrus.Fields{
		"wallet":  *res.WalletAddress,
		"amount":  res.KJBBurned.Decimal.String(),
		"tx":      *res.BurnTxHash,
		"room_id": res.RoomID,
		"date":    res.Date,
		"start":   res.StartTime,
		"end":     res.EndTime,
	}).Error("PAYMENT ORPHANED: fee burned but reservation not stored")
	s.publish(ctx, queue.EventPaymentOrphaned, res, cause)
	return fmt.Errorf("%w: burn %s of %s KJB from %s: %w",
		ErrPaymentOrphaned, *res.BurnTxHash, res.KJBBurned.Decimal, *res.WalletAddress, storageErr("create reservation", cause))
}

func burnResult(err error) string {
	switch {
	case errors.Is(err, ledger.ErrAuthFailed):
		return "auth_failed"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ledger.ErrTimeout):
		return "timeout"
	case errors.Is(err, ledger.ErrUnreachable):
		return "unreachable"
	case errors.Is(err, ledger.ErrReverted):
		return "reverted"
	}
	return "error"
}

// UpdateReservationInput carries the fields to change; nil leaves a
// field as stored.
type UpdateReservationInput struct {
	Date      *string
	StartTime *string
	EndTime   *string
	Purpose   *string
	Requester *string
}

// Update re-validates the provided fields and moves or edits a
// reservation.  When the start or end changes, the duration and
// business-hour policy is applied to the resulting interval.
func (s *ReservationService) Update(ctx context.Context, id uint64, in UpdateReservationInput) (*model.Reservation, error) {
	cur, err := s.Reservations.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr("find reservation", err)
	}

	var v validator
	var patch model.ReservationPatch
	if in.Date != nil {
		if d, err := schedule.ParseDate(*in.Date); err != nil {
			v.add("date must be a valid YYYY-MM-DD date")
		} else if d < schedule.Today(s.now()) {
			v.add("date must not be in the past")
		} else {
			patch.Date = &d
		}
	}
	if in.StartTime != nil {
		if t, err := schedule.NormalizeTime(*in.StartTime); err != nil {
			v.add("start_time must be a valid HH:MM time")
		} else {
			patch.StartTime = &t
		}
	}
	if in.EndTime != nil {
		if t, err := schedule.NormalizeTime(*in.EndTime); err != nil {
			v.add("end_time must be a valid HH:MM time")
		} else {
			patch.EndTime = &t
		}
	}
	if in.Purpose != nil {
		p := strings.TrimSpace(*in.Purpose)
		v.check(p != "", "purpose must not be empty")
		patch.Purpose = &p
	}
	if in.Requester != nil {
		r := strings.TrimSpace(*in.Requester)
		v.check(r != "", "requester must not be empty")
		patch.Requester = &r
	}
	var start, end schedule.TimeOfDay
	retimed := patch.StartTime != nil || patch.EndTime != nil
	if retimed {
		startStr, endStr := cur.StartTime, cur.EndTime
		if patch.StartTime != nil {
			startStr = *patch.StartTime
		}
		if patch.EndTime != nil {
			endStr = *patch.EndTime
		}
		var serr, eerr error
		start, serr = schedule.ParseTimeOfDay(startStr)
		end, eerr = schedule.ParseTimeOfDay(endStr)
		if err := errors.Join(serr, eerr); err != nil {
			return nil, fmt.Errorf("stored reservation %d: %w: %w", id, ErrStorage, err)
		}
		v.check(start < end, "end_time must be later than start_time")
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, invalid("no fields to update")
	}
	if retimed {
		if !schedule.DurationAllowed(schedule.Duration(start, end)) {
			return nil, rule(fmt.Errorf("%w: got %d", ErrDuration, schedule.Duration(start, end)))
		}
		if !schedule.WithinBusinessHours(start, end) {
			return nil, rule(ErrOutOfHours)
		}
	}

	updated, err := s.Reservations.Update(ctx, id, patch)
	if err != nil {
		return nil, storageErr("update reservation", err)
	}
	s.log().WithField("reservation_id", id).Info("reservation updated")
	s.publish(ctx, queue.EventUpdated, updated, nil)
	return updated, nil
}

// Delete cancels a reservation.  A paid reservation is only cancelled
// by someone who can unlock its wallet with password.
func (s *ReservationService) Delete(ctx context.Context, id uint64, password string) error {
	res, err := s.Reservations.FindByID(ctx, id)
	if err != nil {
		return storageErr("find reservation", err)
	}
	if res.Paid() {
		if password == "" {
			return fmt.Errorf("%w: password is required to cancel a paid reservation", ErrAuthentication)
		}
		if err := s.gateway().Unlock(ctx, *res.WalletAddress, password, ledger.AuthUnlock); err != nil {
			s.log().WithError(err).WithFields(logrus.Fields{
				"reservation_id": id, "wallet": *res.WalletAddress,
			}).Warn("wallet authentication failed")
			return fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
	}
	if err := s.Reservations.Delete(ctx, id); err != nil {
		return storageErr("delete reservation", err)
	}
	metrics.IncReservationCanceled()
	s.log().WithField("reservation_id", id).Info("reservation deleted")
	s.publish(ctx, queue.EventCancelled, res, nil)
	return nil
}

// Get returns one reservation.
func (s *ReservationService) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := s.Reservations.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr("find reservation", err)
	}
	return res, nil
}

// List returns every reservation, newest date first.
func (s *ReservationService) List(ctx context.Context) ([]model.Reservation, error) {
	out, err := s.Reservations.ListAll(ctx)
	if err != nil {
		return nil, storageErr("list reservations", err)
	}
	return out, nil
}

// Upcoming returns up to limit reservations from today on.  A limit
// outside 1..100 falls back to the default.
func (s *ReservationService) Upcoming(ctx context.Context, limit int) ([]model.Reservation, error) {
	if limit <= 0 || limit > maxUpcomingLimit {
		limit = DefaultUpcomingLimit
	}
	out, err := s.Reservations.ListUpcoming(ctx, schedule.Today(s.now()), limit)
	if err != nil {
		return nil, storageErr("list upcoming reservations", err)
	}
	return out, nil
}

// ByDate returns the reservations on date.
func (s *ReservationService) ByDate(ctx context.Context, date string) ([]model.Reservation, error) {
	d, err := schedule.ParseDate(date)
	if err != nil {
		return nil, invalid("date must be a valid YYYY-MM-DD date")
	}
	out, err := s.Reservations.ListByDate(ctx, d)
	if err != nil {
		return nil, storageErr("list reservations by date", err)
	}
	return out, nil
}

// Today returns today's reservations.
func (s *ReservationService) Today(ctx context.Context) ([]model.Reservation, error) {
	return s.ByDate(ctx, schedule.Today(s.now()))
}

// ByRoom returns today's reservations of an existing room.
func (s *ReservationService) ByRoom(ctx context.Context, roomID uint64) ([]model.Reservation, error) {
	if _, err := s.Rooms.FindByID(ctx, roomID); err != nil {
		return nil, storageErr("find room", err)
	}
	out, err := s.Reservations.ListByRoomAndDate(ctx, roomID, schedule.Today(s.now()))
	if err != nil {
		return nil, storageErr("list room reservations", err)
	}
	return out, nil
}

// CheckAvailability reports whether a slot on a room is free.  It has
// no side effects.
func (s *ReservationService) CheckAvailability(ctx context.Context, roomID uint64, date, start, end string) (*Availability, error) {
	var v validator
	v.check(roomID > 0, "roomId is required")
	slot, err := schedule.ParseSlot(date, start, end)
	if err != nil {
		if errors.Is(err, schedule.ErrInvalidDate) {
			v.add("date must be a valid YYYY-MM-DD date")
		}
		if errors.Is(err, schedule.ErrInvalidTime) {
			v.add("startTime and endTime must be valid HH:MM times")
		}
		if errors.Is(err, schedule.ErrEmptyInterval) {
			v.add("endTime must be later than startTime")
		}
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	room, err := s.Rooms.FindByID(ctx, roomID)
	if err != nil {
		return nil, storageErr("find room", err)
	}
	existing, err := s.Reservations.ListByRoomAndDate(ctx, roomID, slot.Date)
	if err != nil {
		return nil, storageErr("list reservations", err)
	}
	return &Availability{
		Available:          !schedule.HasConflict(existing, slot.Start, slot.End, 0),
		Room:               room,
		RequestedDate:      slot.Date,
		RequestedStartTime: slot.Start.String(),
		RequestedEndTime:   slot.End.String(),
	}, nil
}
