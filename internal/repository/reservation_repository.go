package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/schedule"
)

// reservationSelect joins the room name onto every reservation read.
const reservationSelect = `SELECT r.id, r.room_id, rm.name, DATE_FORMAT(r.date, '%Y-%m-%d'),
       r.start_time, r.end_time, r.purpose, r.requester,
       r.wallet_address, r.kjb_burned, r.burn_tx_hash, r.created_at
  FROM reservations r
  JOIN rooms rm ON rm.id = r.room_id`

// ReservationRepo provides CRUD operations for reservations.  Writes
// that change a slot run in a read-committed transaction holding the
// room row lock, which serialises conflict checks per room.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

func scanReservation(s rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	var wallet, txHash sql.NullString
	if err := s.Scan(
		&res.ID, &res.RoomID, &res.RoomName, &res.Date,
		&res.StartTime, &res.EndTime, &res.Purpose, &res.Requester,
		&wallet, &res.KJBBurned, &txHash, &res.CreatedAt,
	); err != nil {
		return nil, err
	}
	if wallet.Valid {
		w := wallet.String
		res.WalletAddress = &w
	}
	if txHash.Valid {
		h := txHash.String
		res.BurnTxHash = &h
	}
	return &res, nil
}

func (r *ReservationRepo) list(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FindByID returns ErrReservationNotFound when no row matches.
func (r *ReservationRepo) FindByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, reservationSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// ListByRoomAndDate returns the reservations of one room on one date in
// start order.  This is the input of every conflict and status check.
func (r *ReservationRepo) ListByRoomAndDate(ctx context.Context, roomID uint64, date string) ([]model.Reservation, error) {
	return r.list(ctx, reservationSelect+` WHERE r.room_id = ? AND r.date = ? ORDER BY r.start_time`, roomID, date)
}

// ListByDate returns all reservations on date across rooms.
func (r *ReservationRepo) ListByDate(ctx context.Context, date string) ([]model.Reservation, error) {
	return r.list(ctx, reservationSelect+` WHERE r.date = ? ORDER BY r.start_time, rm.name`, date)
}

// ListAll returns every reservation, newest date first.
func (r *ReservationRepo) ListAll(ctx context.Context) ([]model.Reservation, error) {
	return r.list(ctx, reservationSelect+` ORDER BY r.date DESC, r.start_time DESC`)
}

// ListUpcoming returns at most limit reservations dated on or after from.
func (r *ReservationRepo) ListUpcoming(ctx context.Context, from string, limit int) ([]model.Reservation, error) {
	return r.list(ctx, reservationSelect+` WHERE r.date >= ? ORDER BY r.date, r.start_time LIMIT ?`, from, limit)
}

func (r *ReservationRepo) begin(ctx context.Context) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

// lockRoomTx takes the row lock that serialises slot writes for a room.
func lockRoomTx(ctx context.Context, tx *sql.Tx, roomID uint64) error {
	var id uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM rooms WHERE id = ? FOR UPDATE`, roomID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRoomNotFound
	}
	return err
}

// checkConflictTx loads the slots booked on (roomID, date) inside tx and
// fails with ErrConflict if [start, end) overlaps one of them other than
// excludeID.
func checkConflictTx(ctx context.Context, tx *sql.Tx, roomID uint64, date, start, end string, excludeID uint64) error {
	s, err := schedule.ParseTimeOfDay(start)
	if err != nil {
		return err
	}
	e, err := schedule.ParseTimeOfDay(end)
	if err != nil {
		return err
	}
	const q = `SELECT id, start_time, end_time FROM reservations WHERE room_id = ? AND date = ?`
	rows, err := tx.QueryContext(ctx, q, roomID, date)
	if err != nil {
		return err
	}
	defer rows.Close()

	var booked []model.Reservation
	for rows.Next() {
		var b model.Reservation
		if err := rows.Scan(&b.ID, &b.StartTime, &b.EndTime); err != nil {
			return err
		}
		booked = append(booked, b)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if hit, found := schedule.FindConflict(booked, s, e, excludeID); found {
		return fmt.Errorf("%w: overlaps reservation %d (%s-%s)", ErrConflict, hit.ID, hit.StartTime, hit.EndTime)
	}
	return nil
}

// Create inserts res after re-checking for overlaps inside the same
// transaction.  Concurrent creates for one room queue on the room row
// lock, so at most one of two overlapping requests can succeed; the
// other gets ErrConflict.  On success res is replaced by the stored row.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := lockRoomTx(ctx, tx, res.RoomID); err != nil {
		return err
	}
	if err := checkConflictTx(ctx, tx, res.RoomID, res.Date, res.StartTime, res.EndTime, 0); err != nil {
		return err
	}

	const q = `INSERT INTO reservations
	           (room_id, date, start_time, end_time, purpose, requester, wallet_address, kjb_burned, burn_tx_hash)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		res.RoomID, res.Date, res.StartTime, res.EndTime, res.Purpose, res.Requester,
		res.WalletAddress, res.KJBBurned, res.BurnTxHash,
	)
	if err != nil {
		if isMySQLError(err, mysqlNoReferencedRow) {
			return ErrRoomNotFound
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	stored, err := r.FindByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*res = *stored
	return nil
}

// Update merges p into the stored reservation and writes the result.  If
// the slot moves, the effective interval is checked against the other
// reservations of the room on the effective date, excluding this one.
func (r *ReservationRepo) Update(ctx context.Context, id uint64, p model.ReservationPatch) (*model.Reservation, error) {
	if p.Empty() {
		return nil, ErrNoChanges
	}
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var cur model.Reservation
	const sel = `SELECT room_id, DATE_FORMAT(date, '%Y-%m-%d'), start_time, end_time, purpose, requester
	             FROM reservations WHERE id = ? FOR UPDATE`
	if err := tx.QueryRowContext(ctx, sel, id).Scan(
		&cur.RoomID, &cur.Date, &cur.StartTime, &cur.EndTime, &cur.Purpose, &cur.Requester,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	merged := cur
	if p.Date != nil {
		merged.Date = *p.Date
	}
	if p.StartTime != nil {
		merged.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		merged.EndTime = *p.EndTime
	}
	if p.Purpose != nil {
		merged.Purpose = *p.Purpose
	}
	if p.Requester != nil {
		merged.Requester = *p.Requester
	}

	if p.TouchesSlot() {
		if err := lockRoomTx(ctx, tx, cur.RoomID); err != nil {
			return nil, err
		}
		if err := checkConflictTx(ctx, tx, cur.RoomID, merged.Date, merged.StartTime, merged.EndTime, id); err != nil {
			return nil, err
		}
	}

	const upd = `UPDATE reservations
	             SET date = ?, start_time = ?, end_time = ?, purpose = ?, requester = ?
	             WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd,
		merged.Date, merged.StartTime, merged.EndTime, merged.Purpose, merged.Requester, id,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return r.FindByID(ctx, id)
}

// Delete removes a reservation by id.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrReservationNotFound
	}
	return nil
}
