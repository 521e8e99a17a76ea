package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

const roomColumns = `id, name, capacity, location, status, created_at, updated_at`

// RoomRepo provides CRUD operations for rooms.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(s rowScanner) (*model.Room, error) {
	var rm model.Room
	var status string
	if err := s.Scan(&rm.ID, &rm.Name, &rm.Capacity, &rm.Location, &status, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
		return nil, err
	}
	rm.Status = model.RoomStatus(status)
	return &rm, nil
}

// FindByID returns ErrRoomNotFound when no row matches.
func (r *RoomRepo) FindByID(ctx context.Context, id uint64) (*model.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
	rm, err := scanRoom(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	return rm, err
}

// FindByName looks a room up by its unique name.
func (r *RoomRepo) FindByName(ctx context.Context, name string) (*model.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms WHERE name = ?`
	rm, err := scanRoom(r.db.QueryRowContext(ctx, q, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	return rm, err
}

// List returns every room ordered by name.  An empty table yields an
// empty, non-nil slice.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Room, 0)
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a room and reads it back so that the store-assigned
// fields are populated.  An empty status defaults to available.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
	if rm.Status == "" {
		rm.Status = model.RoomAvailable
	}
	if !rm.Status.Valid() {
		return ErrInvalidStatus
	}
	const q = `INSERT INTO rooms (name, capacity, location, status) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rm.Name, rm.Capacity, rm.Location, string(rm.Status))
	if err != nil {
		if isMySQLError(err, mysqlDuplicateEntry) {
			return ErrDuplicateName
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.FindByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*rm = *created
	return nil
}

// Update applies the non-nil fields of p and returns the updated row.
func (r *RoomRepo) Update(ctx context.Context, id uint64, p model.RoomPatch) (*model.Room, error) {
	if p.Empty() {
		return nil, ErrNoChanges
	}
	sets := make([]string, 0, 5)
	args := make([]any, 0, 5)
	if p.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *p.Name)
	}
	if p.Capacity != nil {
		sets = append(sets, "capacity = ?")
		args = append(args, *p.Capacity)
	}
	if p.Location != nil {
		sets = append(sets, "location = ?")
		args = append(args, *p.Location)
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		sets = append(sets, "status = ?")
		args = append(args, string(*p.Status))
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	q := `UPDATE rooms SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		if isMySQLError(err, mysqlDuplicateEntry) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	// The driver reports changed rather than matched rows, so existence
	// is settled by reading the row back.
	return r.FindByID(ctx, id)
}

// UpdateStatus sets the administrative status of a room.
func (r *RoomRepo) UpdateStatus(ctx context.Context, id uint64, status model.RoomStatus) (*model.Room, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return r.Update(ctx, id, model.RoomPatch{Status: &status})
}

// Delete removes a room that no reservation references.  The count and
// the delete run in one transaction with the room row locked, so a
// reservation cannot slip in between them.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked uint64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM rooms WHERE id = ? FOR UPDATE`, id).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoomNotFound
		}
		return err
	}
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE room_id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrHasReservations
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id); err != nil {
		if isMySQLError(err, mysqlRowIsReferenced) {
			return ErrHasReservations
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// CountReservations returns how many reservations reference the room.
func (r *RoomRepo) CountReservations(ctx context.Context, roomID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE room_id = ?`, roomID).Scan(&n)
	return n, err
}
