// Package repository holds the MySQL data access for rooms and
// reservations.  The sentinel values below let the service layer tell
// storage outcomes apart without inspecting driver errors; anything else
// returned by a repository is an I/O failure.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrDuplicateName is returned when a room name is already taken.
	ErrDuplicateName = errors.New("room name already exists")

	// ErrHasReservations is returned when deleting a room that is still
	// referenced by reservations.
	ErrHasReservations = errors.New("room has reservations")

	// ErrConflict is returned when a reservation would overlap another
	// one on the same room and date.
	ErrConflict = errors.New("time slot conflicts with an existing reservation")

	ErrInvalidStatus = errors.New("invalid room status")

	// ErrNoChanges is returned by partial updates with nothing to set.
	ErrNoChanges = errors.New("no fields to update")
)

// MySQL server error numbers.
const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

func isMySQLError(err error, number uint16) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == number
}
