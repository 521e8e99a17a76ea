// Package service holds the business rules of the reservation system.
// Handlers call services; services call the stores, the schedule engine
// and the ledger gateway, and classify every failure with one of the
// taxonomy errors below so the API layer can map it to a response.
package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/meeting-room-reservation/internal/ledger"
	"github.com/iliyamo/meeting-room-reservation/internal/repository"
)

// Error taxonomy.  Every error returned by a service matches exactly one
// of these with errors.Is, except that gateway failures during a payment
// match both ErrPayment and the gateway kind.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("scheduling conflict")
	ErrBusinessRule       = errors.New("business rule violated")
	ErrAuthentication     = errors.New("authentication failed")
	ErrPayment            = errors.New("payment failed")
	ErrGatewayTimeout     = errors.New("ledger gateway timeout")
	ErrGatewayUnreachable = errors.New("ledger gateway unreachable")
	ErrStorage            = errors.New("storage error")

	// ErrPaymentOrphaned marks a confirmed burn whose reservation could
	// not be stored: the requester was charged without a booking.
	ErrPaymentOrphaned = errors.New("payment taken but reservation not stored")
)

// Business rules.
var (
	ErrOutOfHours      = errors.New("reservations must start and end between 09:00 and 18:00")
	ErrDuration        = errors.New("reservations must last between 30 and 480 minutes")
	ErrRoomUnavailable = errors.New("room is not available for booking")
)

// ValidationError lists every problem found in a request.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// validator collects problems; err returns nil when there are none.
type validator struct {
	problems []string
}

func (v *validator) check(ok bool, msg string) {
	if !ok {
		v.problems = append(v.problems, msg)
	}
}

func (v *validator) add(msg string) { v.problems = append(v.problems, msg) }

func (v *validator) err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

func invalid(problems ...string) error { return &ValidationError{Problems: problems} }

func rule(err error) error { return fmt.Errorf("%w: %w", ErrBusinessRule, err) }

// storageErr classifies a repository error.
func storageErr(step string, err error) error {
	switch {
	case errors.Is(err, repository.ErrRoomNotFound), errors.Is(err, repository.ErrReservationNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, repository.ErrDuplicateName), errors.Is(err, repository.ErrHasReservations):
		return rule(err)
	case errors.Is(err, repository.ErrInvalidStatus), errors.Is(err, repository.ErrNoChanges):
		return invalid(err.Error())
	}
	return fmt.Errorf("%s: %w: %w", step, ErrStorage, err)
}

// gatewayErr classifies a ledger error outside the payment flow.
func gatewayErr(err error) error {
	switch {
	case errors.Is(err, ledger.ErrTimeout):
		return fmt.Errorf("%w: %w", ErrGatewayTimeout, err)
	case errors.Is(err, ledger.ErrUnreachable):
		return fmt.Errorf("%w: %w", ErrGatewayUnreachable, err)
	case errors.Is(err, ledger.ErrAuthFailed):
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	case errors.Is(err, ledger.ErrInvalidAddress), errors.Is(err, ledger.ErrInvalidAmount):
		return invalid(err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrAlreadyClaimed),
		errors.Is(err, ledger.ErrReverted),
		errors.Is(err, ledger.ErrRejected):
		return rule(err)
	}
	return err
}

// paymentErr classifies a failed booking-fee burn.  Gateway timeouts and
// outages keep their own kind as well as ErrPayment.
func paymentErr(err error) error {
	switch {
	case errors.Is(err, ledger.ErrTimeout):
		return fmt.Errorf("%w: %w: %w", ErrPayment, ErrGatewayTimeout, err)
	case errors.Is(err, ledger.ErrUnreachable):
		return fmt.Errorf("%w: %w: %w", ErrPayment, ErrGatewayUnreachable, err)
	}
	return fmt.Errorf("%w: %w", ErrPayment, err)
}

// Kind returns the machine-readable error kind reported to clients.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPaymentOrphaned):
		return "payment_orphaned"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrAuthentication):
		return "authentication_error"
	case errors.Is(err, ErrGatewayTimeout):
		return "gateway_timeout"
	case errors.Is(err, ErrGatewayUnreachable):
		return "gateway_unreachable"
	case errors.Is(err, ErrPayment):
		return "payment_error"
	case errors.Is(err, ErrBusinessRule):
		return "business_rule"
	}
	return "storage_error"
}
