// Package repository defines error values reused across repositories.  These
// sentinels let the service and handler layers distinguish failure kinds with
// errors.Is instead of string matching: capacity conflicts are recoverable by
// choosing different seats, invariant violations are caller bugs, and
// retryable store errors signal that the whole operation may be re-invoked.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrBoatNotFound is returned when a boat lookup yields no rows.
var ErrBoatNotFound = errors.New("boat not found")

// ErrReservationNotFound is returned when a reservation lookup yields no rows.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrSeatTaken is returned when the requested seat number is already held by
// a pending, pre-reserved or approved reservation on the same boat.  The
// caller may retry with a different seat.
var ErrSeatTaken = errors.New("seat already taken")

// ErrInsufficientCapacity is returned when a booking or approval would
// exceed the boat's capacity (or the selected sub-pool's capacity).
var ErrInsufficientCapacity = errors.New("insufficient capacity")

// ErrInvalidTransition is returned when a status change is not in the
// transition table.  It indicates a caller logic error and is never retried.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrAmountExceedsDue is returned when a payment would overpay the balance.
var ErrAmountExceedsDue = errors.New("amount exceeds due balance")

// ErrInvalidAmount is returned for zero or negative payment amounts.
var ErrInvalidAmount = errors.New("invalid payment amount")

// ErrRetryable marks transient store failures (deadlock, lock wait timeout).
// The core never loop-retries itself; callers detect this category with
// errors.Is and re-invoke the whole operation for a fresh snapshot.
var ErrRetryable = errors.New("retryable store error")

// MySQL server error codes that indicate a transaction lost a race and may
// be retried.
const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// WrapRetryable tags deadlock and lock-wait failures with ErrRetryable and
// passes every other error through unchanged.
func WrapRetryable(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		if me.Number == mysqlErrDeadlock || me.Number == mysqlErrLockWaitTimeout {
			return fmt.Errorf("%w: %v", ErrRetryable, err)
		}
	}
	return err
}
