package service

import (
	"errors"
	"fmt"
)

// ErrBoatNotBookable is returned when a booking targets a boat that is
// inactive or already completed.
var ErrBoatNotBookable = errors.New("boat not open for booking")

// ErrInvalidSubPool is returned when a landing selection is supplied for a
// boat type that has no sub-pools, or an escuna booking omits one.
var ErrInvalidSubPool = errors.New("invalid sub-pool for boat type")

// ErrLedgerInconsistent is returned when a reservation's stored paid/due
// split no longer sums to its total.  The mutation is rejected rather than
// silently repaired; reconciliation is a deliberate admin action.
var ErrLedgerInconsistent = errors.New("payment ledger inconsistent")

// ErrNotPastSailing is returned when a no-show is recorded before the
// sailing date has passed.
var ErrNotPastSailing = errors.New("sailing date has not passed")

// ErrNoGroup is returned when a group-scoped operation targets a
// reservation without a group id.
var ErrNoGroup = errors.New("reservation has no group")

// ErrNoPassengers is returned when a booking request carries an empty
// passenger list.
var ErrNoPassengers = errors.New("booking has no passengers")

// PartialPropagationError reports a group fan-out that failed after the
// anchor write was already committed.  The anchor's effect is durable; the
// caller learns how many siblings were updated versus expected so it can
// retry propagation alone.
type PartialPropagationError struct {
	Updated  int   // sibling rows written before the failure
	Expected int   // sibling rows that should have been written
	Err      error // underlying cause
}

func (e *PartialPropagationError) Error() string {
	return fmt.Sprintf("group propagation incomplete: %d/%d siblings updated: %v", e.Updated, e.Expected, e.Err)
}

func (e *PartialPropagationError) Unwrap() error { return e.Err }
