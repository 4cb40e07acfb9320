package model

import (
	"errors"
	"fmt"
	"strings"
)

// ReservationStatus is a closed enumeration of reservation states.  The
// database stores the lowercase string form; unknown strings are rejected at
// the boundary by ParseReservationStatus instead of being carried around.
type ReservationStatus string

const (
	StatusPending     ReservationStatus = "pending"      // awaiting admin approval
	StatusApproved    ReservationStatus = "approved"     // seat confirmed, counted against capacity
	StatusCancelled   ReservationStatus = "cancelled"    // terminal; seat released if it was approved
	StatusPreReserved ReservationStatus = "pre_reserved" // held without full commitment; behaves like pending
	StatusNoShow      ReservationStatus = "no_show"      // terminal, post-sailing marker; seat stays counted
)

// ErrUnknownStatus is returned by ParseReservationStatus for values outside
// the enumeration.
var ErrUnknownStatus = errors.New("unknown reservation status")

// ParseReservationStatus validates a raw string against the enumeration.
func ParseReservationStatus(raw string) (ReservationStatus, error) {
	s := ReservationStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusApproved, StatusCancelled, StatusPreReserved, StatusNoShow:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

// transitions is the exhaustive table of legal status changes.  Anything not
// listed here is rejected.  pre_reserved follows the same rules as pending.
// There is no way out of cancelled or no_show.
var transitions = map[ReservationStatus]map[ReservationStatus]bool{
	StatusPending: {
		StatusApproved:  true,
		StatusCancelled: true,
	},
	StatusPreReserved: {
		StatusApproved:  true,
		StatusCancelled: true,
	},
	StatusApproved: {
		StatusCancelled: true,
		StatusNoShow:    true,
	},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to ReservationStatus) bool {
	return transitions[from][to]
}

// HoldsSeat reports whether a reservation in this status occupies its seat
// number.  Pending and pre-reserved rows hold their seat so that two
// concurrent bookings cannot claim the same number, even though only
// approved rows count against the seats-taken counters.
func (s ReservationStatus) HoldsSeat() bool {
	switch s {
	case StatusPending, StatusApproved, StatusPreReserved:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s ReservationStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusNoShow
}

// BoatStatus enumerates the lifecycle of a sailing.
type BoatStatus string

const (
	BoatActive    BoatStatus = "active"
	BoatInactive  BoatStatus = "inactive"
	BoatCompleted BoatStatus = "completed"
)

// ParseBoatStatus validates a raw boat status string.
func ParseBoatStatus(raw string) (BoatStatus, error) {
	s := BoatStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case BoatActive, BoatInactive, BoatCompleted:
		return s, nil
	}
	return "", fmt.Errorf("unknown boat status %q", raw)
}

// BoatType distinguishes the two vessel classes.  Only escuna boats carry
// the with-landing / without-landing sub-pools.
type BoatType string

const (
	BoatEscuna BoatType = "escuna"
	BoatLancha BoatType = "lancha"
)

// SubPool names a subdivision of an escuna's capacity.  The empty value
// means the whole boat (lancha bookings and escuna bookings without a
// service selection).
type SubPool string

const (
	SubPoolNone           SubPool = ""
	SubPoolWithLanding    SubPool = "with_landing"
	SubPoolWithoutLanding SubPool = "without_landing"
)

// ParseSubPool validates a raw sub-pool string; empty input is valid and
// means no sub-pool selection.
func ParseSubPool(raw string) (SubPool, error) {
	s := SubPool(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case SubPoolNone, SubPoolWithLanding, SubPoolWithoutLanding:
		return s, nil
	}
	return "", fmt.Errorf("unknown sub-pool %q", raw)
}
