package service

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/jmarins/boat-tour-reservation/internal/model"
	"github.com/jmarins/boat-tour-reservation/internal/repository"
)

// GroupCoordinator keeps state that must be identical across all
// reservations sharing a group id (terms acceptance, whole-party
// cancellation) consistent.  Fan-out runs after the anchor's own write has
// committed: a customer's acceptance is never rolled back because sibling
// propagation hit a transient failure.  Instead the caller receives a
// PartialPropagationError with the updated/expected counts.
type GroupCoordinator struct {
	db    *sql.DB
	boats *repository.BoatRepo
	resv  *repository.ReservationRepo
}

// NewGroupCoordinator constructs a GroupCoordinator.  All dependencies must
// be non-nil.
func NewGroupCoordinator(db *sql.DB, boats *repository.BoatRepo, resv *repository.ReservationRepo) *GroupCoordinator {
	if db == nil || boats == nil || resv == nil {
		panic("nil dependency passed to NewGroupCoordinator")
	}
	return &GroupCoordinator{db: db, boats: boats, resv: resv}
}

// NewGroupID generates the shared identifier for a multi-seat booking.
func NewGroupID() string { return uuid.NewString() }

// Propagate applies the given fields to every member of the anchor's group
// except the anchor itself, in one atomic transaction.  The anchor is
// skipped because the caller has already written it.  Returns the number of
// sibling rows updated.  When the update cancels approved siblings, their
// seats are released inside the same transaction so the capacity invariant
// holds at commit.
//
// Errors are returned as *PartialPropagationError so the caller can report
// partial success without undoing the anchor.
func (g *GroupCoordinator) Propagate(ctx context.Context, anchor *model.Reservation, update repository.GroupUpdate) (int, error) {
	if anchor.GroupID == nil {
		return 0, ErrNoGroup
	}
	if update.Empty() {
		return 0, nil
	}

	// Expected sibling count for partial-failure reporting, read before the
	// write transaction so a failed BeginTx still reports a meaningful total.
	members, err := g.resv.ListByGroup(ctx, *anchor.GroupID)
	if err != nil {
		return 0, &PartialPropagationError{Updated: 0, Expected: 0, Err: repository.WrapRetryable(err)}
	}
	expected := 0
	for _, m := range members {
		if m.ID != anchor.ID {
			expected++
		}
	}
	if expected == 0 {
		return 0, nil
	}

	updated, err := g.propagateTx(ctx, anchor, update)
	if err != nil {
		return 0, &PartialPropagationError{Updated: 0, Expected: expected, Err: repository.WrapRetryable(err)}
	}
	return updated, nil
}

func (g *GroupCoordinator) propagateTx(ctx context.Context, anchor *model.Reservation, update repository.GroupUpdate) (int, error) {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock the boat row first; every writer for a boat takes this lock in
	// the same order, which keeps bookings, approvals and fan-outs from
	// deadlocking each other.
	if _, err := g.boats.GetForUpdateTx(ctx, tx, anchor.BoatID); err != nil {
		return 0, err
	}
	siblings, err := g.resv.ListByGroupForUpdateTx(ctx, tx, *anchor.GroupID)
	if err != nil {
		return 0, err
	}

	// Seats of approved siblings about to be cancelled must be released in
	// the same transaction as the status change.
	if update.Cancelled {
		for _, s := range siblings {
			if s.ID == anchor.ID {
				continue
			}
			if s.Status == model.StatusApproved {
				if err := g.boats.DecrementTakenTx(ctx, tx, s.BoatID, s.EscunaType); err != nil {
					return 0, err
				}
			}
		}
	}

	updated, err := g.resv.UpdateSiblingsTx(ctx, tx, *anchor.GroupID, anchor.ID, update)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return updated, nil
}
